// Command cipherctl is the operator and developer tool for the vault key
// hierarchy, IPNS records, and epoch rotation.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:           "cipherctl",
		Short:         "CipherBox vault, record, and epoch tooling",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(vaultCmd())
	root.AddCommand(recordCmd())
	root.AddCommand(epochCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
