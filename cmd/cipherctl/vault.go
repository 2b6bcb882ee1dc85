package main

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/spf13/cobra"

	"github.com/FSM1/cipher-box-sub011/internal/crypto"
	"github.com/FSM1/cipher-box-sub011/internal/ipns"
	"github.com/FSM1/cipher-box-sub011/internal/vault"
)

func vaultCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vault",
		Short: "Initialize and inspect the vault key anchor",
	}
	cmd.AddCommand(vaultInitCmd())
	cmd.AddCommand(vaultShowCmd())
	return cmd
}

// parseRootSecret reads the 32-byte secp256k1 root secret from a flag or,
// with --generate, makes a fresh one. The secret never leaves the process
// except when explicitly generated here.
func parseRootSecret(secretHex string, generate bool) (*btcec.PrivateKey, bool, error) {
	if generate {
		if secretHex != "" {
			return nil, false, errors.New("--secret-hex and --generate are mutually exclusive")
		}
		raw := make([]byte, 32)
		if _, err := rand.Read(raw); err != nil {
			return nil, false, err
		}
		defer crypto.Zero(raw)
		priv, _ := btcec.PrivKeyFromBytes(raw)
		return priv, true, nil
	}
	raw, err := hex.DecodeString(secretHex)
	if err != nil || len(raw) != 32 {
		return nil, false, errors.New("root secret must be 32 bytes of hex")
	}
	defer crypto.Zero(raw)
	priv, _ := btcec.PrivKeyFromBytes(raw)
	return priv, false, nil
}

func vaultInitCmd() *cobra.Command {
	var secretHex string
	var generate bool
	var out string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a vault anchor and print its encrypted keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			rootSecret, generated, err := parseRootSecret(secretHex, generate)
			if err != nil {
				return err
			}

			v, err := vault.Initialize(rootSecret)
			if err != nil {
				return err
			}
			defer v.Clear()

			enc, err := vault.EncryptKeys(v, rootSecret.PubKey())
			if err != nil {
				return err
			}

			result := map[string]any{
				"encryptedKeys": enc,
				"ipnsName":      ipns.NameFromPublicKey(v.IPNSPublicKey),
			}
			if generated {
				// Printed exactly once; there is no way to recover it later.
				result["rootSecretHex"] = hex.EncodeToString(rootSecret.Serialize())
			}

			data, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return err
			}
			if out != "" {
				return os.WriteFile(out, data, 0600)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
	cmd.Flags().StringVar(&secretHex, "secret-hex", "", "32-byte root secret, hex encoded")
	cmd.Flags().BoolVar(&generate, "generate", false, "generate a fresh root secret")
	cmd.Flags().StringVar(&out, "out", "", "write output to file instead of stdout")
	return cmd
}

func vaultShowCmd() *cobra.Command {
	var secretHex string
	var keysPath string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Decrypt stored vault keys and show the derived IPNS identity",
		RunE: func(cmd *cobra.Command, args []string) error {
			rootSecret, _, err := parseRootSecret(secretHex, false)
			if err != nil {
				return err
			}

			raw, err := os.ReadFile(keysPath)
			if err != nil {
				return err
			}
			var wrapper struct {
				EncryptedKeys *vault.EncryptedKeys `json:"encryptedKeys"`
			}
			if err := json.Unmarshal(raw, &wrapper); err != nil {
				return err
			}

			v, err := vault.DecryptKeys(wrapper.EncryptedKeys, rootSecret)
			if err != nil {
				return err
			}
			defer v.Clear()

			result := map[string]any{
				"ipnsName":         ipns.NameFromPublicKey(v.IPNSPublicKey),
				"ipnsPublicKeyHex": hex.EncodeToString(v.IPNSPublicKey),
			}
			data, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
	cmd.Flags().StringVar(&secretHex, "secret-hex", "", "32-byte root secret, hex encoded")
	cmd.Flags().StringVar(&keysPath, "keys", "", "path to the encrypted vault keys JSON")
	_ = cmd.MarkFlagRequired("secret-hex")
	_ = cmd.MarkFlagRequired("keys")
	return cmd
}
