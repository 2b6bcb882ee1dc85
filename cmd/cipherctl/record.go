package main

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/FSM1/cipher-box-sub011/internal/crypto"
	"github.com/FSM1/cipher-box-sub011/internal/ipns"
)

func recordCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Create, inspect, and verify IPNS records",
	}
	cmd.AddCommand(recordCreateCmd())
	cmd.AddCommand(recordInspectCmd())
	cmd.AddCommand(recordVerifyCmd())
	return cmd
}

func readRecordBytes(recordB64, path string) ([]byte, error) {
	switch {
	case recordB64 != "" && path != "":
		return nil, errors.New("--record and --file are mutually exclusive")
	case recordB64 != "":
		return base64.StdEncoding.DecodeString(recordB64)
	case path != "":
		return os.ReadFile(path)
	default:
		return nil, errors.New("one of --record or --file is required")
	}
}

func recordCreateCmd() *cobra.Command {
	var seedHex, value string
	var seq uint64
	var lifetime time.Duration

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Sign a new record and print its wire form",
		RunE: func(cmd *cobra.Command, args []string) error {
			seed, err := hex.DecodeString(seedHex)
			if err != nil || len(seed) != ed25519.SeedSize {
				return errors.New("signing seed must be 32 bytes of hex")
			}
			defer crypto.Zero(seed)

			pub, priv, err := crypto.SigningKeyFromSeed(seed)
			if err != nil {
				return err
			}
			defer crypto.Zero(priv)

			rec, err := ipns.Create(priv, value, seq, lifetime)
			if err != nil {
				return err
			}

			out := map[string]any{
				"ipnsName": ipns.NameFromPublicKey(pub),
				"record":   base64.StdEncoding.EncodeToString(ipns.Marshal(rec)),
				"sequence": rec.Sequence,
				"validity": string(rec.Validity),
			}
			data, err := json.MarshalIndent(out, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
	cmd.Flags().StringVar(&seedHex, "seed-hex", "", "Ed25519 signing seed, hex encoded")
	cmd.Flags().StringVar(&value, "value", "", "CID the record points at")
	cmd.Flags().Uint64Var(&seq, "seq", 0, "sequence number")
	cmd.Flags().DurationVar(&lifetime, "lifetime", ipns.DefaultLifetime, "record validity window")
	_ = cmd.MarkFlagRequired("seed-hex")
	_ = cmd.MarkFlagRequired("value")
	return cmd
}

func recordInspectCmd() *cobra.Command {
	var recordB64, path string

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Parse a wire record and print its fields without verifying",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readRecordBytes(recordB64, path)
			if err != nil {
				return err
			}
			rec, err := ipns.Parse(raw)
			if err != nil {
				return err
			}

			out := map[string]any{
				"value":     string(rec.Value),
				"sequence":  rec.Sequence,
				"validity":  string(rec.Validity),
				"ttlNs":     rec.TTL,
				"hasSigV1":  len(rec.SignatureV1) > 0,
				"hasPubKey": len(rec.PubKey) > 0,
				"expired":   rec.Expired(time.Now()),
			}
			data, err := json.MarshalIndent(out, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
	cmd.Flags().StringVar(&recordB64, "record", "", "record bytes, base64 encoded")
	cmd.Flags().StringVar(&path, "file", "", "path to raw record bytes")
	return cmd
}

func recordVerifyCmd() *cobra.Command {
	var recordB64, path, name string

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify a record's signature and validity window",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readRecordBytes(recordB64, path)
			if err != nil {
				return err
			}
			res, err := ipns.VerifyResolved(raw, name)
			if err != nil {
				return err
			}
			out := map[string]any{
				"value":             res.Value,
				"sequence":          res.Sequence,
				"signatureVerified": res.SignatureVerified,
			}
			data, err := json.MarshalIndent(out, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
	cmd.Flags().StringVar(&recordB64, "record", "", "record bytes, base64 encoded")
	cmd.Flags().StringVar(&path, "file", "", "path to raw record bytes")
	cmd.Flags().StringVar(&name, "name", "", "IPNS name, used when the record omits its public key")
	return cmd
}
