package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/FSM1/cipher-box-sub011/internal/crypto"
	"github.com/FSM1/cipher-box-sub011/internal/storage"
	"github.com/FSM1/cipher-box-sub011/internal/tee"
)

func epochCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "epoch",
		Short: "Operate on the key-epoch state",
	}
	cmd.AddCommand(epochRotateCmd())
	cmd.AddCommand(epochShowCmd())
	return cmd
}

func openEpochStores(dir string) (*storage.FileStateStore, *storage.FileAuditTrail, error) {
	state := storage.NewFileStateStore(filepath.Join(dir, "epoch-state.json"))
	trail, err := storage.OpenFileAuditTrail(filepath.Join(dir, "epoch-rotations.jsonl"))
	if err != nil {
		return nil, nil, err
	}
	return state, trail, nil
}

func epochRotateCmd() *cobra.Command {
	var dir, seedHex, environment, reason string

	cmd := &cobra.Command{
		Use:   "rotate",
		Short: "Advance to the next key epoch, audited",
		RunE: func(cmd *cobra.Command, args []string) error {
			if reason == "" {
				return errors.New("--reason is required; rotations are audited")
			}
			seed, err := hex.DecodeString(seedHex)
			if err != nil {
				return errors.New("seed is not valid hex")
			}
			defer crypto.Zero(seed)

			deriver, err := tee.NewSimulatorDeriver(seed, environment)
			if err != nil {
				return err
			}
			state, trail, err := openEpochStores(dir)
			if err != nil {
				return err
			}

			logger := slog.New(slog.NewTextHandler(io.Discard, nil))
			manager := tee.NewManager(deriver, state, trail, 0, logger)

			ctx := context.Background()
			if _, err := state.Load(ctx); errors.Is(err, storage.ErrNotFound) {
				if _, err := manager.Bootstrap(ctx); err != nil {
					return err
				}
			} else if err != nil {
				return err
			}

			rotated, err := manager.Rotate(ctx, reason)
			if err != nil {
				return err
			}
			data, err := json.MarshalIndent(rotated, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "./data", "storage directory")
	cmd.Flags().StringVar(&seedHex, "seed-hex", "", "simulator master seed, hex encoded")
	cmd.Flags().StringVar(&environment, "environment", "dev", "deployment environment")
	cmd.Flags().StringVar(&reason, "reason", "", "why this rotation is happening")
	_ = cmd.MarkFlagRequired("seed-hex")
	return cmd
}

func epochShowCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the persisted epoch state and audit trail",
		RunE: func(cmd *cobra.Command, args []string) error {
			state, trail, err := openEpochStores(dir)
			if err != nil {
				return err
			}

			s, err := state.Load(context.Background())
			if err != nil && !errors.Is(err, storage.ErrNotFound) {
				return err
			}
			out := map[string]any{
				"state":     s,
				"rotations": trail.Entries(),
			}
			data, err := json.MarshalIndent(out, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "./data", "storage directory")
	return cmd
}
