// Command cipherboxd runs the key-epoch republishing service.
package main

import (
	"context"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/FSM1/cipher-box-sub011/internal/config"
	"github.com/FSM1/cipher-box-sub011/internal/crypto"
	"github.com/FSM1/cipher-box-sub011/internal/platform"
	"github.com/FSM1/cipher-box-sub011/internal/server"
	"github.com/FSM1/cipher-box-sub011/internal/storage"
	"github.com/FSM1/cipher-box-sub011/internal/tee"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "", "path to config file")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := platform.DisableCoreDumps(); err != nil {
		logger.Warn("could not disable core dumps", "err", err)
	}

	if err := run(cfgPath, logger); err != nil {
		logger.Error("cipherboxd failed", "err", err)
		os.Exit(1)
	}
}

func run(cfgPath string, logger *slog.Logger) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx := context.Background()

	deriver, closeDeriver, err := buildDeriver(cfg.TEE)
	if err != nil {
		return fmt.Errorf("tee backend: %w", err)
	}
	defer closeDeriver()

	stateStore, auditor, closeStores, err := buildStores(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("storage backend: %w", err)
	}
	defer closeStores()

	manager := tee.NewManager(deriver, stateStore, auditor, cfg.TEE.GracePeriod, logger)
	if _, err := stateStore.Load(ctx); errors.Is(err, storage.ErrNotFound) {
		if _, err := manager.Bootstrap(ctx); err != nil {
			return fmt.Errorf("bootstrap epoch state: %w", err)
		}
	} else if err != nil {
		return fmt.Errorf("load epoch state: %w", err)
	}

	var reg *prometheus.Registry
	var metrics *tee.Metrics
	if cfg.Metrics.Enabled {
		reg = prometheus.NewRegistry()
		metrics = tee.NewMetrics(reg)
	}
	svc := tee.NewService(deriver, tee.NewPublicKeyCache(), logger, metrics)

	srv, err := server.New(server.Config{
		BearerSecret:       cfg.Server.BearerSecret,
		RepublishPerMinute: cfg.Server.RepublishPerMinute,
		RepublishBurst:     cfg.Server.RepublishBurst,
	}, svc, stateStore, logger, reg)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      srv.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	logger.Info("cipherboxd listening",
		"addr", addr,
		"tee_backend", cfg.TEE.Backend,
		"storage_backend", cfg.Storage.Backend,
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info("shutting down", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

func buildDeriver(cfg config.TEEConfig) (tee.Deriver, func(), error) {
	seed, err := hex.DecodeString(cfg.SeedHex)
	if err != nil {
		return nil, nil, errors.New("tee seed is not valid hex")
	}
	defer crypto.Zero(seed)

	switch cfg.Backend {
	case "simulator":
		d, err := tee.NewSimulatorDeriver(seed, cfg.Environment)
		if err != nil {
			return nil, nil, err
		}
		return d, func() {}, nil
	case "nitro":
		d, err := tee.NewNitroDeriver(seed)
		if err != nil {
			return nil, nil, err
		}
		return d, d.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown tee backend %q", cfg.Backend)
	}
}

func buildStores(ctx context.Context, cfg config.StorageConfig) (tee.StateStore, tee.RotationAuditor, func(), error) {
	switch cfg.Backend {
	case "file":
		state := storage.NewFileStateStore(filepath.Join(cfg.Dir, "epoch-state.json"))
		trail, err := storage.OpenFileAuditTrail(filepath.Join(cfg.Dir, "epoch-rotations.jsonl"))
		if err != nil {
			return nil, nil, nil, err
		}
		return state, trail, func() {}, nil
	case "mongo":
		state, err := storage.NewMongoStateStore(ctx, cfg.MongoURI, cfg.MongoDB, cfg.StateCollection)
		if err != nil {
			return nil, nil, nil, err
		}
		trail, err := storage.NewMongoAuditTrail(ctx, cfg.MongoURI, cfg.MongoDB, cfg.AuditCollection)
		if err != nil {
			_ = state.Close(ctx)
			return nil, nil, nil, err
		}
		closeAll := func() {
			cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = trail.Close(cctx)
			_ = state.Close(cctx)
		}
		return state, trail, closeAll, nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
