package cli

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/born-ml/superres/internal/logger"
	"github.com/born-ml/superres/internal/telemetry"
	"github.com/born-ml/superres/internal/training"
)

func runTrain(cmd *cobra.Command, opts *options) error {
	ctx := cmd.Context()
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}

	log := logger.NewWithWriter(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format)
	log.Info("superres starting", "version", Version, "config", opts.configFile)

	s, err := training.NewSession(cfg, log)
	if err != nil {
		return err
	}
	defer s.Close()

	if cfg.Run.IsVal {
		if err := s.ValidateBenchmarks(ctx); err != nil {
			return err
		}
		_, err := s.ScoreBenchmarks(ctx, cmd.OutOrStdout())
		return err
	}

	loop, err := s.Prepare(ctx, os.Args)
	if err != nil {
		return err
	}

	if cfg.Status.Addr != "" {
		srv := telemetry.NewStatusServer(cfg.Status.Addr, s.Metrics, loop.Snapshot, log)
		addr, err := srv.Start()
		if err != nil {
			return err
		}
		log.Info("status server listening", "addr", addr)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Warn("status server shutdown", "error", err)
			}
		}()
	}

	err = loop.Run(ctx)
	if errors.Is(err, context.Canceled) {
		log.Info("training interrupted", "iteration", loop.Iteration(), "epoch", loop.Epoch())
	}
	return err
}
