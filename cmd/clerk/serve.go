package main

import (
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/clerk/internal/api"
	"github.com/MikeSquared-Agency/clerk/internal/hermes"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		logger := slog.Default()
		logger.Info("clerk starting", "port", cfg.Port)

		a, err := newBaseApp(ctx, cfg, logger)
		if err != nil {
			logger.Error("startup failed", "error", err)
			return err
		}
		defer a.Close()

		if err := a.withProcessor(ctx); err != nil {
			logger.Error("startup failed", "error", err)
			return err
		}

		if a.events != nil && a.review != nil {
			err := a.events.Subscribe(hermes.SubjectSlackReaction, func(_ string, data []byte) {
				a.review.HandleReaction(ctx, data)
			})
			if err != nil {
				logger.Error("failed to subscribe to slack reactions", "error", err)
				return err
			}
		}

		srv := api.NewServer(cfg.Port, a.proc, a.feedback, api.Info{
			Provider: cfg.LLMProvider,
			Model:    a.provider.Model(),
			Storage:  a.storageName,
		}, logger)

		if a.events != nil {
			if err := a.events.Publish(hermes.SubjectRegistered, map[string]any{
				"timestamp": time.Now().UTC().Format(time.RFC3339),
				"port":      cfg.Port,
				"provider":  cfg.LLMProvider,
				"model":     a.provider.Model(),
			}); err != nil {
				logger.Warn("failed to publish registration", "error", err)
			}
		}

		logger.Info("clerk ready", "port", cfg.Port, "storage", a.storageName)
		if err := srv.Start(ctx); err != nil {
			logger.Error("HTTP server error", "error", err)
			return err
		}
		logger.Info("clerk stopped")
		return nil
	},
}
