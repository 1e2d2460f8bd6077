package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"tudor/internal/config"
	"tudor/internal/server"
)

func newSrvCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "srv",
		Short: "Run the tudor API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := slog.Default().With("component", "server")

			addr, err := server.ListenAddr(cfg.APIURL)
			if err != nil {
				return err
			}

			svc, schemaVersion, closeBackend, err := localService(cfg, slog.Default())
			if err != nil {
				return err
			}
			defer closeBackend()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := server.New(addr, svc, logger, server.Options{
				RateLimitRPS:   cfg.RateLimit.RPS,
				RateLimitBurst: cfg.RateLimit.Burst,
				SchemaVersion:  schemaVersion,
			})
			return srv.ListenAndServe(ctx)
		},
	}
}

