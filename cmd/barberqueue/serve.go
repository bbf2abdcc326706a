package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/bissquit/barber-queue/internal/app"
	"github.com/spf13/cobra"
)

func (c *cli) serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and metrics servers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			application, err := app.New(c.config)
			if err != nil {
				return err
			}

			errCh := make(chan error, 1)
			go func() {
				errCh <- application.Run()
			}()

			select {
			case err := <-errCh:
				return err
			case <-cmd.Context().Done():
				slog.Info("shutdown signal received")
			}

			timeout := c.config.Server.ShutdownTimeout
			if timeout <= 0 {
				timeout = 15 * time.Second
			}
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			if err := application.Shutdown(ctx); err != nil {
				return err
			}
			return <-errCh
		},
	}
}
