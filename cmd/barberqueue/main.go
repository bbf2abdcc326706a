// Command barberqueue runs the walk-in queue service and its operator tasks.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bissquit/barber-queue/internal/config"
	"github.com/bissquit/barber-queue/internal/version"
	"github.com/spf13/cobra"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// cli carries state shared by subcommands.
type cli struct {
	configPath string
	config     *config.Config
}

func newRootCommand() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:           "barberqueue",
		Short:         "Walk-in queue service for barbershops",
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := config.Load(c.configPath)
			if err != nil {
				return err
			}
			c.config = cfg
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", os.Getenv("BARBERQUEUE_CONFIG"), "path to YAML config file")

	root.AddCommand(
		c.serveCommand(),
		c.migrateCommand(),
		c.tokenCommand(),
		c.barberCommand(),
	)

	return root
}
