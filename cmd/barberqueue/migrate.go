package main

import (
	"errors"

	"github.com/bissquit/barber-queue/internal/pkg/postgres"
	"github.com/spf13/cobra"
)

func (c *cli) migrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or revert database migrations",
	}

	for _, direction := range []postgres.Direction{postgres.MigrateUp, postgres.MigrateDown} {
		direction := direction
		short := "Apply all pending migrations"
		if direction == postgres.MigrateDown {
			short = "Revert the last applied migration"
		}

		cmd.AddCommand(&cobra.Command{
			Use:   string(direction),
			Short: short,
			Args:  cobra.NoArgs,
			RunE: func(_ *cobra.Command, _ []string) error {
				if c.config.Database.URL == "" {
					return errors.New("database.url is not configured")
				}
				return postgres.Migrate(c.config.Database.MigrationsPath, c.config.Database.URL, direction)
			},
		})
	}

	return cmd
}
