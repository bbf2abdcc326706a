package main

import (
	"errors"
	"fmt"

	"github.com/bissquit/barber-queue/internal/app"
	"github.com/bissquit/barber-queue/internal/config"
	"github.com/bissquit/barber-queue/internal/domain"
	queuepostgres "github.com/bissquit/barber-queue/internal/queue/postgres"
	"github.com/spf13/cobra"
)

func (c *cli) barberCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "barber",
		Short: "Manage barbers in the PostgreSQL store",
	}

	var barber domain.Barber
	add := &cobra.Command{
		Use:   "add",
		Short: "Create an available barber and print its id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if c.config.Queue.Storage != config.StoragePostgres {
				return errors.New("barber add requires queue.storage=postgres; seed memory barbers with queue.seed_barbers")
			}

			db, err := app.Connect(c.config.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := queuepostgres.NewRepository(db).CreateBarber(cmd.Context(), &barber); err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), barber.ID)
			return err
		},
	}
	add.Flags().StringVar(&barber.Name, "name", "", "barber display name")
	add.Flags().StringVar(&barber.SalonName, "salon", "", "salon name used in customer messages")
	add.Flags().BoolVar(&barber.AcceptsWalkIns, "walkins", true, "accept walk-in customers")
	add.Flags().BoolVar(&barber.IsAvailable, "available", true, "available right now")
	_ = add.MarkFlagRequired("name")

	cmd.AddCommand(add)
	return cmd
}
