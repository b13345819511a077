package main

import (
	"log"

	"github.com/spf13/cobra"

	"devalayaum/internal/repository/postgres"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		Long: `Apply the embedded schema to the configured PostgreSQL database.

Statements are idempotent, so running migrate on an up-to-date database
is a no-op.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := connect(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer e.Close()

			if err := postgres.Migrate(cmd.Context(), e.db); err != nil {
				return err
			}
			log.Println("Schema applied")
			return nil
		},
	}
}
