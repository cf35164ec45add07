package main

import (
	"github.com/spf13/cobra"

	"github.com/andreasstove999/ecommerce-system/shopping-cart-go/internal/db"
)

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return db.RunMigrations(a.cfg.Database.DSN, a.logger)
		},
	}
}
