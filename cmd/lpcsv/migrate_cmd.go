package main

import (
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/lpcsv/internal/store"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the store schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			db := configFrom(cmd).Database
			db.AutoMigrate = false

			st, release, err := store.Open(ctx, db)
			if err != nil {
				return classify(err)
			}
			defer release()

			if err := store.Migrate(ctx, st); err != nil {
				return classify(err)
			}
			return writeJSONLine(cmd.OutOrStdout(), map[string]string{
				"status": "ok",
				"driver": db.Driver,
			})
		},
	}
}
