package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/lpcsv/internal/competency"
	"github.com/JonMunkholm/lpcsv/internal/config"
	"github.com/JonMunkholm/lpcsv/internal/logging"
	"github.com/JonMunkholm/lpcsv/internal/store"
)

type cfgKey struct{}

func newRootCmd() *cobra.Command {
	var envFile string

	cmd := &cobra.Command{
		Use:           "lpcsv",
		Short:         "Competency framework CSV import/export tool",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// A missing default .env is fine; a missing explicit one is not.
			if err := godotenv.Load(envFile); err != nil && cmd.Flags().Changed("env-file") {
				return withCode(exitUsage, fmt.Errorf("load %s: %w", envFile, err))
			}
			cfg, err := config.Load()
			if err != nil {
				return withCode(exitUsage, err)
			}
			logging.SetupWriter(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format)
			cmd.SetContext(context.WithValue(cmd.Context(), cfgKey{}, cfg))
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Environment file to load before reading configuration")

	cmd.AddCommand(newImportCmd())
	cmd.AddCommand(newExportCmd())
	cmd.AddCommand(newHeadersCmd())
	cmd.AddCommand(newMigrateCmd())
	return cmd
}

func Execute() {
	cmd := newRootCmd()
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		code := exitCode(err)
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(code)
	}
}

func configFrom(cmd *cobra.Command) *config.Config {
	cfg, _ := cmd.Context().Value(cfgKey{}).(*config.Config)
	return cfg
}

// openStore opens the configured store, or a throwaway memory store when
// dryRun is set.
func openStore(ctx context.Context, cfg *config.Config, dryRun bool) (competency.Store, func(), error) {
	db := cfg.Database
	if dryRun {
		db.Driver = config.DriverMemory
	}
	s, release, err := store.Open(ctx, db)
	if err != nil {
		return nil, nil, classify(err)
	}
	return s, release, nil
}
