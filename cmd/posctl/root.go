package main

import (
	"context"
	"fmt"

	"retailpos/internal/config"
	"retailpos/internal/infra"
	"retailpos/internal/logger"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var rootCmd = &cobra.Command{
	Use:   "posctl",
	Short: "Maintenance commands for the retail POS ledger",
	Long: `posctl repairs cached balances from the append-only ledgers.

Stock quantities are rebuilt from inventory movements and customer debt from
credit invoices, debt payments and credit notes. Both commands are idempotent.

Configuration is read from the same environment variables as the server
(DATABASE_URL, LOG_LEVEL, LOG_FORMAT).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		return logger.Setup(cfg.LogLevel, cfg.LogFormat)
	},
}

func init() {
	rootCmd.PersistentFlags().String("business", "", "Business ID")
	rootCmd.AddCommand(syncDebtCmd, rebuildStockCmd, migrateCmd)
}

// openDB connects using process configuration.
func openDB() (*gorm.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return infra.NewDatabase(cfg.DatabaseURL, 5)
}

func businessFlag(cmd *cobra.Command) (uuid.UUID, error) {
	raw, _ := cmd.Flags().GetString("business")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid --business %q: %w", raw, err)
	}
	return id, nil
}

// targets returns the single --id flag value or, with --all, every id from list.
func targets(ctx context.Context, cmd *cobra.Command, list func(context.Context) ([]uuid.UUID, error)) ([]uuid.UUID, error) {
	all, _ := cmd.Flags().GetBool("all")
	raw, _ := cmd.Flags().GetString("id")
	switch {
	case all && raw != "":
		return nil, fmt.Errorf("use either --id or --all")
	case all:
		return list(ctx)
	case raw == "":
		return nil, fmt.Errorf("one of --id or --all is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid --id %q: %w", raw, err)
	}
	return []uuid.UUID{id}, nil
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		if err := infra.RunMigrations(db); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
		return nil
	},
}
