package main

import (
	"context"
	"fmt"

	"retailpos/internal/logger"
	"retailpos/internal/repository"
	"retailpos/internal/service"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var syncDebtCmd = &cobra.Command{
	Use:   "sync-debt",
	Short: "Recompute customer debt from invoices, payments and credit notes",
	Example: `  posctl sync-debt --business 6f1c… --id 0b7e…
  posctl sync-debt --business 6f1c… --all`,
	RunE: runSyncDebt,
}

var rebuildStockCmd = &cobra.Command{
	Use:   "rebuild-stock",
	Short: "Overwrite cached stock with the sum of inventory movements",
	Example: `  posctl rebuild-stock --business 6f1c… --id 9a2d…
  posctl rebuild-stock --business 6f1c… --all`,
	RunE: runRebuildStock,
}

func init() {
	for _, c := range []*cobra.Command{syncDebtCmd, rebuildStockCmd} {
		c.Flags().String("id", "", "Single customer or product ID")
		c.Flags().Bool("all", false, "Process every record of the business")
	}
}

func runSyncDebt(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("sync-debt")
	ctx := cmd.Context()
	businessID, err := businessFlag(cmd)
	if err != nil {
		return err
	}
	db, err := openDB()
	if err != nil {
		return err
	}

	customers := repository.NewCustomerRepository(db)
	svc := service.NewCreditService(
		repository.NewTransactor(db),
		customers,
		repository.NewSaleRepository(db),
		repository.NewCreditRepository(db),
		nil,
	)
	ids, err := targets(ctx, cmd, func(ctx context.Context) ([]uuid.UUID, error) {
		return customers.ListIDs(ctx, businessID)
	})
	if err != nil {
		return err
	}

	failed := 0
	for _, id := range ids {
		debt, err := svc.SyncDebt(ctx, businessID, id)
		if err != nil {
			failed++
			log.Error().Err(err).Str("customer_id", id.String()).Msg("sync failed")
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", id, debt.StringFixed(2))
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d customers failed", failed, len(ids))
	}
	return nil
}

func runRebuildStock(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("rebuild-stock")
	ctx := cmd.Context()
	businessID, err := businessFlag(cmd)
	if err != nil {
		return err
	}
	db, err := openDB()
	if err != nil {
		return err
	}

	products := repository.NewProductRepository(db)
	svc := service.NewInventoryService(
		repository.NewTransactor(db),
		products,
		repository.NewMovementRepository(db),
		repository.NewBusinessRepository(db),
		nil,
	)
	ids, err := targets(ctx, cmd, func(ctx context.Context) ([]uuid.UUID, error) {
		return products.ListIDs(ctx, businessID)
	})
	if err != nil {
		return err
	}

	failed := 0
	for _, id := range ids {
		res, err := svc.RebuildStock(ctx, businessID, id)
		if err != nil {
			failed++
			log.Error().Err(err).Str("product_id", id.String()).Msg("rebuild failed")
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d -> %d\n", id, res.Previous, res.Stock)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d products failed", failed, len(ids))
	}
	return nil
}
