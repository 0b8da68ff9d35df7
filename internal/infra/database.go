package infra

import (
	"fmt"

	"retailpos/internal/model"
	"retailpos/internal/repository"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase establishes a GORM connection backed by pgx.
func NewDatabase(dsn string, maxOpenConns int) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if maxOpenConns <= 0 {
		maxOpenConns = 25
	}
	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxOpenConns / 5)

	return db, nil
}

// RunMigrations creates or updates every table, then applies the idempotent
// SQL that AutoMigrate cannot express.
func RunMigrations(db *gorm.DB) error {
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS pgcrypto`).Error; err != nil {
		return fmt.Errorf("pgcrypto extension: %w", err)
	}
	if err := db.AutoMigrate(
		&model.Business{},
		&model.VATCategory{},
		&model.Product{},
		&model.Customer{},
		&model.Sale{},
		&model.SaleItem{},
		&model.InventoryMovement{},
		&model.DebtPayment{},
		&model.CreditNote{},
		&model.Supplier{},
		&model.Purchase{},
		&model.PurchaseItem{},
	); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	return applySchemaPatches(db)
}

func applySchemaPatches(db *gorm.DB) error {
	patches := []string{
		// Invoice numbers come from one sequence so concurrent sales never collide.
		fmt.Sprintf(`CREATE SEQUENCE IF NOT EXISTS %s START 1`, repository.InvoiceSequence),
		`CREATE INDEX IF NOT EXISTS idx_movements_product_created ON inventory_movements (product_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_sales_customer_open ON sales (customer_id, created_at)
			WHERE payment_method = 'credit' AND status IN ('completed', 'partially_refunded')`,
	}
	for _, sql := range patches {
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("schema patch %q: %w", sql, err)
		}
	}
	return nil
}
