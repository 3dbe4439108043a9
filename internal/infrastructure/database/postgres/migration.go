// internal/infrastructure/database/postgres/migration.go
package postgres

import (
	"fmt"
	"log"

	"gorm.io/gorm"

	"github.com/your-org/erp-backend/internal/domain/bom"
	"github.com/your-org/erp-backend/internal/domain/company"
	"github.com/your-org/erp-backend/internal/domain/customer"
	"github.com/your-org/erp-backend/internal/domain/inventory"
	"github.com/your-org/erp-backend/internal/domain/item"
	"github.com/your-org/erp-backend/internal/domain/kit"
	"github.com/your-org/erp-backend/internal/domain/purchasing"
	"github.com/your-org/erp-backend/internal/domain/quotation"
	"github.com/your-org/erp-backend/internal/domain/sales"
	"github.com/your-org/erp-backend/internal/domain/supplier"
	"github.com/your-org/erp-backend/internal/domain/workorder"
)

// Migration handles database schema management
type Migration struct {
	db *gorm.DB
}

// NewMigration creates a new migration instance
func NewMigration(db *gorm.DB) *Migration {
	return &Migration{db: db}
}

// RunAutoMigrations runs all migrations in dependency order
func (m *Migration) RunAutoMigrations() error {
	log.Println("🔄 Running database migrations...")

	err := m.db.AutoMigrate(
		// Master data
		&item.Item{},
		&customer.Customer{},
		&supplier.Supplier{},
		&company.CompanyInfo{},

		// Inventory
		&inventory.Lot{},
		&inventory.Transaction{},

		// Purchasing
		&purchasing.PurchaseRequest{},
		&purchasing.PurchaseOrder{},
		&purchasing.PurchaseOrderDetail{},

		// Bills of materials
		&bom.BOM{},
		&bom.BOMComponent{},

		// Kits
		&kit.KitItem{},
		&kit.KitComponent{},
		&kit.KitAllocation{},

		// Work orders
		&workorder.WorkOrder{},
		&workorder.Component{},
		&workorder.ComponentAllocation{},

		// Sales
		&sales.Sale{},
		&sales.SaleDetail{},
		&sales.SaleAllocation{},

		// Quotations
		&quotation.Quotation{},
		&quotation.QuotationDetail{},
	)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Println("✅ Database migrations completed successfully")
	return nil
}

// CreateIndexes creates composite indexes the hot paths rely on
func (m *Migration) CreateIndexes() error {
	log.Println("🔄 Creating database indexes...")

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_lots_item_fifo ON lots (item_id, created_at)",
		"CREATE INDEX IF NOT EXISTS idx_transactions_item_date ON transactions (item_id, transaction_date)",
		"CREATE INDEX IF NOT EXISTS idx_work_orders_parent_status ON work_orders (parent_id, status)",
		"CREATE INDEX IF NOT EXISTS idx_purchase_requests_item_status ON purchase_requests (item_id, status)",
		"CREATE INDEX IF NOT EXISTS idx_boms_item_active ON boms (finished_item_id, is_active)",
	}

	for _, index := range indexes {
		if err := m.db.Exec(index).Error; err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	log.Println("✅ Database indexes created successfully")
	return nil
}

// SeedInitialData loads a minimal data set for development environments
func (m *Migration) SeedInitialData() error {
	var count int64
	if err := m.db.Model(&company.CompanyInfo{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check company info: %w", err)
	}
	if count > 0 {
		return nil
	}

	log.Println("🔄 Seeding initial data...")

	info := company.CompanyInfo{
		Name:  "Demo Manufacturing Co",
		Email: "office@demo-manufacturing.test",
	}
	if err := m.db.Create(&info).Error; err != nil {
		return fmt.Errorf("failed to seed company info: %w", err)
	}

	items := []item.Item{
		{Code: "RAW-001", Name: "Steel Tube 25mm", Unit: "m", Category: "raw material", MinStock: 50, IsActive: true},
		{Code: "RAW-002", Name: "Bearing 6201", Unit: "pcs", Category: "raw material", MinStock: 200, IsActive: true},
		{Code: "FIN-001", Name: "Roller Assembly", Unit: "pcs", Category: "finished good", IsActive: true},
	}
	for i := range items {
		if err := m.db.Create(&items[i]).Error; err != nil {
			return fmt.Errorf("failed to seed item %s: %w", items[i].Code, err)
		}
	}

	log.Println("✅ Initial data seeded successfully")
	return nil
}
