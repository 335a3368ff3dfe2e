package db

import (
	"fmt"

	"github.com/primefragrance/cmms/internal/models"
	"gorm.io/gorm"
)

// AllModels returns every GORM model owned by the service.
func AllModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Asset{},
		&models.WorkOrder{},
		&models.WorkOrderEvent{},
		&models.InventoryItem{},
		&models.MaintenanceSchedule{},
		&models.PredictiveRecord{},
		&models.EnergyRecord{},
		&models.MaintenanceCost{},
		&models.MaintenanceBudget{},
	}
}

// AutoMigrate creates or updates all tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}

// DropAll drops every table created by AutoMigrate.
func DropAll(db *gorm.DB) error {
	if err := db.Migrator().DropTable(AllModels()...); err != nil {
		return fmt.Errorf("db: drop tables: %w", err)
	}
	return nil
}
