// Package inventory keeps the spare part stock ledger.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/primefragrance/cmms/internal/apperr"
	"github.com/primefragrance/cmms/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UpdateOpts holds a stock adjustment. Nil fields are left unchanged.
type UpdateOpts struct {
	CurrentStock *int `json:"current_stock"`
	MinStock     *int `json:"min_stock"`
}

// List returns every inventory item ordered by machine type and name.
func List(ctx context.Context, db *gorm.DB) ([]models.InventoryItem, error) {
	var items []models.InventoryItem
	if err := db.WithContext(ctx).Order("machine_type ASC, item_name ASC").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("inventory: list: %w", err)
	}
	return items, nil
}

// LowStock returns items whose current stock is below their minimum.
func LowStock(ctx context.Context, db *gorm.DB) ([]models.InventoryItem, error) {
	var items []models.InventoryItem
	err := db.WithContext(ctx).Where("current_stock < min_stock").
		Order("machine_type ASC, item_name ASC").Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("inventory: low stock: %w", err)
	}
	return items, nil
}

// Count returns the number of inventory items.
func Count(ctx context.Context, db *gorm.DB) (int64, error) {
	var n int64
	if err := db.WithContext(ctx).Model(&models.InventoryItem{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("inventory: count: %w", err)
	}
	return n, nil
}

// CountLow returns the number of items flagged Rendah.
func CountLow(ctx context.Context, db *gorm.DB) (int64, error) {
	var n int64
	err := db.WithContext(ctx).Model(&models.InventoryItem{}).
		Where("status = ?", models.StockLow).Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("inventory: count low: %w", err)
	}
	return n, nil
}

// Update adjusts an item's stock levels and recomputes its status.
func Update(ctx context.Context, db *gorm.DB, id string, opts UpdateOpts) (*models.InventoryItem, error) {
	if opts.CurrentStock == nil && opts.MinStock == nil {
		return nil, apperr.New(apperr.Validation, "Field current_stock atau min_stock harus diisi")
	}
	if (opts.CurrentStock != nil && *opts.CurrentStock < 0) || (opts.MinStock != nil && *opts.MinStock < 0) {
		return nil, apperr.New(apperr.Validation, "Stok tidak boleh negatif")
	}
	n, err := strconv.ParseUint(id, 10, 64)
	if err != nil {
		return nil, apperr.New(apperr.NotFound, "Item inventory tidak ditemukan")
	}

	var item models.InventoryItem
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", n).First(&item).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.Wrap(apperr.NotFound, err, "Item inventory tidak ditemukan")
			}
			return fmt.Errorf("inventory: load %d: %w", n, err)
		}
		if opts.CurrentStock != nil {
			item.CurrentStock = *opts.CurrentStock
		}
		if opts.MinStock != nil {
			item.MinStock = *opts.MinStock
		}
		item.Status = models.StockStatus(item.CurrentStock, item.MinStock)
		err := tx.Model(&item).Select("current_stock", "min_stock", "status").Updates(&item).Error
		if err != nil {
			return fmt.Errorf("inventory: update %d: %w", n, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}
