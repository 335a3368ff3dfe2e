// Package asset provides the plant equipment registry.
package asset

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/primefragrance/cmms/internal/apperr"
	"github.com/primefragrance/cmms/internal/models"
	"gorm.io/gorm"
)

// CreateOpts holds parameters for registering a new asset.
type CreateOpts struct {
	Name               string   `json:"name"`
	Location           string   `json:"location"`
	Type               string   `json:"type"`
	Status             string   `json:"status"`
	CriticalComponents []string `json:"critical_components"`
	Manufacturer       string   `json:"manufacturer"`
	Model              string   `json:"model"`
}

// Summary is the short listing row for an asset.
type Summary struct {
	Name     string `json:"name"`
	Location string `json:"location"`
	Status   string `json:"status"`
	Type     string `json:"type"`
}

// Detail is the listing row with reliability counters.
type Detail struct {
	Name           string  `json:"name"`
	Location       string  `json:"location"`
	Status         string  `json:"status"`
	BreakdownCount int     `json:"breakdown_count"`
	Efficiency     float64 `json:"efficiency"`
}

// Components lists the critical components of one asset.
type Components struct {
	AssetName  string   `json:"asset_name"`
	AssetType  string   `json:"asset_type"`
	Components []string `json:"components"`
}

// Create registers a new asset. Names are unique.
func Create(ctx context.Context, db *gorm.DB, opts CreateOpts, createdBy string, now int64) (*models.Asset, error) {
	fields := []struct{ name, value string }{
		{"name", opts.Name},
		{"location", opts.Location},
		{"type", opts.Type},
		{"status", opts.Status},
	}
	for _, f := range fields {
		if f.value == "" {
			return nil, apperr.New(apperr.Validation, "Field %s harus diisi", f.name)
		}
	}

	var count int64
	if err := db.WithContext(ctx).Model(&models.Asset{}).Where("name = ?", opts.Name).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("asset: check name %s: %w", opts.Name, err)
	}
	if count > 0 {
		return nil, apperr.New(apperr.Validation, "Aset dengan nama %s sudah ada", opts.Name)
	}

	components := opts.CriticalComponents
	if components == nil {
		components = []string{}
	}
	a := models.Asset{
		Name:               opts.Name,
		Location:           opts.Location,
		Type:               opts.Type,
		Status:             opts.Status,
		CriticalComponents: components,
		InstallationDate:   &now,
		Manufacturer:       opts.Manufacturer,
		Model:              opts.Model,
		CreatedBy:          createdBy,
		CreatedAt:          now,
	}
	if err := db.WithContext(ctx).Create(&a).Error; err != nil {
		return nil, fmt.Errorf("asset: create %s: %w", opts.Name, err)
	}
	return &a, nil
}

// Get retrieves an asset by its numeric ID.
func Get(ctx context.Context, db *gorm.DB, id string) (*models.Asset, error) {
	n, err := strconv.ParseUint(id, 10, 64)
	if err != nil {
		return nil, apperr.New(apperr.NotFound, "Aset %s tidak ditemukan.", id)
	}
	var a models.Asset
	if err := db.WithContext(ctx).Where("id = ?", n).First(&a).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Wrap(apperr.NotFound, err, "Aset %s tidak ditemukan.", id)
		}
		return nil, fmt.Errorf("asset: get %s: %w", id, err)
	}
	return &a, nil
}

// GetByName retrieves an asset by its unique name.
func GetByName(ctx context.Context, db *gorm.DB, name string) (*models.Asset, error) {
	var a models.Asset
	if err := db.WithContext(ctx).Where("name = ?", name).First(&a).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Wrap(apperr.NotFound, err, "Aset '%s' tidak ditemukan.", name)
		}
		return nil, fmt.Errorf("asset: get %s: %w", name, err)
	}
	return &a, nil
}

// List returns all assets ordered by name.
func List(ctx context.Context, db *gorm.DB) ([]models.Asset, error) {
	var assets []models.Asset
	if err := db.WithContext(ctx).Order("name ASC").Find(&assets).Error; err != nil {
		return nil, fmt.Errorf("asset: list: %w", err)
	}
	return assets, nil
}

// Summaries returns the short listing of all assets.
func Summaries(ctx context.Context, db *gorm.DB) ([]Summary, error) {
	assets, err := List(ctx, db)
	if err != nil {
		return nil, err
	}
	out := make([]Summary, 0, len(assets))
	for _, a := range assets {
		out = append(out, Summary{Name: a.Name, Location: a.Location, Status: a.Status, Type: a.Type})
	}
	return out, nil
}

// Details returns the listing of all assets with reliability counters.
func Details(ctx context.Context, db *gorm.DB) ([]Detail, error) {
	assets, err := List(ctx, db)
	if err != nil {
		return nil, err
	}
	out := make([]Detail, 0, len(assets))
	for _, a := range assets {
		out = append(out, Detail{
			Name:           a.Name,
			Location:       a.Location,
			Status:         a.Status,
			BreakdownCount: a.BreakdownCount,
			Efficiency:     a.Efficiency,
		})
	}
	return out, nil
}

// ComponentsOf returns the critical components declared for the named asset.
func ComponentsOf(ctx context.Context, db *gorm.DB, name string) (*Components, error) {
	a, err := GetByName(ctx, db, name)
	if err != nil {
		return nil, err
	}
	components := a.CriticalComponents
	if components == nil {
		components = []string{}
	}
	return &Components{AssetName: a.Name, AssetType: a.Type, Components: components}, nil
}

// IncrementBreakdown atomically adds one to the asset's breakdown counter.
func IncrementBreakdown(ctx context.Context, db *gorm.DB, id uint) error {
	result := db.WithContext(ctx).Model(&models.Asset{}).Where("id = ?", id).
		UpdateColumn("breakdown_count", gorm.Expr("breakdown_count + ?", 1))
	if result.Error != nil {
		return fmt.Errorf("asset: increment breakdown %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return apperr.New(apperr.NotFound, "Aset %d tidak ditemukan.", id)
	}
	return nil
}

// TouchMaintenance records now as the asset's last maintenance. Unknown
// names are ignored.
func TouchMaintenance(ctx context.Context, db *gorm.DB, name string, now int64) error {
	err := db.WithContext(ctx).Model(&models.Asset{}).Where("name = ?", name).
		UpdateColumn("last_maintenance", now).Error
	if err != nil {
		return fmt.Errorf("asset: touch maintenance %s: %w", name, err)
	}
	return nil
}

// SaveOEE stores an OEE snapshot on the named asset and derives its
// efficiency. It reports whether the asset exists.
func SaveOEE(ctx context.Context, db *gorm.DB, name string, oee models.OEEData, efficiency float64) (bool, error) {
	result := db.WithContext(ctx).Model(&models.Asset{}).Where("name = ?", name).
		Select("oee", "efficiency").
		Updates(&models.Asset{OEE: &oee, Efficiency: efficiency})
	if result.Error != nil {
		return false, fmt.Errorf("asset: save oee %s: %w", name, result.Error)
	}
	return result.RowsAffected > 0, nil
}

// SetEnergyEfficiency stores the energy efficiency score of the named asset.
// It reports whether the asset exists.
func SetEnergyEfficiency(ctx context.Context, db *gorm.DB, name string, efficiency float64, recordedAt int64) (bool, error) {
	result := db.WithContext(ctx).Model(&models.Asset{}).Where("name = ?", name).
		Select("energy_efficiency", "last_energy_record").
		Updates(&models.Asset{EnergyEfficiency: efficiency, LastEnergyRecord: &recordedAt})
	if result.Error != nil {
		return false, fmt.Errorf("asset: set energy efficiency %s: %w", name, result.Error)
	}
	return result.RowsAffected > 0, nil
}

// CountByStatus returns the number of assets whose status is one of statuses.
// With no statuses it counts all assets.
func CountByStatus(ctx context.Context, db *gorm.DB, statuses ...string) (int64, error) {
	q := db.WithContext(ctx).Model(&models.Asset{})
	if len(statuses) > 0 {
		q = q.Where("status IN ?", statuses)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return 0, fmt.Errorf("asset: count: %w", err)
	}
	return n, nil
}
