package analytics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/primefragrance/cmms/internal/apperr"
	"github.com/primefragrance/cmms/internal/asset"
	"github.com/primefragrance/cmms/internal/identity"
	"github.com/primefragrance/cmms/internal/kpi"
	"github.com/primefragrance/cmms/internal/models"
	"github.com/primefragrance/cmms/internal/workorder"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Defaults for cost and budget lines.
const (
	DefaultCurrency   = "IDR"
	DefaultDepartment = "Maintenance"
)

// EnergyOpts is one metered energy reading.
type EnergyOpts struct {
	AssetName         string  `json:"asset_name"`
	EnergyConsumption float64 `json:"energy_consumption"`
	DurationHours     float64 `json:"duration_hours"`
	Timestamp         int64   `json:"timestamp"`
}

// RecordEnergy stores a reading with its average power draw and rescores the
// asset's energy efficiency when the asset exists.
func (s *Service) RecordEnergy(ctx context.Context, p identity.Principal, opts EnergyOpts) (*models.EnergyRecord, error) {
	switch {
	case opts.AssetName == "":
		return nil, missing("asset_name")
	case opts.EnergyConsumption == 0:
		return nil, missing("energy_consumption")
	case opts.DurationHours == 0:
		return nil, missing("duration_hours")
	case opts.Timestamp == 0:
		return nil, missing("timestamp")
	}
	if opts.EnergyConsumption < 0 || opts.DurationHours < 0 {
		return nil, apperr.New(apperr.Validation, "Nilai energi dan durasi harus positif")
	}

	power := opts.EnergyConsumption / opts.DurationHours
	rec := &models.EnergyRecord{
		AssetName:         opts.AssetName,
		EnergyConsumption: opts.EnergyConsumption,
		DurationHours:     opts.DurationHours,
		PowerConsumption:  power,
		Timestamp:         opts.Timestamp,
		RecordedBy:        p.Username,
		RecordedAt:        s.now().Unix(),
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(rec).Error; err != nil {
			return fmt.Errorf("analytics: record energy for %s: %w", opts.AssetName, err)
		}
		_, err := asset.SetEnergyEfficiency(ctx, tx, opts.AssetName, kpi.EnergyEfficiency(power), opts.Timestamp)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// EnergyAnalysis summarizes readings taken in the last EnergyWindow.
func (s *Service) EnergyAnalysis(ctx context.Context) (kpi.EnergySummary, error) {
	since := s.now().Unix() - EnergyWindow
	var records []models.EnergyRecord
	err := s.db.WithContext(ctx).Where("timestamp >= ?", since).
		Order("timestamp ASC, id ASC").Find(&records).Error
	if err != nil {
		return kpi.EnergySummary{}, fmt.Errorf("analytics: energy analysis: %w", err)
	}
	return kpi.SummarizeEnergy(records, s.loc), nil
}

// CostOpts is one cost line booked against a work order.
type CostOpts struct {
	WorkOrderID string  `json:"wo_id"`
	AssetName   string  `json:"asset_name"`
	CostType    string  `json:"cost_type"`
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency"`
	Description string  `json:"description"`
}

// RecordCost books a cost line. The work order is not required to exist.
func (s *Service) RecordCost(ctx context.Context, p identity.Principal, opts CostOpts) (*models.MaintenanceCost, error) {
	switch {
	case opts.WorkOrderID == "":
		return nil, missing("wo_id")
	case opts.AssetName == "":
		return nil, missing("asset_name")
	case opts.CostType == "":
		return nil, missing("cost_type")
	case opts.Amount == 0:
		return nil, missing("amount")
	case opts.Amount < 0:
		return nil, apperr.New(apperr.Validation, "Jumlah biaya harus positif")
	}
	cost := &models.MaintenanceCost{
		WorkOrderID: opts.WorkOrderID,
		AssetName:   opts.AssetName,
		CostType:    opts.CostType,
		Amount:      opts.Amount,
		Currency:    orDefault(opts.Currency, DefaultCurrency),
		Description: opts.Description,
		Timestamp:   s.now().Unix(),
		RecordedBy:  p.Username,
	}
	if err := s.db.WithContext(ctx).Create(cost).Error; err != nil {
		return nil, fmt.Errorf("analytics: record cost for %s: %w", opts.WorkOrderID, err)
	}
	return cost, nil
}

// CostAnalysis summarizes cost lines booked in the last CostWindow against
// the work orders closed and the budgets set over the same span.
func (s *Service) CostAnalysis(ctx context.Context) (kpi.CostSummary, error) {
	since := s.now().Unix() - CostWindow
	var costs []models.MaintenanceCost
	err := s.db.WithContext(ctx).Where("timestamp >= ?", since).
		Order("timestamp ASC, id ASC").Find(&costs).Error
	if err != nil {
		return kpi.CostSummary{}, fmt.Errorf("analytics: cost analysis: %w", err)
	}
	closed, err := s.wos.Count(ctx, workorder.Filter{
		Statuses:     []string{models.WOStatusClosed},
		CreatedSince: since,
	})
	if err != nil {
		return kpi.CostSummary{}, err
	}
	var budgets []models.MaintenanceBudget
	fromYear := time.Unix(since, 0).In(s.loc).Year()
	if err := s.db.WithContext(ctx).Where("year >= ?", fromYear).Find(&budgets).Error; err != nil {
		return kpi.CostSummary{}, fmt.Errorf("analytics: load budgets: %w", err)
	}
	return kpi.SummarizeCosts(costs, closed, budgets, s.loc), nil
}

// BudgetOpts sets the budget of one department for one quarter.
type BudgetOpts struct {
	Year       int     `json:"year"`
	Quarter    int     `json:"quarter"`
	Amount     float64 `json:"amount"`
	Currency   string  `json:"currency"`
	Department string  `json:"department"`
}

// SetBudget creates or replaces the budget for (year, quarter, department).
// It reports whether an existing budget was replaced.
func (s *Service) SetBudget(ctx context.Context, p identity.Principal, opts BudgetOpts) (*models.MaintenanceBudget, bool, error) {
	switch {
	case opts.Year == 0:
		return nil, false, missing("year")
	case opts.Quarter == 0:
		return nil, false, missing("quarter")
	case opts.Amount == 0:
		return nil, false, missing("amount")
	case opts.Quarter < 1 || opts.Quarter > 4:
		return nil, false, apperr.New(apperr.Validation, "Quarter harus antara 1 dan 4")
	case opts.Amount < 0:
		return nil, false, apperr.New(apperr.Validation, "Jumlah budget harus positif")
	}
	budget := &models.MaintenanceBudget{
		Year:       opts.Year,
		Quarter:    opts.Quarter,
		Department: orDefault(opts.Department, DefaultDepartment),
		Amount:     opts.Amount,
		Currency:   orDefault(opts.Currency, DefaultCurrency),
		SetBy:      p.Username,
		SetAt:      s.now().Unix(),
	}

	var replaced bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.MaintenanceBudget
		err := tx.Where("year = ? AND quarter = ? AND department = ?",
			budget.Year, budget.Quarter, budget.Department).First(&existing).Error
		switch {
		case err == nil:
			replaced = true
			budget.ID = existing.ID
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return fmt.Errorf("analytics: find budget: %w", err)
		}
		// A concurrent insert for the same period is overwritten.
		err = tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "year"}, {Name: "quarter"}, {Name: "department"}},
			DoUpdates: clause.AssignmentColumns([]string{"amount", "currency", "set_by", "set_at"}),
		}).Create(budget).Error
		if err != nil {
			return fmt.Errorf("analytics: upsert budget %d-Q%d: %w", budget.Year, budget.Quarter, err)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	s.log.Info("budget set",
		zap.Int("year", budget.Year), zap.Int("quarter", budget.Quarter),
		zap.String("department", budget.Department), zap.Bool("replaced", replaced))
	return budget, replaced, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
