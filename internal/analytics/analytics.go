// Package analytics records production, sensor, energy and cost data and
// turns it into the plant KPIs managers read.
package analytics

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/primefragrance/cmms/internal/apperr"
	"github.com/primefragrance/cmms/internal/asset"
	"github.com/primefragrance/cmms/internal/identity"
	"github.com/primefragrance/cmms/internal/kpi"
	"github.com/primefragrance/cmms/internal/models"
	"github.com/primefragrance/cmms/internal/schedule"
	"github.com/primefragrance/cmms/internal/workorder"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const day = int64(24 * 60 * 60)

// Analysis windows.
const (
	EnergyWindow = 30 * day
	CostWindow   = 365 * day
)

// DefaultRecommendation is used when a prediction carries no action.
const DefaultRecommendation = "Monitoring dan inspeksi rutin"

// Predictive slots are planned a week ahead of the predicted failure.
const (
	predictiveLead     = 7 * day
	predictiveDuration = 120
)

// Options configures a Service. Zero values select defaults.
type Options struct {
	Logger   *zap.Logger
	Now      func() time.Time
	Location *time.Location
}

// Service computes analytics over the plant database.
type Service struct {
	db  *gorm.DB
	wos workorder.Store
	log *zap.Logger
	now func() time.Time
	loc *time.Location
}

// NewService creates an analytics Service. Work order figures come from wos.
func NewService(db *gorm.DB, wos workorder.Store, opts Options) *Service {
	s := &Service{db: db, wos: wos, log: opts.Logger, now: opts.Now, loc: opts.Location}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	s.log = s.log.Named("analytics")
	if s.now == nil {
		s.now = time.Now
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	return s
}

func missing(field string) error {
	return apperr.New(apperr.Validation, "Field %s harus diisi", field)
}

// OEEReport is a computed OEE and whether it was stored on the asset.
type OEEReport struct {
	kpi.OEEResult
	Saved bool `json:"saved"`
}

// CalculateOEE computes OEE for one production run and stores the snapshot
// on the asset when it exists.
func (s *Service) CalculateOEE(ctx context.Context, in kpi.OEEInput) (*OEEReport, error) {
	if in.AssetName == "" {
		return nil, missing("asset_name")
	}
	res, err := kpi.OEE(in)
	if err != nil {
		if errors.Is(err, kpi.ErrMissingField) {
			field := strings.TrimPrefix(err.Error(), kpi.ErrMissingField.Error()+": ")
			return nil, apperr.Wrap(apperr.Validation, err, "Field %s harus diisi", field)
		}
		return nil, err
	}
	snapshot := models.OEEData{
		Availability: res.Availability,
		Performance:  res.Performance,
		Quality:      res.Quality,
		OEE:          res.OEE,
		CalculatedAt: s.now().Unix(),
	}
	saved, err := asset.SaveOEE(ctx, s.db, in.AssetName, snapshot, kpi.Round(res.OEE, 1))
	if err != nil {
		return nil, err
	}
	if !saved {
		s.log.Debug("oee computed for unknown asset", zap.String("asset", in.AssetName))
	}
	return &OEEReport{OEEResult: res, Saved: saved}, nil
}

// AssetOEE is the OEE listing row for an asset.
type AssetOEE struct {
	AssetName  string          `json:"asset_name"`
	AssetType  string          `json:"asset_type"`
	Location   string          `json:"location"`
	Status     string          `json:"status"`
	Efficiency float64         `json:"efficiency"`
	OEE        *models.OEEData `json:"oee_data"`
}

// AssetsOEE lists the last OEE snapshot of every asset.
func (s *Service) AssetsOEE(ctx context.Context) ([]AssetOEE, error) {
	assets, err := asset.List(ctx, s.db)
	if err != nil {
		return nil, err
	}
	out := make([]AssetOEE, 0, len(assets))
	for _, a := range assets {
		out = append(out, AssetOEE{
			AssetName:  a.Name,
			AssetType:  a.Type,
			Location:   a.Location,
			Status:     a.Status,
			Efficiency: a.Efficiency,
			OEE:        a.OEE,
		})
	}
	return out, nil
}

// PredictionOpts is one sensor reading with its failure forecast.
type PredictionOpts struct {
	AssetName            string  `json:"asset_name"`
	SensorType           string  `json:"sensor_type"`
	CurrentValue         float64 `json:"current_value"`
	Threshold            float64 `json:"threshold"`
	PredictedFailureDate int64   `json:"predicted_failure_date"`
	RecommendedAction    string  `json:"recommended_action"`
}

// Prediction is a stored predictive record with the slot planned for it.
type Prediction struct {
	Record   models.PredictiveRecord    `json:"record"`
	Schedule models.MaintenanceSchedule `json:"schedule"`
}

// CreatePrediction stores a predictive record and plans a Predictive
// maintenance slot a week before the forecast failure, in one transaction.
func (s *Service) CreatePrediction(ctx context.Context, p identity.Principal, opts PredictionOpts) (*Prediction, error) {
	required := []struct {
		name string
		set  bool
	}{
		{"asset_name", opts.AssetName != ""},
		{"sensor_type", opts.SensorType != ""},
		{"current_value", opts.CurrentValue != 0},
		{"threshold", opts.Threshold != 0},
		{"predicted_failure_date", opts.PredictedFailureDate != 0},
	}
	for _, f := range required {
		if !f.set {
			return nil, missing(f.name)
		}
	}

	pct := kpi.RiskPercentage(opts.CurrentValue, opts.Threshold)
	level := kpi.RiskLevel(pct)
	action := opts.RecommendedAction
	if action == "" {
		action = DefaultRecommendation
	}
	now := s.now().Unix()
	out := &Prediction{
		Record: models.PredictiveRecord{
			AssetName:            opts.AssetName,
			SensorType:           opts.SensorType,
			CurrentValue:         opts.CurrentValue,
			Threshold:            opts.Threshold,
			RiskPercentage:       kpi.Round(pct, 2),
			RiskLevel:            level,
			PredictedFailureDate: opts.PredictedFailureDate,
			RecommendedAction:    action,
			CreatedBy:            p.Username,
			CreatedAt:            now,
			Status:               models.PredictiveStatusActive,
		},
	}
	priority := models.PriorityMedium
	if level == kpi.RiskHigh {
		priority = models.PriorityHigh
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&out.Record).Error; err != nil {
			return fmt.Errorf("analytics: create prediction for %s: %w", opts.AssetName, err)
		}
		out.Schedule = models.MaintenanceSchedule{
			AssetName: opts.AssetName,
			Type:      models.WOTypePredictive,
			Description: fmt.Sprintf("Predictive maintenance berdasarkan sensor %s. Risk: %s (%.2f%%)",
				opts.SensorType, level, out.Record.RiskPercentage),
			ScheduledDate:           opts.PredictedFailureDate - predictiveLead,
			Duration:                predictiveDuration,
			Priority:                priority,
			Status:                  models.ScheduleStatusPlanned,
			CreatedBy:               p.Username,
			CreatedAt:               now,
			PredictiveMaintenanceID: fmt.Sprint(out.Record.ID),
		}
		return schedule.Insert(ctx, tx, &out.Schedule)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("prediction recorded",
		zap.String("asset", opts.AssetName), zap.String("risk", level), zap.Uint("schedule", out.Schedule.ID))
	return out, nil
}

// RiskRow is the breakdown risk of one asset.
type RiskRow struct {
	AssetName       string  `json:"asset_name"`
	AssetType       string  `json:"asset_type"`
	BreakdownCount  int     `json:"breakdown_count"`
	LastMaintenance string  `json:"last_maintenance"`
	RiskLevel       string  `json:"risk_level"`
	Recommendation  string  `json:"recommendation"`
	Efficiency      float64 `json:"efficiency"`
}

// RiskAssessment bands every asset that has broken down, most breakdowns first.
func (s *Service) RiskAssessment(ctx context.Context) ([]RiskRow, error) {
	var assets []models.Asset
	err := s.db.WithContext(ctx).Where("breakdown_count > 0").
		Order("breakdown_count DESC, name ASC").Find(&assets).Error
	if err != nil {
		return nil, fmt.Errorf("analytics: risk assessment: %w", err)
	}
	out := make([]RiskRow, 0, len(assets))
	for _, a := range assets {
		level, rec := kpi.BreakdownRisk(a.BreakdownCount)
		out = append(out, RiskRow{
			AssetName:       a.Name,
			AssetType:       a.Type,
			BreakdownCount:  a.BreakdownCount,
			LastMaintenance: kpi.FormatTimestamp(a.LastMaintenance, s.loc),
			RiskLevel:       level,
			Recommendation:  rec,
			Efficiency:      a.Efficiency,
		})
	}
	return out, nil
}
