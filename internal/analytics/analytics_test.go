package analytics

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/primefragrance/cmms/internal/apperr"
	"github.com/primefragrance/cmms/internal/db"
	"github.com/primefragrance/cmms/internal/identity"
	"github.com/primefragrance/cmms/internal/kpi"
	"github.com/primefragrance/cmms/internal/models"
	"github.com/primefragrance/cmms/internal/workorder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var (
	manager = identity.Principal{Username: "mgr_maya", Role: identity.RoleManager}
	now     = time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
)

func i64(v int64) *int64 { return &v }

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	gdb, err := db.OpenSQLite(filepath.Join(t.TempDir(), "analytics.db"))
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(gdb))

	assets := []models.Asset{
		{Name: "Mixing Tank A", Type: "Mixing Tank", Location: "Line 1", Status: models.AssetStatusNormal},
		{Name: "Filling Machine B", Type: "Filling Machine", Location: "Line 2", Status: models.AssetStatusAttention},
		{Name: "Conveyor C", Type: "Conveyor", Location: "Line 3", Status: models.AssetStatusProblem,
			BreakdownCount: 6, LastMaintenance: i64(now.Add(-48 * time.Hour).Unix())},
		{Name: "Labeling D", Type: "Labeler", Location: "Line 3", Status: models.AssetStatusNormal, BreakdownCount: 3},
	}
	require.NoError(t, gdb.Create(&assets).Error)

	svc := NewService(gdb, workorder.NewGormStore(gdb), Options{
		Now:      func() time.Time { return now },
		Location: time.UTC,
	})
	return svc, gdb
}

func seedWorkOrders(t *testing.T, gdb *gorm.DB) {
	t.Helper()
	created := now.Add(-10 * 24 * time.Hour).Unix()
	wo := func(n int, typ, status string, repair int64) models.WorkOrder {
		w := models.WorkOrder{
			ID:               fmt.Sprintf("WO-%d", n),
			AssetName:        "Mixing Tank A",
			Type:             typ,
			Status:           status,
			TimestampCreated: i64(created),
		}
		if repair > 0 {
			w.TimestampCompleted = i64(created + repair)
		}
		return w
	}
	wos := []models.WorkOrder{
		wo(1, models.WOTypeCorrective, models.WOStatusClosed, 3600),
		wo(2, models.WOTypeCorrective, models.WOStatusClosed, 1800),
		wo(3, models.WOTypePreventive, models.WOStatusClosed, 600),
		wo(4, models.WOTypePreventive, models.WOStatusNew, 0),
		wo(5, models.WOTypeCorrective, models.WOStatusInProgress, 0),
		wo(6, models.WOTypeCorrective, models.WOStatusCompleted, 900),
	}
	require.NoError(t, gdb.Create(&wos).Error)
}

func TestCalculateOEE(t *testing.T) {
	svc, gdb := newTestService(t)
	ctx := context.Background()
	in := kpi.OEEInput{
		AssetName:             "Mixing Tank A",
		PlannedProductionTime: 480,
		ActualProductionTime:  420,
		IdealCycleTime:        1,
		TotalUnits:            400,
		GoodUnits:             380,
	}

	got, err := svc.CalculateOEE(ctx, in)
	require.NoError(t, err)
	assert.True(t, got.Saved)
	assert.Equal(t, kpi.OEEResult{Availability: 87.5, Performance: 95.24, Quality: 95, OEE: 79.17}, got.OEEResult)

	var a models.Asset
	require.NoError(t, gdb.Where("name = ?", "Mixing Tank A").First(&a).Error)
	assert.Equal(t, 79.2, a.Efficiency)
	require.NotNil(t, a.OEE)
	assert.Equal(t, now.Unix(), a.OEE.CalculatedAt)

	rows, err := svc.AssetsOEE(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 4)

	in.AssetName = "Unknown"
	got, err = svc.CalculateOEE(ctx, in)
	require.NoError(t, err)
	assert.False(t, got.Saved)

	in.GoodUnits = 0
	_, err = svc.CalculateOEE(ctx, in)
	assert.True(t, apperr.Is(err, apperr.Validation))
	assert.Equal(t, "Field good_units harus diisi", apperr.Message(err, ""))
}

func TestCreatePrediction_PlansSchedule(t *testing.T) {
	svc, gdb := newTestService(t)
	failure := now.Add(10 * 24 * time.Hour).Unix()

	got, err := svc.CreatePrediction(context.Background(), manager, PredictionOpts{
		AssetName:            "Mixing Tank A",
		SensorType:           "Vibration",
		CurrentValue:         85,
		Threshold:            100,
		PredictedFailureDate: failure,
	})
	require.NoError(t, err)
	assert.Equal(t, kpi.RiskHigh, got.Record.RiskLevel)
	assert.Equal(t, 85.0, got.Record.RiskPercentage)
	assert.Equal(t, DefaultRecommendation, got.Record.RecommendedAction)
	assert.Equal(t, models.PredictiveStatusActive, got.Record.Status)

	var sch models.MaintenanceSchedule
	require.NoError(t, gdb.First(&sch, got.Schedule.ID).Error)
	assert.Equal(t, models.WOTypePredictive, sch.Type)
	assert.Equal(t, failure-7*24*3600, sch.ScheduledDate)
	assert.Equal(t, 120, sch.Duration)
	assert.Equal(t, models.PriorityHigh, sch.Priority)
	assert.Equal(t, fmt.Sprint(got.Record.ID), sch.PredictiveMaintenanceID)
	assert.Equal(t, "Predictive maintenance berdasarkan sensor Vibration. Risk: Tinggi (85.00%)", sch.Description)

	_, err = svc.CreatePrediction(context.Background(), manager, PredictionOpts{AssetName: "x", SensorType: "t"})
	assert.Equal(t, "Field current_value harus diisi", apperr.Message(err, ""))
}

func TestRiskAssessment(t *testing.T) {
	svc, _ := newTestService(t)
	rows, err := svc.RiskAssessment(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "Conveyor C", rows[0].AssetName)
	assert.Equal(t, kpi.RiskHigh, rows[0].RiskLevel)
	assert.Equal(t, "08 Mar 2026 08:00", rows[0].LastMaintenance)
	assert.Equal(t, kpi.RiskMedium, rows[1].RiskLevel)
	assert.Equal(t, "N/A", rows[1].LastMaintenance)
}

func TestEnergy(t *testing.T) {
	svc, gdb := newTestService(t)
	ctx := context.Background()

	rec, err := svc.RecordEnergy(ctx, manager, EnergyOpts{
		AssetName: "Mixing Tank A", EnergyConsumption: 240, DurationHours: 8, Timestamp: now.Add(-time.Hour).Unix(),
	})
	require.NoError(t, err)
	assert.Equal(t, 30.0, rec.PowerConsumption)

	var a models.Asset
	require.NoError(t, gdb.Where("name = ?", "Mixing Tank A").First(&a).Error)
	assert.Equal(t, 50.0, a.EnergyEfficiency)

	_, err = svc.RecordEnergy(ctx, manager, EnergyOpts{
		AssetName: "Mixing Tank A", EnergyConsumption: 40, DurationHours: 8, Timestamp: now.Unix(),
	})
	require.NoError(t, err)
	require.NoError(t, gdb.Create(&models.EnergyRecord{
		AssetName: "Mixing Tank A", EnergyConsumption: 999, PowerConsumption: 99,
		Timestamp: now.Add(-40 * 24 * time.Hour).Unix(),
	}).Error)

	sum, err := svc.EnergyAnalysis(ctx)
	require.NoError(t, err)
	assert.Equal(t, 280.0, sum.TotalConsumption)
	assert.Equal(t, 17.5, sum.AveragePower)
	assert.Equal(t, 30.0, sum.PeakConsumption)
	assert.Equal(t, 2, sum.Assets["Mixing Tank A"].RecordsCount)
	assert.Equal(t, map[string]float64{"2026-03": 280}, sum.Monthly)

	_, err = svc.RecordEnergy(ctx, manager, EnergyOpts{AssetName: "Mixing Tank A", EnergyConsumption: 1})
	assert.Equal(t, "Field duration_hours harus diisi", apperr.Message(err, ""))
}

func TestCostsAndBudget(t *testing.T) {
	svc, gdb := newTestService(t)
	ctx := context.Background()
	seedWorkOrders(t, gdb)

	cost, err := svc.RecordCost(ctx, manager, CostOpts{WorkOrderID: "WO-1", AssetName: "Mixing Tank A", CostType: "Sparepart", Amount: 500000})
	require.NoError(t, err)
	assert.Equal(t, DefaultCurrency, cost.Currency)
	_, err = svc.RecordCost(ctx, manager, CostOpts{WorkOrderID: "WO-2", AssetName: "Conveyor C", CostType: "Labor", Amount: 250000})
	require.NoError(t, err)

	b, replaced, err := svc.SetBudget(ctx, manager, BudgetOpts{Year: 2026, Quarter: 1, Amount: 800000})
	require.NoError(t, err)
	assert.False(t, replaced)
	assert.Equal(t, DefaultDepartment, b.Department)
	_, replaced, err = svc.SetBudget(ctx, manager, BudgetOpts{Year: 2026, Quarter: 1, Amount: 1000000})
	require.NoError(t, err)
	assert.True(t, replaced)

	var n int64
	require.NoError(t, gdb.Model(&models.MaintenanceBudget{}).Count(&n).Error)
	assert.Equal(t, int64(1), n)

	sum, err := svc.CostAnalysis(ctx)
	require.NoError(t, err)
	assert.Equal(t, 750000.0, sum.TotalCosts)
	assert.Equal(t, int64(3), sum.ClosedWorkOrders)
	assert.Equal(t, 250000.0, sum.CostPerWO)
	assert.Equal(t, kpi.BudgetLine{Budget: 1000000, Actual: 750000, Remaining: 250000, Utilization: 75}, sum.BudgetVsActual["2026-Q1"])

	_, _, err = svc.SetBudget(ctx, manager, BudgetOpts{Year: 2026, Quarter: 5, Amount: 1})
	assert.True(t, apperr.Is(err, apperr.Validation))
	_, err = svc.RecordCost(ctx, manager, CostOpts{WorkOrderID: "WO-1", AssetName: "a", CostType: "t", Amount: -1})
	assert.True(t, apperr.Is(err, apperr.Validation))
}

func TestDashboardAndAssetKPIs(t *testing.T) {
	svc, gdb := newTestService(t)
	ctx := context.Background()
	seedWorkOrders(t, gdb)
	items := []models.InventoryItem{
		{ItemName: "Bearing", PartNumber: "B-1", CurrentStock: 1, MinStock: 5, Status: models.StockLow},
		{ItemName: "Seal", PartNumber: "S-1", CurrentStock: 9, MinStock: 5, Status: models.StockSafe},
	}
	require.NoError(t, gdb.Create(&items).Error)

	mttr, err := svc.MTTR(ctx)
	require.NoError(t, err)
	assert.Equal(t, kpi.MTTRResult{Count: 2, Seconds: 2700, Minutes: 45, Hours: 0.75}, mttr)

	d, err := svc.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, Dashboard{
		TotalAssets:         4,
		OperationalAssets:   3,
		AssetUptime:         75,
		TotalWorkOrders:     6,
		ActiveWorkOrders:    2,
		CompletionRate:      50,
		LowStockItems:       1,
		MTTRMinutes:         45,
		TotalInventoryItems: 2,
	}, *d)

	k, err := svc.AssetKPIs(ctx)
	require.NoError(t, err)
	assert.Equal(t, AssetKPIs{
		ProblemAssets: 1,
		PMCompliance:  50,
		WOStats:       WOStats{New: 1, InProgress: 1, Completed: 1, Closed: 3},
	}, *k)
}
