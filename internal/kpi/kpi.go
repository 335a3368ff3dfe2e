// Package kpi holds the maintenance KPI arithmetic. Everything here is pure:
// callers load the rows and these functions reduce them.
package kpi

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/primefragrance/cmms/internal/models"
)

// Risk bands shared by predictive and breakdown assessments.
const (
	RiskLow    = models.PriorityLow
	RiskMedium = models.PriorityMedium
	RiskHigh   = models.PriorityHigh
)

// Round rounds x half away from zero to the given number of decimals.
func Round(x float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(x*p) / p
}

// Percent returns part/total*100 rounded to one decimal, or 0 when total is 0.
func Percent(part, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return Round(float64(part)/float64(total)*100, 1)
}

// MTTRResult is the mean time to repair over closed corrective work orders.
type MTTRResult struct {
	Count   int     `json:"total_wo_korektif_closed"`
	Seconds float64 `json:"mttr_seconds"`
	Minutes float64 `json:"mttr_minutes"`
	Hours   float64 `json:"mttr_hours"`
}

// MTTR averages completed minus created over closed corrective work orders
// that carry both timestamps. Minutes are rounded to 0.1 and the other units
// derive from the rounded minutes.
func MTTR(wos []models.WorkOrder) MTTRResult {
	var total int64
	count := 0
	for _, wo := range wos {
		if wo.Status != models.WOStatusClosed || wo.Type != models.WOTypeCorrective {
			continue
		}
		if wo.TimestampCreated == nil || wo.TimestampCompleted == nil {
			continue
		}
		total += *wo.TimestampCompleted - *wo.TimestampCreated
		count++
	}
	if count == 0 {
		return MTTRResult{}
	}
	minutes := Round(float64(total)/60/float64(count), 1)
	return MTTRResult{
		Count:   count,
		Seconds: Round(minutes*60, 2),
		Minutes: minutes,
		Hours:   Round(minutes/60, 2),
	}
}

// PMCompliance is closed preventive work orders over all preventive ones.
func PMCompliance(totalPM, closedPM int64) float64 {
	return Percent(closedPM, totalPM)
}

// OperationalStatuses are the asset statuses counted as up.
var OperationalStatuses = []string{models.AssetStatusNormal, models.AssetStatusAttention}

// Uptime is operational assets over all assets.
func Uptime(operational, total int64) float64 {
	return Percent(operational, total)
}

// OEEInput carries one production run. Times share a unit (minutes).
type OEEInput struct {
	AssetName             string  `json:"asset_name"`
	PlannedProductionTime float64 `json:"planned_production_time"`
	ActualProductionTime  float64 `json:"actual_production_time"`
	IdealCycleTime        float64 `json:"ideal_cycle_time"`
	TotalUnits            float64 `json:"total_units"`
	GoodUnits             float64 `json:"good_units"`
}

// OEEResult holds the three OEE factors and their product, in percent.
type OEEResult struct {
	Availability float64 `json:"availability"`
	Performance  float64 `json:"performance"`
	Quality      float64 `json:"quality"`
	OEE          float64 `json:"oee"`
}

// ErrMissingField is returned when a required numeric input is zero.
var ErrMissingField = errors.New("kpi: missing field")

// OEE computes availability, performance and quality for one run. Each value
// is rounded to two decimals; the product uses the unrounded factors.
func OEE(in OEEInput) (OEEResult, error) {
	fields := []struct {
		name  string
		value float64
	}{
		{"planned_production_time", in.PlannedProductionTime},
		{"actual_production_time", in.ActualProductionTime},
		{"ideal_cycle_time", in.IdealCycleTime},
		{"total_units", in.TotalUnits},
		{"good_units", in.GoodUnits},
	}
	for _, f := range fields {
		if f.value == 0 {
			return OEEResult{}, fmt.Errorf("%w: %s", ErrMissingField, f.name)
		}
	}

	availability := in.ActualProductionTime / in.PlannedProductionTime * 100
	var performance float64
	if expected := in.ActualProductionTime / in.IdealCycleTime; expected > 0 {
		performance = in.TotalUnits / expected * 100
	}
	quality := in.GoodUnits / in.TotalUnits * 100
	oee := availability * performance * quality / 10000

	return OEEResult{
		Availability: Round(availability, 2),
		Performance:  Round(performance, 2),
		Quality:      Round(quality, 2),
		OEE:          Round(oee, 2),
	}, nil
}

// RiskPercentage is current over threshold, in percent.
func RiskPercentage(current, threshold float64) float64 {
	if threshold == 0 {
		return 0
	}
	return current / threshold * 100
}

// RiskLevel bands a risk percentage: ≥80 Tinggi, ≥60 Sedang, else Rendah.
func RiskLevel(pct float64) string {
	switch {
	case pct >= 80:
		return RiskHigh
	case pct >= 60:
		return RiskMedium
	default:
		return RiskLow
	}
}

// BreakdownRisk bands an asset by its breakdown count.
func BreakdownRisk(breakdowns int) (level, recommendation string) {
	switch {
	case breakdowns >= 5:
		return RiskHigh, "Perlu preventive maintenance segera dan evaluasi mendalam"
	case breakdowns >= 3:
		return RiskMedium, "Perlu penjadwalan preventive maintenance"
	default:
		return RiskLow, "Monitoring rutin"
	}
}

// OptimalPowerKW is the draw at or below which an asset scores full energy
// efficiency.
const OptimalPowerKW = 10

// EnergyEfficiency scores a power draw: 95 up to OptimalPowerKW, then five
// points lost per extra kW, floored at 50. Rounded to 0.1.
func EnergyEfficiency(powerKW float64) float64 {
	if powerKW <= OptimalPowerKW {
		return 95
	}
	return Round(math.Max(50, 95-(powerKW-OptimalPowerKW)*5), 1)
}

// RepairDuration formats completed minus created as "{h}j {m}m", or "N/A"
// when either timestamp is missing or the span is not positive.
func RepairDuration(created, completed *int64) string {
	if created == nil || completed == nil || *created == 0 || *completed == 0 {
		return "N/A"
	}
	d := *completed - *created
	if d <= 0 {
		return "N/A"
	}
	return fmt.Sprintf("%dj %dm", d/3600, (d%3600)/60)
}

// FormatTimestamp renders epoch seconds as "02 Jan 2006 15:04", or "N/A".
func FormatTimestamp(ts *int64, loc *time.Location) string {
	if ts == nil || *ts <= 0 {
		return "N/A"
	}
	return time.Unix(*ts, 0).In(loc).Format("02 Jan 2006 15:04")
}

// MonthKey returns the YYYY-MM bucket of ts.
func MonthKey(ts int64, loc *time.Location) string {
	return time.Unix(ts, 0).In(loc).Format("2006-01")
}

// QuarterKey returns the YYYY-Qn bucket for a year and quarter.
func QuarterKey(year, quarter int) string {
	return fmt.Sprintf("%d-Q%d", year, quarter)
}

// QuarterOf returns the YYYY-Qn bucket of ts.
func QuarterOf(ts int64, loc *time.Location) string {
	t := time.Unix(ts, 0).In(loc)
	return QuarterKey(t.Year(), (int(t.Month())-1)/3+1)
}

// DaysUntil is the number of days from now to ts, rounded up.
func DaysUntil(ts, now int64) int {
	return int(math.Ceil(float64(ts-now) / 86400))
}
