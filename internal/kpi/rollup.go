package kpi

import (
	"time"

	"github.com/primefragrance/cmms/internal/models"
)

// AssetEnergy is the per-asset slice of an energy analysis.
type AssetEnergy struct {
	TotalEnergy  float64 `json:"total_energy"`
	AveragePower float64 `json:"average_power"`
	RecordsCount int     `json:"records_count"`
}

// EnergySummary reduces energy records over a window.
type EnergySummary struct {
	TotalConsumption float64                `json:"total_consumption"`
	AveragePower     float64                `json:"average_power"`
	PeakConsumption  float64                `json:"peak_consumption"`
	Assets           map[string]AssetEnergy `json:"assets_analysis"`
	Monthly          map[string]float64     `json:"monthly_breakdown"`
}

// SummarizeEnergy totals consumption, averages and peaks power, and groups
// both by asset and by month. A per-asset average is energy per record.
func SummarizeEnergy(records []models.EnergyRecord, loc *time.Location) EnergySummary {
	s := EnergySummary{
		Assets:  make(map[string]AssetEnergy),
		Monthly: make(map[string]float64),
	}
	if len(records) == 0 {
		return s
	}
	var powerSum float64
	for i, r := range records {
		s.TotalConsumption += r.EnergyConsumption
		powerSum += r.PowerConsumption
		if i == 0 || r.PowerConsumption > s.PeakConsumption {
			s.PeakConsumption = r.PowerConsumption
		}
		a := s.Assets[r.AssetName]
		a.TotalEnergy += r.EnergyConsumption
		a.RecordsCount++
		s.Assets[r.AssetName] = a
		s.Monthly[MonthKey(r.Timestamp, loc)] += r.EnergyConsumption
	}
	s.AveragePower = powerSum / float64(len(records))
	for name, a := range s.Assets {
		a.AveragePower = a.TotalEnergy / float64(a.RecordsCount)
		s.Assets[name] = a
	}
	return s
}

// BudgetLine compares one quarter's budget with its booked costs.
type BudgetLine struct {
	Budget      float64 `json:"budget"`
	Actual      float64 `json:"actual"`
	Remaining   float64 `json:"remaining"`
	Utilization float64 `json:"utilization"`
}

// CostSummary reduces cost lines over a window.
type CostSummary struct {
	TotalCosts       float64               `json:"total_costs"`
	ByType           map[string]float64    `json:"costs_by_type"`
	ByAsset          map[string]float64    `json:"costs_by_asset"`
	Monthly          map[string]float64    `json:"monthly_breakdown"`
	BudgetVsActual   map[string]BudgetLine `json:"budget_vs_actual"`
	ClosedWorkOrders int64                 `json:"closed_work_orders"`
	CostPerWO        float64               `json:"cost_per_wo"`
}

// SummarizeCosts groups costs by type, asset and month, spreads them over
// closedWOs, and sets each quarter's spend against the matching budgets.
// Budgets for all departments in a quarter are added together.
func SummarizeCosts(costs []models.MaintenanceCost, closedWOs int64, budgets []models.MaintenanceBudget, loc *time.Location) CostSummary {
	s := CostSummary{
		ByType:           make(map[string]float64),
		ByAsset:          make(map[string]float64),
		Monthly:          make(map[string]float64),
		BudgetVsActual:   make(map[string]BudgetLine),
		ClosedWorkOrders: closedWOs,
	}
	actual := make(map[string]float64)
	for _, c := range costs {
		s.TotalCosts += c.Amount
		s.ByType[c.CostType] += c.Amount
		s.ByAsset[c.AssetName] += c.Amount
		s.Monthly[MonthKey(c.Timestamp, loc)] += c.Amount
		actual[QuarterOf(c.Timestamp, loc)] += c.Amount
	}
	if s.TotalCosts > 0 && closedWOs > 0 {
		s.CostPerWO = Round(s.TotalCosts/float64(closedWOs), 2)
	}

	for _, b := range budgets {
		key := QuarterKey(b.Year, b.Quarter)
		line := s.BudgetVsActual[key]
		line.Budget += b.Amount
		s.BudgetVsActual[key] = line
	}
	for key, spent := range actual {
		line := s.BudgetVsActual[key]
		line.Actual = spent
		s.BudgetVsActual[key] = line
	}
	for key, line := range s.BudgetVsActual {
		line.Remaining = line.Budget - line.Actual
		if line.Budget > 0 {
			line.Utilization = Round(line.Actual/line.Budget*100, 1)
		}
		s.BudgetVsActual[key] = line
	}
	return s
}
