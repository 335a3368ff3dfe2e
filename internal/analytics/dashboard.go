package analytics

import (
	"context"

	"github.com/primefragrance/cmms/internal/asset"
	"github.com/primefragrance/cmms/internal/inventory"
	"github.com/primefragrance/cmms/internal/kpi"
	"github.com/primefragrance/cmms/internal/models"
	"github.com/primefragrance/cmms/internal/workorder"
)

// activeStatuses are the work order states still owed work.
var activeStatuses = []string{models.WOStatusNew, models.WOStatusAssigned, models.WOStatusInProgress}

// Dashboard is the manager's headline KPI set.
type Dashboard struct {
	TotalAssets         int64   `json:"total_assets"`
	OperationalAssets   int64   `json:"operational_assets"`
	AssetUptime         float64 `json:"asset_uptime"`
	TotalWorkOrders     int64   `json:"total_work_orders"`
	ActiveWorkOrders    int64   `json:"active_work_orders"`
	CompletionRate      float64 `json:"completion_rate"`
	LowStockItems       int64   `json:"low_stock_items"`
	MTTRMinutes         float64 `json:"mttr_minutes"`
	TotalInventoryItems int64   `json:"total_inventory_items"`
}

// WOStats counts work orders by lifecycle stage.
type WOStats struct {
	New        int64 `json:"new"`
	InProgress int64 `json:"in_progress"`
	Completed  int64 `json:"completed"`
	Closed     int64 `json:"closed"`
}

// AssetKPIs summarizes asset health and preventive compliance.
type AssetKPIs struct {
	ProblemAssets int64   `json:"problem_asset"`
	PMCompliance  float64 `json:"pm_compliance"`
	WOStats       WOStats `json:"wo_stats"`
}

// counter accumulates the first error over a run of counts.
type counter struct {
	ctx context.Context
	wos workorder.Store
	err error
}

func (c *counter) wo(f workorder.Filter) int64 {
	if c.err != nil {
		return 0
	}
	n, err := c.wos.Count(c.ctx, f)
	c.err = err
	return n
}

func (c *counter) do(fn func() (int64, error)) int64 {
	if c.err != nil {
		return 0
	}
	n, err := fn()
	c.err = err
	return n
}

// MTTR is the mean time to repair over closed corrective work orders.
func (s *Service) MTTR(ctx context.Context) (kpi.MTTRResult, error) {
	closed, err := s.wos.List(ctx, workorder.Filter{
		Statuses: []string{models.WOStatusClosed},
		Type:     models.WOTypeCorrective,
	})
	if err != nil {
		return kpi.MTTRResult{}, err
	}
	return kpi.MTTR(closed), nil
}

// Dashboard computes the headline KPIs.
func (s *Service) Dashboard(ctx context.Context) (*Dashboard, error) {
	c := &counter{ctx: ctx, wos: s.wos}
	d := &Dashboard{
		TotalAssets: c.do(func() (int64, error) { return asset.CountByStatus(ctx, s.db) }),
		OperationalAssets: c.do(func() (int64, error) {
			return asset.CountByStatus(ctx, s.db, kpi.OperationalStatuses...)
		}),
		TotalWorkOrders:     c.wo(workorder.Filter{}),
		ActiveWorkOrders:    c.wo(workorder.Filter{Statuses: activeStatuses}),
		LowStockItems:       c.do(func() (int64, error) { return inventory.CountLow(ctx, s.db) }),
		TotalInventoryItems: c.do(func() (int64, error) { return inventory.Count(ctx, s.db) }),
	}
	closed := c.wo(workorder.Filter{Statuses: []string{models.WOStatusClosed}})
	if c.err != nil {
		return nil, c.err
	}
	mttr, err := s.MTTR(ctx)
	if err != nil {
		return nil, err
	}
	d.AssetUptime = kpi.Uptime(d.OperationalAssets, d.TotalAssets)
	d.CompletionRate = kpi.Percent(closed, d.TotalWorkOrders)
	d.MTTRMinutes = mttr.Minutes
	return d, nil
}

// AssetKPIs computes problem asset count, PM compliance and stage counts.
func (s *Service) AssetKPIs(ctx context.Context) (*AssetKPIs, error) {
	c := &counter{ctx: ctx, wos: s.wos}
	out := &AssetKPIs{
		ProblemAssets: c.do(func() (int64, error) {
			return asset.CountByStatus(ctx, s.db, models.AssetStatusProblem)
		}),
		WOStats: WOStats{
			New:        c.wo(workorder.Filter{Statuses: []string{models.WOStatusNew}}),
			InProgress: c.wo(workorder.Filter{Statuses: []string{models.WOStatusAssigned, models.WOStatusInProgress}}),
			Completed:  c.wo(workorder.Filter{Statuses: []string{models.WOStatusCompleted}}),
			Closed:     c.wo(workorder.Filter{Statuses: []string{models.WOStatusClosed}}),
		},
	}
	totalPM := c.wo(workorder.Filter{Type: models.WOTypePreventive})
	closedPM := c.wo(workorder.Filter{Type: models.WOTypePreventive, Statuses: []string{models.WOStatusClosed}})
	if c.err != nil {
		return nil, c.err
	}
	out.PMCompliance = kpi.PMCompliance(totalPM, closedPM)
	return out, nil
}
