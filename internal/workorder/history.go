package workorder

import (
	"context"

	"github.com/primefragrance/cmms/internal/identity"
	"github.com/primefragrance/cmms/internal/kpi"
	"github.com/primefragrance/cmms/internal/models"
)

const notAvailable = "N/A"

// HistoryRow is one line of the work order history report.
type HistoryRow struct {
	ID              string `json:"id"`
	AssetName       string `json:"asset_name"`
	Type            string `json:"type"`
	Priority        string `json:"priority"`
	Status          string `json:"status"`
	Technician      string `json:"technician"`
	Supervisor      string `json:"supervisor"`
	RootCause       string `json:"root_cause"`
	ComponentFailed string `json:"component_failed"`
	RequestedAt     string `json:"requested_at"`
	RepairStart     string `json:"repair_start"`
	CompletedAt     string `json:"completed_at"`
	Duration        string `json:"duration"`
}

// History returns every work order as a report row, newest first.
func (s *Service) History(ctx context.Context) ([]HistoryRow, error) {
	wos, err := s.store.List(ctx, Filter{})
	if err != nil {
		return nil, err
	}
	rows := make([]HistoryRow, 0, len(wos))
	for i := range wos {
		rows = append(rows, s.historyRow(&wos[i]))
	}
	return rows, nil
}

func (s *Service) historyRow(wo *models.WorkOrder) HistoryRow {
	technician := wo.Technician
	if technician == "" {
		technician = wo.AssignedTo
	}
	return HistoryRow{
		ID:              wo.ID,
		AssetName:       wo.AssetName,
		Type:            wo.Type,
		Priority:        wo.Priority,
		Status:          wo.Status,
		Technician:      orDefault(technician, notAvailable),
		Supervisor:      orDefault(wo.Supervisor, notAvailable),
		RootCause:       orDefault(wo.RootCause, notAvailable),
		ComponentFailed: orDefault(wo.ComponentFailed, notAvailable),
		RequestedAt:     kpi.FormatTimestamp(wo.TimestampCreated, s.loc),
		RepairStart:     kpi.FormatTimestamp(wo.TimestampStarted, s.loc),
		CompletedAt:     kpi.FormatTimestamp(wo.TimestampCompleted, s.loc),
		Duration:        kpi.RepairDuration(wo.TimestampCreated, wo.TimestampCompleted),
	}
}

// OperatorStats counts an operator's own requests.
type OperatorStats struct {
	TotalRequests     int64   `json:"total_requests"`
	PendingRequests   int64   `json:"pending_requests"`
	CompletedRequests int64   `json:"completed_requests"`
	CompletionRate    float64 `json:"completion_rate"`
}

// TechnicianStats counts a technician's assignments.
type TechnicianStats struct {
	AssignedWorkOrders   int64   `json:"assigned_work_orders"`
	CompletedWorkOrders  int64   `json:"completed_work_orders"`
	InProgressWorkOrders int64   `json:"in_progress_work_orders"`
	CompletionRate       float64 `json:"completion_rate"`
}

// SupervisorStats counts the supervisor's queues. Low stock comes from the
// inventory ledger and is filled in by the caller.
type SupervisorStats struct {
	NewWorkOrders       int64 `json:"new_work_orders"`
	CompletedWorkOrders int64 `json:"completed_work_orders"`
	AssignedWorkOrders  int64 `json:"assigned_work_orders"`
	LowStockItems       int64 `json:"low_stock_items"`
	VerificationPending int64 `json:"verification_pending"`
}

// counts runs several Count queries, stopping at the first error.
func (s *Service) counts(ctx context.Context, filters ...Filter) ([]int64, error) {
	out := make([]int64, len(filters))
	for i, f := range filters {
		n, err := s.store.Count(ctx, f)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

// OperatorStats summarizes the requests filed by p.
func (s *Service) OperatorStats(ctx context.Context, p identity.Principal) (*OperatorStats, error) {
	n, err := s.counts(ctx,
		Filter{RequestedBy: p.Username},
		Filter{RequestedBy: p.Username, Statuses: []string{models.WOStatusNew}},
		Filter{RequestedBy: p.Username, Statuses: []string{models.WOStatusClosed}},
	)
	if err != nil {
		return nil, err
	}
	return &OperatorStats{
		TotalRequests:     n[0],
		PendingRequests:   n[1],
		CompletedRequests: n[2],
		CompletionRate:    kpi.Percent(n[2], n[0]),
	}, nil
}

// TechnicianStats summarizes the work assigned to p.
func (s *Service) TechnicianStats(ctx context.Context, p identity.Principal) (*TechnicianStats, error) {
	n, err := s.counts(ctx,
		Filter{AssignedTo: p.Username},
		Filter{AssignedTo: p.Username, Statuses: []string{models.WOStatusClosed}},
		Filter{AssignedTo: p.Username, Statuses: []string{models.WOStatusAssigned, models.WOStatusInProgress}},
	)
	if err != nil {
		return nil, err
	}
	return &TechnicianStats{
		AssignedWorkOrders:   n[0],
		CompletedWorkOrders:  n[1],
		InProgressWorkOrders: n[2],
		CompletionRate:       kpi.Percent(n[1], n[0]),
	}, nil
}

// SupervisorStats summarizes the plant-wide queues.
func (s *Service) SupervisorStats(ctx context.Context) (*SupervisorStats, error) {
	n, err := s.counts(ctx,
		Filter{Statuses: []string{models.WOStatusNew}},
		Filter{Statuses: []string{models.WOStatusCompleted}},
		Filter{Statuses: []string{models.WOStatusAssigned, models.WOStatusInProgress}},
	)
	if err != nil {
		return nil, err
	}
	return &SupervisorStats{
		NewWorkOrders:       n[0],
		CompletedWorkOrders: n[1],
		AssignedWorkOrders:  n[2],
		VerificationPending: n[1],
	}, nil
}
