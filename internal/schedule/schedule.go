// Package schedule manages planned maintenance slots:
// Dijadwalkan → Dalam Pengerjaan → Selesai.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/primefragrance/cmms/internal/apperr"
	"github.com/primefragrance/cmms/internal/identity"
	"github.com/primefragrance/cmms/internal/kpi"
	"github.com/primefragrance/cmms/internal/models"
	"github.com/primefragrance/cmms/internal/notify"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const day = int64(24 * 60 * 60)

// Windows used by the upcoming views.
const (
	UpcomingWindow = 7 * day
	OperatorWindow = 30 * day
)

// DefaultDuration is the slot length in minutes when none is given.
const DefaultDuration = 60

// DefaultNotice is sent when notify-operator carries no message.
const DefaultNotice = "Jadwal maintenance baru telah ditambahkan"

// Statuses lists schedule statuses in lifecycle order.
var Statuses = []string{
	models.ScheduleStatusPlanned,
	models.ScheduleStatusInProgress,
	models.ScheduleStatusDone,
}

// CreateOpts holds parameters for planning a maintenance slot.
type CreateOpts struct {
	AssetName     string `json:"asset_name"`
	Type          string `json:"type"`
	Description   string `json:"description"`
	ScheduledDate int64  `json:"scheduled_date"`
	Duration      int    `json:"duration"`
	Priority      string `json:"priority"`
	AssignedTo    string `json:"assigned_to"`
	Recurrence    string `json:"recurrence"`
}

// UpdateOpts holds a status or notes change. Nil fields are left unchanged.
type UpdateOpts struct {
	Status      *string `json:"status"`
	Notes       *string `json:"notes"`
	CompletedBy *string `json:"completed_by"`
}

// View is a schedule row decorated for display.
type View struct {
	models.MaintenanceSchedule
	ScheduledDateFormatted string `json:"scheduled_date_formatted"`
	DaysUntil              *int   `json:"days_until,omitempty"`
}

// Notice is the result of announcing a schedule to operators.
type Notice struct {
	Schedule      string `json:"schedule"`
	ScheduledDate string `json:"scheduled_date"`
}

// Service plans and tracks maintenance schedules.
type Service struct {
	db       *gorm.DB
	notifier notify.Notifier
	log      *zap.Logger
	now      func() time.Time
	loc      *time.Location
}

// Options configures a Service. Zero values select defaults.
type Options struct {
	Notifier notify.Notifier
	Logger   *zap.Logger
	Now      func() time.Time
	Location *time.Location
}

// NewService creates a schedule Service on db.
func NewService(db *gorm.DB, opts Options) *Service {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	s := &Service{
		db:       db,
		notifier: notify.Logged(opts.Notifier, log),
		log:      log.Named("schedule"),
		now:      opts.Now,
		loc:      opts.Location,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	return s
}

// Insert stores a schedule row as is. It is shared with callers that plan
// slots inside their own transaction.
func Insert(ctx context.Context, db *gorm.DB, sch *models.MaintenanceSchedule) error {
	if err := db.WithContext(ctx).Create(sch).Error; err != nil {
		return fmt.Errorf("schedule: insert for %s: %w", sch.AssetName, err)
	}
	return nil
}

// Create plans a new maintenance slot in status Dijadwalkan.
func (s *Service) Create(ctx context.Context, p identity.Principal, opts CreateOpts) (*models.MaintenanceSchedule, error) {
	required := []struct {
		name string
		set  bool
	}{
		{"asset_name", opts.AssetName != ""},
		{"type", opts.Type != ""},
		{"description", opts.Description != ""},
		{"scheduled_date", opts.ScheduledDate != 0},
	}
	for _, f := range required {
		if !f.set {
			return nil, apperr.New(apperr.Validation, "Field %s harus diisi", f.name)
		}
	}
	priority := opts.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}
	if !slices.Contains([]string{models.PriorityLow, models.PriorityMedium, models.PriorityHigh}, priority) {
		return nil, apperr.New(apperr.Validation, "Prioritas tidak valid: %s", priority)
	}
	duration := opts.Duration
	if duration == 0 {
		duration = DefaultDuration
	}
	if duration < 0 {
		return nil, apperr.New(apperr.Validation, "Field duration tidak boleh negatif")
	}
	if err := ValidateRecurrence(opts.Recurrence); err != nil {
		return nil, apperr.Wrap(apperr.Validation, err, "Format recurrence tidak valid: %s", opts.Recurrence)
	}

	sch := &models.MaintenanceSchedule{
		AssetName:     opts.AssetName,
		Type:          opts.Type,
		Description:   opts.Description,
		ScheduledDate: opts.ScheduledDate,
		Duration:      duration,
		Priority:      priority,
		Status:        models.ScheduleStatusPlanned,
		AssignedTo:    opts.AssignedTo,
		Recurrence:    opts.Recurrence,
		CreatedBy:     p.Username,
		CreatedAt:     s.now().Unix(),
	}
	if err := Insert(ctx, s.db, sch); err != nil {
		return nil, err
	}
	s.log.Info("schedule created", zap.Uint("id", sch.ID), zap.String("asset", sch.AssetName))
	return sch, nil
}

// Get returns one schedule by ID.
func (s *Service) Get(ctx context.Context, id string) (*models.MaintenanceSchedule, error) {
	return get(ctx, s.db, id)
}

func get(ctx context.Context, db *gorm.DB, id string) (*models.MaintenanceSchedule, error) {
	n, err := strconv.ParseUint(id, 10, 64)
	if err != nil {
		return nil, apperr.New(apperr.NotFound, "Jadwal tidak ditemukan")
	}
	var sch models.MaintenanceSchedule
	if err := db.WithContext(ctx).Where("id = ?", n).First(&sch).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Wrap(apperr.NotFound, err, "Jadwal tidak ditemukan")
		}
		return nil, fmt.Errorf("schedule: get %s: %w", id, err)
	}
	return &sch, nil
}

// Update changes a schedule's status or notes. Status only moves forward.
// Entering Selesai stamps completed_at and, for recurring schedules, plans
// the next occurrence.
func (s *Service) Update(ctx context.Context, p identity.Principal, id string, opts UpdateOpts) (*models.MaintenanceSchedule, error) {
	if opts.Status == nil && opts.Notes == nil && opts.CompletedBy == nil {
		return nil, apperr.New(apperr.Validation, "Tidak ada data untuk diupdate")
	}
	if opts.Status != nil && !slices.Contains(Statuses, *opts.Status) {
		return nil, apperr.New(apperr.Validation, "Status jadwal tidak valid: %s", *opts.Status)
	}
	n, err := strconv.ParseUint(id, 10, 64)
	if err != nil {
		return nil, apperr.New(apperr.NotFound, "Jadwal tidak ditemukan")
	}

	now := s.now()
	var sch models.MaintenanceSchedule
	var next *models.MaintenanceSchedule
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", n).First(&sch).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.Wrap(apperr.NotFound, err, "Jadwal tidak ditemukan")
			}
			return fmt.Errorf("schedule: load %d: %w", n, err)
		}
		if p.Role == identity.RoleTechnician && sch.AssignedTo != "" && sch.AssignedTo != p.Username {
			return apperr.New(apperr.Forbidden, "Jadwal ini ditugaskan kepada %s", sch.AssignedTo)
		}

		columns := []string{}
		completing := false
		if opts.Status != nil && *opts.Status != sch.Status {
			if slices.Index(Statuses, *opts.Status) < slices.Index(Statuses, sch.Status) {
				return apperr.New(apperr.Conflict, "Status jadwal tidak bisa kembali dari %s ke %s", sch.Status, *opts.Status)
			}
			sch.Status = *opts.Status
			columns = append(columns, "status")
			completing = sch.Status == models.ScheduleStatusDone
		}
		if opts.Notes != nil {
			sch.Notes = *opts.Notes
			columns = append(columns, "notes")
		}
		if opts.CompletedBy != nil {
			sch.CompletedBy = *opts.CompletedBy
			columns = append(columns, "completed_by")
		}
		if completing {
			ts := now.Unix()
			sch.CompletedAt = &ts
			columns = append(columns, "completed_at")
			if sch.CompletedBy == "" {
				sch.CompletedBy = p.Username
				columns = append(columns, "completed_by")
			}
		}
		if len(columns) == 0 {
			return nil
		}
		if err := tx.Model(&sch).Select(columns).Updates(&sch).Error; err != nil {
			return fmt.Errorf("schedule: update %d: %w", n, err)
		}

		if completing && sch.Recurrence != "" {
			at, err := NextOccurrence(sch.Recurrence, time.Unix(sch.ScheduledDate, 0), now, s.loc)
			if err != nil {
				return err
			}
			next = &models.MaintenanceSchedule{
				AssetName:     sch.AssetName,
				Type:          sch.Type,
				Description:   sch.Description,
				ScheduledDate: at.Unix(),
				Duration:      sch.Duration,
				Priority:      sch.Priority,
				Status:        models.ScheduleStatusPlanned,
				AssignedTo:    sch.AssignedTo,
				Recurrence:    sch.Recurrence,
				CreatedBy:     p.Username,
				CreatedAt:     now.Unix(),
			}
			return Insert(ctx, tx, next)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if next != nil {
		s.log.Info("recurring schedule planned",
			zap.Uint("from", sch.ID), zap.Uint("id", next.ID), zap.Int64("at", next.ScheduledDate))
	}
	return &sch, nil
}

// visibleTo scopes q to the schedules p may see. Technicians see their own
// slots plus unassigned ones.
func visibleTo(q *gorm.DB, p identity.Principal) *gorm.DB {
	if p.Role == identity.RoleTechnician {
		return q.Where("(assigned_to = ? OR assigned_to = '' OR assigned_to IS NULL)", p.Username)
	}
	return q
}

func (s *Service) find(q *gorm.DB, withDays bool) ([]View, error) {
	var rows []models.MaintenanceSchedule
	if err := q.Order("scheduled_date ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("schedule: list: %w", err)
	}
	now := s.now().Unix()
	out := make([]View, 0, len(rows))
	for _, r := range rows {
		v := View{MaintenanceSchedule: r}
		if r.ScheduledDate != 0 {
			ts := r.ScheduledDate
			v.ScheduledDateFormatted = kpi.FormatTimestamp(&ts, s.loc)
			if withDays {
				d := kpi.DaysUntil(r.ScheduledDate, now)
				v.DaysUntil = &d
			}
		}
		out = append(out, v)
	}
	return out, nil
}

// List returns every schedule visible to p, earliest first.
func (s *Service) List(ctx context.Context, p identity.Principal) ([]View, error) {
	q := visibleTo(s.db.WithContext(ctx).Model(&models.MaintenanceSchedule{}), p)
	return s.find(q, false)
}

// Upcoming returns planned slots in the next seven days visible to p.
func (s *Service) Upcoming(ctx context.Context, p identity.Principal) ([]View, error) {
	now := s.now().Unix()
	q := s.db.WithContext(ctx).Model(&models.MaintenanceSchedule{}).
		Where("scheduled_date BETWEEN ? AND ?", now, now+UpcomingWindow).
		Where("status = ?", models.ScheduleStatusPlanned)
	return s.find(visibleTo(q, p), true)
}

// ForTechnician returns the open slots a technician may pick up.
func (s *Service) ForTechnician(ctx context.Context, p identity.Principal) ([]View, error) {
	q := s.db.WithContext(ctx).Model(&models.MaintenanceSchedule{}).
		Where("status IN ?", []string{models.ScheduleStatusPlanned, models.ScheduleStatusInProgress})
	return s.find(visibleTo(q, p), true)
}

// ForOperator returns open slots up to thirty days ahead, including overdue ones.
func (s *Service) ForOperator(ctx context.Context) ([]View, error) {
	now := s.now().Unix()
	q := s.db.WithContext(ctx).Model(&models.MaintenanceSchedule{}).
		Where("scheduled_date <= ?", now+OperatorWindow).
		Where("status IN ?", []string{models.ScheduleStatusPlanned, models.ScheduleStatusInProgress})
	return s.find(q, false)
}

// OperatorUpcoming returns planned slots in the next seven days.
func (s *Service) OperatorUpcoming(ctx context.Context) ([]View, error) {
	return s.Upcoming(ctx, identity.Principal{Role: identity.RoleOperator})
}

// NotifyOperators announces a schedule on the maintenance channel.
func (s *Service) NotifyOperators(ctx context.Context, p identity.Principal, id, message string) (*Notice, error) {
	sch, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if message == "" {
		message = DefaultNotice
	}
	ts := sch.ScheduledDate
	when := kpi.FormatTimestamp(&ts, s.loc)
	s.notifier.Notify(ctx, notify.Message{
		Title:    fmt.Sprintf("Jadwal maintenance: %s", sch.AssetName),
		Body:     message,
		Severity: notify.SeverityWarning,
		Fields: []notify.Field{
			{Name: "Tanggal", Value: when, Short: true},
			{Name: "Durasi", Value: fmt.Sprintf("%d menit", sch.Duration), Short: true},
			{Name: "Dikirim oleh", Value: p.DisplayName()},
		},
	})
	return &Notice{Schedule: sch.AssetName, ScheduledDate: when}, nil
}
