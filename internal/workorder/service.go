package workorder

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/primefragrance/cmms/internal/apperr"
	"github.com/primefragrance/cmms/internal/identity"
	"github.com/primefragrance/cmms/internal/models"
	"github.com/primefragrance/cmms/internal/notify"
	"go.uber.org/zap"
)

// Options configures a Service. Zero values select defaults.
type Options struct {
	Notifier notify.Notifier
	Logger   *zap.Logger
	Now      func() time.Time
	Location *time.Location
}

// Service runs the work order state machine on top of a Store.
type Service struct {
	store    Store
	notifier notify.Notifier
	log      *zap.Logger
	now      func() time.Time
	loc      *time.Location
}

// NewService creates a Service. Notification failures are logged, never
// returned.
func NewService(store Store, opts Options) *Service {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	return &Service{
		store:    store,
		notifier: notify.Logged(opts.Notifier, log),
		log:      log.Named("workorder"),
		now:      now,
		loc:      loc,
	}
}

func authorize(p identity.Principal, roles ...string) error {
	if !p.HasRole(roles...) {
		return apperr.New(apperr.Forbidden, "Akses ditolak. Role %s tidak diizinkan.", p.Role)
	}
	return nil
}

// Create files a breakdown report against a named asset and bumps the
// asset's breakdown counter.
func (s *Service) Create(ctx context.Context, p identity.Principal, req CreateRequest) (*models.WorkOrder, error) {
	if err := authorize(p, identity.RoleOperator); err != nil {
		return nil, err
	}
	if req.AssetName == "" {
		return nil, apperr.New(apperr.Validation, "Field asset_id harus diisi")
	}
	if req.Description == "" {
		return nil, apperr.New(apperr.Validation, "Field description harus diisi")
	}
	woType := req.Type
	if woType == "" {
		woType = models.WOTypeCorrective
	}
	if !slices.Contains(Types, woType) {
		return nil, apperr.New(apperr.Validation, "Tipe WO tidak valid: %s", woType)
	}
	priority := req.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}
	if !slices.Contains(Priorities, priority) {
		return nil, apperr.New(apperr.Validation, "Prioritas tidak valid: %s", priority)
	}
	if req.EstimatedDuration < 0 {
		return nil, apperr.New(apperr.Validation, "Field estimated_duration tidak boleh negatif")
	}

	a, err := s.store.FindAsset(ctx, req.AssetName)
	if err != nil {
		return nil, err
	}
	components := nonEmpty(req.Components)
	if len(a.CriticalComponents) > 0 {
		for _, c := range components {
			if !a.HasComponent(c) {
				return nil, apperr.New(apperr.Validation, "Komponen '%s' tidak terdaftar pada aset %s", c, a.Name)
			}
		}
	}

	id, err := s.generateUniqueID(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now().Unix()
	photos := req.Photos
	if photos == nil {
		photos = []string{}
	}
	wo := &models.WorkOrder{
		ID:                id,
		AssetID:           fmt.Sprint(a.ID),
		AssetName:         a.Name,
		AssetType:         a.Type,
		Description:       req.Description,
		Components:        components,
		Type:              woType,
		Priority:          priority,
		Status:            models.WOStatusNew,
		RequestedBy:       p.Username,
		TimestampCreated:  &now,
		CompletionPhotos:  photos,
		EstimatedDuration: req.EstimatedDuration,
		PartsUsed:         []models.Part{},
	}
	if err := s.store.Create(ctx, wo, a.ID); err != nil {
		return nil, err
	}

	s.log.Info("work order created",
		zap.String("wo", wo.ID), zap.String("asset", wo.AssetName), zap.String("by", p.Username))
	severity := notify.SeverityInfo
	if priority == models.PriorityHigh {
		severity = notify.SeverityWarning
	}
	s.notify(ctx, notify.Message{
		Title:    fmt.Sprintf("WO baru %s: %s", wo.ID, wo.AssetName),
		Body:     wo.Description,
		Severity: severity,
		Fields: []notify.Field{
			{Name: "Prioritas", Value: wo.Priority, Short: true},
			{Name: "Pelapor", Value: p.DisplayName(), Short: true},
		},
	})
	return wo, nil
}

// generateUniqueID creates a wo- ID that does not collide with existing rows.
func (s *Service) generateUniqueID(ctx context.Context) (string, error) {
	for attempt := 0; attempt < 3; attempt++ {
		id, err := GenerateID()
		if err != nil {
			return "", err
		}
		exists, err := s.store.Exists(ctx, id)
		if err != nil {
			return "", err
		}
		if !exists {
			return id, nil
		}
	}
	return "", fmt.Errorf("workorder: failed to generate unique ID after 3 attempts")
}

// Assign hands a new or assigned work order to a technician.
func (s *Service) Assign(ctx context.Context, p identity.Principal, id, technician string) (*models.WorkOrder, error) {
	if err := authorize(p, identity.RoleSupervisor); err != nil {
		return nil, err
	}
	if technician == "" {
		return nil, apperr.New(apperr.Validation, "Field technician harus diisi")
	}
	name := technician
	u, err := s.store.FindUser(ctx, technician)
	if err != nil {
		return nil, err
	}
	if u != nil {
		if u.Role != identity.RoleTechnician {
			return nil, apperr.New(apperr.Validation, "User %s bukan teknisi", technician)
		}
		name = u.DisplayName()
	}

	now := s.now().Unix()
	wo, err := s.apply(ctx, Change{
		ID:      id,
		Action:  ActionAssign,
		From:    actionSources[ActionAssign],
		To:      models.WOStatusAssigned,
		Set:     map[string]interface{}{"assigned_to": technician, "technician": name},
		SetOnce: map[string]int64{"timestamp_started": now},
		Actor:   p.Username,
		At:      now,
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("work order assigned", zap.String("wo", id), zap.String("technician", technician))
	return wo, nil
}

// Start moves an assigned work order into progress. Only the assigned
// technician may start it.
func (s *Service) Start(ctx context.Context, p identity.Principal, id string) (*models.WorkOrder, error) {
	if err := authorize(p, identity.RoleTechnician); err != nil {
		return nil, err
	}
	now := s.now().Unix()
	return s.apply(ctx, Change{
		ID:     id,
		Action: ActionStart,
		From:   actionSources[ActionStart],
		Owner:  p.Username,
		To:     models.WOStatusInProgress,
		Actor:  p.Username,
		At:     now,
	})
}

// Complete records the technician's repair report and marks the work order
// Selesai, awaiting verification.
func (s *Service) Complete(ctx context.Context, p identity.Principal, id string, req CompleteRequest) (*models.WorkOrder, error) {
	if err := authorize(p, identity.RoleTechnician); err != nil {
		return nil, err
	}
	rootCause := orDefault(req.RootCause, DefaultFieldValue)
	componentFailed := orDefault(req.ComponentFailed, DefaultFieldValue)
	parts := req.PartsUsed
	if parts == nil {
		parts = []models.Part{}
	}
	for _, part := range parts {
		if part.Quantity < 0 {
			return nil, apperr.New(apperr.Validation, "Jumlah part %s tidak boleh negatif", part.Part)
		}
	}

	now := s.now().Unix()
	wo, err := s.apply(ctx, Change{
		ID:     id,
		Action: ActionComplete,
		From:   actionSources[ActionComplete],
		Owner:  p.Username,
		To:     models.WOStatusCompleted,
		Set: map[string]interface{}{
			"completion_notes": req.Notes,
			"root_cause":       rootCause,
			"component_failed": componentFailed,
		},
		SetOnce:      map[string]int64{"timestamp_completed": now},
		Parts:        parts,
		AppendPhotos: req.Photos,
		Actor:        p.Username,
		At:           now,
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, notify.Message{
		Title:    fmt.Sprintf("WO %s selesai, menunggu verifikasi", wo.ID),
		Body:     wo.CompletionNotes,
		Severity: notify.SeverityInfo,
		Fields: []notify.Field{
			{Name: "Aset", Value: wo.AssetName, Short: true},
			{Name: "Teknisi", Value: wo.Technician, Short: true},
			{Name: "Akar masalah", Value: wo.RootCause},
		},
	})
	return wo, nil
}

// Verify closes a completed work order and stamps the asset's
// last_maintenance. Verifying a closed work order changes nothing.
func (s *Service) Verify(ctx context.Context, p identity.Principal, id string) (*models.WorkOrder, error) {
	if err := authorize(p, identity.RoleSupervisor); err != nil {
		return nil, err
	}
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status == models.WOStatusClosed {
		return current, nil
	}

	now := s.now().Unix()
	wo, err := s.store.Apply(ctx, Change{
		ID:     id,
		Action: ActionVerify,
		From:   actionSources[ActionVerify],
		To:     models.WOStatusClosed,
		Set: map[string]interface{}{
			"verified_by": p.Username,
			"supervisor":  p.DisplayName(),
		},
		SetOnce:    map[string]int64{"timestamp_verified": now},
		TouchAsset: now,
		Actor:      p.Username,
		At:         now,
	})
	if err != nil {
		return nil, err
	}
	if wo == nil {
		// A concurrent verify may have closed it first.
		again, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if again.Status == models.WOStatusClosed {
			return again, nil
		}
		return nil, s.conflict(again, models.WOStatusClosed)
	}

	s.log.Info("work order verified", zap.String("wo", id), zap.String("by", p.Username))
	s.notify(ctx, notify.Message{
		Title:    fmt.Sprintf("WO %s ditutup", wo.ID),
		Severity: notify.SeveritySuccess,
		Fields: []notify.Field{
			{Name: "Aset", Value: wo.AssetName, Short: true},
			{Name: "Supervisor", Value: wo.Supervisor, Short: true},
		},
	})
	return wo, nil
}

// AttachPhotos appends photo references to a work order in any status.
func (s *Service) AttachPhotos(ctx context.Context, p identity.Principal, id string, photos []string) (*models.WorkOrder, error) {
	if err := authorize(p, identity.RoleOperator, identity.RoleTechnician); err != nil {
		return nil, err
	}
	photos = nonEmpty(photos)
	if len(photos) == 0 {
		return nil, apperr.New(apperr.Validation, "Tidak ada file valid yang diupload")
	}
	now := s.now().Unix()
	wo, err := s.store.Apply(ctx, Change{
		ID:           id,
		Action:       ActionPhotos,
		AppendPhotos: photos,
		Actor:        p.Username,
		At:           now,
	})
	if err != nil {
		return nil, err
	}
	if wo == nil {
		return nil, apperr.New(apperr.NotFound, "WO tidak ditemukan")
	}
	return wo, nil
}

// apply runs a guarded change and classifies a miss.
func (s *Service) apply(ctx context.Context, c Change) (*models.WorkOrder, error) {
	wo, err := s.store.Apply(ctx, c)
	if err != nil {
		return nil, err
	}
	if wo != nil {
		return wo, nil
	}
	current, err := s.Get(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	if c.Owner != "" && current.AssignedTo != c.Owner {
		return nil, apperr.New(apperr.Forbidden, "WO %s tidak ditugaskan kepada Anda", c.ID)
	}
	return nil, s.conflict(current, c.To)
}

func (s *Service) conflict(wo *models.WorkOrder, to string) error {
	if !isValidTransition(wo.Status, to) {
		return apperr.New(apperr.Conflict, "Transisi WO dari %s ke %s tidak diizinkan", wo.Status, to)
	}
	return apperr.New(apperr.Conflict, "WO berstatus %s", wo.Status)
}

func (s *Service) notify(ctx context.Context, msg notify.Message) {
	_ = s.notifier.Notify(ctx, msg)
}

// Get returns one work order.
func (s *Service) Get(ctx context.Context, id string) (*models.WorkOrder, error) {
	wo, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, apperr.Wrap(apperr.NotFound, err, "WO tidak ditemukan")
		}
		return nil, err
	}
	return wo, nil
}

// Events returns the transition log of a work order.
func (s *Service) Events(ctx context.Context, id string) ([]models.WorkOrderEvent, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.store.Events(ctx, id)
}

// List returns the work orders visible to p, newest first. Technicians see
// their assignments, operators their own requests, everyone else all.
func (s *Service) List(ctx context.Context, p identity.Principal, status string) ([]models.WorkOrder, error) {
	var f Filter
	switch p.Role {
	case identity.RoleTechnician:
		f.AssignedTo = p.Username
	case identity.RoleOperator:
		f.RequestedBy = p.Username
	}
	if status != "" {
		f.Statuses = []string{status}
	}
	return s.store.List(ctx, f)
}

// New returns work orders waiting for assignment.
func (s *Service) New(ctx context.Context) ([]models.WorkOrder, error) {
	return s.store.List(ctx, Filter{Statuses: []string{models.WOStatusNew}})
}

// AwaitingVerification returns completed work orders, latest completion first.
func (s *Service) AwaitingVerification(ctx context.Context) ([]models.WorkOrder, error) {
	return s.store.List(ctx, Filter{
		Statuses: []string{models.WOStatusCompleted},
		OrderBy:  "timestamp_completed DESC, id ASC",
	})
}

// Assigned returns the open work of one technician.
func (s *Service) Assigned(ctx context.Context, technician string) ([]models.WorkOrder, error) {
	return s.store.List(ctx, Filter{
		AssignedTo: technician,
		Statuses:   []string{models.WOStatusAssigned, models.WOStatusInProgress},
	})
}

// All returns every work order, newest first.
func (s *Service) All(ctx context.Context) ([]models.WorkOrder, error) {
	return s.store.List(ctx, Filter{})
}

// Closed returns closed work orders of type woType ("" for all).
func (s *Service) Closed(ctx context.Context, woType string, since int64) ([]models.WorkOrder, error) {
	return s.store.List(ctx, Filter{
		Statuses:     []string{models.WOStatusClosed},
		Type:         woType,
		CreatedSince: since,
	})
}

// Count returns the number of work orders matching f.
func (s *Service) Count(ctx context.Context, f Filter) (int64, error) {
	return s.store.Count(ctx, f)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// nonEmpty drops blank entries and always returns a non-nil slice.
func nonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
