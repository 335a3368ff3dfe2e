package workorder

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/primefragrance/cmms/internal/asset"
	"github.com/primefragrance/cmms/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Filter narrows a work order listing. Zero fields are ignored.
type Filter struct {
	Statuses     []string
	Type         string
	RequestedBy  string
	AssignedTo   string
	CreatedSince int64
	// OrderBy defaults to newest first.
	OrderBy string
}

// Change is one conditional mutation of a work order. It applies only while
// the row still satisfies From and Owner.
type Change struct {
	ID     string
	Action string
	From   []string // required current statuses, empty for any
	Owner  string   // required assigned_to, empty for any
	To     string   // new status, empty to keep
	Set    map[string]interface{}
	// SetOnce columns are written only while they are NULL.
	SetOnce      map[string]int64
	Parts        []models.Part
	AppendPhotos []string
	// TouchAsset, when non-zero, becomes the asset's last_maintenance.
	TouchAsset int64
	Actor      string
	At         int64
}

// Store persists work orders. Implementations must apply each Change
// atomically.
type Store interface {
	Create(ctx context.Context, wo *models.WorkOrder, assetID uint) error
	Get(ctx context.Context, id string) (*models.WorkOrder, error)
	Exists(ctx context.Context, id string) (bool, error)
	List(ctx context.Context, f Filter) ([]models.WorkOrder, error)
	Count(ctx context.Context, f Filter) (int64, error)
	// Apply returns the updated work order, or nil when no row matched.
	Apply(ctx context.Context, c Change) (*models.WorkOrder, error)
	Events(ctx context.Context, id string) ([]models.WorkOrderEvent, error)
	FindAsset(ctx context.Context, name string) (*models.Asset, error)
	// FindUser returns nil without error when the user does not exist.
	FindUser(ctx context.Context, username string) (*models.User, error)
}

// ErrNotFound is returned by Store.Get for unknown IDs.
var ErrNotFound = errors.New("workorder: not found")

// GormStore is the Store backed by a GORM database.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore returns a Store on db.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Create inserts wo and bumps the asset's breakdown counter in one transaction.
func (s *GormStore) Create(ctx context.Context, wo *models.WorkOrder, assetID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := asset.IncrementBreakdown(ctx, tx, assetID); err != nil {
			return err
		}
		if err := tx.Create(wo).Error; err != nil {
			return fmt.Errorf("workorder: create: %w", err)
		}
		ev := models.WorkOrderEvent{
			WorkOrder: wo.ID,
			Action:    ActionCreate,
			ToStatus:  wo.Status,
			Actor:     wo.RequestedBy,
			At:        deref(wo.TimestampCreated),
		}
		if err := tx.Create(&ev).Error; err != nil {
			return fmt.Errorf("workorder: record create event %s: %w", wo.ID, err)
		}
		return nil
	})
}

// Get retrieves a work order by ID.
func (s *GormStore) Get(ctx context.Context, id string) (*models.WorkOrder, error) {
	var wo models.WorkOrder
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&wo).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("workorder: get %s: %w", id, err)
	}
	return &wo, nil
}

// Exists reports whether a work order with id exists.
func (s *GormStore) Exists(ctx context.Context, id string) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.WorkOrder{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, fmt.Errorf("workorder: check ID %s: %w", id, err)
	}
	return count > 0, nil
}

func (s *GormStore) filtered(ctx context.Context, f Filter) *gorm.DB {
	q := s.db.WithContext(ctx).Model(&models.WorkOrder{})
	if len(f.Statuses) == 1 {
		q = q.Where("status = ?", f.Statuses[0])
	} else if len(f.Statuses) > 1 {
		q = q.Where("status IN ?", f.Statuses)
	}
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}
	if f.RequestedBy != "" {
		q = q.Where("requested_by = ?", f.RequestedBy)
	}
	if f.AssignedTo != "" {
		q = q.Where("assigned_to = ?", f.AssignedTo)
	}
	if f.CreatedSince != 0 {
		q = q.Where("timestamp_created >= ?", f.CreatedSince)
	}
	return q
}

// List returns work orders matching f.
func (s *GormStore) List(ctx context.Context, f Filter) ([]models.WorkOrder, error) {
	order := f.OrderBy
	if order == "" {
		order = "timestamp_created DESC, id ASC"
	}
	var wos []models.WorkOrder
	if err := s.filtered(ctx, f).Order(order).Find(&wos).Error; err != nil {
		return nil, fmt.Errorf("workorder: list: %w", err)
	}
	return wos, nil
}

// Count returns the number of work orders matching f.
func (s *GormStore) Count(ctx context.Context, f Filter) (int64, error) {
	var n int64
	if err := s.filtered(ctx, f).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("workorder: count: %w", err)
	}
	return n, nil
}

// Apply runs c inside a transaction: a conditional UPDATE guarded by the
// status and owner predicates, then list columns, the event row and the
// asset touch.
func (s *GormStore) Apply(ctx context.Context, c Change) (*models.WorkOrder, error) {
	var updated *models.WorkOrder
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current models.WorkOrder
		res := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", c.ID).Limit(1).Find(&current)
		if res.Error != nil {
			return fmt.Errorf("workorder: lock %s: %w", c.ID, res.Error)
		}
		if res.RowsAffected == 0 {
			return nil
		}

		updates := make(map[string]interface{}, len(c.Set)+len(c.SetOnce)+1)
		for col, v := range c.Set {
			updates[col] = v
		}
		for col, v := range c.SetOnce {
			updates[col] = gorm.Expr("COALESCE("+col+", ?)", v)
		}
		if c.To != "" {
			updates["status"] = c.To
		}

		if len(updates) > 0 {
			q := tx.Model(&models.WorkOrder{}).Where("id = ?", c.ID)
			if len(c.From) > 0 {
				q = q.Where("status IN ?", c.From)
			}
			if c.Owner != "" {
				q = q.Where("assigned_to = ?", c.Owner)
			}
			res := q.Updates(updates)
			if res.Error != nil {
				return fmt.Errorf("workorder: %s %s: %w", c.Action, c.ID, res.Error)
			}
			if res.RowsAffected == 0 {
				return nil
			}
		} else if !matches(&current, c) {
			return nil
		}

		if c.Parts != nil || len(c.AppendPhotos) > 0 {
			lists := models.WorkOrder{
				PartsUsed:        current.PartsUsed,
				CompletionPhotos: current.CompletionPhotos,
			}
			if c.Parts != nil {
				lists.PartsUsed = c.Parts
			}
			if len(c.AppendPhotos) > 0 {
				lists.CompletionPhotos = append(slices.Clone(current.CompletionPhotos), c.AppendPhotos...)
			}
			err := tx.Model(&models.WorkOrder{}).Where("id = ?", c.ID).
				Select("parts_used", "completion_photos").
				Updates(&lists).Error
			if err != nil {
				return fmt.Errorf("workorder: %s %s lists: %w", c.Action, c.ID, err)
			}
		}

		to := c.To
		if to == "" {
			to = current.Status
		}
		ev := models.WorkOrderEvent{
			WorkOrder:  c.ID,
			Action:     c.Action,
			FromStatus: current.Status,
			ToStatus:   to,
			Actor:      c.Actor,
			At:         c.At,
		}
		if err := tx.Create(&ev).Error; err != nil {
			return fmt.Errorf("workorder: record %s event %s: %w", c.Action, c.ID, err)
		}

		if c.TouchAsset != 0 {
			if err := asset.TouchMaintenance(ctx, tx, current.AssetName, c.TouchAsset); err != nil {
				return err
			}
		}

		var wo models.WorkOrder
		if err := tx.Where("id = ?", c.ID).First(&wo).Error; err != nil {
			return fmt.Errorf("workorder: reload %s: %w", c.ID, err)
		}
		updated = &wo
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// matches checks the Change predicates against an already locked row.
func matches(wo *models.WorkOrder, c Change) bool {
	if len(c.From) > 0 && !slices.Contains(c.From, wo.Status) {
		return false
	}
	return c.Owner == "" || wo.AssignedTo == c.Owner
}

// Events returns the lifecycle log of a work order, oldest first.
func (s *GormStore) Events(ctx context.Context, id string) ([]models.WorkOrderEvent, error) {
	var events []models.WorkOrderEvent
	if err := s.db.WithContext(ctx).Where("work_order = ?", id).Order("at ASC, id ASC").Find(&events).Error; err != nil {
		return nil, fmt.Errorf("workorder: events of %s: %w", id, err)
	}
	return events, nil
}

// FindAsset loads the named asset.
func (s *GormStore) FindAsset(ctx context.Context, name string) (*models.Asset, error) {
	return asset.GetByName(ctx, s.db, name)
}

// FindUser loads a user by username, returning nil when absent.
func (s *GormStore) FindUser(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	res := s.db.WithContext(ctx).Where("username = ?", username).Limit(1).Find(&u)
	if res.Error != nil {
		return nil, fmt.Errorf("workorder: find user %s: %w", username, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return &u, nil
}

func deref(p *int64) int64 {
	if p == nil {
		return 0
	}
	return *p
}
