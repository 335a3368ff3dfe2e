package workorder

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/primefragrance/cmms/internal/apperr"
	"github.com/primefragrance/cmms/internal/db"
	"github.com/primefragrance/cmms/internal/identity"
	"github.com/primefragrance/cmms/internal/models"
	"github.com/primefragrance/cmms/internal/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var (
	operator   = identity.Principal{Username: "op_lina", Role: identity.RoleOperator, Name: "Lina"}
	operator2  = identity.Principal{Username: "op_rudi", Role: identity.RoleOperator}
	techBudi   = identity.Principal{Username: "tech_budi", Role: identity.RoleTechnician, Name: "Budi Santoso"}
	techSari   = identity.Principal{Username: "tech_sari", Role: identity.RoleTechnician, Name: "Sari"}
	supervisor = identity.Principal{Username: "sup_adi", Role: identity.RoleSupervisor, Name: "Adi Wijaya"}
	manager    = identity.Principal{Username: "mgr_maya", Role: identity.RoleManager}
)

// clock advances one minute on every call.
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Minute)
	return c.t
}

type recorder struct {
	mu   sync.Mutex
	msgs []notify.Message
}

func (r *recorder) Notify(_ context.Context, msg notify.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
	return nil
}

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := db.OpenSQLite(filepath.Join(t.TempDir(), "wo.db"))
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(gdb))

	assets := []models.Asset{
		{Name: "Mixing Tank A", Location: "Line 1", Type: "Mixing Tank", Status: models.AssetStatusNormal,
			CriticalComponents: []string{"Motor Agitator", "Seal Pompa"}},
		{Name: "Filling Machine B", Location: "Line 2", Type: "Filling Machine", Status: models.AssetStatusNormal,
			CriticalComponents: []string{}},
	}
	require.NoError(t, gdb.Create(&assets).Error)

	users := []models.User{
		{Username: techBudi.Username, PasswordHash: "x", Role: identity.RoleTechnician, Name: techBudi.Name},
		{Username: techSari.Username, PasswordHash: "x", Role: identity.RoleTechnician},
		{Username: operator.Username, PasswordHash: "x", Role: identity.RoleOperator},
	}
	require.NoError(t, gdb.Create(&users).Error)
	return gdb
}

func newTestService(t *testing.T) (*Service, *gorm.DB, *recorder) {
	t.Helper()
	gdb := testDB(t)
	rec := &recorder{}
	c := &clock{t: time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)}
	svc := NewService(NewGormStore(gdb), Options{Notifier: rec, Now: c.Now, Location: time.UTC})
	return svc, gdb, rec
}

func createWO(t *testing.T, svc *Service) *models.WorkOrder {
	t.Helper()
	wo, err := svc.Create(context.Background(), operator, CreateRequest{
		AssetName:   "Mixing Tank A",
		Description: "Agitator bergetar keras",
		Components:  []string{"Motor Agitator"},
	})
	require.NoError(t, err)
	return wo
}

func loadAsset(t *testing.T, gdb *gorm.DB, name string) models.Asset {
	t.Helper()
	var a models.Asset
	require.NoError(t, gdb.Where("name = ?", name).First(&a).Error)
	return a
}

func TestGenerateID(t *testing.T) {
	re := regexp.MustCompile(`^wo-[0-9a-f]{8}$`)
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		id, err := GenerateID()
		if err != nil {
			t.Fatalf("GenerateID: %v", err)
		}
		if !re.MatchString(id) {
			t.Errorf("GenerateID() = %q, want wo-xxxxxxxx", id)
		}
		seen[id] = true
	}
	if len(seen) < 49 {
		t.Errorf("expected unique IDs, got %d distinct of 50", len(seen))
	}
}

func TestValidTransitions_ForwardOnly(t *testing.T) {
	for from, targets := range ValidTransitions {
		for _, to := range targets {
			if Rank(to) < Rank(from) {
				t.Errorf("transition %s -> %s moves backwards", from, to)
			}
			if Rank(to) == Rank(from) && from != models.WOStatusAssigned {
				t.Errorf("self transition %s only allowed for reassignment", from)
			}
		}
	}
	if _, ok := ValidTransitions[models.WOStatusClosed]; ok {
		t.Error("Ditutup must be terminal")
	}
	for action, sources := range actionSources {
		for _, from := range sources {
			ok := false
			for _, to := range ValidTransitions[from] {
				if Rank(to) >= Rank(from) {
					ok = true
				}
			}
			if !ok {
				t.Errorf("action %s fires from %s which has no outgoing transition", action, from)
			}
		}
	}
}

func TestIsValidTransition(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{models.WOStatusNew, models.WOStatusAssigned, true},
		{models.WOStatusAssigned, models.WOStatusAssigned, true},
		{models.WOStatusAssigned, models.WOStatusCompleted, true},
		{models.WOStatusCompleted, models.WOStatusClosed, true},
		{models.WOStatusNew, models.WOStatusClosed, false},
		{models.WOStatusInProgress, models.WOStatusAssigned, false},
		{models.WOStatusClosed, models.WOStatusNew, false},
	}
	for _, tt := range tests {
		if got := isValidTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("isValidTransition(%q, %q) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestCreate(t *testing.T) {
	svc, gdb, rec := newTestService(t)
	before := loadAsset(t, gdb, "Mixing Tank A")

	wo := createWO(t, svc)

	assert.Equal(t, models.WOStatusNew, wo.Status)
	assert.Equal(t, models.WOTypeCorrective, wo.Type)
	assert.Equal(t, models.PriorityMedium, wo.Priority)
	assert.Equal(t, fmt.Sprint(before.ID), wo.AssetID)
	assert.Equal(t, "Mixing Tank", wo.AssetType)
	assert.Equal(t, operator.Username, wo.RequestedBy)
	assert.Empty(t, wo.AssignedTo)
	require.NotNil(t, wo.TimestampCreated)
	assert.Nil(t, wo.TimestampStarted)

	after := loadAsset(t, gdb, "Mixing Tank A")
	assert.Equal(t, before.BreakdownCount+1, after.BreakdownCount)

	got, err := svc.Get(context.Background(), wo.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Motor Agitator"}, got.Components)
	assert.Equal(t, []string{}, got.CompletionPhotos)

	events, err := svc.Events(context.Background(), wo.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, ActionCreate, events[0].Action)
	assert.Len(t, rec.msgs, 1)
}

func TestCreate_Rejects(t *testing.T) {
	svc, gdb, _ := newTestService(t)
	tests := []struct {
		name string
		p    identity.Principal
		req  CreateRequest
		kind apperr.Kind
	}{
		{"wrong role", techBudi, CreateRequest{AssetName: "Mixing Tank A", Description: "x"}, apperr.Forbidden},
		{"missing asset", operator, CreateRequest{Description: "x"}, apperr.Validation},
		{"missing description", operator, CreateRequest{AssetName: "Mixing Tank A"}, apperr.Validation},
		{"unknown asset", operator, CreateRequest{AssetName: "Boiler Z", Description: "x"}, apperr.NotFound},
		{"bad type", operator, CreateRequest{AssetName: "Mixing Tank A", Description: "x", Type: "Darurat"}, apperr.Validation},
		{"bad priority", operator, CreateRequest{AssetName: "Mixing Tank A", Description: "x", Priority: "Kritis"}, apperr.Validation},
		{"unknown component", operator, CreateRequest{AssetName: "Mixing Tank A", Description: "x", Components: []string{"Ban"}}, apperr.Validation},
		{"negative duration", operator, CreateRequest{AssetName: "Mixing Tank A", Description: "x", EstimatedDuration: -5}, apperr.Validation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tt.p, tt.req)
			require.Error(t, err)
			assert.Equal(t, tt.kind, apperr.KindOf(err), "err = %v", err)
		})
	}

	assert.Zero(t, loadAsset(t, gdb, "Mixing Tank A").BreakdownCount)
	var n int64
	gdb.Model(&models.WorkOrder{}).Count(&n)
	assert.Zero(t, n)
}

func TestCreate_AnyComponentWhenAssetDeclaresNone(t *testing.T) {
	svc, _, _ := newTestService(t)
	wo, err := svc.Create(context.Background(), operator, CreateRequest{
		AssetName:   "Filling Machine B",
		Description: "Nozzle bocor",
		Components:  []string{"Nozzle", ""},
		Type:        models.WOTypePreventive,
		Priority:    models.PriorityHigh,
		Photos:      []string{"abc_nozzle.jpg"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Nozzle"}, wo.Components)
	assert.Equal(t, []string{"abc_nozzle.jpg"}, wo.CompletionPhotos)
}

func TestCreate_ConcurrentBreakdownCount(t *testing.T) {
	svc, gdb, _ := newTestService(t)
	const n = 20

	var wg sync.WaitGroup
	ids := make(chan string, n)
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			wo, err := svc.Create(context.Background(), operator, CreateRequest{
				AssetName:   "Mixing Tank A",
				Description: fmt.Sprintf("laporan %d", i),
			})
			if err != nil {
				errs <- err
				return
			}
			ids <- wo.ID
		}(i)
	}
	wg.Wait()
	close(ids)
	close(errs)

	for err := range errs {
		t.Errorf("Create: %v", err)
	}
	seen := map[string]bool{}
	for id := range ids {
		seen[id] = true
	}
	assert.Len(t, seen, n)
	assert.Equal(t, n, loadAsset(t, gdb, "Mixing Tank A").BreakdownCount)
}

func TestRoundTrip(t *testing.T) {
	svc, gdb, _ := newTestService(t)
	ctx := context.Background()
	wo := createWO(t, svc)

	assigned, err := svc.Assign(ctx, supervisor, wo.ID, techBudi.Username)
	require.NoError(t, err)
	assert.Equal(t, models.WOStatusAssigned, assigned.Status)
	assert.Equal(t, "Budi Santoso", assigned.Technician)
	assert.Equal(t, techBudi.Username, assigned.AssignedTo)

	started, err := svc.Start(ctx, techBudi, wo.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WOStatusInProgress, started.Status)

	done, err := svc.Complete(ctx, techBudi, wo.ID, CompleteRequest{
		Notes:     "Ganti bearing",
		RootCause: "Bearing aus",
		PartsUsed: []models.Part{{Part: "Bearing 6205", Quantity: 2}},
		Photos:    []string{"f1_after.png"},
	})
	require.NoError(t, err)
	assert.Equal(t, models.WOStatusCompleted, done.Status)
	assert.Equal(t, "Bearing aus", done.RootCause)
	assert.Equal(t, DefaultFieldValue, done.ComponentFailed)
	assert.Equal(t, []models.Part{{Part: "Bearing 6205", Quantity: 2}}, done.PartsUsed)
	assert.Equal(t, []string{"f1_after.png"}, done.CompletionPhotos)

	closed, err := svc.Verify(ctx, supervisor, wo.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WOStatusClosed, closed.Status)
	assert.Equal(t, supervisor.Username, closed.VerifiedBy)
	assert.Equal(t, "Adi Wijaya", closed.Supervisor)

	stamps := []*int64{closed.TimestampCreated, closed.TimestampStarted, closed.TimestampCompleted, closed.TimestampVerified}
	for i, ts := range stamps {
		require.NotNil(t, ts, "timestamp %d", i)
		if i > 0 {
			assert.GreaterOrEqual(t, *ts, *stamps[i-1])
		}
	}

	a := loadAsset(t, gdb, "Mixing Tank A")
	require.NotNil(t, a.LastMaintenance)
	assert.Equal(t, *closed.TimestampVerified, *a.LastMaintenance)

	events, err := svc.Events(ctx, wo.ID)
	require.NoError(t, err)
	var actions []string
	for _, e := range events {
		actions = append(actions, e.Action)
	}
	assert.Equal(t, []string{ActionCreate, ActionAssign, ActionStart, ActionComplete, ActionVerify}, actions)
	assert.Equal(t, models.WOStatusCompleted, events[4].FromStatus)
}

func TestAssign_KeepsFirstStartTimestamp(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	wo := createWO(t, svc)

	first, err := svc.Assign(ctx, supervisor, wo.ID, techBudi.Username)
	require.NoError(t, err)
	second, err := svc.Assign(ctx, supervisor, wo.ID, techSari.Username)
	require.NoError(t, err)

	assert.Equal(t, techSari.Username, second.AssignedTo)
	assert.Equal(t, techSari.Username, second.Technician, "falls back to username without a name")
	assert.Equal(t, *first.TimestampStarted, *second.TimestampStarted)
}

func TestAssign_Rejects(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	wo := createWO(t, svc)

	_, err := svc.Assign(ctx, supervisor, wo.ID, "")
	assert.True(t, apperr.Is(err, apperr.Validation))

	_, err = svc.Assign(ctx, supervisor, wo.ID, operator.Username)
	assert.True(t, apperr.Is(err, apperr.Validation), "operators cannot be assigned")

	_, err = svc.Assign(ctx, supervisor, "wo-00000000", techBudi.Username)
	assert.True(t, apperr.Is(err, apperr.NotFound))

	_, err = svc.Assign(ctx, techBudi, wo.ID, techBudi.Username)
	assert.True(t, apperr.Is(err, apperr.Forbidden))

	_, err = svc.Assign(ctx, supervisor, wo.ID, techBudi.Username)
	require.NoError(t, err)
	_, err = svc.Start(ctx, techBudi, wo.ID)
	require.NoError(t, err)

	_, err = svc.Assign(ctx, supervisor, wo.ID, techSari.Username)
	assert.True(t, apperr.Is(err, apperr.Conflict), "err = %v", err)
}

func TestOtherTechnicianCannotStartOrComplete(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	wo := createWO(t, svc)
	_, err := svc.Assign(ctx, supervisor, wo.ID, techBudi.Username)
	require.NoError(t, err)

	_, err = svc.Start(ctx, techSari, wo.ID)
	assert.True(t, apperr.Is(err, apperr.Forbidden), "err = %v", err)
	_, err = svc.Complete(ctx, techSari, wo.ID, CompleteRequest{Notes: "bukan punya saya"})
	assert.True(t, apperr.Is(err, apperr.Forbidden), "err = %v", err)

	got, err := svc.Get(ctx, wo.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WOStatusAssigned, got.Status)
	assert.Nil(t, got.TimestampCompleted)
	assert.Empty(t, got.CompletionNotes)

	events, err := svc.Events(ctx, wo.ID)
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestStart_WrongStatus(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	wo := createWO(t, svc)
	_, err := svc.Assign(ctx, supervisor, wo.ID, techBudi.Username)
	require.NoError(t, err)
	_, err = svc.Complete(ctx, techBudi, wo.ID, CompleteRequest{})
	require.NoError(t, err)

	_, err = svc.Start(ctx, techBudi, wo.ID)
	assert.True(t, apperr.Is(err, apperr.Conflict), "err = %v", err)

	_, err = svc.Start(ctx, techBudi, "wo-ffffffff")
	assert.True(t, apperr.Is(err, apperr.NotFound))
}

func TestComplete_FromAssignedSkipsStart(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	wo := createWO(t, svc)
	_, err := svc.Assign(ctx, supervisor, wo.ID, techBudi.Username)
	require.NoError(t, err)

	done, err := svc.Complete(ctx, techBudi, wo.ID, CompleteRequest{})
	require.NoError(t, err)
	assert.Equal(t, models.WOStatusCompleted, done.Status)
	assert.Equal(t, DefaultFieldValue, done.RootCause)
	assert.Equal(t, []models.Part{}, done.PartsUsed)

	_, err = svc.Complete(ctx, techBudi, wo.ID, CompleteRequest{Notes: "lagi"})
	assert.True(t, apperr.Is(err, apperr.Conflict))
}

func TestVerify_Idempotent(t *testing.T) {
	svc, gdb, _ := newTestService(t)
	ctx := context.Background()
	wo := createWO(t, svc)
	_, err := svc.Assign(ctx, supervisor, wo.ID, techBudi.Username)
	require.NoError(t, err)
	_, err = svc.Complete(ctx, techBudi, wo.ID, CompleteRequest{})
	require.NoError(t, err)

	first, err := svc.Verify(ctx, supervisor, wo.ID)
	require.NoError(t, err)
	touched := *loadAsset(t, gdb, "Mixing Tank A").LastMaintenance

	second, err := svc.Verify(ctx, supervisor, wo.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WOStatusClosed, second.Status)
	assert.Equal(t, *first.TimestampVerified, *second.TimestampVerified)
	assert.Equal(t, touched, *loadAsset(t, gdb, "Mixing Tank A").LastMaintenance)

	events, err := svc.Events(ctx, wo.ID)
	require.NoError(t, err)
	assert.Len(t, events, 4)
}

func TestVerify_BeforeCompletion(t *testing.T) {
	svc, gdb, _ := newTestService(t)
	ctx := context.Background()
	wo := createWO(t, svc)

	_, err := svc.Verify(ctx, supervisor, wo.ID)
	assert.True(t, apperr.Is(err, apperr.Conflict), "err = %v", err)
	assert.Nil(t, loadAsset(t, gdb, "Mixing Tank A").LastMaintenance)

	_, err = svc.Verify(ctx, supervisor, "wo-12345678")
	assert.True(t, apperr.Is(err, apperr.NotFound))
}

func TestAttachPhotos(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	wo, err := svc.Create(ctx, operator, CreateRequest{
		AssetName:   "Mixing Tank A",
		Description: "Bocor",
		Photos:      []string{"a_before.jpg"},
	})
	require.NoError(t, err)

	got, err := svc.AttachPhotos(ctx, operator, wo.ID, []string{"b_leak.png", "c_leak.gif"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a_before.jpg", "b_leak.png", "c_leak.gif"}, got.CompletionPhotos)
	assert.Equal(t, models.WOStatusNew, got.Status)

	_, err = svc.AttachPhotos(ctx, operator, wo.ID, nil)
	assert.True(t, apperr.Is(err, apperr.Validation))

	_, err = svc.AttachPhotos(ctx, techBudi, "wo-00000000", []string{"x.png"})
	assert.True(t, apperr.Is(err, apperr.NotFound))

	_, err = svc.AttachPhotos(ctx, supervisor, wo.ID, []string{"x.png"})
	assert.True(t, apperr.Is(err, apperr.Forbidden))
}

func TestList_RoleScoped(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	mine := createWO(t, svc)
	other, err := svc.Create(ctx, operator2, CreateRequest{AssetName: "Filling Machine B", Description: "Macet"})
	require.NoError(t, err)
	_, err = svc.Assign(ctx, supervisor, other.ID, techSari.Username)
	require.NoError(t, err)

	ids := func(wos []models.WorkOrder) []string {
		var out []string
		for _, wo := range wos {
			out = append(out, wo.ID)
		}
		return out
	}

	got, err := svc.List(ctx, operator, "")
	require.NoError(t, err)
	assert.Equal(t, []string{mine.ID}, ids(got))

	got, err = svc.List(ctx, techSari, "")
	require.NoError(t, err)
	assert.Equal(t, []string{other.ID}, ids(got))

	got, err = svc.List(ctx, manager, "")
	require.NoError(t, err)
	assert.Equal(t, []string{other.ID, mine.ID}, ids(got), "newest first")

	got, err = svc.List(ctx, supervisor, models.WOStatusNew)
	require.NoError(t, err)
	assert.Equal(t, []string{mine.ID}, ids(got))

	got, err = svc.New(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{mine.ID}, ids(got))

	got, err = svc.Assigned(ctx, techSari.Username)
	require.NoError(t, err)
	assert.Equal(t, []string{other.ID}, ids(got))

	got, err = svc.AwaitingVerification(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestHistory(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	open := createWO(t, svc)
	done := createWO(t, svc)
	_, err := svc.Assign(ctx, supervisor, done.ID, techBudi.Username)
	require.NoError(t, err)
	_, err = svc.Complete(ctx, techBudi, done.ID, CompleteRequest{RootCause: "Seal aus"})
	require.NoError(t, err)

	rows, err := svc.History(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	byID := map[string]HistoryRow{}
	for _, r := range rows {
		byID[r.ID] = r
	}
	o := byID[open.ID]
	assert.Equal(t, "N/A", o.Technician)
	assert.Equal(t, "N/A", o.Supervisor)
	assert.Equal(t, "N/A", o.Duration)
	assert.Equal(t, "N/A", o.CompletedAt)
	assert.NotEqual(t, "N/A", o.RequestedAt)

	d := byID[done.ID]
	assert.Equal(t, "Budi Santoso", d.Technician)
	assert.Equal(t, "Seal aus", d.RootCause)
	// Created, assign and complete each advance the test clock one minute.
	assert.Equal(t, "0j 2m", d.Duration)
}

func TestStats(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	a := createWO(t, svc)
	b := createWO(t, svc)
	createWO(t, svc)

	_, err := svc.Assign(ctx, supervisor, a.ID, techBudi.Username)
	require.NoError(t, err)
	_, err = svc.Assign(ctx, supervisor, b.ID, techBudi.Username)
	require.NoError(t, err)
	_, err = svc.Complete(ctx, techBudi, b.ID, CompleteRequest{})
	require.NoError(t, err)
	_, err = svc.Verify(ctx, supervisor, b.ID)
	require.NoError(t, err)

	op, err := svc.OperatorStats(ctx, operator)
	require.NoError(t, err)
	assert.Equal(t, OperatorStats{TotalRequests: 3, PendingRequests: 1, CompletedRequests: 1, CompletionRate: 33.3}, *op)

	tech, err := svc.TechnicianStats(ctx, techBudi)
	require.NoError(t, err)
	assert.Equal(t, TechnicianStats{AssignedWorkOrders: 2, CompletedWorkOrders: 1, InProgressWorkOrders: 1, CompletionRate: 50}, *tech)

	sup, err := svc.SupervisorStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), sup.NewWorkOrders)
	assert.Equal(t, int64(1), sup.AssignedWorkOrders)
	assert.Zero(t, sup.VerificationPending)
}
