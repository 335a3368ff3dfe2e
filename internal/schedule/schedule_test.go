package schedule

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/primefragrance/cmms/internal/apperr"
	"github.com/primefragrance/cmms/internal/db"
	"github.com/primefragrance/cmms/internal/identity"
	"github.com/primefragrance/cmms/internal/models"
	"github.com/primefragrance/cmms/internal/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	supervisor = identity.Principal{Username: "sup_adi", Role: identity.RoleSupervisor, Name: "Adi"}
	techBudi   = identity.Principal{Username: "tech_budi", Role: identity.RoleTechnician}
	techSari   = identity.Principal{Username: "tech_sari", Role: identity.RoleTechnician}
	operator   = identity.Principal{Username: "op_lina", Role: identity.RoleOperator}
)

var now = time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

type recorder struct{ msgs []notify.Message }

func (r *recorder) Notify(_ context.Context, msg notify.Message) error {
	r.msgs = append(r.msgs, msg)
	return nil
}

func newTestService(t *testing.T) (*Service, *recorder) {
	t.Helper()
	gdb, err := db.OpenSQLite(filepath.Join(t.TempDir(), "schedule.db"))
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(gdb))
	rec := &recorder{}
	svc := NewService(gdb, Options{
		Notifier: rec,
		Now:      func() time.Time { return now },
		Location: time.UTC,
	})
	return svc, rec
}

func plan(t *testing.T, svc *Service, opts CreateOpts) *models.MaintenanceSchedule {
	t.Helper()
	if opts.Type == "" {
		opts.Type = models.WOTypePreventive
	}
	if opts.Description == "" {
		opts.Description = "Pelumasan rutin"
	}
	sch, err := svc.Create(context.Background(), supervisor, opts)
	require.NoError(t, err)
	return sch
}

func id(sch *models.MaintenanceSchedule) string { return fmt.Sprint(sch.ID) }

func names(views []View) []string {
	var out []string
	for _, v := range views {
		out = append(out, v.AssetName)
	}
	return out
}

func TestCreate_Defaults(t *testing.T) {
	svc, _ := newTestService(t)
	sch := plan(t, svc, CreateOpts{AssetName: "Mixing Tank A", ScheduledDate: now.Add(48 * time.Hour).Unix()})

	assert.Equal(t, models.ScheduleStatusPlanned, sch.Status)
	assert.Equal(t, DefaultDuration, sch.Duration)
	assert.Equal(t, models.PriorityMedium, sch.Priority)
	assert.Equal(t, supervisor.Username, sch.CreatedBy)
	assert.Equal(t, now.Unix(), sch.CreatedAt)
}

func TestCreate_Rejects(t *testing.T) {
	svc, _ := newTestService(t)
	valid := CreateOpts{AssetName: "A", Type: "Preventif", Description: "d", ScheduledDate: 1}
	tests := []struct {
		name   string
		mutate func(*CreateOpts)
		want   string
	}{
		{"asset", func(o *CreateOpts) { o.AssetName = "" }, "Field asset_name harus diisi"},
		{"type", func(o *CreateOpts) { o.Type = "" }, "Field type harus diisi"},
		{"description", func(o *CreateOpts) { o.Description = "" }, "Field description harus diisi"},
		{"date", func(o *CreateOpts) { o.ScheduledDate = 0 }, "Field scheduled_date harus diisi"},
		{"priority", func(o *CreateOpts) { o.Priority = "Darurat" }, "Prioritas tidak valid: Darurat"},
		{"recurrence", func(o *CreateOpts) { o.Recurrence = "every day" }, "Format recurrence tidak valid: every day"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := valid
			tt.mutate(&opts)
			_, err := svc.Create(context.Background(), supervisor, opts)
			require.Error(t, err)
			assert.True(t, apperr.Is(err, apperr.Validation))
			assert.Equal(t, tt.want, apperr.Message(err, ""))
		})
	}
}

func TestUpdate_ForwardOnlyAndCompletion(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	sch := plan(t, svc, CreateOpts{AssetName: "Mixing Tank A", ScheduledDate: now.Unix(), AssignedTo: techBudi.Username})

	inProgress := models.ScheduleStatusInProgress
	got, err := svc.Update(ctx, techBudi, id(sch), UpdateOpts{Status: &inProgress})
	require.NoError(t, err)
	assert.Equal(t, inProgress, got.Status)
	assert.Nil(t, got.CompletedAt)

	done := models.ScheduleStatusDone
	notes := "Oli diganti"
	got, err = svc.Update(ctx, techBudi, id(sch), UpdateOpts{Status: &done, Notes: &notes})
	require.NoError(t, err)
	require.NotNil(t, got.CompletedAt)
	assert.Equal(t, now.Unix(), *got.CompletedAt)
	assert.Equal(t, techBudi.Username, got.CompletedBy)
	assert.Equal(t, notes, got.Notes)

	planned := models.ScheduleStatusPlanned
	_, err = svc.Update(ctx, supervisor, id(sch), UpdateOpts{Status: &planned})
	assert.True(t, apperr.Is(err, apperr.Conflict), "err = %v", err)

	reloaded, err := svc.Get(ctx, id(sch))
	require.NoError(t, err)
	assert.Equal(t, done, reloaded.Status)
}

func TestUpdate_Rejects(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	sch := plan(t, svc, CreateOpts{AssetName: "Mixing Tank A", ScheduledDate: now.Unix(), AssignedTo: techBudi.Username})
	bogus := "Batal"
	done := models.ScheduleStatusDone

	_, err := svc.Update(ctx, supervisor, id(sch), UpdateOpts{})
	assert.True(t, apperr.Is(err, apperr.Validation))
	_, err = svc.Update(ctx, supervisor, id(sch), UpdateOpts{Status: &bogus})
	assert.True(t, apperr.Is(err, apperr.Validation))
	_, err = svc.Update(ctx, supervisor, "404", UpdateOpts{Status: &done})
	assert.True(t, apperr.Is(err, apperr.NotFound))
	_, err = svc.Update(ctx, techSari, id(sch), UpdateOpts{Status: &done})
	assert.True(t, apperr.Is(err, apperr.Forbidden))
}

func TestUpdate_RecurringPlansNext(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	sch := plan(t, svc, CreateOpts{
		AssetName:     "Conveyor Line A",
		ScheduledDate: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC).Unix(),
		Recurrence:    "0 8 1 * *",
	})

	done := models.ScheduleStatusDone
	_, err := svc.Update(ctx, supervisor, id(sch), UpdateOpts{Status: &done})
	require.NoError(t, err)

	all, err := svc.List(ctx, supervisor)
	require.NoError(t, err)
	require.Len(t, all, 2)
	next := all[1]
	assert.Equal(t, models.ScheduleStatusPlanned, next.Status)
	assert.Equal(t, time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC).Unix(), next.ScheduledDate)
	assert.Equal(t, "0 8 1 * *", next.Recurrence)
}

func TestNextOccurrence(t *testing.T) {
	prev := time.Date(2026, 3, 2, 7, 0, 0, 0, time.UTC)
	got, err := NextOccurrence("@weekly", prev, prev.Add(-time.Hour), time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC), got)

	// Late completion skips to the first slot after now.
	got, err = NextOccurrence("0 6 * * *", prev, prev.Add(72*time.Hour), time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 6, 6, 0, 0, 0, time.UTC), got)

	_, err = NextOccurrence("bad", prev, prev, time.UTC)
	assert.Error(t, err)
	assert.NoError(t, ValidateRecurrence(""))
}

func TestViews(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	hours := func(h int) int64 { return now.Add(time.Duration(h) * time.Hour).Unix() }

	plan(t, svc, CreateOpts{AssetName: "mine-soon", ScheduledDate: hours(30), AssignedTo: techBudi.Username})
	plan(t, svc, CreateOpts{AssetName: "open-soon", ScheduledDate: hours(50)})
	plan(t, svc, CreateOpts{AssetName: "sari-soon", ScheduledDate: hours(10), AssignedTo: techSari.Username})
	plan(t, svc, CreateOpts{AssetName: "open-later", ScheduledDate: hours(20 * 24)})
	plan(t, svc, CreateOpts{AssetName: "far", ScheduledDate: hours(40 * 24)})
	overdue := plan(t, svc, CreateOpts{AssetName: "overdue", ScheduledDate: hours(-24)})
	inProgress := models.ScheduleStatusInProgress
	_, err := svc.Update(ctx, supervisor, id(overdue), UpdateOpts{Status: &inProgress})
	require.NoError(t, err)

	all, err := svc.List(ctx, supervisor)
	require.NoError(t, err)
	assert.Equal(t, []string{"overdue", "sari-soon", "mine-soon", "open-soon", "open-later", "far"}, names(all))
	assert.Equal(t, "11 Mar 2026 14:00", all[2].ScheduledDateFormatted)
	assert.Nil(t, all[2].DaysUntil)

	budi, err := svc.List(ctx, techBudi)
	require.NoError(t, err)
	assert.Equal(t, []string{"overdue", "mine-soon", "open-soon", "open-later", "far"}, names(budi))

	up, err := svc.Upcoming(ctx, techBudi)
	require.NoError(t, err)
	assert.Equal(t, []string{"mine-soon", "open-soon"}, names(up))
	require.NotNil(t, up[0].DaysUntil)
	assert.Equal(t, 2, *up[0].DaysUntil)
	assert.Equal(t, 3, *up[1].DaysUntil)

	tech, err := svc.ForTechnician(ctx, techBudi)
	require.NoError(t, err)
	assert.Equal(t, []string{"overdue", "mine-soon", "open-soon", "open-later", "far"}, names(tech))
	assert.Equal(t, -1, *tech[0].DaysUntil)

	op, err := svc.ForOperator(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"overdue", "sari-soon", "mine-soon", "open-soon", "open-later"}, names(op))

	opUp, err := svc.OperatorUpcoming(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"sari-soon", "mine-soon", "open-soon"}, names(opUp))
}

func TestNotifyOperators(t *testing.T) {
	svc, rec := newTestService(t)
	ctx := context.Background()
	sch := plan(t, svc, CreateOpts{AssetName: "Mixing Tank A", ScheduledDate: now.Add(24 * time.Hour).Unix()})

	n, err := svc.NotifyOperators(ctx, supervisor, id(sch), "")
	require.NoError(t, err)
	assert.Equal(t, Notice{Schedule: "Mixing Tank A", ScheduledDate: "11 Mar 2026 08:00"}, *n)
	require.Len(t, rec.msgs, 1)
	assert.Equal(t, DefaultNotice, rec.msgs[0].Body)

	_, err = svc.NotifyOperators(ctx, operator, "999", "x")
	assert.True(t, apperr.Is(err, apperr.NotFound))
}
