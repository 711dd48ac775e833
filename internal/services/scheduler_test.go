package services

import (
	"context"
	"testing"
	"time"

	"github.com/Cyvadra/stockwatch/internal/logger"
	"github.com/Cyvadra/stockwatch/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chanRunner struct {
	fired chan models.Schedule
}

func (r *chanRunner) RunSchedule(ctx context.Context, schedule models.Schedule) error {
	select {
	case r.fired <- schedule:
	default:
	}
	return nil
}

func newTestScheduler(t *testing.T) (*Scheduler, *chanRunner) {
	t.Helper()
	runner := &chanRunner{fired: make(chan models.Schedule, 8)}
	s := NewScheduler(newTestDB(t), runner, time.UTC, logger.Discard())
	t.Cleanup(s.Stop)
	return s, runner
}

func TestValidateCron(t *testing.T) {
	valid := []string{"0 2 * * *", "*/5 * * * *", "@daily", "@every 1h"}
	for _, expr := range valid {
		assert.NoError(t, ValidateCron(expr), expr)
	}

	invalid := []string{"", "bogus", "61 * * * *", "* * * *"}
	for _, expr := range invalid {
		assert.ErrorIs(t, ValidateCron(expr), ErrInvalidCron, expr)
	}
}

func TestEnsureBuiltins(t *testing.T) {
	s, _ := newTestScheduler(t)
	ctx := context.Background()

	require.NoError(t, s.EnsureBuiltins(ctx, "0 2 * * *", "30 2 * * *"))
	require.NoError(t, s.EnsureBuiltins(ctx, "0 3 * * *", "30 3 * * *"))

	schedules, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, schedules, 2)

	fetch, err := s.GetByName(ctx, models.ScheduleNameInventoryFetch)
	require.NoError(t, err)
	assert.Equal(t, "0 2 * * *", fetch.Cron)
	assert.True(t, fetch.IsActive)

	assert.ErrorIs(t, s.EnsureBuiltins(ctx, "nope", "30 2 * * *"), ErrInvalidCron)
}

func TestCreateRejectsInvalidSchedules(t *testing.T) {
	s, _ := newTestScheduler(t)
	ctx := context.Background()

	err := s.Create(ctx, &models.Schedule{Name: "bad", Kind: models.ScheduleKindInventoryFetch, Cron: "every day"})
	assert.ErrorIs(t, err, ErrInvalidCron)

	err = s.Create(ctx, &models.Schedule{Name: "odd", Kind: "reboot", Cron: "@daily"})
	assert.ErrorIs(t, err, ErrValidation)

	err = s.Create(ctx, &models.Schedule{Name: "probe", Kind: models.ScheduleKindSkuSearch, Cron: "@daily"})
	assert.ErrorIs(t, err, ErrValidation)

	missing := uint(99)
	err = s.Create(ctx, &models.Schedule{Name: "probe", Kind: models.ScheduleKindSkuSearch, Cron: "@daily", ConfigID: &missing})
	assert.ErrorIs(t, err, ErrConfigNotFound)

	schedules, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, schedules)
	assert.Empty(t, s.ActiveScheduleIDs())
}

func TestUpdateReplacesTimer(t *testing.T) {
	s, _ := newTestScheduler(t)
	ctx := context.Background()
	require.NoError(t, s.EnsureBuiltins(ctx, "0 2 * * *", "30 2 * * *"))
	require.NoError(t, s.Start(ctx))
	assert.Len(t, s.ActiveScheduleIDs(), 2)

	fetch, err := s.GetByName(ctx, models.ScheduleNameInventoryFetch)
	require.NoError(t, err)
	before, ok := s.NextRun(fetch.ID)
	require.True(t, ok)

	updated, err := s.SetCron(ctx, models.ScheduleNameInventoryFetch, "0 0 1 1 *")
	require.NoError(t, err)
	assert.Equal(t, "0 0 1 1 *", updated.Cron)
	assert.Len(t, s.ActiveScheduleIDs(), 2)

	after, ok := s.NextRun(fetch.ID)
	require.True(t, ok)
	assert.NotEqual(t, before, after)

	_, err = s.SetCron(ctx, models.ScheduleNameInventoryFetch, "not cron")
	assert.ErrorIs(t, err, ErrInvalidCron)
	stored, err := s.Get(ctx, fetch.ID)
	require.NoError(t, err)
	assert.Equal(t, "0 0 1 1 *", stored.Cron)

	_, err = s.SetCron(ctx, "no-such-schedule", "@daily")
	assert.ErrorIs(t, err, ErrScheduleNotFound)
}

func TestToggleAndDelete(t *testing.T) {
	s, _ := newTestScheduler(t)
	ctx := context.Background()
	require.NoError(t, s.EnsureBuiltins(ctx, "0 2 * * *", "30 2 * * *"))
	require.NoError(t, s.Start(ctx))

	analysis, err := s.GetByName(ctx, models.ScheduleNameInventoryAnalysis)
	require.NoError(t, err)

	_, err = s.Toggle(ctx, analysis.ID, false)
	require.NoError(t, err)
	assert.Len(t, s.ActiveScheduleIDs(), 1)
	_, armed := s.NextRun(analysis.ID)
	assert.False(t, armed)

	_, err = s.Toggle(ctx, analysis.ID, true)
	require.NoError(t, err)
	assert.Len(t, s.ActiveScheduleIDs(), 2)

	assert.ErrorIs(t, s.Delete(ctx, analysis.ID), ErrBuiltinSchedule)

	custom := &models.Schedule{Name: "midday", Kind: models.ScheduleKindInventoryFetch, Cron: "0 12 * * *", IsActive: true}
	require.NoError(t, s.Create(ctx, custom))
	assert.Len(t, s.ActiveScheduleIDs(), 3)
	assert.ErrorIs(t, s.Create(ctx, &models.Schedule{Name: "midday", Kind: models.ScheduleKindInventoryFetch, Cron: "@daily"}), ErrScheduleExists)

	require.NoError(t, s.Delete(ctx, custom.ID))
	assert.Len(t, s.ActiveScheduleIDs(), 2)
	assert.ErrorIs(t, s.Delete(ctx, custom.ID), ErrScheduleNotFound)
}

func TestScheduleFires(t *testing.T) {
	s, runner := newTestScheduler(t)
	ctx := context.Background()

	sched := &models.Schedule{Name: "tick", Kind: models.ScheduleKindInventoryAnalysis, Cron: "@every 1s", IsActive: true}
	require.NoError(t, s.Create(ctx, sched))
	require.NoError(t, s.Start(ctx))

	select {
	case fired := <-runner.fired:
		assert.Equal(t, "tick", fired.Name)
		assert.Equal(t, models.ScheduleKindInventoryAnalysis, fired.Kind)
	case <-time.After(3 * time.Second):
		t.Fatal("schedule did not fire")
	}
}
