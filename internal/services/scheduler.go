package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Cyvadra/stockwatch/internal/logger"
	"github.com/Cyvadra/stockwatch/internal/models"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// ScheduleRunner executes a fired schedule
type ScheduleRunner interface {
	RunSchedule(ctx context.Context, schedule models.Schedule) error
}

// ScheduleUpdate carries the fields to change on a schedule. Nil fields are
// left alone.
type ScheduleUpdate struct {
	Name     *string `json:"name"`
	Cron     *string `json:"cron"`
	ConfigID *uint   `json:"config_id"`
	IsActive *bool   `json:"is_active"`
}

// ValidateCron checks a five-field cron expression or descriptor
func ValidateCron(expr string) error {
	if strings.TrimSpace(expr) == "" {
		return fmt.Errorf("%w: empty expression", ErrInvalidCron)
	}
	if _, err := cron.ParseStandard(expr); err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidCron, expr, err)
	}
	return nil
}

// Scheduler keeps one cron timer per active schedule. Changing a schedule
// replaces its timer; deactivating removes it.
type Scheduler struct {
	db     *gorm.DB
	cron   *cron.Cron
	runner ScheduleRunner
	logger *slog.Logger

	mu      sync.Mutex
	entries map[uint]cron.EntryID
	ctx     context.Context
}

// NewScheduler creates a new scheduler evaluating cron expressions in loc
func NewScheduler(db *gorm.DB, runner ScheduleRunner, loc *time.Location, log *slog.Logger) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	log = logger.OrDefault(log)
	return &Scheduler{
		db: db,
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithChain(cron.Recover(cronLogger{log})),
		),
		runner:  runner,
		logger:  log,
		entries: make(map[uint]cron.EntryID),
		ctx:     context.Background(),
	}
}

// EnsureBuiltins creates the built-in fetch and analysis schedules when they
// do not exist yet. Existing rows keep their stored cron.
func (s *Scheduler) EnsureBuiltins(ctx context.Context, fetchCron, analysisCron string) error {
	builtins := []models.Schedule{
		{Name: models.ScheduleNameInventoryFetch, Kind: models.ScheduleKindInventoryFetch, Cron: fetchCron, IsActive: true},
		{Name: models.ScheduleNameInventoryAnalysis, Kind: models.ScheduleKindInventoryAnalysis, Cron: analysisCron, IsActive: true},
	}
	for _, b := range builtins {
		if err := ValidateCron(b.Cron); err != nil {
			return fmt.Errorf("built-in schedule %s: %w", b.Name, err)
		}
		var count int64
		if err := s.db.WithContext(ctx).Model(&models.Schedule{}).Where("name = ?", b.Name).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}
		sched := b
		if err := s.db.WithContext(ctx).Create(&sched).Error; err != nil {
			return fmt.Errorf("failed to seed schedule %s: %w", b.Name, err)
		}
		s.logger.Info("seeded built-in schedule", "name", sched.Name, "cron", sched.Cron)
	}
	return nil
}

// Start registers every active schedule and starts the cron loop. Fired
// jobs run with ctx.
func (s *Scheduler) Start(ctx context.Context) error {
	schedules, err := s.List(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	for _, sched := range schedules {
		if !sched.IsActive {
			continue
		}
		if err := s.register(sched); err != nil {
			s.logger.Error("skipping schedule with invalid cron", "name", sched.Name, "cron", sched.Cron, "error", err)
		}
	}

	s.cron.Start()
	s.logger.Info("scheduler started", "active", len(s.ActiveScheduleIDs()))
	return nil
}

// Stop halts the cron loop and waits for running jobs
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

// List returns every schedule ordered by id
func (s *Scheduler) List(ctx context.Context) ([]models.Schedule, error) {
	var schedules []models.Schedule
	err := s.db.WithContext(ctx).Order("id ASC").Find(&schedules).Error
	return schedules, err
}

// Get retrieves a schedule by id
func (s *Scheduler) Get(ctx context.Context, id uint) (*models.Schedule, error) {
	var sched models.Schedule
	if err := s.db.WithContext(ctx).First(&sched, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: id %d", ErrScheduleNotFound, id)
		}
		return nil, err
	}
	return &sched, nil
}

// GetByName retrieves a schedule by name
func (s *Scheduler) GetByName(ctx context.Context, name string) (*models.Schedule, error) {
	var sched models.Schedule
	if err := s.db.WithContext(ctx).Where("name = ?", name).First(&sched).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrScheduleNotFound, name)
		}
		return nil, err
	}
	return &sched, nil
}

// Create validates and stores a schedule, arming it when active
func (s *Scheduler) Create(ctx context.Context, sched *models.Schedule) error {
	sched.Name = strings.TrimSpace(sched.Name)
	if err := s.validate(ctx, sched); err != nil {
		return err
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Schedule{}).Where("name = ?", sched.Name).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("%w: %s", ErrScheduleExists, sched.Name)
	}

	if err := s.db.WithContext(ctx).Create(sched).Error; err != nil {
		return err
	}
	return s.apply(*sched)
}

// Update changes a schedule and re-arms its timer
func (s *Scheduler) Update(ctx context.Context, id uint, update ScheduleUpdate) (*models.Schedule, error) {
	sched, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name != sched.Name && sched.IsBuiltin() {
			return nil, validationError("built-in schedules cannot be renamed")
		}
		sched.Name = name
	}
	if update.Cron != nil {
		sched.Cron = strings.TrimSpace(*update.Cron)
	}
	if update.ConfigID != nil {
		sched.ConfigID = update.ConfigID
	}
	if update.IsActive != nil {
		sched.IsActive = *update.IsActive
	}
	if err := s.validate(ctx, sched); err != nil {
		return nil, err
	}

	var clash int64
	if err := s.db.WithContext(ctx).Model(&models.Schedule{}).Where("name = ? AND id <> ?", sched.Name, sched.ID).Count(&clash).Error; err != nil {
		return nil, err
	}
	if clash > 0 {
		return nil, fmt.Errorf("%w: %s", ErrScheduleExists, sched.Name)
	}

	if err := s.db.WithContext(ctx).Save(sched).Error; err != nil {
		return nil, err
	}
	if err := s.apply(*sched); err != nil {
		return nil, err
	}
	return sched, nil
}

// SetCron changes the cron expression of a named schedule
func (s *Scheduler) SetCron(ctx context.Context, name, expr string) (*models.Schedule, error) {
	if err := ValidateCron(expr); err != nil {
		return nil, err
	}
	sched, err := s.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	return s.Update(ctx, sched.ID, ScheduleUpdate{Cron: &expr})
}

// Toggle activates or deactivates a schedule
func (s *Scheduler) Toggle(ctx context.Context, id uint, active bool) (*models.Schedule, error) {
	return s.Update(ctx, id, ScheduleUpdate{IsActive: &active})
}

// Delete removes a schedule and its timer. Built-ins can only be
// deactivated.
func (s *Scheduler) Delete(ctx context.Context, id uint) error {
	sched, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if sched.IsBuiltin() {
		return fmt.Errorf("%w: %s", ErrBuiltinSchedule, sched.Name)
	}
	if err := s.db.WithContext(ctx).Delete(&models.Schedule{}, id).Error; err != nil {
		return err
	}
	s.unregister(id)
	return nil
}

// ActiveScheduleIDs lists the schedules that currently have a timer
func (s *Scheduler) ActiveScheduleIDs() []uint {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]uint, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	return ids
}

// NextRun returns when an armed schedule fires next
func (s *Scheduler) NextRun(id uint) (time.Time, bool) {
	s.mu.Lock()
	entryID, ok := s.entries[id]
	s.mu.Unlock()
	if !ok {
		return time.Time{}, false
	}
	return s.cron.Entry(entryID).Next, true
}

func (s *Scheduler) validate(ctx context.Context, sched *models.Schedule) error {
	if sched.Name == "" {
		return validationError("name is required")
	}
	if !sched.Kind.Valid() {
		return validationError("unknown schedule kind %q", sched.Kind)
	}
	if err := ValidateCron(sched.Cron); err != nil {
		return err
	}
	if sched.Kind == models.ScheduleKindSkuSearch {
		if sched.ConfigID == nil {
			return validationError("sku_search schedules need a config_id")
		}
		var count int64
		if err := s.db.WithContext(ctx).Model(&models.SearchConfig{}).Where("id = ?", *sched.ConfigID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return fmt.Errorf("%w: id %d", ErrConfigNotFound, *sched.ConfigID)
		}
	}
	return nil
}

// apply arms or disarms the timer to match the stored schedule
func (s *Scheduler) apply(sched models.Schedule) error {
	if !sched.IsActive {
		s.unregister(sched.ID)
		return nil
	}
	return s.register(sched)
}

// register replaces any existing timer for the schedule atomically
func (s *Scheduler) register(sched models.Schedule) error {
	spec, err := cron.ParseStandard(sched.Cron)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidCron, sched.Cron, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.entries[sched.ID]; ok {
		s.cron.Remove(old)
	}
	s.entries[sched.ID] = s.cron.Schedule(spec, cron.FuncJob(func() { s.fire(sched) }))
	s.logger.Debug("schedule armed", "name", sched.Name, "cron", sched.Cron)
	return nil
}

func (s *Scheduler) unregister(id uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entryID, ok := s.entries[id]; ok {
		s.cron.Remove(entryID)
		delete(s.entries, id)
	}
}

func (s *Scheduler) fire(sched models.Schedule) {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()

	s.logger.Info("schedule fired", "name", sched.Name, "kind", sched.Kind)
	err := s.runner.RunSchedule(ctx, sched)
	switch {
	case err == nil:
	case errors.Is(err, ErrBusy):
		s.logger.Warn("schedule skipped, another run is active", "name", sched.Name, "error", err)
	default:
		s.logger.Error("scheduled run failed", "name", sched.Name, "error", err)
	}
}

// cronLogger adapts slog to cron.Logger
type cronLogger struct {
	l *slog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug("cron: "+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
