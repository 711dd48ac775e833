package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Cyvadra/stockwatch/internal/logger"
	"github.com/Cyvadra/stockwatch/internal/models"
	"github.com/google/uuid"
)

// TriggerKind says who started a run
type TriggerKind string

const (
	TriggerScheduled TriggerKind = "scheduled"
	TriggerManual    TriggerKind = "manual"
)

// Runner identifies the holder of the run lock
type Runner struct {
	ID         string         `json:"id"`
	Task       models.RunKind `json:"task"`
	Trigger    TriggerKind    `json:"trigger"`
	By         string         `json:"by"`
	ScheduleID *uint          `json:"schedule_id,omitempty"`
	StartedAt  time.Time      `json:"started_at"`
}

// Describe renders who holds the lock for operators
func (r Runner) Describe() string {
	if r.Trigger == TriggerScheduled {
		if r.By != "" {
			return "schedule " + r.By
		}
		return "scheduler"
	}
	if r.By == "" {
		return "anonymous"
	}
	return r.By
}

// Coordinator is the process-wide single-flight run lock. At most one
// fetch, analysis or registration runs at a time; others are rejected, not
// queued.
type Coordinator struct {
	mu      sync.Mutex
	running bool
	current Runner
	now     func() time.Time
	logger  *slog.Logger
}

// NewCoordinator creates a new run coordinator
func NewCoordinator(log *slog.Logger) *Coordinator {
	return &Coordinator{now: time.Now, logger: logger.OrDefault(log)}
}

// TryAcquire takes the lock without blocking. The returned release func is
// idempotent.
func (c *Coordinator) TryAcquire(r Runner) (Runner, func(), error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		runsRejectedTotal.Inc()
		return Runner{}, nil, &BusyError{Current: c.current}
	}

	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.StartedAt.IsZero() {
		r.StartedAt = c.now()
	}
	c.running = true
	c.current = r

	var once sync.Once
	release := func() {
		once.Do(func() {
			c.mu.Lock()
			c.running = false
			c.current = Runner{}
			c.mu.Unlock()
		})
	}
	return r, release, nil
}

// Run executes fn while holding the lock. The lock is released when fn
// returns, fails or panics; a panic is converted into an error.
func (c *Coordinator) Run(ctx context.Context, r Runner, fn func(ctx context.Context, r Runner) error) (err error) {
	runner, release, err := c.TryAcquire(r)
	if err != nil {
		c.logger.Info("run rejected", "task", r.Task, "requested_by", r.By, "error", err)
		return err
	}
	defer release()
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("run %s (%s) panicked: %v", runner.ID, runner.Task, p)
			c.logger.Error("run panicked", "run_id", runner.ID, "task", runner.Task, "panic", p)
		}
	}()

	c.logger.Info("run started", "run_id", runner.ID, "task", runner.Task, "trigger", runner.Trigger, "by", runner.By)
	return fn(ctx, runner)
}

// Status reports whether a run is active and who holds the lock
func (c *Coordinator) Status() (bool, *Runner) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return false, nil
	}
	current := c.current
	return true, &current
}
