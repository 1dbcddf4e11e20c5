package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/relaycore/relaycore/pkg/models"
)

// TickInterval is how often the scheduler scans for due tasks.
const TickInterval = 5 * time.Second

// MessageOutboundTimeout and AgentOutboundTimeout bound a single task's
// delivery/execution round trip.
// Message tasks (a plain adapter POST) are expected to complete near the
// low end; agent tasks (a full loop re-entry) use the high end.
const (
	MessageOutboundTimeout = 10 * time.Second
	AgentOutboundTimeout   = 120 * time.Second
)

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Runner delivers one due task. A "message" task is a verbatim reminder
// sent through the chat adapter; an "agent" task re-enters the agent
// loop with Content as the turn's user message. Kept as an interface so
// this package never imports internal/agent or internal/tools directly.
type Runner interface {
	RunMessageTask(ctx context.Context, t models.Task) error
	RunAgentTask(ctx context.Context, t models.Task) error
}

// Scheduler fires due tasks on a fixed tick, concurrently, and
// reschedules recurring ones.
type Scheduler struct {
	store  *Store
	runner Runner
	logger *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler builds a Scheduler over store, delivering due tasks to
// runner.
func NewScheduler(store *Store, runner Runner, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{store: store, runner: runner, logger: logger.With("component", "scheduler")}
}

// Start launches the tick loop in the background. Cancel ctx or call Stop
// to shut it down.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(TickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.tick(ctx)
			}
		}
	}()
}

// Stop cancels the tick loop and waits for in-flight tasks to finish
// being dispatched (not for their outbound calls to return — each fires
// in its own goroutine bounded by its own deadline).
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

// RunNow fires one task immediately and synchronously, bypassing its
// schedule (the `POST /tasks/{id}/run` admin surface). It applies the same
// post-fire bookkeeping as a normal tick: a one-shot task is deleted; a
// recurring one gets last_run and run_count updated and is rescheduled
// (or disabled if its recurrence cannot be computed).
func (s *Scheduler) RunNow(ctx context.Context, id string) error {
	t, ok := s.store.Get(id)
	if !ok {
		return fmt.Errorf("task %s not found", id)
	}
	s.fire(ctx, t)
	return nil
}

// tick fires every due task concurrently, per the "due-set fired
// concurrently" design rather than serially draining the due set.
func (s *Scheduler) tick(ctx context.Context) {
	due := s.store.DueSet(time.Now())
	for _, t := range due {
		t := t
		go s.fire(ctx, t)
	}
}

func (s *Scheduler) fire(ctx context.Context, t models.Task) {
	timeout := MessageOutboundTimeout
	if t.TaskType == models.TaskAgent {
		timeout = AgentOutboundTimeout
	}
	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var err error
	switch t.TaskType {
	case models.TaskAgent:
		err = s.runner.RunAgentTask(execCtx, t)
	default:
		err = s.runner.RunMessageTask(execCtx, t)
	}
	if err != nil {
		s.logger.Error("task delivery failed", "task_id", t.ID, "error", err)
	}

	now := time.Now().Unix()
	t.LastRun = &now
	t.RunCount++

	if !t.Recurring {
		if uerr := s.store.Cancel(t.ID); uerr != nil {
			s.logger.Error("failed to delete completed one-shot task", "task_id", t.ID, "error", uerr)
		}
		return
	}

	next, nerr := nextRun(t, time.Now())
	if nerr != nil {
		s.logger.Error("invalid recurrence, disabling task", "task_id", t.ID, "error", nerr)
		t.Enabled = false
		s.store.Update(t)
		return
	}
	t.ExecuteAt = next.Unix()
	if err := s.store.Update(t); err != nil {
		s.logger.Error("failed to reschedule recurring task", "task_id", t.ID, "error", err)
	}
}

// nextRun computes a recurring task's next fire time: a cron expression
// takes precedence over a plain interval when both are set.
func nextRun(t models.Task, after time.Time) (time.Time, error) {
	if t.CronExpression != "" {
		sched, err := cronParser.Parse(t.CronExpression)
		if err != nil {
			return time.Time{}, err
		}
		return sched.Next(after), nil
	}
	interval := time.Duration(t.IntervalMinutes) * time.Minute
	if interval < MinInterval {
		interval = MinInterval
	}
	return after.Add(interval), nil
}
