package escalation

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"accountability-service/internal/backoff"
	"accountability-service/internal/lifecycle"
	"accountability-service/internal/model"
	"accountability-service/internal/repository"
	"accountability-service/internal/sla"
)

const defaultInterval = time.Minute

// Invalidator is told when a sweep changed what the dashboard would show.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

type Options struct {
	Interval     time.Duration
	Retry        backoff.Policy
	SweepOnStart bool
	Invalidator  Invalidator
}

type SweepResult struct {
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Checked   int           `json:"checked"`
	Escalated int           `json:"escalated"`
	Skipped   int           `json:"skipped"`
	Failed    int           `json:"failed"`
	Cancelled bool          `json:"cancelled"`
}

// Engine promotes overdue complaints to escalated. Each complaint is handled
// in its own atomic store update so one failure never aborts the sweep.
type Engine struct {
	store   repository.ComplaintStore
	machine *lifecycle.Machine
	clock   *sla.Clock
	opts    Options

	sweepMu sync.Mutex
	done    chan struct{}
	wg      sync.WaitGroup
}

func NewEngine(store repository.ComplaintStore, machine *lifecycle.Machine, clock *sla.Clock, opts Options) *Engine {
	if opts.Interval <= 0 {
		opts.Interval = defaultInterval
	}
	if opts.Retry.Attempts == 0 {
		opts.Retry = backoff.DefaultPolicy()
	}
	return &Engine{
		store:   store,
		machine: machine,
		clock:   clock,
		opts:    opts,
		done:    make(chan struct{}),
	}
}

// Sweep runs one evaluation pass. Concurrent calls are serialized. The error
// is non-nil only when the overdue listing itself could not be read.
func (e *Engine) Sweep(ctx context.Context) (SweepResult, error) {
	e.sweepMu.Lock()
	defer e.sweepMu.Unlock()

	began := time.Now()
	now := e.clock.Now()
	result := SweepResult{StartedAt: now}

	var candidates []*model.Complaint
	err := backoff.Do(ctx, e.opts.Retry, "escalation", func() error {
		var err error
		candidates, err = e.store.ListOverdue(ctx, now)
		return err
	})
	if err != nil {
		result.Duration = time.Since(began)
		return result, err
	}

	for _, c := range candidates {
		if ctx.Err() != nil {
			result.Cancelled = true
			break
		}
		result.Checked++

		if !e.clock.IsOverdue(c, now) {
			result.Skipped++
			continue
		}

		err := e.escalate(ctx, c, now)
		switch {
		case err == nil:
			result.Escalated++
			log.Printf("escalation: complaint %s escalated (%s, deadline %s)", c.ID, c.Category, c.SLADeadline.Format(time.RFC3339))
		case errors.Is(err, repository.ErrNoChange), errors.Is(err, model.ErrInvalidTransition), errors.Is(err, model.ErrNotFound):
			result.Skipped++
		default:
			result.Failed++
			log.Printf("escalation: complaint %s: %v", c.ID, err)
		}
	}

	if result.Escalated > 0 && e.opts.Invalidator != nil {
		if err := e.opts.Invalidator.Invalidate(ctx); err != nil {
			log.Printf("escalation: invalidate dashboard cache: %v", err)
		}
	}
	result.Duration = time.Since(began)
	return result, nil
}

// escalate applies the transition only if the complaint still has the version
// the listing saw. A newer version means someone acted on it in between; the
// next sweep re-evaluates it from fresh state.
func (e *Engine) escalate(ctx context.Context, seen *model.Complaint, now time.Time) error {
	return backoff.Do(ctx, e.opts.Retry, "escalation", func() error {
		_, err := e.store.Update(ctx, seen.ID, func(c *model.Complaint) (*model.OutboxMessage, error) {
			if c.Version != seen.Version || !e.clock.IsOverdue(c, now) {
				return nil, repository.ErrNoChange
			}
			from := c.Status
			changed, err := e.machine.Apply(c, model.ActionEscalate, model.SystemActor, now)
			if err != nil {
				return nil, err
			}
			if !changed {
				return nil, repository.ErrNoChange
			}
			return model.NewComplaintEvent(model.RoutingKeyComplaintEscalated, c, from, now)
		})
		return err
	})
}

// Start runs Sweep every interval until Stop.
func (e *Engine) Start() {
	e.wg.Add(1)
	go e.loop()
	log.Printf("escalation: started (interval %s)", e.opts.Interval)
}

func (e *Engine) loop() {
	defer e.wg.Done()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-e.done:
			cancel()
		case <-ctx.Done():
		}
	}()

	if e.opts.SweepOnStart {
		e.runSweep(ctx)
	}

	ticker := time.NewTicker(e.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-e.done:
			return
		case <-ticker.C:
			e.runSweep(ctx)
		}
	}
}

func (e *Engine) runSweep(ctx context.Context) {
	result, err := e.Sweep(ctx)
	if err != nil {
		log.Printf("escalation: sweep: %v", err)
		return
	}
	if result.Escalated > 0 || result.Failed > 0 {
		log.Printf("escalation: sweep checked=%d escalated=%d skipped=%d failed=%d in %s",
			result.Checked, result.Escalated, result.Skipped, result.Failed, result.Duration)
	}
}

// Stop cancels the sweep in flight between complaints and waits for it.
func (e *Engine) Stop() {
	close(e.done)
	e.wg.Wait()
	log.Println("escalation: stopped")
}
