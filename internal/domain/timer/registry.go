// Package timer keeps named, activity-scoped countdown entries. There is no
// background scheduler: expiry is detected lazily whenever the registry is
// queried, and each expired entry publishes timer:ended exactly once.
package timer

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oxbane/podium/internal/domain/model"
	"github.com/oxbane/podium/pkg/logger"
	"github.com/oxbane/podium/pkg/metrics"
)

// Publisher pushes notifications onto the fanout channel.
type Publisher interface {
	Publish(ctx context.Context, n model.Notification)
}

type key struct {
	name       string
	activityID string
}

// entry wraps a timer with its notified flag so repeated queries after
// expiry cannot re-publish timer:ended.
type entry struct {
	timer    model.TimerEntry
	notified bool
}

// Registry holds all timers, running and historical.
type Registry struct {
	mu      sync.Mutex
	entries []*entry
	running map[key]*entry
	bus     Publisher
	clock   func() time.Time
	newID   func() string
	log     logger.Logger
}

// Option applies a configuration option to the Registry.
type Option func(*Registry)

// WithClock injects the time source. Tests use this to drive expiry.
func WithClock(clock func() time.Time) Option {
	return func(r *Registry) {
		if clock != nil {
			r.clock = clock
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(log logger.Logger) Option {
	return func(r *Registry) {
		if log != nil {
			r.log = log
		}
	}
}

// New builds a Registry publishing expiry events on bus.
func New(bus Publisher, opts ...Option) *Registry {
	r := &Registry{
		running: make(map[key]*entry),
		bus:     bus,
		clock:   time.Now,
		newID:   func() string { return uuid.New().String() },
		log:     logger.Named("timer"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start creates a running timer. A second running timer with the same
// (name, activity) pair is refused with ErrConflict; a finished one does
// not block a restart.
func (r *Registry) Start(ctx context.Context, name, activityID string, duration time.Duration) (model.TimerEntry, error) {
	if strings.TrimSpace(name) == "" {
		return model.TimerEntry{}, model.WrapValidation("timer name is required")
	}
	if strings.TrimSpace(activityID) == "" {
		return model.TimerEntry{}, model.WrapValidation("activity_id is required")
	}
	if duration <= 0 {
		return model.TimerEntry{}, model.WrapValidation("duration must be positive")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweepLocked(ctx)

	k := key{name: name, activityID: activityID}
	if _, ok := r.running[k]; ok {
		return model.TimerEntry{}, fmt.Errorf("%w: timer %q already running for activity %s", model.ErrConflict, name, activityID)
	}

	now := r.clock()
	e := &entry{timer: model.TimerEntry{
		ID:         r.newID(),
		Name:       name,
		ActivityID: activityID,
		Duration:   duration,
		StartedAt:  now,
		EndTime:    now.Add(duration),
		Running:    true,
	}}
	r.entries = append(r.entries, e)
	r.running[k] = e

	metrics.RecordTimerStarted()
	r.log.Info(ctx, "timer started",
		logger.String("name", name),
		logger.String("activity_id", activityID),
		logger.Duration("duration", duration),
	)
	return e.timer, nil
}

// Stop halts a running timer. Stopping a timer that is already stopped or
// expired is a no-op success, so the operation is idempotent. An unknown
// (name, activity) pair returns ErrNotFound.
func (r *Registry) Stop(ctx context.Context, name, activityID string) (model.TimerEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweepLocked(ctx)

	k := key{name: name, activityID: activityID}
	if e, ok := r.running[k]; ok {
		e.timer.Running = false
		e.timer.EndTime = r.clock()
		e.notified = true // manual stop never emits timer:ended
		delete(r.running, k)
		return e.timer, nil
	}

	// Idempotent path: return the latest finished entry for the pair.
	for i := len(r.entries) - 1; i >= 0; i-- {
		t := r.entries[i].timer
		if t.Name == name && t.ActivityID == activityID {
			return t, nil
		}
	}
	return model.TimerEntry{}, fmt.Errorf("%w: timer %q for activity %s", model.ErrNotFound, name, activityID)
}

// List returns all entries for the activity (every entry when activityID is
// empty), most recently started first. Expiry is detected here.
func (r *Registry) List(ctx context.Context, activityID string) []model.TimerEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweepLocked(ctx)

	out := make([]model.TimerEntry, 0, len(r.entries))
	for _, e := range r.entries {
		if activityID == "" || e.timer.ActivityID == activityID {
			out = append(out, e.timer)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].StartedAt.After(out[j].StartedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// sweepLocked flips expired timers and publishes timer:ended once per
// entry. Callers hold r.mu.
func (r *Registry) sweepLocked(ctx context.Context) {
	now := r.clock()
	for k, e := range r.running {
		if now.Before(e.timer.EndTime) {
			continue
		}
		e.timer.Running = false
		delete(r.running, k)
		if e.notified {
			continue
		}
		e.notified = true
		metrics.RecordTimerExpired()
		r.log.Info(ctx, "timer expired",
			logger.String("name", e.timer.Name),
			logger.String("activity_id", e.timer.ActivityID),
		)
		r.bus.Publish(ctx, model.Notification{
			Type: model.EventTimerEnded,
			Room: model.ActivityRoom(e.timer.ActivityID),
			Payload: map[string]any{
				"name":        e.timer.Name,
				"activity_id": e.timer.ActivityID,
				"started_at":  e.timer.StartedAt,
				"end_time":    e.timer.EndTime,
			},
		})
	}
}
