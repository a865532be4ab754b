// Package app provides the core business service that implements the
// dependencies required by the HTTP API.
package app

import (
	"context"
	"sync"
	"time"

	"github.com/oxbane/podium/internal/adapters/fanout"
	"github.com/oxbane/podium/internal/adapters/repository"
	"github.com/oxbane/podium/internal/domain/approval"
	"github.com/oxbane/podium/internal/domain/directory"
	"github.com/oxbane/podium/internal/domain/model"
	"github.com/oxbane/podium/internal/domain/ranking"
	"github.com/oxbane/podium/internal/domain/timer"
	"github.com/oxbane/podium/pkg/logger"
	"github.com/oxbane/podium/pkg/metrics"
)

// Service wires the score store, approval workflow, ranking aggregator,
// notification fanout and timer registry behind one facade.
type Service struct {
	mu sync.RWMutex

	store      repository.Store
	dir        directory.Directory
	workflow   *approval.Workflow
	aggregator *ranking.Aggregator
	bus        *fanout.Bus
	timers     *timer.Registry

	shardCount       int
	subscriberBuffer int
	storeTimeout     time.Duration
	clock            func() time.Time

	started bool
	log     logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger.
func WithLogger(log logger.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithShardCount sets the score store shard count.
func WithShardCount(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.shardCount = n
		}
	}
}

// WithSubscriberBuffer sets the fanout per-subscription queue depth.
func WithSubscriberBuffer(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.subscriberBuffer = n
		}
	}
}

// WithStoreTimeout sets the latency budget applied to store operations.
func WithStoreTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.storeTimeout = d
		}
	}
}

// WithDirectory sets the external directory consulted during validation.
func WithDirectory(dir directory.Directory) Option {
	return func(s *Service) {
		if dir != nil {
			s.dir = dir
		}
	}
}

// WithClock injects the time source used by the store, aggregator and
// timer registry.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		shardCount:       8,
		subscriberBuffer: 64,
		storeTimeout:     2 * time.Second,
		clock:            time.Now,
		dir:              directory.NewInMemory(directory.WithOpenRegistration()),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.log == nil {
		s.log = logger.Named("app")
	}

	s.bus = fanout.NewBus(
		fanout.WithSubscriberBuffer(s.subscriberBuffer),
		fanout.WithLogger(s.log.Named("fanout")),
	)
	s.store = repository.NewMemStore(
		repository.WithShardCount(s.shardCount),
		repository.WithDirectory(s.dir),
		repository.WithClock(s.clock),
	)
	s.workflow = approval.New(s.store, s.bus,
		approval.WithLogger(s.log.Named("approval")),
	)
	s.aggregator = ranking.New(s.store,
		ranking.WithClock(s.clock),
	)
	s.timers = timer.New(s.bus,
		timer.WithClock(s.clock),
		timer.WithLogger(s.log.Named("timer")),
	)

	s.started = true
	s.log.Info(ctx, "scoring service started",
		logger.Int("shards", s.shardCount),
		logger.Int("subscriberBuffer", s.subscriberBuffer),
		logger.Duration("storeTimeout", s.storeTimeout),
	)
	return nil
}

// Stop shuts the service down, detaching all subscribers.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	if s.bus != nil {
		s.bus.Close()
	}
	s.started = false
	s.log.Info(context.Background(), "scoring service stopped")
}

// budget derives the fail-fast context for a store operation.
func (s *Service) budget(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.storeTimeout)
}

// SubmitScore validates and persists a new pending score. Submission alone
// triggers no resolution event; a team-context score additionally announces
// itself on the team's room so teammates see a live feed.
func (s *Service) SubmitScore(ctx context.Context, sc model.Score) (model.Score, error) {
	opCtx, cancel := s.budget(ctx)
	defer cancel()

	created, err := s.store.Create(opCtx, sc)
	if err != nil {
		return model.Score{}, err
	}

	if created.Context == model.ContextTeam {
		s.bus.Publish(ctx, model.Notification{
			Type: model.EventScoreNew,
			Room: model.TeamRoom(created.TeamID),
			Payload: map[string]any{
				"score_id":    created.ID,
				"activity_id": created.ActivityID,
				"user_id":     created.UserID,
				"value":       created.Value,
			},
		})
	}
	return created, nil
}

// GetScore returns a score by id.
func (s *Service) GetScore(ctx context.Context, id string) (model.Score, error) {
	opCtx, cancel := s.budget(ctx)
	defer cancel()
	return s.store.Get(opCtx, id)
}

// ListScores returns scores matching the filter.
func (s *Service) ListScores(ctx context.Context, f model.ScoreFilter) ([]model.Score, error) {
	opCtx, cancel := s.budget(ctx)
	defer cancel()
	return s.store.List(opCtx, f)
}

// Approve resolves a pending score as approved.
func (s *Service) Approve(ctx context.Context, scoreID, adminID, note string) (model.Score, error) {
	opCtx, cancel := s.budget(ctx)
	defer cancel()
	return s.workflow.Approve(opCtx, scoreID, adminID, note)
}

// Reject resolves a pending score as rejected with a mandatory reason.
func (s *Service) Reject(ctx context.Context, scoreID, adminID, reason, note string) (model.Score, error) {
	opCtx, cancel := s.budget(ctx)
	defer cancel()
	return s.workflow.Reject(opCtx, scoreID, adminID, reason, note)
}

// Rank computes a leaderboard for the query.
func (s *Service) Rank(ctx context.Context, q ranking.Query) ([]model.RankingEntry, error) {
	opCtx, cancel := s.budget(ctx)
	defer cancel()
	return s.aggregator.Rank(opCtx, q)
}

// StartTimer starts a named activity-scoped countdown.
func (s *Service) StartTimer(ctx context.Context, name, activityID string, duration time.Duration) (model.TimerEntry, error) {
	return s.timers.Start(ctx, name, activityID, duration)
}

// StopTimer stops a running timer; stopping a finished timer succeeds.
func (s *Service) StopTimer(ctx context.Context, name, activityID string) (model.TimerEntry, error) {
	return s.timers.Stop(ctx, name, activityID)
}

// ListTimers lists timers for an activity, detecting expiry lazily.
func (s *Service) ListTimers(ctx context.Context, activityID string) []model.TimerEntry {
	return s.timers.List(ctx, activityID)
}

// Subscribe attaches to a notification room. The caller owns the returned
// subscription and must Close it on disconnect.
func (s *Service) Subscribe(room string) *fanout.Subscription {
	return s.bus.Subscribe(room)
}

// Announce publishes a collaborator-originated event (team membership,
// activity or sub-activity changes, feedback) on the shared channel. The
// fanout enforces the closed type set.
func (s *Service) Announce(ctx context.Context, n model.Notification) {
	s.bus.Publish(ctx, n)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":          s.started,
		"shardCount":       s.shardCount,
		"subscriberBuffer": s.subscriberBuffer,
	}
	if s.started {
		total := s.store.Count(context.Background())
		stats["totalScores"] = total
		metrics.UpdateScoresTotal(total)
	}
	return stats
}
