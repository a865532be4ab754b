package repository

import (
	"context"
	"fmt"
	"hash/fnv"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oxbane/podium/internal/domain/directory"
	"github.com/oxbane/podium/internal/domain/model"
	"github.com/oxbane/podium/pkg/metrics"
)

const defaultShardCount = 8

// record wraps a score with a version counter. The version increments on
// every mutation; MarkResolved re-checks the status under the shard lock,
// so a stale read can never overwrite a committed resolution.
type record struct {
	score   model.Score
	version uint64
}

type shard struct {
	mu      sync.RWMutex
	records map[string]*record
}

// MemStore is a sharded in-memory Store. Shard locks serialize resolution
// per record, which is the guarded-transition path the approval workflow
// depends on.
type MemStore struct {
	shards []*shard
	dir    directory.Directory
	clock  func() time.Time
	newID  func() string
}

// Option applies a configuration option to the MemStore.
type Option func(*MemStore)

// WithShardCount sets the number of shards.
func WithShardCount(n int) Option {
	return func(s *MemStore) {
		if n > 0 {
			s.shards = make([]*shard, n)
		}
	}
}

// WithDirectory sets the external directory used for existence checks.
func WithDirectory(dir directory.Directory) Option {
	return func(s *MemStore) {
		if dir != nil {
			s.dir = dir
		}
	}
}

// WithClock injects the time source. Tests use this to pin creation times.
func WithClock(clock func() time.Time) Option {
	return func(s *MemStore) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithIDGenerator injects the id generator.
func WithIDGenerator(gen func() string) Option {
	return func(s *MemStore) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// NewMemStore builds a MemStore with default configuration.
func NewMemStore(opts ...Option) *MemStore {
	s := &MemStore{
		shards: make([]*shard, defaultShardCount),
		dir:    directory.NewInMemory(directory.WithOpenRegistration()),
		clock:  time.Now,
		newID:  func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(s)
	}
	for i := range s.shards {
		s.shards[i] = &shard{records: make(map[string]*record)}
	}
	return s
}

func (s *MemStore) shardFor(id string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return s.shards[int(h.Sum32())%len(s.shards)]
}

// failFast surfaces a done context as ErrUnavailable so a stalled caller
// sees an error, not a hang.
func failFast(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", model.ErrUnavailable, err)
	}
	return nil
}

// Create validates and persists a new pending score.
func (s *MemStore) Create(ctx context.Context, sc model.Score) (model.Score, error) {
	if err := failFast(ctx); err != nil {
		return model.Score{}, err
	}
	if err := sc.Validate(); err != nil {
		metrics.RecordValidationFailure()
		return model.Score{}, err
	}
	if err := s.checkDirectory(ctx, sc); err != nil {
		metrics.RecordValidationFailure()
		return model.Score{}, err
	}
	if sc.ParentID != "" {
		parent, err := s.Get(ctx, sc.ParentID)
		if err != nil {
			metrics.RecordValidationFailure()
			return model.Score{}, model.WrapValidation("parent score does not exist")
		}
		// Sub-scores are leaves: a sub-score cannot itself have children.
		if parent.ParentID != "" {
			metrics.RecordValidationFailure()
			return model.Score{}, model.WrapValidation("parent score is itself a sub-score")
		}
	}

	sc.ID = s.newID()
	sc.Status = model.StatusPending
	sc.CreatedAt = s.clock()
	sc.ResolvedAt = time.Time{}
	sc.ResolvedBy = ""
	sc.RejectionReason = ""
	sc.ModeratorNote = ""

	sh := s.shardFor(sc.ID)
	sh.mu.Lock()
	sh.records[sc.ID] = &record{score: sc, version: 1}
	sh.mu.Unlock()

	metrics.RecordScoreSubmitted(string(sc.Context))
	metrics.UpdateScoresTotal(s.Count(ctx))
	return sc, nil
}

func (s *MemStore) checkDirectory(ctx context.Context, sc model.Score) error {
	if !s.dir.ActivityExists(ctx, sc.ActivityID) {
		return model.WrapValidation("unknown activity")
	}
	if sc.SubActivity != "" && !s.dir.SubActivityExists(ctx, sc.ActivityID, sc.SubActivity) {
		return model.WrapValidation("unknown sub-activity")
	}
	if !s.dir.UserExists(ctx, sc.UserID) {
		return model.WrapValidation("unknown user")
	}
	if sc.Context == model.ContextTeam && !s.dir.TeamExists(ctx, sc.TeamID) {
		return model.WrapValidation("unknown team")
	}
	return nil
}

// Get returns a score by id.
func (s *MemStore) Get(ctx context.Context, id string) (model.Score, error) {
	if err := failFast(ctx); err != nil {
		return model.Score{}, err
	}
	sh := s.shardFor(id)
	sh.mu.RLock()
	rec, ok := sh.records[id]
	if !ok {
		sh.mu.RUnlock()
		return model.Score{}, fmt.Errorf("%w: score %s", model.ErrNotFound, id)
	}
	sc := rec.score
	sh.mu.RUnlock()
	return sc, nil
}

// List returns all scores matching the filter in deterministic order.
func (s *MemStore) List(ctx context.Context, f model.ScoreFilter) ([]model.Score, error) {
	if err := failFast(ctx); err != nil {
		return nil, err
	}
	out := make([]model.Score, 0)
	for _, sh := range s.shards {
		sh.mu.RLock()
		for _, rec := range sh.records {
			if f.Matches(rec.score) {
				out = append(out, rec.score)
			}
		}
		sh.mu.RUnlock()
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// MarkResolved applies a terminal resolution under the shard lock. The
// status guard runs after the lock is held, so of two racing resolutions
// exactly one observes StatusPending and commits.
func (s *MemStore) MarkResolved(ctx context.Context, id string, res model.Resolution) (model.Score, error) {
	if err := failFast(ctx); err != nil {
		return model.Score{}, err
	}
	if !res.Status.Terminal() {
		return model.Score{}, model.WrapValidation("resolution status must be approved or rejected")
	}
	if res.Status == model.StatusRejected && strings.TrimSpace(res.Reason) == "" {
		return model.Score{}, model.WrapValidation("rejection reason is required")
	}
	if strings.TrimSpace(res.ResolvedBy) == "" {
		return model.Score{}, model.WrapValidation("resolver identity is required")
	}

	sh := s.shardFor(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	rec, ok := sh.records[id]
	if !ok {
		return model.Score{}, fmt.Errorf("%w: score %s", model.ErrNotFound, id)
	}
	if rec.score.Status != model.StatusPending {
		metrics.RecordResolutionConflict()
		return model.Score{}, fmt.Errorf("%w: score %s already %s", model.ErrConflict, id, rec.score.Status)
	}

	rec.score.Status = res.Status
	rec.score.ResolvedAt = s.clock()
	rec.score.ResolvedBy = res.ResolvedBy
	rec.score.ModeratorNote = res.Note
	if res.Status == model.StatusRejected {
		rec.score.RejectionReason = res.Reason
	}
	rec.version++

	return rec.score, nil
}

// Count returns the number of score records held.
func (s *MemStore) Count(ctx context.Context) int {
	n := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		n += len(sh.records)
		sh.mu.RUnlock()
	}
	return n
}
