// Package ranking computes leaderboards on demand from the approved score
// set. There is no cached leaderboard state to invalidate: every query
// recomputes from the store, trading CPU for correctness.
package ranking

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/oxbane/podium/internal/domain/model"
	"github.com/oxbane/podium/pkg/metrics"
)

// Scope selects the grouping dimension of a leaderboard.
type Scope string

const (
	ScopeIndividual Scope = "individual"
	ScopeTeam       Scope = "team"
)

// Valid reports whether the scope is a known value.
func (s Scope) Valid() bool {
	return s == ScopeIndividual || s == ScopeTeam
}

// Period is a rolling window ending now.
type Period string

const (
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
	PeriodAll   Period = "all"
)

// Valid reports whether the period is a known value.
func (p Period) Valid() bool {
	switch p {
	case PeriodDay, PeriodWeek, PeriodMonth, PeriodYear, PeriodAll:
		return true
	}
	return false
}

// start returns the inclusive lower bound of the half-open window
// [start, now). PeriodAll returns the zero time.
func (p Period) start(now time.Time) time.Time {
	switch p {
	case PeriodDay:
		return now.AddDate(0, 0, -1)
	case PeriodWeek:
		return now.AddDate(0, 0, -7)
	case PeriodMonth:
		return now.AddDate(0, -1, 0)
	case PeriodYear:
		return now.AddDate(-1, 0, 0)
	default:
		return time.Time{}
	}
}

// Query selects which approved scores feed a leaderboard.
type Query struct {
	Scope       Scope
	Period      Period
	ActivityID  string
	SubActivity string
}

// Lister is the read-only slice of the score store the aggregator uses.
type Lister interface {
	List(ctx context.Context, f model.ScoreFilter) ([]model.Score, error)
}

// Aggregator computes rankings. It is stateless and side-effect-free, so
// any number of callers may query concurrently.
type Aggregator struct {
	store Lister
	clock func() time.Time
}

// Option applies a configuration option to the Aggregator.
type Option func(*Aggregator)

// WithClock injects the time source used to anchor period windows.
func WithClock(clock func() time.Time) Option {
	return func(a *Aggregator) {
		if clock != nil {
			a.clock = clock
		}
	}
}

// New builds an Aggregator over the given store.
func New(store Lister, opts ...Option) *Aggregator {
	a := &Aggregator{
		store: store,
		clock: time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// averageScale fixes average precision at two decimal places.
const averageScale = 100

// Rank computes the leaderboard for the query.
//
// Input set: approved scores inside the period window whose context matches
// the scope. Team-context scores are credited to the team, never to the
// submitting member, so they are excluded from individual rankings; the
// symmetric exclusion holds for team rankings.
//
// Sort: total desc, then lastScoreAt asc (the group that reached its total
// first ranks higher), then subject id asc. Ranks are 1-based and strictly
// positional: tied totals are still ordered deterministically, never given
// the same rank. An empty result is a valid leaderboard.
func (a *Aggregator) Rank(ctx context.Context, q Query) ([]model.RankingEntry, error) {
	if !q.Scope.Valid() {
		return nil, model.WrapValidation("scope must be individual or team")
	}
	if !q.Period.Valid() {
		return nil, model.WrapValidation("period must be one of day, week, month, year, all")
	}

	start := time.Now()
	defer func() {
		metrics.RecordRankingQuery(string(q.Scope))
		metrics.RecordRankingQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	now := a.clock()
	scores, err := a.store.List(ctx, model.ScoreFilter{
		ActivityID:  q.ActivityID,
		SubActivity: q.SubActivity,
		Status:      model.StatusApproved,
		From:        q.Period.start(now),
		To:          now,
	})
	if err != nil {
		return nil, fmt.Errorf("ranking query: %w", err)
	}

	groups := make(map[string]*model.RankingEntry)
	for _, sc := range scores {
		subject, ok := subjectFor(q.Scope, sc)
		if !ok {
			continue
		}
		entry, ok := groups[subject]
		if !ok {
			entry = &model.RankingEntry{SubjectID: subject}
			groups[subject] = entry
		}
		entry.TotalScore += sc.Value
		entry.ScoreCount++
		if sc.CreatedAt.After(entry.LastScoreAt) {
			entry.LastScoreAt = sc.CreatedAt
		}
	}

	out := make([]model.RankingEntry, 0, len(groups))
	for _, entry := range groups {
		entry.AverageScore = roundAverage(entry.TotalScore / float64(entry.ScoreCount))
		out = append(out, *entry)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalScore != out[j].TotalScore {
			return out[i].TotalScore > out[j].TotalScore
		}
		if !out[i].LastScoreAt.Equal(out[j].LastScoreAt) {
			return out[i].LastScoreAt.Before(out[j].LastScoreAt)
		}
		return out[i].SubjectID < out[j].SubjectID
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out, nil
}

// subjectFor maps a score onto its grouping key, or reports that the score
// belongs to the other scope.
func subjectFor(scope Scope, sc model.Score) (string, bool) {
	switch scope {
	case ScopeIndividual:
		if sc.Context != model.ContextIndividual {
			return "", false
		}
		return sc.UserID, true
	case ScopeTeam:
		if sc.Context != model.ContextTeam {
			return "", false
		}
		return sc.TeamID, true
	}
	return "", false
}

func roundAverage(avg float64) float64 {
	return math.Round(avg*averageScale) / averageScale
}
