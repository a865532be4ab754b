// Package model contains domain types passed between layers.
package model

import (
	"strings"
	"time"
)

// ScoreContext tells whether a score is credited to an individual or a team.
type ScoreContext string

const (
	ContextIndividual ScoreContext = "individual"
	ContextTeam       ScoreContext = "team"
)

// Valid reports whether the context is a known value.
func (c ScoreContext) Valid() bool {
	return c == ContextIndividual || c == ContextTeam
}

// Status is a score's position in the approval lifecycle.
// Transitions are one-way: pending -> approved | rejected.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Valid reports whether the status is a known value.
func (s Status) Valid() bool {
	return s == StatusPending || s == StatusApproved || s == StatusRejected
}

// Terminal reports whether the status permits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// Score is a single submitted measurement tied to an activity, owned by a
// user or a team. A score with a non-empty ParentID is a sub-score; nesting
// depth is exactly one level.
type Score struct {
	ID          string       `json:"id"`
	ActivityID  string       `json:"activity_id"`
	SubActivity string       `json:"sub_activity,omitempty"`
	Context     ScoreContext `json:"context"`
	UserID      string       `json:"user_id"`
	TeamID      string       `json:"team_id,omitempty"`
	Value       float64      `json:"value"`
	MaxPossible float64      `json:"max_possible"`
	Comments    string       `json:"comments,omitempty"`
	ParentID    string       `json:"parent_id,omitempty"`

	Status          Status    `json:"status"`
	RejectionReason string    `json:"rejection_reason,omitempty"`
	ModeratorNote   string    `json:"moderator_note,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	ResolvedAt      time.Time `json:"resolved_at,omitzero"`
	ResolvedBy      string    `json:"resolved_by,omitempty"`
}

// Percentage returns the normalized value in [0,1]. It is derived from
// Value/MaxPossible and never stored, so it cannot drift out of sync.
func (s Score) Percentage() float64 {
	if s.MaxPossible <= 0 {
		return 0
	}
	return s.Value / s.MaxPossible
}

// Validate checks the submission-time invariants. It does not consult
// external directories; existence checks belong to the store.
func (s Score) Validate() error {
	switch {
	case strings.TrimSpace(s.ActivityID) == "":
		return WrapValidation("activity_id is required")
	case strings.TrimSpace(s.UserID) == "":
		return WrapValidation("user_id is required")
	case !s.Context.Valid():
		return WrapValidation("context must be individual or team")
	case s.Value <= 0:
		return WrapValidation("value must be positive")
	case s.MaxPossible <= 0:
		return WrapValidation("max_possible must be positive")
	case s.Value > s.MaxPossible:
		return WrapValidation("value must not exceed max_possible")
	}
	if s.Context == ContextTeam && strings.TrimSpace(s.TeamID) == "" {
		return WrapValidation("team_id is required for team context")
	}
	if s.Context == ContextIndividual && s.TeamID != "" {
		return WrapValidation("team_id must be empty for individual context")
	}
	return nil
}

// ScoreFilter selects scores in store queries. Zero values mean "any".
// The date range is half-open: From <= CreatedAt < To.
type ScoreFilter struct {
	ActivityID  string
	SubActivity string
	UserID      string
	TeamID      string
	Status      Status
	ParentID    string
	From        time.Time
	To          time.Time
}

// Matches reports whether the score satisfies every set dimension.
func (f ScoreFilter) Matches(s Score) bool {
	switch {
	case f.ActivityID != "" && s.ActivityID != f.ActivityID:
		return false
	case f.SubActivity != "" && s.SubActivity != f.SubActivity:
		return false
	case f.UserID != "" && s.UserID != f.UserID:
		return false
	case f.TeamID != "" && s.TeamID != f.TeamID:
		return false
	case f.Status != "" && s.Status != f.Status:
		return false
	case f.ParentID != "" && s.ParentID != f.ParentID:
		return false
	case !f.From.IsZero() && s.CreatedAt.Before(f.From):
		return false
	case !f.To.IsZero() && !s.CreatedAt.Before(f.To):
		return false
	}
	return true
}

// Resolution carries the outcome applied to a pending score.
type Resolution struct {
	Status     Status
	ResolvedBy string
	Reason     string
	Note       string
}

// RankingEntry is one row of a computed leaderboard. Ephemeral; never stored.
type RankingEntry struct {
	SubjectID    string    `json:"subject_id"`
	TotalScore   float64   `json:"total_score"`
	ScoreCount   int       `json:"score_count"`
	AverageScore float64   `json:"average_score"`
	LastScoreAt  time.Time `json:"last_score_at"`
	Rank         int       `json:"rank"`
}
