package api

import (
	"net/http"
	"strconv"

	"github.com/oxbane/podium/internal/domain/ranking"
)

const defaultMaxRankingLimit = 100

// RankingsHandler handles leaderboard queries.
type RankingsHandler struct {
	deps     Dependencies
	maxLimit int
}

// NewRankingsHandler creates a new rankings handler.
func NewRankingsHandler(deps Dependencies) *RankingsHandler {
	return &RankingsHandler{deps: deps, maxLimit: defaultMaxRankingLimit}
}

// HandleGetRankings handles
// GET /rankings?scope=&period=&activity_id=&sub_activity=&limit=.
// Scope and period are mandatory; an empty leaderboard is a valid result.
func (h *RankingsHandler) HandleGetRankings(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_rankings"
	q := r.URL.Query()

	limit := h.maxLimit
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
		if n > h.maxLimit {
			writeError(w, http.StatusBadRequest, "limit_exceeded", NewKind(op, ErrBadRequest))
			return
		}
		limit = n
	}

	entries, err := h.deps.Rank(r.Context(), ranking.Query{
		Scope:       ranking.Scope(q.Get("scope")),
		Period:      ranking.Period(q.Get("period")),
		ActivityID:  q.Get("activity_id"),
		SubActivity: q.Get("sub_activity"),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if len(entries) > limit {
		entries = entries[:limit]
	}
	writeJSON(w, http.StatusOK, entries)
}
