package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/oxbane/podium/internal/domain/model"
)

// ScoresHandler handles score submission and reads.
type ScoresHandler struct {
	deps Dependencies
}

// NewScoresHandler creates a new scores handler.
func NewScoresHandler(deps Dependencies) *ScoresHandler {
	return &ScoresHandler{deps: deps}
}

// submitRequest mirrors the submission body for POST /scores.
type submitRequest struct {
	ActivityID  string  `json:"activity_id"`
	SubActivity string  `json:"sub_activity,omitempty"`
	Context     string  `json:"context"`
	TeamID      string  `json:"team_id,omitempty"`
	Value       float64 `json:"value"`
	MaxPossible float64 `json:"max_possible"`
	Comments    string  `json:"comments,omitempty"`
	ParentID    string  `json:"parent_id,omitempty"`
}

// HandleSubmit handles POST /scores. The submitter is the authenticated
// caller; the created record comes back with status=pending.
func (h *ScoresHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	const op = "api.submit_score"
	caller, ok := CallerFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated", NewKind(op, ErrForbidden))
		return
	}
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	created, err := h.deps.SubmitScore(r.Context(), model.Score{
		ActivityID:  req.ActivityID,
		SubActivity: req.SubActivity,
		Context:     model.ScoreContext(req.Context),
		UserID:      caller.UserID,
		TeamID:      req.TeamID,
		Value:       req.Value,
		MaxPossible: req.MaxPossible,
		Comments:    req.Comments,
		ParentID:    req.ParentID,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// HandleGet handles GET /scores/{id}.
func (h *ScoresHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sc, err := h.deps.GetScore(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sc)
}

// HandleList handles GET /scores with optional filter query params:
// activity_id, sub_activity, user_id, team_id, status, parent_id, from, to
// (RFC3339, half-open range).
func (h *ScoresHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_scores"
	q := r.URL.Query()
	f := model.ScoreFilter{
		ActivityID:  q.Get("activity_id"),
		SubActivity: q.Get("sub_activity"),
		UserID:      q.Get("user_id"),
		TeamID:      q.Get("team_id"),
		ParentID:    q.Get("parent_id"),
	}
	if st := q.Get("status"); st != "" {
		status := model.Status(st)
		if !status.Valid() {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
		f.Status = status
	}
	for param, dst := range map[string]*time.Time{"from": &f.From, "to": &f.To} {
		if raw := q.Get(param); raw != "" {
			t, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
				return
			}
			*dst = t
		}
	}

	scores, err := h.deps.ListScores(r.Context(), f)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, scores)
}
