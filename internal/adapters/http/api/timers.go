package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/oxbane/podium/internal/domain/model"
)

// TimersHandler handles countdown timer requests.
type TimersHandler struct {
	deps Dependencies
}

// NewTimersHandler creates a new timers handler.
func NewTimersHandler(deps Dependencies) *TimersHandler {
	return &TimersHandler{deps: deps}
}

type startTimerRequest struct {
	Name       string `json:"name"`
	ActivityID string `json:"activity_id"`
	DurationMS int64  `json:"duration_ms"`
}

type stopTimerRequest struct {
	Name       string `json:"name"`
	ActivityID string `json:"activity_id"`
}

// timerResponse shapes a timer entry for the wire, with the duration in
// milliseconds to match the request format.
type timerResponse struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	ActivityID string    `json:"activity_id"`
	DurationMS int64     `json:"duration_ms"`
	StartedAt  time.Time `json:"started_at"`
	EndTime    time.Time `json:"end_time"`
	Running    bool      `json:"running"`
}

func toTimerResponse(t model.TimerEntry) timerResponse {
	return timerResponse{
		ID:         t.ID,
		Name:       t.Name,
		ActivityID: t.ActivityID,
		DurationMS: t.Duration.Milliseconds(),
		StartedAt:  t.StartedAt,
		EndTime:    t.EndTime,
		Running:    t.Running,
	}
}

// HandleStart handles POST /timers/start.
func (h *TimersHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	const op = "api.start_timer"
	var req startTimerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	t, err := h.deps.StartTimer(r.Context(), req.Name, req.ActivityID, time.Duration(req.DurationMS)*time.Millisecond)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTimerResponse(t))
}

// HandleStop handles POST /timers/stop. Stopping an already-finished timer
// succeeds, so retries are harmless.
func (h *TimersHandler) HandleStop(w http.ResponseWriter, r *http.Request) {
	const op = "api.stop_timer"
	var req stopTimerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	t, err := h.deps.StopTimer(r.Context(), req.Name, req.ActivityID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTimerResponse(t))
}

// HandleList handles GET /timers?activity_id=.
func (h *TimersHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	entries := h.deps.ListTimers(r.Context(), r.URL.Query().Get("activity_id"))
	out := make([]timerResponse, len(entries))
	for i, t := range entries {
		out[i] = toTimerResponse(t)
	}
	writeJSON(w, http.StatusOK, out)
}
