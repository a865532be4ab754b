package api

import (
	"encoding/json"
	"net/http"

	"github.com/oxbane/podium/internal/domain/model"
)

// AnnounceHandler is the ingress for collaborator-originated events: team
// membership changes, activity/sub-activity edits and feedback land on the
// shared notification channel through here.
type AnnounceHandler struct {
	deps Dependencies
}

// NewAnnounceHandler creates a new announce handler.
func NewAnnounceHandler(deps Dependencies) *AnnounceHandler {
	return &AnnounceHandler{deps: deps}
}

type announceRequest struct {
	Type    string         `json:"type"`
	Room    string         `json:"room"`
	Payload map[string]any `json:"payload,omitempty"`
}

// HandleAnnounce handles POST /announce. The event type must belong to the
// closed set; anything else is refused here rather than silently dropped
// downstream.
func (h *AnnounceHandler) HandleAnnounce(w http.ResponseWriter, r *http.Request) {
	const op = "api.announce"
	var req announceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	eventType := model.EventType(req.Type)
	if !eventType.Valid() || !validRoom(req.Room) {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}

	h.deps.Announce(r.Context(), model.Notification{
		Type:    eventType,
		Room:    req.Room,
		Payload: req.Payload,
	})
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}
