package api

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// ApprovalHandler handles score resolution requests. Routes using it sit
// behind RequireRole, so the caller is always a moderator.
type ApprovalHandler struct {
	deps Dependencies
}

// NewApprovalHandler creates a new approval handler.
func NewApprovalHandler(deps Dependencies) *ApprovalHandler {
	return &ApprovalHandler{deps: deps}
}

type approveRequest struct {
	Note string `json:"note,omitempty"`
}

type rejectRequest struct {
	Reason string `json:"reason"`
	Note   string `json:"note,omitempty"`
}

// HandleApprove handles POST /scores/{id}/approve.
func (h *ApprovalHandler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	const op = "api.approve_score"
	caller, _ := CallerFrom(r.Context())

	var req approveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	sc, err := h.deps.Approve(r.Context(), chi.URLParam(r, "id"), caller.UserID, req.Note)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sc)
}

// HandleReject handles POST /scores/{id}/reject. The reason is mandatory.
func (h *ApprovalHandler) HandleReject(w http.ResponseWriter, r *http.Request) {
	const op = "api.reject_score"
	caller, _ := CallerFrom(r.Context())

	var req rejectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	sc, err := h.deps.Reject(r.Context(), chi.URLParam(r, "id"), caller.UserID, req.Reason, req.Note)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sc)
}
