// Package api declares HTTP contracts and route registration for the
// scoring core.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/oxbane/podium/internal/adapters/fanout"
	"github.com/oxbane/podium/internal/domain/model"
	"github.com/oxbane/podium/internal/domain/ranking"
	"github.com/oxbane/podium/pkg/metrics"
)

// Dependencies bundles everything the handlers need from the service
// layer. Using an interface keeps the handler layer loosely coupled to the
// implementation in internal/app.
type Dependencies interface {
	SubmitScore(ctx context.Context, sc model.Score) (model.Score, error)
	GetScore(ctx context.Context, id string) (model.Score, error)
	ListScores(ctx context.Context, f model.ScoreFilter) ([]model.Score, error)

	Approve(ctx context.Context, scoreID, adminID, note string) (model.Score, error)
	Reject(ctx context.Context, scoreID, adminID, reason, note string) (model.Score, error)

	Rank(ctx context.Context, q ranking.Query) ([]model.RankingEntry, error)

	StartTimer(ctx context.Context, name, activityID string, duration time.Duration) (model.TimerEntry, error)
	StopTimer(ctx context.Context, name, activityID string) (model.TimerEntry, error)
	ListTimers(ctx context.Context, activityID string) []model.TimerEntry

	Subscribe(room string) *fanout.Subscription
	Announce(ctx context.Context, n model.Notification)

	GetStats() map[string]any
}

// Server wires HTTP routes for the scoring API.
type Server struct {
	scoresHandler   *ScoresHandler
	approvalHandler *ApprovalHandler
	rankingsHandler *RankingsHandler
	timersHandler   *TimersHandler
	streamHandler   *StreamHandler
	announceHandler *AnnounceHandler
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler

	moderatorRoles []string
}

// ServerOption applies a configuration option to the Server.
type ServerOption func(*Server)

// WithModeratorRoles sets the roles allowed to resolve scores.
func WithModeratorRoles(roles []string) ServerOption {
	return func(s *Server) {
		if len(roles) > 0 {
			s.moderatorRoles = roles
		}
	}
}

// WithMaxRankingLimit caps the rankings result size.
func WithMaxRankingLimit(n int) ServerOption {
	return func(s *Server) {
		if n > 0 {
			s.rankingsHandler.maxLimit = n
		}
	}
}

// NewServer creates an API server with all handlers.
func NewServer(deps Dependencies, opts ...ServerOption) *Server {
	s := &Server{
		scoresHandler:   NewScoresHandler(deps),
		approvalHandler: NewApprovalHandler(deps),
		rankingsHandler: NewRankingsHandler(deps),
		timersHandler:   NewTimersHandler(deps),
		streamHandler:   NewStreamHandler(deps),
		announceHandler: NewAnnounceHandler(deps),
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(deps),
		moderatorRoles:  []string{"admin", "moderator"},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router builds the chi router with all routes attached.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(Identity)

	r.Get("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	r.Get("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/scores", func(r chi.Router) {
		r.Post("/", MetricsMiddleware(s.scoresHandler.HandleSubmit, "scores_submit"))
		r.Get("/", MetricsMiddleware(s.scoresHandler.HandleList, "scores_list"))
		r.Get("/{id}", MetricsMiddleware(s.scoresHandler.HandleGet, "scores_get"))

		r.Group(func(r chi.Router) {
			r.Use(RequireRole(s.moderatorRoles...))
			r.Post("/{id}/approve", MetricsMiddleware(s.approvalHandler.HandleApprove, "scores_approve"))
			r.Post("/{id}/reject", MetricsMiddleware(s.approvalHandler.HandleReject, "scores_reject"))
		})
	})

	r.Get("/rankings", MetricsMiddleware(s.rankingsHandler.HandleGetRankings, "rankings"))

	r.Route("/timers", func(r chi.Router) {
		r.Post("/start", MetricsMiddleware(s.timersHandler.HandleStart, "timers_start"))
		r.Post("/stop", MetricsMiddleware(s.timersHandler.HandleStop, "timers_stop"))
		r.Get("/", MetricsMiddleware(s.timersHandler.HandleList, "timers_list"))
	})

	r.Get("/ws", s.streamHandler.HandleSubscribe)
	r.Post("/announce", MetricsMiddleware(s.announceHandler.HandleAnnounce, "announce"))

	return r
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeDomainError translates the core error taxonomy onto HTTP statuses.
// A conflict is presented as an already-resolved score, since it is an
// expected concurrent-moderator outcome rather than a generic failure.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrValidation):
		writeError(w, http.StatusBadRequest, "validation_failed", err)
	case errors.Is(err, model.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, model.ErrConflict):
		writeError(w, http.StatusConflict, "already_resolved",
			errors.New("this score was already resolved by someone else"))
	case errors.Is(err, model.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, "unavailable", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}
