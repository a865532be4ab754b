// Package approval implements the score resolution state machine:
// Pending -> Approved | Rejected, both terminal.
package approval

import (
	"context"
	"errors"
	"strings"

	"github.com/oxbane/podium/internal/domain/model"
	"github.com/oxbane/podium/pkg/logger"
	"github.com/oxbane/podium/pkg/metrics"
)

// Resolver is the slice of the score store the workflow needs.
type Resolver interface {
	MarkResolved(ctx context.Context, id string, res model.Resolution) (model.Score, error)
}

// Publisher pushes notifications onto the fanout channel.
type Publisher interface {
	Publish(ctx context.Context, n model.Notification)
}

// Workflow resolves pending scores. The store's guarded transition carries
// the atomicity: two concurrent resolutions of one score produce exactly
// one success, and the loser receives ErrConflict. A conflict is an
// expected concurrent-admin outcome, not a failure to retry.
type Workflow struct {
	store Resolver
	bus   Publisher
	log   logger.Logger
}

// Option applies a configuration option to the Workflow.
type Option func(*Workflow)

// WithLogger sets a custom logger.
func WithLogger(log logger.Logger) Option {
	return func(w *Workflow) {
		if log != nil {
			w.log = log
		}
	}
}

// New builds a Workflow over the given store and fanout publisher.
func New(store Resolver, bus Publisher, opts ...Option) *Workflow {
	w := &Workflow{
		store: store,
		bus:   bus,
		log:   logger.Named("approval"),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Approve commits the Pending -> Approved transition and notifies the
// submitter's room. Returns ErrConflict when the score is already terminal
// and ErrNotFound for an unknown id.
func (w *Workflow) Approve(ctx context.Context, scoreID, adminID, note string) (model.Score, error) {
	sc, err := w.store.MarkResolved(ctx, scoreID, model.Resolution{
		Status:     model.StatusApproved,
		ResolvedBy: adminID,
		Note:       note,
	})
	if err != nil {
		w.logOutcome(ctx, scoreID, adminID, err)
		return model.Score{}, err
	}

	metrics.RecordScoreApproved()
	w.log.Info(ctx, "score approved",
		logger.String("score_id", sc.ID),
		logger.String("admin_id", adminID),
	)
	w.publishStatus(ctx, sc)
	return sc, nil
}

// Reject commits the Pending -> Rejected transition. The reason is
// mandatory and travels to the submitter in the status notification.
func (w *Workflow) Reject(ctx context.Context, scoreID, adminID, reason, note string) (model.Score, error) {
	if strings.TrimSpace(reason) == "" {
		return model.Score{}, model.WrapValidation("rejection reason is required")
	}
	sc, err := w.store.MarkResolved(ctx, scoreID, model.Resolution{
		Status:     model.StatusRejected,
		ResolvedBy: adminID,
		Reason:     reason,
		Note:       note,
	})
	if err != nil {
		w.logOutcome(ctx, scoreID, adminID, err)
		return model.Score{}, err
	}

	metrics.RecordScoreRejected()
	w.log.Info(ctx, "score rejected",
		logger.String("score_id", sc.ID),
		logger.String("admin_id", adminID),
		logger.String("reason", reason),
	)
	w.publishStatus(ctx, sc)
	return sc, nil
}

// publishStatus emits score:status to the submitter's personal room.
// Resolving a parent has no cascading effect: sub-scores are ordinary
// records resolved independently through the same operations.
func (w *Workflow) publishStatus(ctx context.Context, sc model.Score) {
	payload := map[string]any{
		"score_id": sc.ID,
		"status":   string(sc.Status),
	}
	if sc.Status == model.StatusRejected {
		payload["reason"] = sc.RejectionReason
	}
	w.bus.Publish(ctx, model.Notification{
		Type:    model.EventScoreStatus,
		Room:    model.UserRoom(sc.UserID),
		Payload: payload,
	})
}

func (w *Workflow) logOutcome(ctx context.Context, scoreID, adminID string, err error) {
	switch {
	case errors.Is(err, model.ErrConflict):
		w.log.Info(ctx, "resolution lost race or score already terminal",
			logger.String("score_id", scoreID),
			logger.String("admin_id", adminID),
		)
	case errors.Is(err, model.ErrNotFound):
		w.log.Warn(ctx, "resolution of unknown score",
			logger.String("score_id", scoreID),
			logger.String("admin_id", adminID),
		)
	default:
		w.log.Error(ctx, "resolution failed",
			logger.String("score_id", scoreID),
			logger.Err(err),
		)
	}
}
