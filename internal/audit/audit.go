// Package audit appends traceability events for executed ledger actions.
// Writes are best effort: a failed audit append never rolls back the
// financial operation it describes.
package audit

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/deuna/payment-system/internal/ids"
	"github.com/deuna/payment-system/internal/models"
	"github.com/deuna/payment-system/internal/store"
)

// Origin captures where an action came from.
type Origin struct {
	Actor      string
	RemoteAddr string
	UserAgent  string
}

type Recorder struct {
	store store.Store
	log   *zap.Logger
}

func NewRecorder(s store.Store, log *zap.Logger) *Recorder {
	return &Recorder{store: s, log: log}
}

// Record appends one audit event. The returned error is advisory; the
// caller surfaces it as a warning, never as a failure of the underlying
// financial operation.
func (r *Recorder) Record(ctx context.Context, action models.AuditAction, transactionID string, origin Origin, detail string) error {
	ev := &models.AuditEvent{
		ID:            ids.New(),
		TransactionID: transactionID,
		Actor:         origin.Actor,
		Action:        action,
		RemoteAddr:    origin.RemoteAddr,
		UserAgent:     origin.UserAgent,
		Detail:        detail,
		CreatedAt:     time.Now(),
	}
	if err := r.store.AppendAudit(ctx, ev); err != nil {
		r.log.Warn("audit write failed",
			zap.String("transaction_id", transactionID),
			zap.String("action", string(action)),
			zap.Error(err))
		return err
	}
	return nil
}
