package webhook

import (
	"context"

	"github.com/Domenick1991/skybooking/internal/audit"
	"github.com/Domenick1991/skybooking/pkg/logger"
)

const providerActor = "payment_provider"

// AuditedReconciler records applied settlements and every failed delivery.
// Replays and ignored event kinds only reach the debug log.
type AuditedReconciler struct {
	next     ReconcilerUseCase
	recorder *audit.Recorder
	log      logger.Logger
}

func NewAuditedReconciler(next ReconcilerUseCase, log logger.Logger) *AuditedReconciler {
	return &AuditedReconciler{next: next, recorder: audit.NewRecorder("transaction", log), log: log}
}

func (r *AuditedReconciler) HandleEvent(ctx context.Context, payload []byte, signature string) (*Result, error) {
	res, err := r.next.HandleEvent(ctx, payload, signature)

	var txnID int64
	if res != nil {
		txnID = res.TransactionID
	}
	switch {
	case err != nil:
		r.recorder.Record("settle", providerActor, txnID, err)
	case res.Outcome == OutcomeApplied:
		r.recorder.Record("settle", providerActor, txnID, nil)
	default:
		r.log.Debug("webhook event skipped", "event_id", res.EventID, "type", res.EventType, "outcome", string(res.Outcome))
	}
	return res, err
}

var _ ReconcilerUseCase = (*AuditedReconciler)(nil)
