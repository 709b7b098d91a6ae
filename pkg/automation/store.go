package automation

import (
	"context"
	"log/slog"
	"time"

	"github.com/odvcencio/snaplist/pkg/errors"
	"github.com/odvcencio/snaplist/pkg/observability"
	"github.com/odvcencio/snaplist/pkg/session"
	"github.com/odvcencio/snaplist/pkg/storage"
)

const auditWriteTimeout = 5 * time.Second

// AuditStore is the persistence the service writes its audit trail to.
// *storage.Store satisfies it.
//
//go:generate mockgen -package=automation -destination=mock_store_test.go github.com/odvcencio/snaplist/pkg/automation AuditStore
type AuditStore interface {
	RecordSubmission(ctx context.Context, sub *storage.Submission) error
	ListSubmissions(ctx context.Context, sessionID string, limit int) ([]storage.Submission, error)
	RecordSessionEvent(ctx context.Context, ev *storage.SessionEvent) error
	Ping() error
}

var _ AuditStore = (*storage.Store)(nil)

// SessionEventRecorder returns a registry event hook that writes lifecycle
// transitions to store. Writes are detached from the request that caused
// them.
func SessionEventRecorder(store AuditStore, logger *observability.Logger) func(session.Event) {
	if logger == nil {
		logger = observability.Discard()
	}
	return func(ev session.Event) {
		if store == nil {
			return
		}
		rec := &storage.SessionEvent{
			SessionID:  ev.SessionID,
			InstanceID: ev.Instance,
			Event:      string(ev.Type),
			Reason:     ev.Reason,
			CreatedAt:  ev.At,
		}
		if ev.Err != nil {
			rec.Error = errors.Message(ev.Err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), auditWriteTimeout)
		defer cancel()
		if err := store.RecordSessionEvent(ctx, rec); err != nil {
			logger.Warn("record session event failed",
				slog.String("session_id", ev.SessionID),
				slog.String("event", string(ev.Type)),
				slog.String("error", err.Error()),
			)
		}
	}
}
