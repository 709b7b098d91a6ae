package storage

import (
	"context"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/odvcencio/snaplist/pkg/errors"
)

// SessionEvent is one recorded session lifecycle transition.
type SessionEvent struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"sessionId"`
	InstanceID string    `json:"instanceId,omitempty"`
	Event      string    `json:"event"`
	Reason     string    `json:"reason,omitempty"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// RecordSessionEvent stores ev, assigning ID and CreatedAt when empty.
func (s *Store) RecordSessionEvent(ctx context.Context, ev *SessionEvent) error {
	if ev == nil {
		return errors.New(errors.ErrCodeInvalidInput, "session event is nil")
	}
	if strings.TrimSpace(ev.ID) == "" {
		ev.ID = ulid.Make().String()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageWrite, "record session event")
	}

	err := s.execWithRetry(ctx, `
		INSERT INTO session_events (id, session_id, instance_id, event, reason, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.SessionID, ev.InstanceID, ev.Event, ev.Reason, ev.Error, ev.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageWrite, "record session event").WithContext("session_id", ev.SessionID)
	}
	s.notify(newEvent(EventSessionRecorded, ev.SessionID, ev.ID, *ev))
	return nil
}

// ListSessionEvents returns the newest events first. An empty sessionID
// lists every session.
func (s *Store) ListSessionEvents(ctx context.Context, sessionID string, limit int) ([]SessionEvent, error) {
	if s == nil || s.db == nil {
		return nil, ErrStoreClosed
	}
	query := `SELECT id, session_id, instance_id, event, reason, error, created_at FROM session_events`
	args := []any{}
	if sessionID != "" {
		query += ` WHERE session_id = ?`
		args = append(args, sessionID)
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, clampLimit(limit))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageRead, "list session events")
	}
	defer rows.Close()

	var out []SessionEvent
	for rows.Next() {
		var (
			ev        SessionEvent
			createdMS int64
		)
		if err := rows.Scan(&ev.ID, &ev.SessionID, &ev.InstanceID, &ev.Event, &ev.Reason, &ev.Error, &createdMS); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeStorageRead, "scan session event")
		}
		ev.CreatedAt = time.UnixMilli(createdMS).UTC()
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageRead, "list session events")
	}
	return out, nil
}
