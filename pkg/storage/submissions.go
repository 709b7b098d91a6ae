package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/odvcencio/snaplist/pkg/errors"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// Submission is one recorded listing post attempt.
type Submission struct {
	ID            string        `json:"id"`
	SessionID     string        `json:"sessionId"`
	InstanceID    string        `json:"instanceId,omitempty"`
	Title         string        `json:"title"`
	Price         float64       `json:"price"`
	Description   string        `json:"description,omitempty"`
	Category      string        `json:"category,omitempty"`
	ImageURL      string        `json:"imageUrl,omitempty"`
	Success       bool          `json:"success"`
	ListingURL    string        `json:"listingUrl,omitempty"`
	Error         string        `json:"error,omitempty"`
	ErrorCode     string        `json:"errorCode,omitempty"`
	FailedPhase   string        `json:"failedPhase,omitempty"`
	ImageAttached bool          `json:"imageAttached"`
	Duration      time.Duration `json:"-"`
	CreatedAt     time.Time     `json:"createdAt"`
}

type submissionJSON Submission

// MarshalJSON renders Duration as whole milliseconds under durationMs.
func (s Submission) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		submissionJSON
		DurationMS int64 `json:"durationMs"`
	}{submissionJSON(s), s.Duration.Milliseconds()})
}

func (s *Submission) UnmarshalJSON(data []byte) error {
	aux := struct {
		*submissionJSON
		DurationMS int64 `json:"durationMs"`
	}{submissionJSON: (*submissionJSON)(s)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	s.Duration = time.Duration(aux.DurationMS) * time.Millisecond
	return nil
}

// RecordSubmission stores sub, assigning ID and CreatedAt when empty.
func (s *Store) RecordSubmission(ctx context.Context, sub *Submission) error {
	if sub == nil {
		return errors.New(errors.ErrCodeInvalidInput, "submission is nil")
	}
	if strings.TrimSpace(sub.ID) == "" {
		sub.ID = ulid.Make().String()
	}
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now().UTC()
	}
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageWrite, "record submission")
	}

	err := s.execWithRetry(ctx, `
		INSERT INTO submissions (
			id, session_id, instance_id, title, price, description, category, image_url,
			success, listing_url, error, error_code, failed_phase, image_attached,
			duration_ms, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sub.ID, sub.SessionID, sub.InstanceID, sub.Title, sub.Price, sub.Description, sub.Category, sub.ImageURL,
		boolToInt(sub.Success), sub.ListingURL, sub.Error, sub.ErrorCode, sub.FailedPhase, boolToInt(sub.ImageAttached),
		sub.Duration.Milliseconds(), sub.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageWrite, "record submission").WithContext("session_id", sub.SessionID)
	}
	s.notify(newEvent(EventSubmissionRecorded, sub.SessionID, sub.ID, *sub))
	return nil
}

// ListSubmissions returns the newest submissions first. An empty sessionID
// lists every session.
func (s *Store) ListSubmissions(ctx context.Context, sessionID string, limit int) ([]Submission, error) {
	if s == nil || s.db == nil {
		return nil, ErrStoreClosed
	}
	limit = clampLimit(limit)
	query := `
		SELECT id, session_id, instance_id, title, price, description, category, image_url,
		       success, listing_url, error, error_code, failed_phase, image_attached,
		       duration_ms, created_at
		FROM submissions`
	args := []any{}
	if sessionID != "" {
		query += ` WHERE session_id = ?`
		args = append(args, sessionID)
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageRead, "list submissions")
	}
	defer rows.Close()

	var out []Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeStorageRead, "scan submission")
		}
		out = append(out, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageRead, "list submissions")
	}
	return out, nil
}

func scanSubmission(rows *sql.Rows) (Submission, error) {
	var (
		sub           Submission
		success       int
		imageAttached int
		durationMS    int64
		createdMS     int64
	)
	err := rows.Scan(
		&sub.ID, &sub.SessionID, &sub.InstanceID, &sub.Title, &sub.Price, &sub.Description, &sub.Category, &sub.ImageURL,
		&success, &sub.ListingURL, &sub.Error, &sub.ErrorCode, &sub.FailedPhase, &imageAttached,
		&durationMS, &createdMS,
	)
	if err != nil {
		return Submission{}, err
	}
	sub.Success = success != 0
	sub.ImageAttached = imageAttached != 0
	sub.Duration = time.Duration(durationMS) * time.Millisecond
	sub.CreatedAt = time.UnixMilli(createdMS).UTC()
	return sub, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
