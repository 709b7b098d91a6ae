package session

import (
	cryptorand "crypto/rand"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"

	"github.com/odvcencio/snaplist/pkg/errors"
)

// DefaultID is used when the caller does not supply a session key.
const DefaultID = "default"

const maxIDLength = 256

var (
	ulidMu      sync.Mutex
	ulidEntropy = ulid.Monotonic(cryptorand.Reader, 0)
)

// ResolveID normalizes a caller-supplied session key. Keys are opaque: any
// printable text is accepted. Blank keys resolve to DefaultID; surrounding
// whitespace is trimmed.
func ResolveID(raw string) (string, error) {
	id := strings.TrimSpace(raw)
	if id == "" {
		return DefaultID, nil
	}
	if len(id) > maxIDLength {
		return "", errors.New(errors.ErrCodeInvalidInput, "session id is too long").
			WithContext("length", len(id)).
			WithRemediation("Use a session id of at most 256 bytes")
	}
	// Control characters would corrupt log lines and header round trips.
	if !utf8.ValidString(id) || strings.IndexFunc(id, unicode.IsControl) >= 0 {
		return "", errors.New(errors.ErrCodeInvalidInput, "session id contains control characters or invalid UTF-8")
	}
	return id, nil
}

// NewInstanceID returns a sortable identifier for one browser session
// generation. Re-initializing a key yields a new instance.
func NewInstanceID() string {
	ulidMu.Lock()
	defer ulidMu.Unlock()
	return strings.ToLower(ulid.MustNew(ulid.Timestamp(time.Now()), ulidEntropy).String())
}
