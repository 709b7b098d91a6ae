package marketplace

import (
	"log/slog"
	"strings"

	"github.com/odvcencio/snaplist/pkg/errors"
)

// Credentials are held only for the duration of a login call. The password
// never appears in String, log output or JSON.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"-"`
}

func (c Credentials) String() string {
	return "Credentials{Email:" + c.Email + ", Password:[REDACTED]}"
}

func (c Credentials) GoString() string {
	return c.String()
}

// LogValue implements slog.LogValuer.
func (c Credentials) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("email", c.Email),
		slog.String("password", "[REDACTED]"),
	)
}

// Validate checks that both fields are present.
func (c Credentials) Validate() error {
	if strings.TrimSpace(c.Email) == "" || c.Password == "" {
		return errors.New(errors.ErrCodeInvalidInput, "email and password are required").
			WithRemediation("Send both email and password")
	}
	return nil
}
