package browser

import (
	"fmt"
	"strings"
)

// DefaultUserAgent is the identifying string sent by every session.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

// Viewport defines the browser viewport size.
type Viewport struct {
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// SessionConfig configures a browser session.
type SessionConfig struct {
	SessionID string   `json:"session_id"`
	Viewport  Viewport `json:"viewport"`
	UserAgent string   `json:"user_agent,omitempty"`
	Locale    string   `json:"locale,omitempty"`
}

// DefaultSessionConfig returns the recommended session defaults.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		Viewport:  Viewport{Width: 1280, Height: 720},
		UserAgent: DefaultUserAgent,
		Locale:    "en-US",
	}
}

// Normalize fills zero fields from DefaultSessionConfig.
func (c SessionConfig) Normalize() SessionConfig {
	def := DefaultSessionConfig()
	if c.Viewport.Width <= 0 || c.Viewport.Height <= 0 {
		c.Viewport = def.Viewport
	}
	if strings.TrimSpace(c.UserAgent) == "" {
		c.UserAgent = def.UserAgent
	}
	if strings.TrimSpace(c.Locale) == "" {
		c.Locale = def.Locale
	}
	return c
}

// Target locates an element on the page. CSS is required; when Text is set
// only elements whose visible text contains it match.
type Target struct {
	CSS  string `json:"css" yaml:"css"`
	Text string `json:"text,omitempty" yaml:"text,omitempty"`
}

// CSSTarget builds a plain CSS target.
func CSSTarget(css string) Target {
	return Target{CSS: css}
}

// TextTarget builds a CSS target narrowed by visible text.
func TextTarget(css, text string) Target {
	return Target{CSS: css, Text: text}
}

// IsZero reports whether the target is empty.
func (t Target) IsZero() bool {
	return strings.TrimSpace(t.CSS) == ""
}

func (t Target) String() string {
	if t.Text == "" {
		return t.CSS
	}
	return fmt.Sprintf("%s:has-text(%q)", t.CSS, t.Text)
}

// ConditionKind identifies what WaitFor waits on.
type ConditionKind string

const (
	ConditionVisible       ConditionKind = "visible"
	ConditionURLChanged    ConditionKind = "url_changed"
	ConditionDocumentReady ConditionKind = "document_ready"
)

// Condition is a wait predicate evaluated against the page.
type Condition struct {
	Kind    ConditionKind
	Target  Target
	FromURL string
}

// Visible waits for target to be present and visible.
func Visible(target Target) Condition {
	return Condition{Kind: ConditionVisible, Target: target}
}

// URLChanged waits for the page URL to differ from from.
func URLChanged(from string) Condition {
	return Condition{Kind: ConditionURLChanged, FromURL: from}
}

// DocumentReady waits for the document body to be ready.
func DocumentReady() Condition {
	return Condition{Kind: ConditionDocumentReady}
}

func (c Condition) String() string {
	switch c.Kind {
	case ConditionVisible:
		return "visible " + c.Target.String()
	case ConditionURLChanged:
		return "url change from " + c.FromURL
	default:
		return string(c.Kind)
	}
}

// Key is a named keyboard key.
type Key string

const (
	KeyEnter  Key = "Enter"
	KeyTab    Key = "Tab"
	KeyEscape Key = "Escape"
)
