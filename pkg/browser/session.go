package browser

import (
	"context"
	"time"
)

// Runtime launches browser sessions.
type Runtime interface {
	NewSession(ctx context.Context, cfg SessionConfig) (Session, error)
	Close() error
}

// Session is the port implemented by browser runtime adapters. Workflow
// steps only ever drive a page through these primitives.
//
// Every primitive is bounded: adapters apply their own operation timeout when
// ctx has no deadline, and return *AutomationError on failure.
type Session interface {
	ID() string
	Navigate(ctx context.Context, url string) error
	WaitFor(ctx context.Context, cond Condition, timeout time.Duration) error
	FillField(ctx context.Context, target Target, value string) error
	Click(ctx context.Context, target Target) error
	UploadFile(ctx context.Context, target Target, data []byte, filename, mimeType string) error
	// TypeText sends keystrokes to the focused element.
	TypeText(ctx context.Context, text string) error
	PressKey(ctx context.Context, key Key) error
	CurrentURL(ctx context.Context) (string, error)
	// Evaluate runs a JavaScript expression and decodes the result into out.
	Evaluate(ctx context.Context, expression string, out any) error
	HTML(ctx context.Context) (string, error)
	Close() error
}
