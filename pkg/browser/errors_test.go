package browser

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		fallback ErrorKind
		want     ErrorKind
	}{
		{"deadline uses fallback", context.DeadlineExceeded, KindSelectorNotFound, KindSelectorNotFound},
		{"deadline defaults to timeout", fmt.Errorf("wait: %w", context.DeadlineExceeded), "", KindTimeout},
		{"cancel is unknown", context.Canceled, KindTimeout, KindUnknown},
		{"closed is unknown", ErrSessionClosed, KindTimeout, KindUnknown},
		{"keeps existing kind", NewAutomationError(KindNavigation, "navigate", "", errors.New("net")), KindTimeout, KindNavigation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Classify("click", "button", tt.err, tt.fallback)
			if err == nil {
				t.Fatal("Classify() returned nil")
			}
			if got := KindOf(err); got != tt.want {
				t.Errorf("KindOf() = %s, want %s", got, tt.want)
			}
			if !errors.Is(err, tt.err) {
				t.Errorf("Classify() lost the cause %v", tt.err)
			}
		})
	}
	if err := Classify("click", "", nil, KindTimeout); err != nil {
		t.Errorf("Classify(nil) = %v, want nil", err)
	}
}

func TestAutomationErrorMessage(t *testing.T) {
	err := NewAutomationError(KindSelectorNotFound, "fill", `input[name="email"]`, context.DeadlineExceeded)
	want := `fill selector_not_found (input[name="email"]): context deadline exceeded`
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"timeout", NewAutomationError(KindTimeout, "wait", "", nil), true},
		{"navigation", NewAutomationError(KindNavigation, "navigate", "", nil), true},
		{"selector", NewAutomationError(KindSelectorNotFound, "click", "", nil), false},
		{"plain", errors.New("plain"), false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		if got := IsRetryableError(tt.err); got != tt.want {
			t.Errorf("IsRetryableError(%s) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestSessionConfigNormalize(t *testing.T) {
	cfg := SessionConfig{SessionID: "u1"}.Normalize()
	if cfg.Viewport != (Viewport{Width: 1280, Height: 720}) {
		t.Errorf("Viewport = %+v, want 1280x720", cfg.Viewport)
	}
	if cfg.UserAgent != DefaultUserAgent {
		t.Errorf("UserAgent = %q, want default", cfg.UserAgent)
	}
	if cfg.SessionID != "u1" {
		t.Errorf("SessionID = %q, want u1", cfg.SessionID)
	}

	custom := SessionConfig{Viewport: Viewport{Width: 800, Height: 600}, UserAgent: "x"}.Normalize()
	if custom.Viewport.Width != 800 || custom.UserAgent != "x" {
		t.Errorf("Normalize() overrode explicit values: %+v", custom)
	}
}

func TestTargetString(t *testing.T) {
	tests := []struct {
		got  string
		want string
	}{
		{CSSTarget(`input[aria-label*="Title"]`).String(), `input[aria-label*="Title"]`},
		{TextTarget("button", "Next").String(), `button:has-text("Next")`},
		{URLChanged("https://x/login").String(), "url change from https://x/login"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("String() = %q, want %q", tt.got, tt.want)
		}
	}
	if !(Target{}).IsZero() {
		t.Error("zero Target should report IsZero")
	}
}

func TestMetricsSnapshot(t *testing.T) {
	m := NewMetrics()
	m.RecordSessionCreated()
	m.RecordSessionCreated()
	m.RecordSessionClosed()
	_ = m.RecordPrimitive("click", nil)
	if err := m.RecordPrimitive("click", NewAutomationError(KindSelectorNotFound, "click", "", nil)); err == nil {
		t.Fatal("RecordPrimitive() should pass the error through")
	}

	snap := m.Snapshot()
	if snap.SessionsCreated != 2 || snap.ActiveSessions != 1 || snap.PrimitiveCount != 2 {
		t.Errorf("Snapshot() = %+v", snap)
	}
	if math.Abs(snap.PrimitiveSuccessRate-0.5) > 0.0001 {
		t.Errorf("PrimitiveSuccessRate = %v, want 0.5", snap.PrimitiveSuccessRate)
	}

	var nilMetrics *Metrics
	if nilMetrics.Snapshot() != (MetricsSnapshot{}) {
		t.Error("nil Metrics should return an empty snapshot")
	}
	if err := nilMetrics.RecordPrimitive("click", nil); err != nil {
		t.Errorf("nil RecordPrimitive() = %v", err)
	}
}
