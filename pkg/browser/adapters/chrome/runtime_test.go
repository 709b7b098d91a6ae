package chrome

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"

	"github.com/odvcencio/snaplist/pkg/browser"
)

func TestLaunchFlags(t *testing.T) {
	session := browser.SessionConfig{
		SessionID: "u1",
		Viewport:  browser.Viewport{Width: 1280, Height: 800},
		UserAgent: "snaplist-test",
		Locale:    "en-GB",
	}

	tests := []struct {
		name       string
		cfg        Config
		want       map[string]any
		wantAbsent []string
	}{
		{
			name: "headless sandboxless",
			cfg:  DefaultConfig(),
			want: map[string]any{
				"user-data-dir":          "/tmp/profile",
				"user-agent":             "snaplist-test",
				"window-size":            "1280,800",
				"lang":                   "en-GB",
				"disable-blink-features": "AutomationControlled",
				"no-sandbox":             true,
				"disable-setuid-sandbox": true,
			},
			wantAbsent: []string{"headless"},
		},
		{
			name: "headed with sandbox",
			cfg: func() Config {
				c := DefaultConfig()
				c.Headless = false
				c.NoSandbox = false
				return c
			}(),
			want: map[string]any{
				"headless": false,
				"lang":     "en-GB",
			},
			wantAbsent: []string{"no-sandbox", "disable-setuid-sandbox"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt, err := NewRuntime(tt.cfg, nil)
			if err != nil {
				t.Fatalf("NewRuntime() error = %v", err)
			}
			flags := rt.launchFlags(session, "/tmp/profile")
			for name, want := range tt.want {
				if got, ok := flags[name]; !ok || got != want {
					t.Errorf("flag %s = %v (present %v), want %v", name, got, ok, want)
				}
			}
			for _, name := range tt.wantAbsent {
				if _, ok := flags[name]; ok {
					t.Errorf("flag %s should not be set", name)
				}
			}

			opts := rt.allocatorOptions(session, "/tmp/profile")
			if floor := len(chromedp.DefaultExecAllocatorOptions) + len(flags); len(opts) < floor {
				t.Errorf("allocatorOptions() has %d options, want at least %d", len(opts), floor)
			}
		})
	}
}

func TestKeySequence(t *testing.T) {
	tests := []struct {
		key  browser.Key
		want string
	}{
		{browser.KeyEnter, kb.Enter},
		{browser.KeyTab, kb.Tab},
		{browser.KeyEscape, kb.Escape},
		{browser.Key("a"), "a"},
	}
	for _, tt := range tests {
		if got := keySequence(tt.key); got != tt.want {
			t.Errorf("keySequence(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestPoll(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name    string
		results []error
		okAt    int
		wantErr error
	}{
		{"ready immediately", nil, 0, nil},
		{"ready after retries", []error{nil, context.DeadlineExceeded}, 2, nil},
		{"hard error stops", []error{boom}, -1, boom},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Session{cfg: Config{PollInterval: time.Millisecond}}
			calls := 0
			err := s.poll(context.Background(), func(context.Context) (bool, error) {
				defer func() { calls++ }()
				if calls < len(tt.results) && tt.results[calls] != nil {
					return false, tt.results[calls]
				}
				return tt.okAt >= 0 && calls >= tt.okAt, nil
			})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("poll() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestPollStopsWhenContextEnds(t *testing.T) {
	s := &Session{cfg: Config{PollInterval: time.Millisecond}}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := s.poll(ctx, func(context.Context) (bool, error) { return false, nil })
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("poll() error = %v, want deadline exceeded", err)
	}
}

func TestRunRejectsCancelledContext(t *testing.T) {
	s := &Session{id: "u1", cfg: DefaultConfig(), tabCtx: context.Background()}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := s.run(ctx, time.Second); !errors.Is(err, context.Canceled) {
		t.Fatalf("run() error = %v, want context.Canceled", err)
	}

	var missing *Session
	if err := missing.run(context.Background(), time.Second); !errors.Is(err, browser.ErrUnavailable) {
		t.Fatalf("run() on nil session = %v, want ErrUnavailable", err)
	}
}
