package chrome

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"

	"github.com/odvcencio/snaplist/pkg/browser"
)

// Runtime launches one Chrome process per session so that every session has
// its own profile directory and cookie jar.
type Runtime struct {
	cfg     Config
	metrics *browser.Metrics
}

// NewRuntime creates a chromedp runtime adapter.
func NewRuntime(cfg Config, metrics *browser.Metrics) (*Runtime, error) {
	merged := cfg.withDefaults()
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	return &Runtime{cfg: merged, metrics: metrics}, nil
}

// NewSession launches Chrome and opens the session's tab.
func (r *Runtime) NewSession(ctx context.Context, sessionCfg browser.SessionConfig) (browser.Session, error) {
	if r == nil {
		return nil, browser.ErrUnavailable
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(sessionCfg.SessionID) == "" {
		return nil, errors.New("session_id is required")
	}
	normalized := sessionCfg.Normalize()

	profileDir, err := os.MkdirTemp(r.cfg.ProfileRoot, "snaplist-"+sanitizeSessionID(normalized.SessionID)+"-")
	if err != nil {
		return nil, fmt.Errorf("create profile dir: %w", err)
	}

	// The allocator outlives the launch request, so it hangs off Background
	// and is torn down explicitly by Session.Close.
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), r.allocatorOptions(normalized, profileDir)...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	launched := make(chan error, 1)
	go func() {
		launched <- chromedp.Run(tabCtx,
			chromedp.EmulateViewport(int64(normalized.Viewport.Width), int64(normalized.Viewport.Height)),
			// The --lang flag only covers the UI; pages read navigator.language
			// and Accept-Language.
			emulation.SetLocaleOverride().WithLocale(normalized.Locale),
			emulation.SetUserAgentOverride(normalized.UserAgent).WithAcceptLanguage(normalized.Locale),
		)
	}()

	abort := func() {
		tabCancel()
		allocCancel()
		_ = os.RemoveAll(profileDir)
	}

	timer := time.NewTimer(r.cfg.LaunchTimeout)
	defer timer.Stop()
	select {
	case err := <-launched:
		if err != nil {
			abort()
			return nil, fmt.Errorf("launch chrome: %w", err)
		}
	case <-timer.C:
		abort()
		return nil, fmt.Errorf("launch chrome: %w", context.DeadlineExceeded)
	case <-ctx.Done():
		abort()
		return nil, fmt.Errorf("launch chrome: %w", ctx.Err())
	}

	return &Session{
		id:          normalized.SessionID,
		cfg:         r.cfg,
		tabCtx:      tabCtx,
		tabCancel:   tabCancel,
		allocCancel: allocCancel,
		profileDir:  profileDir,
		metrics:     r.metrics,
	}, nil
}

// Close releases runtime resources. Sessions own their processes.
func (r *Runtime) Close() error {
	return nil
}

func (r *Runtime) allocatorOptions(cfg browser.SessionConfig, profileDir string) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	for name, value := range r.launchFlags(cfg, profileDir) {
		opts = append(opts, chromedp.Flag(name, value))
	}
	if r.cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(r.cfg.ExecPath))
	}
	return opts
}

// launchFlags are the Chrome switches layered over chromedp's defaults.
func (r *Runtime) launchFlags(cfg browser.SessionConfig, profileDir string) map[string]any {
	flags := map[string]any{
		"user-data-dir":          profileDir,
		"user-agent":             cfg.UserAgent,
		"window-size":            fmt.Sprintf("%d,%d", cfg.Viewport.Width, cfg.Viewport.Height),
		"lang":                   cfg.Locale,
		"disable-blink-features": "AutomationControlled",
		"disable-dev-shm-usage":  true,
	}
	if r.cfg.NoSandbox {
		flags["no-sandbox"] = true
		flags["disable-setuid-sandbox"] = true
	}
	if !r.cfg.Headless {
		flags["headless"] = false
	}
	return flags
}

func sanitizeSessionID(sessionID string) string {
	var out strings.Builder
	for _, r := range sessionID {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			out.WriteRune(r)
		default:
			out.WriteRune('_')
		}
		if out.Len() >= 32 {
			break
		}
	}
	if out.Len() == 0 {
		return "session"
	}
	return out.String()
}
