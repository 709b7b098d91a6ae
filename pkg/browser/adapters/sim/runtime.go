package sim

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/odvcencio/snaplist/pkg/browser"
)

// Runtime hands out simulated sessions against one Site.
type Runtime struct {
	site *Site

	mu        sync.Mutex
	launchErr error
	launched  int
	live      int
	sessions  map[string]*Session
}

var _ browser.Runtime = (*Runtime)(nil)

// NewRuntime creates a runtime serving site.
func NewRuntime(site *Site) *Runtime {
	if site == nil {
		site = NewSite()
	}
	return &Runtime{site: site, sessions: make(map[string]*Session)}
}

// Site returns the scripted site.
func (r *Runtime) Site() *Site {
	return r.site
}

// FailLaunch makes subsequent NewSession calls fail with err. Pass nil to
// clear it.
func (r *Runtime) FailLaunch(err error) {
	r.mu.Lock()
	r.launchErr = err
	r.mu.Unlock()
}

func (r *Runtime) NewSession(ctx context.Context, cfg browser.SessionConfig) (browser.Session, error) {
	if r == nil {
		return nil, browser.ErrUnavailable
	}
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
	if strings.TrimSpace(cfg.SessionID) == "" {
		return nil, errors.New("session_id is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.launchErr != nil {
		return nil, r.launchErr
	}
	s := &Session{
		id:      cfg.SessionID,
		site:    r.site,
		runtime: r,
		flags:   make(map[string]bool),
		values:  make(Values),
	}
	r.launched++
	r.live++
	r.sessions[cfg.SessionID] = s
	return s, nil
}

// Session returns the most recent session launched for id.
func (r *Runtime) Session(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Launched counts every session ever created.
func (r *Runtime) Launched() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.launched
}

// Live counts sessions that have not been closed.
func (r *Runtime) Live() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.live
}

func (r *Runtime) Close() error {
	return nil
}

func (r *Runtime) release() {
	r.mu.Lock()
	r.live--
	r.mu.Unlock()
}
