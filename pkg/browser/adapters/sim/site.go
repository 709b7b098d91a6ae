// Package sim is an in-memory browser engine. Pages are static HTML keyed by
// URL, selectors are resolved with goquery, and clicks move between pages
// according to scripted transitions. Nothing on a simulated page changes by
// itself, so waits that are not already satisfied fail immediately.
package sim

import (
	"strings"
	"sync"
	"time"

	"github.com/odvcencio/snaplist/pkg/browser"
)

// Values maps element keys (name, aria-label or id) to filled values.
type Values map[string]string

// Redirect sends navigation from From to To unless the session has Unless set.
type Redirect struct {
	From   string
	To     string
	Unless string
}

// Transition moves the page to To when Click is clicked on a page whose URL
// starts with At. Guard, when set, must accept the session's filled values.
type Transition struct {
	At      string
	Click   browser.Target
	To      string
	SetFlag string
	Guard   func(Values) bool
}

// Site is a scripted web site shared by every session of a Runtime.
type Site struct {
	mu          sync.RWMutex
	pages       map[string]string
	redirects   []Redirect
	transitions []Transition
	navFailures map[string]error
	latency     time.Duration
}

// NewSite creates an empty site.
func NewSite() *Site {
	return &Site{
		pages:       make(map[string]string),
		navFailures: make(map[string]error),
	}
}

// AddPage registers the HTML served at url.
func (s *Site) AddPage(url, html string) *Site {
	s.mu.Lock()
	s.pages[url] = html
	s.mu.Unlock()
	return s
}

// AddRedirect registers a conditional redirect.
func (s *Site) AddRedirect(r Redirect) *Site {
	s.mu.Lock()
	s.redirects = append(s.redirects, r)
	s.mu.Unlock()
	return s
}

// AddTransition registers a click transition.
func (s *Site) AddTransition(t Transition) *Site {
	s.mu.Lock()
	s.transitions = append(s.transitions, t)
	s.mu.Unlock()
	return s
}

// FailNavigation makes navigation to url fail with err.
func (s *Site) FailNavigation(url string, err error) *Site {
	s.mu.Lock()
	s.navFailures[url] = err
	s.mu.Unlock()
	return s
}

// RemoveTransitions drops every transition registered for clicks on target.
func (s *Site) RemoveTransitions(target browser.Target) *Site {
	s.mu.Lock()
	kept := s.transitions[:0]
	for _, t := range s.transitions {
		if t.Click != target {
			kept = append(kept, t)
		}
	}
	s.transitions = kept
	s.mu.Unlock()
	return s
}

// SetLatency delays every primitive by d, honoring cancellation.
func (s *Site) SetLatency(d time.Duration) *Site {
	s.mu.Lock()
	s.latency = d
	s.mu.Unlock()
	return s
}

// UpdatePage rewrites the HTML at url with fn.
func (s *Site) UpdatePage(url string, fn func(string) string) *Site {
	s.mu.Lock()
	s.pages[url] = fn(s.pages[url])
	s.mu.Unlock()
	return s
}

func (s *Site) page(url string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if html, ok := s.pages[url]; ok {
		return html, true
	}
	// Query strings do not change the served document.
	if i := strings.IndexByte(url, '?'); i >= 0 {
		html, ok := s.pages[url[:i]]
		return html, ok
	}
	return "", false
}

func (s *Site) resolve(url string, flags map[string]bool) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.redirects {
		if r.From == url && (r.Unless == "" || !flags[r.Unless]) {
			return r.To
		}
	}
	return url
}

func (s *Site) navFailure(url string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.navFailures[url]
}

func (s *Site) delay() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latency
}

func (s *Site) transitionsAt(url string) []Transition {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Transition
	for _, t := range s.transitions {
		if strings.HasPrefix(url, t.At) {
			out = append(out, t)
		}
	}
	return out
}
