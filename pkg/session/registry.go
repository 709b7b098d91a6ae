package session

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/odvcencio/snaplist/pkg/browser"
	"github.com/odvcencio/snaplist/pkg/errors"
	"github.com/odvcencio/snaplist/pkg/observability"
)

// State is the lifecycle state of a registered session.
type State string

const (
	StateInitializing  State = "initializing"
	StateReady         State = "ready"
	StateAuthenticated State = "authenticated"
	StateClosed        State = "closed"
)

// EventType names a lifecycle transition reported to the event handler.
type EventType string

const (
	EventCreated       EventType = "created"
	EventLaunchFailed  EventType = "launch_failed"
	EventAuthenticated EventType = "authenticated"
	EventClosed        EventType = "closed"
)

// Close reasons.
const (
	ReasonRequested = "requested"
	ReasonReplaced  = "replaced"
	ReasonIdle      = "idle"
	ReasonShutdown  = "shutdown"
)

// Event describes one session lifecycle transition.
type Event struct {
	Type      EventType
	SessionID string
	Instance  string
	Replaced  bool
	Reason    string
	Err       error
	At        time.Time
}

// Info is a read-only snapshot of a registered session.
type Info struct {
	ID        string    `json:"id"`
	Instance  string    `json:"instance"`
	State     State     `json:"state"`
	Busy      bool      `json:"busy"`
	CreatedAt time.Time `json:"createdAt"`
	LastUsed  time.Time `json:"lastUsed"`
}

// RegistryConfig configures the session registry.
type RegistryConfig struct {
	Runtime browser.Runtime
	// SessionTemplate is copied for every launch; SessionID is filled in.
	SessionTemplate browser.SessionConfig
	// MaxSessions caps live browser sessions. Zero means unlimited.
	MaxSessions     int
	IdleTimeout     time.Duration
	CleanupInterval time.Duration
	// CloseTimeout bounds how long teardown waits for an in-flight
	// operation to observe cancellation.
	CloseTimeout time.Duration
	Logger       *observability.Logger
	Metrics      *browser.Metrics
	OnEvent      func(Event)
}

// Registry owns every live browser session, keyed by caller session id.
type Registry struct {
	runtime  browser.Runtime
	template browser.SessionConfig
	slots    *semaphore.Weighted
	logger   *observability.Logger
	metrics  *browser.Metrics
	onEvent  func(Event)

	idleTimeout     time.Duration
	cleanupInterval time.Duration
	closeTimeout    time.Duration

	mu       sync.Mutex
	entries  map[string]*entry
	shutdown bool

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

type entry struct {
	id        string
	instance  string
	createdAt time.Time

	mu       sync.Mutex
	state    State
	session  browser.Session
	lastUsed time.Time
	cancelOp context.CancelFunc
	opDone   chan struct{}
}

// NewRegistry creates a session registry.
func NewRegistry(cfg RegistryConfig) *Registry {
	idle := cfg.IdleTimeout
	if idle <= 0 {
		idle = 30 * time.Minute
	}
	interval := cfg.CleanupInterval
	if interval <= 0 {
		interval = time.Minute
	}
	closeTimeout := cfg.CloseTimeout
	if closeTimeout <= 0 {
		closeTimeout = 5 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = observability.Discard()
	}

	r := &Registry{
		runtime:         cfg.Runtime,
		template:        cfg.SessionTemplate,
		logger:          logger,
		metrics:         cfg.Metrics,
		onEvent:         cfg.OnEvent,
		idleTimeout:     idle,
		cleanupInterval: interval,
		closeTimeout:    closeTimeout,
		entries:         make(map[string]*entry),
		stopChan:        make(chan struct{}),
	}
	if cfg.MaxSessions > 0 {
		r.slots = semaphore.NewWeighted(int64(cfg.MaxSessions))
	}
	return r
}

// Start begins the idle reaper.
func (r *Registry) Start(ctx context.Context) {
	r.wg.Add(1)
	go r.cleanupLoop(ctx)
}

// Stop halts the idle reaper. It does not close sessions; use CloseAll.
func (r *Registry) Stop() {
	r.stopOnce.Do(func() { close(r.stopChan) })
	r.wg.Wait()
}

// Create launches a fresh browser session for id. Any prior session under the
// same id is torn down before the new one is launched.
func (r *Registry) Create(ctx context.Context, id string) (Info, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if r.runtime == nil {
		return Info{}, errors.Wrap(browser.ErrUnavailable, errors.ErrCodeInitialization, "browser runtime not configured")
	}

	r.mu.Lock()
	if r.shutdown {
		r.mu.Unlock()
		return Info{}, errors.New(errors.ErrCodeInitialization, "registry is shutting down")
	}
	prior := r.entries[id]
	if prior != nil && prior.currentState() == StateInitializing {
		r.mu.Unlock()
		return Info{}, busyError(id, "session is initializing")
	}
	now := time.Now()
	e := &entry{
		id:        id,
		instance:  NewInstanceID(),
		createdAt: now,
		lastUsed:  now,
		state:     StateInitializing,
	}
	r.entries[id] = e
	r.mu.Unlock()

	if prior != nil {
		if err := r.teardown(ctx, prior, ReasonReplaced); err != nil {
			r.logger.Warn("closing replaced session failed", "session_id", id, "error", err)
		}
	}

	if !r.acquireSlot() {
		r.detach(e)
		e.setState(StateClosed)
		observability.SessionEvents.WithLabelValues(string(EventCreated), "capacity").Inc()
		return Info{}, errors.New(errors.ErrCodeCapacity, "too many live browser sessions").
			WithContext("session_id", id).
			WithRetryable(true).
			WithRemediation("Close an unused session and retry")
	}

	cfg := r.template
	cfg.SessionID = id
	sess, err := r.runtime.NewSession(ctx, cfg)
	if err != nil {
		r.releaseSlot()
		r.detach(e)
		e.setState(StateClosed)
		observability.SessionEvents.WithLabelValues(string(EventCreated), "error").Inc()
		r.emit(Event{Type: EventLaunchFailed, SessionID: id, Instance: e.instance, Err: err})
		return Info{}, errors.Wrap(err, errors.ErrCodeInitialization, "failed to launch browser session").
			WithContext("session_id", id).
			WithRetryable(true).
			WithRemediation("Retry init; if it keeps failing check the browser installation")
	}

	e.mu.Lock()
	if e.state == StateClosed {
		// Closed by another caller while launching.
		e.mu.Unlock()
		_ = sess.Close()
		r.releaseSlot()
		return Info{}, errors.New(errors.ErrCodeInitialization, "session was closed while initializing").
			WithContext("session_id", id).
			WithRetryable(true)
	}
	e.session = sess
	e.state = StateReady
	e.lastUsed = time.Now()
	e.mu.Unlock()

	r.metrics.RecordSessionCreated()
	observability.SessionEvents.WithLabelValues(string(EventCreated), "ok").Inc()
	r.logger.SessionCreated(id, prior != nil)
	r.emit(Event{Type: EventCreated, SessionID: id, Instance: e.instance, Replaced: prior != nil})
	return e.info(), nil
}

// Get looks up id without side effects.
func (r *Registry) Get(id string) (Info, bool) {
	r.mu.Lock()
	e, ok := r.entries[id]
	r.mu.Unlock()
	if !ok {
		return Info{}, false
	}
	return e.info(), true
}

// List returns every registered session sorted by id.
func (r *Registry) List() []Info {
	r.mu.Lock()
	entries := make([]*entry, 0, len(r.entries))
	for _, e := range r.entries {
		entries = append(entries, e)
	}
	r.mu.Unlock()

	out := make([]Info, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.info())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Count returns the number of registered sessions.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Run gives fn exclusive use of the session registered under id. A second
// Run on the same id while fn is executing fails with SESSION_BUSY. The
// context passed to fn is cancelled when the session is closed or replaced.
func (r *Registry) Run(ctx context.Context, id string, fn func(context.Context, *Handle) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	r.mu.Lock()
	e, ok := r.entries[id]
	r.mu.Unlock()
	if !ok {
		return notFoundError(id)
	}

	e.mu.Lock()
	switch {
	case e.state == StateClosed:
		e.mu.Unlock()
		return notFoundError(id)
	case e.state == StateInitializing:
		e.mu.Unlock()
		return busyError(id, "session is initializing")
	case e.opDone != nil:
		e.mu.Unlock()
		return busyError(id, "another operation is in progress")
	}
	opCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	e.cancelOp = cancel
	e.opDone = done
	e.lastUsed = time.Now()
	handle := &Handle{registry: r, entry: e, session: e.session}
	e.mu.Unlock()

	defer func() {
		cancel()
		e.mu.Lock()
		e.cancelOp = nil
		e.opDone = nil
		e.lastUsed = time.Now()
		e.mu.Unlock()
		close(done)
	}()
	return fn(opCtx, handle)
}

// Close tears down the session registered under id. Closing an absent
// session is a no-op.
func (r *Registry) Close(ctx context.Context, id string) error {
	r.mu.Lock()
	e, ok := r.entries[id]
	if ok {
		delete(r.entries, id)
	}
	r.mu.Unlock()
	if !ok {
		return nil
	}
	return r.teardown(ctx, e, ReasonRequested)
}

// CloseAll tears down every session in parallel and refuses new ones.
func (r *Registry) CloseAll(ctx context.Context) error {
	r.mu.Lock()
	r.shutdown = true
	entries := make([]*entry, 0, len(r.entries))
	for id, e := range r.entries {
		entries = append(entries, e)
		delete(r.entries, id)
	}
	r.mu.Unlock()

	var g errgroup.Group
	for _, e := range entries {
		e := e
		g.Go(func() error {
			return r.teardown(ctx, e, ReasonShutdown)
		})
	}
	return g.Wait()
}

// teardown cancels the entry's in-flight operation, waits a bounded time for
// it to finish, then closes the browser session.
func (r *Registry) teardown(ctx context.Context, e *entry, reason string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	e.mu.Lock()
	if e.state == StateClosed {
		e.mu.Unlock()
		return nil
	}
	e.state = StateClosed
	cancel := e.cancelOp
	done := e.opDone
	sess := e.session
	e.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		timer := time.NewTimer(r.closeTimeout)
		select {
		case <-done:
		case <-timer.C:
			r.logger.Warn("in-flight operation did not stop before close", "session_id", e.id)
		case <-ctx.Done():
		}
		timer.Stop()
	}
	if sess == nil {
		// Still launching; Create notices the closed state and cleans up.
		return nil
	}

	err := sess.Close()
	r.releaseSlot()
	r.metrics.RecordSessionClosed()
	observability.SessionEvents.WithLabelValues(string(EventClosed), observability.Outcome(err)).Inc()
	r.logger.SessionClosed(e.id, reason)
	r.emit(Event{Type: EventClosed, SessionID: e.id, Instance: e.instance, Reason: reason, Err: err})
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "close browser session").WithContext("session_id", e.id)
	}
	return nil
}

func (r *Registry) cleanupLoop(ctx context.Context) {
	defer r.wg.Done()
	ticker := time.NewTicker(r.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stopChan:
			return
		case <-ticker.C:
			r.reapIdle(ctx, time.Now())
		}
	}
}

// reapIdle closes sessions with no operation in flight that have not been
// used for longer than the idle timeout.
func (r *Registry) reapIdle(ctx context.Context, now time.Time) int {
	r.mu.Lock()
	var idle []*entry
	for id, e := range r.entries {
		if e.idleSince(now) > r.idleTimeout {
			idle = append(idle, e)
			delete(r.entries, id)
		}
	}
	r.mu.Unlock()

	for _, e := range idle {
		if err := r.teardown(ctx, e, ReasonIdle); err != nil {
			r.logger.Warn("closing idle session failed", "session_id", e.id, "error", err)
		}
	}
	return len(idle)
}

func (r *Registry) detach(e *entry) {
	r.mu.Lock()
	if r.entries[e.id] == e {
		delete(r.entries, e.id)
	}
	r.mu.Unlock()
}

func (r *Registry) acquireSlot() bool {
	if r.slots == nil {
		return true
	}
	return r.slots.TryAcquire(1)
}

func (r *Registry) releaseSlot() {
	if r.slots != nil {
		r.slots.Release(1)
	}
}

func (r *Registry) emit(ev Event) {
	if r.onEvent == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	r.onEvent(ev)
}

func (e *entry) currentState() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *entry) setState(s State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}

// idleSince returns zero for entries that are busy or not yet launched.
func (e *entry) idleSince(now time.Time) time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.opDone != nil || e.session == nil || e.state == StateClosed {
		return 0
	}
	return now.Sub(e.lastUsed)
}

func (e *entry) info() Info {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Info{
		ID:        e.id,
		Instance:  e.instance,
		State:     e.state,
		Busy:      e.opDone != nil,
		CreatedAt: e.createdAt,
		LastUsed:  e.lastUsed,
	}
}

// Handle is the exclusive view of a session handed to Run callbacks. It must
// not be retained after the callback returns.
type Handle struct {
	registry *Registry
	entry    *entry
	session  browser.Session
	marked   atomic.Bool
}

// ID returns the caller session id.
func (h *Handle) ID() string {
	return h.entry.id
}

// Instance returns the browser session generation.
func (h *Handle) Instance() string {
	return h.entry.instance
}

// Session returns the browser session.
func (h *Handle) Session() browser.Session {
	return h.session
}

// State returns the current lifecycle state.
func (h *Handle) State() State {
	return h.entry.currentState()
}

// MarkAuthenticated records a successful login.
func (h *Handle) MarkAuthenticated() {
	h.entry.mu.Lock()
	changed := h.entry.state == StateReady
	if changed {
		h.entry.state = StateAuthenticated
	}
	h.entry.mu.Unlock()
	if changed && h.marked.CompareAndSwap(false, true) {
		h.registry.emit(Event{Type: EventAuthenticated, SessionID: h.entry.id, Instance: h.entry.instance})
	}
}

func notFoundError(id string) *errors.Error {
	return errors.New(errors.ErrCodeSessionNotFound, "Bot not initialized").
		WithContext("session_id", id).
		WithRemediation("Call init for this session first")
}

func busyError(id, detail string) *errors.Error {
	return errors.New(errors.ErrCodeSessionBusy, "session is busy: "+detail).
		WithContext("session_id", id).
		WithRetryable(true).
		WithRemediation("Wait for the current operation to finish")
}
