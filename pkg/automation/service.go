// Package automation is the control surface over the session registry and
// the marketplace workflow steps. Every operation returns a Result envelope;
// no failure, including a panic, escapes to the transport.
package automation

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/odvcencio/snaplist/pkg/errors"
	"github.com/odvcencio/snaplist/pkg/marketplace"
	"github.com/odvcencio/snaplist/pkg/observability"
	"github.com/odvcencio/snaplist/pkg/session"
	"github.com/odvcencio/snaplist/pkg/storage"
)

// Operation names used for logs, spans and metrics.
const (
	OpInit        = "init"
	OpLogin       = "login"
	OpPost        = "post"
	OpClose       = "close"
	OpManualLink  = "generate_link"
	OpSubmissions = "submissions"
)

// Config wires a Service.
type Config struct {
	Registry      *session.Registry
	Authenticator *marketplace.Authenticator
	Submitter     *marketplace.Submitter
	Catalog       *marketplace.CatalogStore
	// Store is optional; without it nothing is audited.
	Store AuditStore
	// LoginAttemptsPerMinute of zero disables throttling.
	LoginAttemptsPerMinute float64
	LoginBurst             int
	Logger                 *observability.Logger
}

// Service implements init, login, post, close, generateManualLink and
// health.
type Service struct {
	registry *session.Registry
	auth     *marketplace.Authenticator
	submit   *marketplace.Submitter
	catalog  *marketplace.CatalogStore
	store    AuditStore
	throttle *loginThrottle
	logger   *observability.Logger
	now      func() time.Time
}

// NewService creates a service.
func NewService(cfg Config) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = observability.Discard()
	}
	catalog := cfg.Catalog
	if catalog == nil {
		catalog = marketplace.StaticCatalog(nil)
	}
	auth := cfg.Authenticator
	if auth == nil {
		auth = marketplace.NewAuthenticator(catalog, nil, 0, logger)
	}
	submit := cfg.Submitter
	if submit == nil {
		submit = marketplace.NewSubmitter(marketplace.SubmitterConfig{Catalog: catalog, Logger: logger})
	}
	return &Service{
		registry: cfg.Registry,
		auth:     auth,
		submit:   submit,
		catalog:  catalog,
		store:    cfg.Store,
		throttle: newLoginThrottle(cfg.LoginAttemptsPerMinute, cfg.LoginBurst),
		logger:   logger,
		now:      time.Now,
	}
}

// Init launches a browser session under sessionID, replacing any prior one.
func (s *Service) Init(ctx context.Context, sessionID string) Result {
	return s.run(ctx, OpInit, sessionID, func(ctx context.Context, id string) Result {
		if s.registry == nil {
			return failure(errors.New(errors.ErrCodeInitialization, "browser automation is not available").
				WithRemediation("Use generate-link to post manually"))
		}
		if _, err := s.registry.Create(ctx, id); err != nil {
			return failure(err)
		}
		return ok("Bot initialized")
	})
}

// Login signs the session in. Credentials are never logged or stored.
func (s *Service) Login(ctx context.Context, sessionID string, creds marketplace.Credentials) Result {
	return s.run(ctx, OpLogin, sessionID, func(ctx context.Context, id string) Result {
		if err := s.requireSession(id); err != nil {
			return failure(err)
		}
		if err := creds.Validate(); err != nil {
			return failure(err)
		}

		var outcome marketplace.LoginOutcome
		err := s.registry.Run(ctx, id, func(ctx context.Context, h *session.Handle) error {
			// Attempts rejected as busy never reach the throttle.
			if !s.throttle.Allow(id, s.now()) {
				return errors.New(errors.ErrCodeRateLimited, "too many login attempts").
					WithContext("session_id", id).
					WithRetryable(true).
					WithRemediation("Wait a minute before trying to log in again")
			}
			var err error
			outcome, err = s.auth.Login(ctx, h.Session(), creds)
			if err != nil {
				return err
			}
			h.MarkAuthenticated()
			return nil
		})
		if err != nil {
			return failure(err)
		}
		if outcome == marketplace.AlreadyAuthenticated {
			return ok("Already logged in")
		}
		return ok("Logged in")
	})
}

// Post submits listing through the session. Invalid listings are rejected
// before the browser is touched.
func (s *Service) Post(ctx context.Context, sessionID string, listing marketplace.Listing) Result {
	return s.run(ctx, OpPost, sessionID, func(ctx context.Context, id string) Result {
		if err := s.requireSession(id); err != nil {
			return failure(err)
		}
		listing = listing.Normalize()
		if err := listing.Validate(); err != nil {
			return failure(err)
		}
		observability.AddEvent(ctx, "listing.validated", observability.AttrCategory.String(listing.Category))

		var (
			report   marketplace.Report
			instance string
		)
		err := s.registry.Run(ctx, id, func(ctx context.Context, h *session.Handle) error {
			instance = h.Instance()
			report = s.submit.Submit(ctx, h.Session(), listing)
			return nil
		})
		if err != nil {
			return failure(err)
		}
		s.recordSubmission(id, instance, listing, report)
		return fromSubmission(report)
	})
}

// Close tears down the session. Closing an absent session succeeds.
func (s *Service) Close(ctx context.Context, sessionID string) Result {
	return s.run(ctx, OpClose, sessionID, func(ctx context.Context, id string) Result {
		if s.registry == nil {
			return ok("")
		}
		if err := s.registry.Close(ctx, id); err != nil {
			// The session is gone from the registry either way.
			s.logger.WithSession(id).Warn("close reported an error", slog.String("error", err.Error()))
		}
		return ok("")
	})
}

// GenerateManualLink returns the manual posting payload. It touches no
// session state and works without a browser.
func (s *Service) GenerateManualLink(listing marketplace.Listing) marketplace.ManualPost {
	start := time.Now()
	post := marketplace.ManualLink(s.catalog.Current(), listing)
	observability.ObserveOperation(OpManualLink, start, nil)
	return post
}

// Health reports liveness. A storage failure degrades but does not fail it.
func (s *Service) Health() Health {
	h := Health{Status: "ok"}
	if s.registry != nil {
		h.Sessions = s.registry.Count()
	}
	if s.store != nil {
		if err := s.store.Ping(); err != nil {
			h.Status = "degraded"
			h.Storage = "unavailable"
		} else {
			h.Storage = "ok"
		}
	}
	return h
}

// Sessions lists live sessions.
func (s *Service) Sessions() []session.Info {
	if s.registry == nil {
		return nil
	}
	return s.registry.List()
}

// Submissions lists recorded submissions, newest first. An empty sessionID
// lists all sessions.
func (s *Service) Submissions(ctx context.Context, sessionID string, limit int) ([]storage.Submission, error) {
	if s.store == nil {
		return nil, nil
	}
	if sessionID != "" {
		id, err := session.ResolveID(sessionID)
		if err != nil {
			return nil, err
		}
		sessionID = id
	}
	start := time.Now()
	subs, err := s.store.ListSubmissions(ctx, sessionID, limit)
	observability.ObserveOperation(OpSubmissions, start, err)
	return subs, err
}

func (s *Service) requireSession(id string) error {
	if s.registry == nil {
		return errors.New(errors.ErrCodeSessionNotFound, "Bot not initialized")
	}
	if _, found := s.registry.Get(id); !found {
		return errors.New(errors.ErrCodeSessionNotFound, "Bot not initialized").WithContext("session_id", id)
	}
	return nil
}

// run resolves the session key and wraps fn with tracing, metrics, logging
// and panic recovery.
func (s *Service) run(ctx context.Context, op, rawID string, fn func(context.Context, string) Result) (res Result) {
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()
	id, err := session.ResolveID(rawID)
	if err != nil {
		observability.ObserveOperation(op, start, err)
		return failure(err)
	}

	ctx, span := observability.StartSpan(ctx, "automation."+op)
	span.SetAttributes(
		observability.AttrOperation.String(op),
		observability.AttrSessionID.String(id),
	)
	defer span.End()
	logger := s.logger.WithContext(ctx).WithSession(id).WithOperation(op)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("operation panicked",
				slog.String("panic", fmt.Sprintf("%v", r)),
				slog.String("stack", string(debug.Stack())),
			)
			res = failure(errors.New(errors.ErrCodeInternal, "internal error").
				WithUserMessage(fmt.Sprintf("%s failed unexpectedly", op)))
		}

		var opErr error
		if !res.Success {
			opErr = errors.New(res.Code, res.Error)
			span.SetAttributes(observability.AttrErrorCode.String(string(res.Code)))
			observability.RecordError(ctx, opErr)
			logger.Warn("operation failed",
				slog.String("code", string(res.Code)),
				slog.String("error", res.Error),
				slog.Duration("duration", time.Since(start)),
			)
		} else {
			logger.Info("operation completed", slog.Duration("duration", time.Since(start)))
		}
		observability.ObserveOperation(op, start, opErr)
	}()

	return fn(ctx, id)
}

func (s *Service) recordSubmission(id, instance string, listing marketplace.Listing, report marketplace.Report) {
	if s.store == nil {
		return
	}
	res := report.Result()
	sub := &storage.Submission{
		SessionID:     id,
		InstanceID:    instance,
		Title:         listing.Title,
		Price:         listing.Price,
		Description:   listing.Description,
		Category:      listing.Category,
		ImageURL:      listing.ImageURL,
		Success:       res.Success,
		ListingURL:    res.ListingURL,
		Error:         res.Error,
		ImageAttached: report.ImageAttached,
		Duration:      report.Duration,
	}
	if !res.Success {
		sub.FailedPhase = string(report.Phase)
		if report.Err != nil {
			sub.ErrorCode = string(errors.GetCode(report.Err))
		}
	}
	// Detached from the request: the attempt is recorded even if the caller
	// went away.
	ctx, cancel := context.WithTimeout(context.Background(), auditWriteTimeout)
	defer cancel()
	if err := s.store.RecordSubmission(ctx, sub); err != nil {
		s.logger.WithSession(id).Warn("record submission failed", slog.String("error", err.Error()))
	}
}
