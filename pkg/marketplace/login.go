package marketplace

import (
	"context"
	"time"

	"github.com/odvcencio/snaplist/pkg/browser"
	"github.com/odvcencio/snaplist/pkg/errors"
	"github.com/odvcencio/snaplist/pkg/observability"
)

// LoginOutcome says how a successful login was reached.
type LoginOutcome string

const (
	AlreadyAuthenticated LoginOutcome = "already_authenticated"
	Authenticated        LoginOutcome = "authenticated"
)

// Authenticator drives the login form.
type Authenticator struct {
	catalog  *CatalogStore
	detector LoginDetector
	timeout  time.Duration
	logger   *observability.Logger
}

// NewAuthenticator creates an authenticator. A nil detector uses
// URLPatternDetector over catalog.
func NewAuthenticator(catalog *CatalogStore, detector LoginDetector, timeout time.Duration, logger *observability.Logger) *Authenticator {
	if detector == nil {
		detector = URLPatternDetector{Catalog: catalog}
	}
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	if logger == nil {
		logger = observability.Discard()
	}
	return &Authenticator{catalog: catalog, detector: detector, timeout: timeout, logger: logger}
}

// Login opens the marketplace and signs in unless the session already is.
// Credentials are submitted at most once per call: a missing navigation after
// submit fails with AUTHENTICATION rather than trying again.
func (a *Authenticator) Login(ctx context.Context, sess browser.Session, creds Credentials) (LoginOutcome, error) {
	if err := creds.Validate(); err != nil {
		return "", err
	}
	cat := a.catalog.Current()

	if err := sess.Navigate(ctx, cat.HomeURL); err != nil {
		return "", errors.Wrap(err, codeForKind(err), "could not open the marketplace").
			WithContext("phase", "login").
			WithRetryable(browser.IsRetryableError(err))
	}
	loggedIn, err := a.detector.LoggedIn(ctx, sess)
	if err != nil {
		return "", errors.Wrap(err, codeForKind(err), "could not read login state")
	}
	if loggedIn {
		a.logger.Info("session already authenticated", "email", creds.Email)
		return AlreadyAuthenticated, nil
	}

	loginURL, err := sess.CurrentURL(ctx)
	if err != nil {
		return "", errors.Wrap(err, codeForKind(err), "could not read login page url")
	}
	if err := fill(ctx, sess, cat.Login.Email, creds.Email); err != nil {
		return "", loginFormError(err, "email")
	}
	if err := fill(ctx, sess, cat.Login.Password, creds.Password); err != nil {
		return "", loginFormError(err, "password")
	}
	if err := click(ctx, sess, cat.Login.Submit); err != nil {
		return "", loginFormError(err, "submit")
	}

	if err := sess.WaitFor(ctx, browser.URLChanged(loginURL), a.timeout); err != nil {
		if isCancellation(err) {
			return "", cancelled("login", err)
		}
		return "", errors.Wrap(err, errors.ErrCodeAuthentication, "login did not complete").
			WithContext("timeout", a.timeout.String()).
			WithUserMessage("Login did not complete. Check your email and password, then try again.").
			WithRemediation("Credentials are not resubmitted automatically")
	}
	loggedIn, err = a.detector.LoggedIn(ctx, sess)
	if err != nil {
		return "", errors.Wrap(err, codeForKind(err), "could not read login state")
	}
	if !loggedIn {
		return "", errors.New(errors.ErrCodeAuthentication, "credentials were rejected").
			WithUserMessage("The marketplace rejected the login. Check your email and password.")
	}
	a.logger.Info("session authenticated", "email", creds.Email)
	return Authenticated, nil
}

func loginFormError(err error, field string) error {
	return errors.Wrap(err, errors.ErrCodeAuthentication, "login form "+field+" field unavailable").
		WithContext("field", field).
		WithRemediation("The login page layout may have changed; update the selector catalog")
}
