package marketplace

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/odvcencio/snaplist/pkg/browser"
	"github.com/odvcencio/snaplist/pkg/errors"
	"github.com/odvcencio/snaplist/pkg/observability"
)

// Phase names one step of a submission.
type Phase string

const (
	PhaseValidate    Phase = "validate"
	PhaseNavigate    Phase = "navigate"
	PhaseImage       Phase = "image"
	PhaseFields      Phase = "fields"
	PhaseCategory    Phase = "category"
	PhaseDescription Phase = "description"
	PhaseCondition   Phase = "condition"
	PhasePublish     Phase = "publish"
	PhaseDone        Phase = "done"
)

// SubmissionResult is the envelope returned to callers.
type SubmissionResult struct {
	Success    bool   `json:"success"`
	ListingURL string `json:"listingUrl,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Report is the full outcome of one submission attempt.
type Report struct {
	// Phase is the phase that failed, or PhaseDone.
	Phase         Phase
	ListingURL    string
	ImageAttached bool
	// ImageErr is set when the photo could not be fetched or attached. It
	// never fails the submission.
	ImageErr error
	Err      error
	Duration time.Duration
}

// Result converts the report into the caller envelope. A success always has
// a listing URL and a failure always has an error message.
func (r Report) Result() SubmissionResult {
	if r.Err != nil {
		msg := errors.Message(r.Err)
		if msg == "" {
			msg = "listing submission failed"
		}
		return SubmissionResult{Success: false, Error: msg}
	}
	if r.ListingURL == "" {
		return SubmissionResult{Success: false, Error: "listing was not confirmed"}
	}
	return SubmissionResult{Success: true, ListingURL: r.ListingURL}
}

// SubmitterConfig configures a Submitter.
type SubmitterConfig struct {
	Catalog  *CatalogStore
	Images   ImageFetcher
	Category CategoryStrategy
	// ReadyTimeout bounds the wait for the create form.
	ReadyTimeout time.Duration
	// SettleTimeout bounds the wait for the page to leave the form after
	// publishing.
	SettleTimeout time.Duration
	Logger        *observability.Logger
}

// Submitter drives the create-listing form. Every phase runs once; retrying
// a submission risks a duplicate listing, so that decision is left to the
// caller.
type Submitter struct {
	catalog  *CatalogStore
	images   ImageFetcher
	category CategoryStrategy
	ready    time.Duration
	settle   time.Duration
	logger   *observability.Logger
}

// NewSubmitter creates a submitter.
func NewSubmitter(cfg SubmitterConfig) *Submitter {
	s := &Submitter{
		catalog:  cfg.Catalog,
		images:   cfg.Images,
		category: cfg.Category,
		ready:    cfg.ReadyTimeout,
		settle:   cfg.SettleTimeout,
		logger:   cfg.Logger,
	}
	if s.catalog == nil {
		s.catalog = StaticCatalog(nil)
	}
	if s.category == nil {
		s.category = TypeAheadCategory{}
	}
	if s.ready <= 0 {
		s.ready = 30 * time.Second
	}
	if s.settle <= 0 {
		s.settle = 10 * time.Second
	}
	if s.logger == nil {
		s.logger = observability.Discard()
	}
	return s
}

// Submit posts listing through sess.
func (s *Submitter) Submit(ctx context.Context, sess browser.Session, listing Listing) Report {
	start := time.Now()
	report := s.submit(ctx, sess, listing.Normalize())
	report.Duration = time.Since(start)
	if report.Err != nil {
		observability.PhaseFailures.WithLabelValues(string(report.Phase), string(errors.GetCode(report.Err))).Inc()
		observability.RecordError(ctx, report.Err)
		s.logger.PhaseFailed(string(report.Phase), report.Err)
	}
	return report
}

func (s *Submitter) submit(ctx context.Context, sess browser.Session, listing Listing) Report {
	var report Report
	fail := func(phase Phase, err error) Report {
		report.Phase = phase
		report.Err = err
		return report
	}
	cat := s.catalog.Current()

	if err := listing.Validate(); err != nil {
		return fail(PhaseValidate, err)
	}
	if listing.Category != "" && !KnownCategory(listing.Category) {
		s.logger.Warn("category is not in the known vocabulary", "category", listing.Category)
	}

	s.phase(ctx, PhaseNavigate)
	if err := s.openForm(ctx, sess, cat); err != nil {
		return fail(PhaseNavigate, err)
	}

	if listing.ImageURL != "" {
		s.phase(ctx, PhaseImage)
		if err := s.attachImage(ctx, sess, cat, listing.ImageURL); err != nil {
			report.ImageErr = err
			observability.PhaseFailures.WithLabelValues(string(PhaseImage), "skipped").Inc()
			s.logger.Warn("continuing without image", "error", err)
		} else {
			report.ImageAttached = true
		}
	}

	s.phase(ctx, PhaseFields)
	if err := fill(ctx, sess, cat.Form.Title, listing.Title); err != nil {
		return fail(PhaseFields, phaseError(PhaseFields, "title field", err))
	}
	if err := fill(ctx, sess, cat.Form.Price, formatPrice(listing.Price)); err != nil {
		return fail(PhaseFields, phaseError(PhaseFields, "price field", err))
	}

	if listing.Category != "" {
		s.phase(ctx, PhaseCategory)
		if err := s.category.Select(ctx, sess, cat.Form, listing.Category); err != nil {
			return fail(PhaseCategory, phaseError(PhaseCategory, "category ("+s.category.Name()+")", err))
		}
	}

	s.phase(ctx, PhaseDescription)
	if err := fill(ctx, sess, cat.Form.Description, listing.Description); err != nil {
		return fail(PhaseDescription, phaseError(PhaseDescription, "description field", err))
	}

	s.phase(ctx, PhaseCondition)
	if err := click(ctx, sess, cat.Form.Condition); err != nil {
		return fail(PhaseCondition, phaseError(PhaseCondition, "condition control", err))
	}
	if err := click(ctx, sess, withText(cat.Form.ConditionOption, FixedCondition)); err != nil {
		return fail(PhaseCondition, phaseError(PhaseCondition, "condition option", err))
	}

	s.phase(ctx, PhasePublish)
	listingURL, err := s.publish(ctx, sess, cat)
	if err != nil {
		return fail(PhasePublish, err)
	}
	report.Phase = PhaseDone
	report.ListingURL = listingURL
	return report
}

func (s *Submitter) openForm(ctx context.Context, sess browser.Session, cat *Catalog) error {
	if err := sess.Navigate(ctx, cat.CreateURL); err != nil {
		if isCancellation(err) {
			return cancelled(string(PhaseNavigate), err)
		}
		return errors.Wrap(err, navigationCode(err), "could not open the listing form").
			WithRetryable(browser.IsRetryableError(err))
	}
	waitErr := tryTargets(cat.Form.Title, func(t browser.Target) error {
		return sess.WaitFor(ctx, browser.Visible(t), s.ready)
	})
	if waitErr == nil {
		return nil
	}
	if isCancellation(waitErr) || stderrors.Is(ctx.Err(), context.Canceled) {
		return cancelled(string(PhaseNavigate), waitErr)
	}
	if url, err := sess.CurrentURL(ctx); err == nil && cat.IsLoginURL(url) {
		return errors.New(errors.ErrCodeAuthentication, "session is not logged in").
			WithContext("url", url).
			WithUserMessage("The marketplace session is not logged in. Log in and post again.")
	}
	return errors.Wrap(waitErr, navigationCode(waitErr), "listing form did not become ready").
		WithContext("timeout", s.ready.String()).
		WithRetryable(true)
}

func (s *Submitter) attachImage(ctx context.Context, sess browser.Session, cat *Catalog, imageURL string) error {
	if s.images == nil {
		return errors.New(errors.ErrCodeInternal, "no image fetcher configured")
	}
	data, err := s.images.Fetch(ctx, imageURL)
	if err != nil {
		return err
	}
	return tryTargets(cat.Form.Photo, func(t browser.Target) error {
		return sess.UploadFile(ctx, t, data, ImageFilename, ImageMimeType)
	})
}

// publish clicks through Next and Publish and confirms that the listing
// exists: either the page left the create form, or the page links to the
// new item.
func (s *Submitter) publish(ctx context.Context, sess browser.Session, cat *Catalog) (string, error) {
	if err := click(ctx, sess, cat.Form.Next); err != nil {
		return "", phaseError(PhasePublish, "next button", err)
	}
	err := tryTargets(cat.Form.Publish, func(t browser.Target) error {
		return sess.WaitFor(ctx, browser.Visible(t), s.settle)
	})
	if err != nil {
		return "", phaseError(PhasePublish, "publish button", err)
	}
	before, err := sess.CurrentURL(ctx)
	if err != nil {
		return "", phaseError(PhasePublish, "current url", err)
	}
	if err := click(ctx, sess, cat.Form.Publish); err != nil {
		return "", phaseError(PhasePublish, "publish button", err)
	}

	waitErr := sess.WaitFor(ctx, browser.URLChanged(before), s.settle)
	final, err := sess.CurrentURL(ctx)
	if err != nil {
		return "", phaseError(PhasePublish, "current url", err)
	}
	left := waitErr == nil && final != "" && !cat.IsCreateURL(final) && !cat.IsLoginURL(final)
	if left && cat.IsItemURL(final) {
		return final, nil
	}
	// Off the item page, prefer a link to the new item over the landing URL.
	if html, err := sess.HTML(ctx); err == nil {
		if permalink, ok := findPermalink(html, cat.permalinkSelector(), final); ok {
			return permalink, nil
		}
	}
	if left {
		s.logger.Info("publish landed outside an item page", "url", final)
		return final, nil
	}
	if waitErr != nil {
		return "", errors.Wrap(waitErr, errors.ErrCodeTimeout, "listing was not confirmed after publishing").
			WithContext("url", final).
			WithUserMessage("The listing was not confirmed. Check your marketplace drafts before posting again.")
	}
	return "", errors.New(errors.ErrCodeNavigation, "listing was not confirmed: page stayed on "+final).
		WithUserMessage("The listing was not confirmed. Check your marketplace drafts before posting again.")
}

func (s *Submitter) phase(ctx context.Context, p Phase) {
	observability.AddEvent(ctx, "submission.phase", observability.AttrPhase.String(string(p)))
}

func phaseError(phase Phase, what string, err error) error {
	if isCancellation(err) {
		return cancelled(string(phase), err)
	}
	return errors.Wrap(err, codeForKind(err), what+" failed").
		WithContext("phase", string(phase)).
		WithRetryable(browser.IsRetryableError(err))
}

func navigationCode(err error) errors.ErrorCode {
	if code := codeForKind(err); code == errors.ErrCodeInternal || code == errors.ErrCodeCancelled {
		return code
	}
	return errors.ErrCodeNavigation
}
