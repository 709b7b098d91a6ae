package chrome

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"

	"github.com/odvcencio/snaplist/pkg/browser"
)

const refAttribute = "data-snaplist-ref"

// locateScript tags the first element matching css whose visible text
// contains text, so later actions can address it with a plain selector.
const locateScript = `(function(css, text, attr, ref) {
  var nodes = document.querySelectorAll(css);
  for (var i = 0; i < nodes.length; i++) {
    var el = nodes[i];
    var content = (el.innerText || el.textContent || "").trim();
    if (content.indexOf(text) !== -1) {
      el.setAttribute(attr, ref);
      return true;
    }
  }
  return false;
})(%s, %s, %s, %s)`

// Session is a chromedp-backed browser session.
type Session struct {
	id     string
	cfg    Config
	mu     sync.Mutex
	closed bool

	tabCtx      context.Context
	tabCancel   context.CancelFunc
	allocCancel context.CancelFunc
	profileDir  string
	uploads     atomic.Uint64
	refs        atomic.Uint64
	metrics     *browser.Metrics
}

// ID returns the session identifier.
func (s *Session) ID() string {
	if s == nil {
		return ""
	}
	return s.id
}

// Navigate loads url and waits for the load event.
func (s *Session) Navigate(ctx context.Context, url string) error {
	err := s.run(ctx, s.cfg.NavigationTimeout, chromedp.Navigate(url))
	if err != nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) && !errors.Is(err, browser.ErrSessionClosed) {
		err = browser.NewAutomationError(browser.KindNavigation, "navigate", url, err)
	}
	return s.metrics.RecordPrimitive("navigate", browser.Classify("navigate", url, err, browser.KindTimeout))
}

// WaitFor blocks until cond holds or timeout elapses.
func (s *Session) WaitFor(ctx context.Context, cond browser.Condition, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = s.cfg.OperationTimeout
	}
	ctx, cancel := withTimeout(ctx, timeout)
	defer cancel()

	var err error
	switch cond.Kind {
	case browser.ConditionVisible:
		var sel string
		if sel, err = s.locate(ctx, cond.Target); err == nil {
			err = s.run(ctx, timeout, chromedp.WaitVisible(sel, chromedp.ByQuery))
		}
		err = browser.Classify("wait", cond.Target.String(), err, browser.KindSelectorNotFound)
	case browser.ConditionURLChanged:
		err = s.poll(ctx, func(pollCtx context.Context) (bool, error) {
			var current string
			if err := s.run(pollCtx, timeout, chromedp.Location(&current)); err != nil {
				return false, err
			}
			return current != "" && current != cond.FromURL, nil
		})
		err = browser.Classify("wait", cond.String(), err, browser.KindTimeout)
	default:
		err = s.run(ctx, timeout, chromedp.WaitReady("body", chromedp.ByQuery))
		err = browser.Classify("wait", cond.String(), err, browser.KindTimeout)
	}
	return s.metrics.RecordPrimitive("wait", err)
}

// FillField replaces the value of an input by typing into it.
func (s *Session) FillField(ctx context.Context, target browser.Target, value string) error {
	sel, err := s.resolveVisible(ctx, target)
	if err == nil {
		err = s.run(ctx, s.cfg.OperationTimeout,
			chromedp.SetValue(sel, "", chromedp.ByQuery),
			chromedp.SendKeys(sel, value, chromedp.ByQuery),
		)
		err = browser.Classify("fill", target.String(), err, browser.KindTimeout)
	}
	return s.metrics.RecordPrimitive("fill", err)
}

// Click clicks the first visible element matching target.
func (s *Session) Click(ctx context.Context, target browser.Target) error {
	sel, err := s.resolveVisible(ctx, target)
	if err == nil {
		err = s.run(ctx, s.cfg.OperationTimeout, chromedp.Click(sel, chromedp.ByQuery, chromedp.NodeVisible))
		err = browser.Classify("click", target.String(), err, browser.KindTimeout)
	}
	return s.metrics.RecordPrimitive("click", err)
}

// UploadFile writes data into the session's private directory and attaches
// it to a file input. The file lives until the session closes because Chrome
// reads it lazily.
func (s *Session) UploadFile(ctx context.Context, target browser.Target, data []byte, filename, mimeType string) error {
	err := s.upload(ctx, target, data, filename)
	return s.metrics.RecordPrimitive("upload", err)
}

func (s *Session) upload(ctx context.Context, target browser.Target, data []byte, filename string) error {
	if err := s.ensureOpen(); err != nil {
		return browser.Classify("upload", target.String(), err, browser.KindUnknown)
	}
	dir := filepath.Join(s.profileDir, "uploads", fmt.Sprintf("%d", s.uploads.Add(1)))
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return browser.NewAutomationError(browser.KindUnknown, "upload", target.String(), err)
	}
	name := filepath.Base(strings.TrimSpace(filename))
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = "upload.bin"
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return browser.NewAutomationError(browser.KindUnknown, "upload", target.String(), err)
	}

	sel, err := s.locate(ctx, target)
	if err == nil {
		// File inputs are usually hidden, so only wait for presence.
		err = s.run(ctx, s.cfg.OperationTimeout, chromedp.WaitReady(sel, chromedp.ByQuery))
	}
	if err != nil {
		return browser.Classify("upload", target.String(), err, browser.KindSelectorNotFound)
	}
	err = s.run(ctx, s.cfg.OperationTimeout, chromedp.SetUploadFiles(sel, []string{path}, chromedp.ByQuery))
	return browser.Classify("upload", target.String(), err, browser.KindTimeout)
}

// TypeText sends text as keystrokes to the focused element.
func (s *Session) TypeText(ctx context.Context, text string) error {
	err := s.run(ctx, s.cfg.OperationTimeout, chromedp.KeyEvent(text))
	return s.metrics.RecordPrimitive("type", browser.Classify("type", "", err, browser.KindTimeout))
}

// PressKey presses a single named key.
func (s *Session) PressKey(ctx context.Context, key browser.Key) error {
	err := s.run(ctx, s.cfg.OperationTimeout, chromedp.KeyEvent(keySequence(key)))
	return s.metrics.RecordPrimitive("press", browser.Classify("press", string(key), err, browser.KindTimeout))
}

func keySequence(key browser.Key) string {
	switch key {
	case browser.KeyEnter:
		return kb.Enter
	case browser.KeyTab:
		return kb.Tab
	case browser.KeyEscape:
		return kb.Escape
	}
	return string(key)
}

// CurrentURL returns the page URL.
func (s *Session) CurrentURL(ctx context.Context) (string, error) {
	var url string
	err := s.run(ctx, s.cfg.OperationTimeout, chromedp.Location(&url))
	return url, s.metrics.RecordPrimitive("url", browser.Classify("url", "", err, browser.KindTimeout))
}

// Evaluate runs expression in the page and decodes its result into out.
func (s *Session) Evaluate(ctx context.Context, expression string, out any) error {
	err := s.run(ctx, s.cfg.OperationTimeout, chromedp.Evaluate(expression, out))
	return s.metrics.RecordPrimitive("evaluate", browser.Classify("evaluate", "", err, browser.KindTimeout))
}

// HTML returns the serialized document.
func (s *Session) HTML(ctx context.Context) (string, error) {
	var html string
	err := s.run(ctx, s.cfg.OperationTimeout, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	return html, s.metrics.RecordPrimitive("html", browser.Classify("html", "", err, browser.KindTimeout))
}

// Close asks Chrome to exit, kills it after the grace period, and removes the
// profile directory. Safe to call more than once.
func (s *Session) Close() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		_ = chromedp.Cancel(s.tabCtx)
		close(done)
	}()
	grace := time.NewTimer(s.cfg.CloseGrace)
	select {
	case <-done:
	case <-grace.C:
	}
	grace.Stop()

	s.tabCancel()
	s.allocCancel()

	if s.profileDir != "" {
		if err := os.RemoveAll(s.profileDir); err != nil {
			return fmt.Errorf("remove profile dir: %w", err)
		}
	}
	return nil
}

func (s *Session) ensureOpen() error {
	if s == nil || s.tabCtx == nil {
		return browser.ErrUnavailable
	}
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return browser.ErrSessionClosed
	}
	return nil
}

// run executes actions on the tab, bounded by timeout and by ctx. The tab
// context itself is never cancelled here; that would close the browser.
func (s *Session) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	if err := s.ensureOpen(); err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if timeout <= 0 {
		timeout = s.cfg.OperationTimeout
	}
	runCtx, cancel := context.WithTimeout(s.tabCtx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (s *Session) resolveVisible(ctx context.Context, target browser.Target) (string, error) {
	sel, err := s.locate(ctx, target)
	if err == nil {
		err = s.run(ctx, s.cfg.OperationTimeout, chromedp.WaitVisible(sel, chromedp.ByQuery))
	}
	if err != nil {
		return "", browser.Classify("locate", target.String(), err, browser.KindSelectorNotFound)
	}
	return sel, nil
}

// locate turns a target into a CSS selector. Text targets are resolved in
// the page by polling until the element appears.
func (s *Session) locate(ctx context.Context, target browser.Target) (string, error) {
	if target.IsZero() {
		return "", browser.NewAutomationError(browser.KindSelectorNotFound, "locate", "", errors.New("empty target"))
	}
	if target.Text == "" {
		return target.CSS, nil
	}

	ref := fmt.Sprintf("sl-%d", s.refs.Add(1))
	script := fmt.Sprintf(locateScript, jsString(target.CSS), jsString(target.Text), jsString(refAttribute), jsString(ref))

	ctx, cancel := withTimeout(ctx, s.cfg.OperationTimeout)
	defer cancel()
	err := s.poll(ctx, func(pollCtx context.Context) (bool, error) {
		var found bool
		if err := s.run(pollCtx, s.cfg.OperationTimeout, chromedp.Evaluate(script, &found)); err != nil {
			return false, err
		}
		return found, nil
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`[%s=%q]`, refAttribute, ref), nil
}

// poll calls check until it reports true, returns an error other than a
// per-attempt deadline, or ctx ends.
func (s *Session) poll(ctx context.Context, check func(context.Context) (bool, error)) error {
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()
	for {
		ok, err := check(ctx)
		if err != nil && !errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) <= timeout {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

func jsString(v string) string {
	b, _ := json.Marshal(v)
	return string(b)
}
