package sim

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/odvcencio/snaplist/pkg/browser"
)

// Upload records one file handed to a file input.
type Upload struct {
	Field    string
	Filename string
	MimeType string
	Size     int
}

// Session is a simulated tab. Each session carries its own flags, which play
// the role of a cookie jar.
type Session struct {
	id      string
	site    *Site
	runtime *Runtime

	mu      sync.Mutex
	closed  bool
	url     string
	flags   map[string]bool
	values  Values
	focused string
	uploads []Upload
	typed   []string
	keys    []browser.Key
	clicks  []string
}

var _ browser.Session = (*Session)(nil)

func (s *Session) ID() string {
	return s.id
}

// Navigate loads url, following redirects.
func (s *Session) Navigate(ctx context.Context, url string) error {
	if err := s.begin(ctx, "navigate", url); err != nil {
		return err
	}
	if err := s.site.navFailure(url); err != nil {
		return browser.NewAutomationError(browser.KindNavigation, "navigate", url, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	landed := s.site.resolve(url, s.flags)
	if _, ok := s.site.page(landed); !ok {
		return browser.NewAutomationError(browser.KindNavigation, "navigate", url, fmt.Errorf("no page at %s", landed))
	}
	s.url = landed
	s.focused = ""
	return nil
}

// WaitFor checks cond once. The page never changes on its own.
func (s *Session) WaitFor(ctx context.Context, cond browser.Condition, timeout time.Duration) error {
	if err := s.begin(ctx, "wait", cond.String()); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	switch cond.Kind {
	case browser.ConditionVisible:
		if _, err := s.find(cond.Target, true); err != nil {
			return browser.NewAutomationError(browser.KindSelectorNotFound, "wait", cond.String(), err)
		}
		return nil
	case browser.ConditionURLChanged:
		if s.url != cond.FromURL {
			return nil
		}
		return browser.NewAutomationError(browser.KindTimeout, "wait", cond.String(),
			fmt.Errorf("url still %s after %s: %w", s.url, timeout, context.DeadlineExceeded))
	default:
		if s.url == "" {
			return browser.NewAutomationError(browser.KindTimeout, "wait", cond.String(), context.DeadlineExceeded)
		}
		return nil
	}
}

func (s *Session) FillField(ctx context.Context, target browser.Target, value string) error {
	if err := s.begin(ctx, "fill", target.String()); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sel, err := s.find(target, true)
	if err != nil {
		return browser.NewAutomationError(browser.KindSelectorNotFound, "fill", target.String(), err)
	}
	key := elementKey(sel, target)
	s.values[key] = value
	s.focused = key
	return nil
}

func (s *Session) Click(ctx context.Context, target browser.Target) error {
	if err := s.begin(ctx, "click", target.String()); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	// Transitions are matched against the same parse as the clicked
	// element; goquery compares nodes by pointer.
	doc, err := s.document()
	if err != nil {
		return browser.NewAutomationError(browser.KindSelectorNotFound, "click", target.String(), err)
	}
	clicked, err := findIn(doc, target, true)
	if err != nil {
		return browser.NewAutomationError(browser.KindSelectorNotFound, "click", target.String(), err)
	}
	s.focused = elementKey(clicked, target)
	s.clicks = append(s.clicks, s.focused)

	for _, t := range s.site.transitionsAt(s.url) {
		candidates := matching(doc, t.Click)
		if candidates.Length() == 0 || !clicked.IsSelection(candidates) {
			continue
		}
		if t.Guard != nil && !t.Guard(s.snapshot()) {
			continue
		}
		if t.SetFlag != "" {
			s.flags[t.SetFlag] = true
		}
		if t.To != "" {
			s.url = s.site.resolve(t.To, s.flags)
			s.focused = ""
		}
		break
	}
	return nil
}

// UploadFile attaches data to a file input. Hidden inputs are accepted.
func (s *Session) UploadFile(ctx context.Context, target browser.Target, data []byte, filename, mimeType string) error {
	if err := s.begin(ctx, "upload", target.String()); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sel, err := s.find(target, false)
	if err != nil {
		return browser.NewAutomationError(browser.KindSelectorNotFound, "upload", target.String(), err)
	}
	if typ, _ := sel.Attr("type"); typ != "file" {
		return browser.NewAutomationError(browser.KindUnknown, "upload", target.String(), fmt.Errorf("element is not a file input"))
	}
	s.uploads = append(s.uploads, Upload{
		Field:    elementKey(sel, target),
		Filename: filename,
		MimeType: mimeType,
		Size:     len(data),
	})
	return nil
}

// TypeText appends text to the focused element's value.
func (s *Session) TypeText(ctx context.Context, text string) error {
	if err := s.begin(ctx, "type", ""); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.typed = append(s.typed, text)
	if s.focused != "" {
		s.values[s.focused] += text
	}
	return nil
}

func (s *Session) PressKey(ctx context.Context, key browser.Key) error {
	if err := s.begin(ctx, "press", string(key)); err != nil {
		return err
	}
	s.mu.Lock()
	s.keys = append(s.keys, key)
	s.mu.Unlock()
	return nil
}

func (s *Session) CurrentURL(ctx context.Context) (string, error) {
	if err := s.begin(ctx, "url", ""); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.url, nil
}

// Evaluate understands a handful of read-only expressions.
func (s *Session) Evaluate(ctx context.Context, expression string, out any) error {
	if err := s.begin(ctx, "evaluate", ""); err != nil {
		return err
	}
	s.mu.Lock()
	var value any
	switch strings.TrimSpace(expression) {
	case "location.href", "window.location.href", "document.URL":
		value = s.url
	case "document.title":
		if doc, err := s.document(); err == nil {
			value = strings.TrimSpace(doc.Find("title").First().Text())
		}
	case "document.readyState":
		value = "complete"
	default:
		s.mu.Unlock()
		return browser.NewAutomationError(browser.KindUnknown, "evaluate", "", fmt.Errorf("unsupported expression %q", expression))
	}
	s.mu.Unlock()
	if out == nil {
		return nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return browser.NewAutomationError(browser.KindUnknown, "evaluate", "", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return browser.NewAutomationError(browser.KindUnknown, "evaluate", "", err)
	}
	return nil
}

func (s *Session) HTML(ctx context.Context) (string, error) {
	if err := s.begin(ctx, "html", ""); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	html, _ := s.site.page(s.url)
	return html, nil
}

// Close is idempotent.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()
	s.runtime.release()
	return nil
}

// Closed reports whether Close has run.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Values returns a copy of every filled or typed value.
func (s *Session) Values() Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// Uploads returns the files attached so far.
func (s *Session) Uploads() []Upload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Upload(nil), s.uploads...)
}

// Typed returns every TypeText payload in order.
func (s *Session) Typed() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.typed...)
}

// Keys returns every pressed key in order.
func (s *Session) Keys() []browser.Key {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]browser.Key(nil), s.keys...)
}

// Clicks returns the keys of every clicked element in order.
func (s *Session) Clicks() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.clicks...)
}

// Flag reports whether the session has flag set.
func (s *Session) Flag(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flags[name]
}

// SetFlag sets a session flag directly, as a persisted login cookie would.
func (s *Session) SetFlag(name string) {
	s.mu.Lock()
	s.flags[name] = true
	s.mu.Unlock()
}

// begin applies latency and rejects closed sessions or ended contexts.
func (s *Session) begin(ctx context.Context, op, target string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if d := s.site.delay(); d > 0 {
		timer := time.NewTimer(d)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
		}
	}
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return browser.NewAutomationError(browser.KindUnknown, op, target, browser.ErrSessionClosed)
	}
	if err := ctx.Err(); err != nil {
		return browser.Classify(op, target, err, browser.KindTimeout)
	}
	return nil
}

func (s *Session) document() (*goquery.Document, error) {
	html, ok := s.site.page(s.url)
	if !ok {
		return nil, fmt.Errorf("no page loaded")
	}
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}

// find resolves target on the current page. Callers hold s.mu.
func (s *Session) find(target browser.Target, mustBeVisible bool) (*goquery.Selection, error) {
	doc, err := s.document()
	if err != nil {
		return nil, err
	}
	return findIn(doc, target, mustBeVisible)
}

func findIn(doc *goquery.Document, target browser.Target, mustBeVisible bool) (*goquery.Selection, error) {
	if target.IsZero() {
		return nil, fmt.Errorf("empty target")
	}
	sel := matching(doc, target)
	if mustBeVisible {
		sel = sel.FilterFunction(func(_ int, el *goquery.Selection) bool {
			return visible(el)
		})
	}
	if sel.Length() == 0 {
		return nil, fmt.Errorf("no element matches %s", target)
	}
	return sel.First(), nil
}

func (s *Session) snapshot() Values {
	out := make(Values, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

func matching(doc *goquery.Document, target browser.Target) *goquery.Selection {
	sel := doc.Find(target.CSS)
	if target.Text == "" {
		return sel
	}
	return sel.FilterFunction(func(_ int, el *goquery.Selection) bool {
		return strings.Contains(strings.TrimSpace(el.Text()), target.Text)
	})
}

func visible(el *goquery.Selection) bool {
	for node := el; node.Length() > 0; node = node.Parent() {
		if _, hidden := node.Attr("hidden"); hidden {
			return false
		}
		style, _ := node.Attr("style")
		if strings.Contains(strings.ReplaceAll(style, " ", ""), "display:none") {
			return false
		}
	}
	return true
}

func elementKey(el *goquery.Selection, target browser.Target) string {
	for _, attr := range []string{"name", "aria-label", "id"} {
		if v, ok := el.Attr(attr); ok && v != "" {
			return v
		}
	}
	if text := strings.TrimSpace(el.Text()); text != "" {
		return text
	}
	return target.String()
}
