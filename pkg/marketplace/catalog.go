package marketplace

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/odvcencio/snaplist/pkg/browser"
	"github.com/odvcencio/snaplist/pkg/errors"
	"github.com/odvcencio/snaplist/pkg/observability"
)

// FixedCondition is the condition every listing is posted with. It is not
// derived from the listing.
const FixedCondition = "Used - Like New"

// Catalog holds every URL, selector and heuristic used against the
// marketplace site. Target lists are tried in order until one matches.
type Catalog struct {
	HomeURL          string       `yaml:"home_url"`
	CreateURL        string       `yaml:"create_url"`
	LoginURLPatterns []string     `yaml:"login_url_patterns"`
	ItemURLPattern   string       `yaml:"item_url_pattern"`
	Login            LoginTargets `yaml:"login"`
	Form             FormTargets  `yaml:"form"`
}

// LoginTargets locate the login form.
type LoginTargets struct {
	Email    []browser.Target `yaml:"email"`
	Password []browser.Target `yaml:"password"`
	Submit   []browser.Target `yaml:"submit"`
}

// FormTargets locate the create-listing form. Option targets are templates:
// their Text is replaced by the value being chosen.
type FormTargets struct {
	Photo           []browser.Target `yaml:"photo"`
	Title           []browser.Target `yaml:"title"`
	Price           []browser.Target `yaml:"price"`
	Category        []browser.Target `yaml:"category"`
	CategoryOption  []browser.Target `yaml:"category_option"`
	Description     []browser.Target `yaml:"description"`
	Condition       []browser.Target `yaml:"condition"`
	ConditionOption []browser.Target `yaml:"condition_option"`
	Next            []browser.Target `yaml:"next"`
	Publish         []browser.Target `yaml:"publish"`
	Permalink       string           `yaml:"permalink"`
}

// DefaultCatalog returns the selectors known to work against the live site.
func DefaultCatalog() *Catalog {
	css := browser.CSSTarget
	text := browser.TextTarget
	return &Catalog{
		HomeURL:          "https://www.facebook.com/marketplace",
		CreateURL:        "https://www.facebook.com/marketplace/create/item",
		LoginURLPatterns: []string{"/login", "/checkpoint"},
		ItemURLPattern:   "/marketplace/item/",
		Login: LoginTargets{
			Email:    []browser.Target{css(`input[name="email"]`), css(`input#email`)},
			Password: []browser.Target{css(`input[name="pass"]`), css(`input[type="password"]`)},
			Submit:   []browser.Target{css(`button[name="login"]`), css(`[data-testid="royal_login_button"]`), text("button", "Log in")},
		},
		Form: FormTargets{
			Photo:           []browser.Target{css(`input[type="file"]`)},
			Title:           []browser.Target{css(`input[aria-label*="Title"]`), css(`label[aria-label*="Title"] input`)},
			Price:           []browser.Target{css(`input[aria-label*="Price"]`), css(`label[aria-label*="Price"] input`)},
			Category:        []browser.Target{css(`div[aria-label*="Category"]`), css(`label[aria-label*="Category"]`)},
			CategoryOption:  []browser.Target{css(`div[role="option"]`), css(`[role="listbox"] span`)},
			Description:     []browser.Target{css(`textarea[aria-label*="Description"]`), css(`label[aria-label*="Description"] textarea`)},
			Condition:       []browser.Target{css(`div[aria-label*="Condition"]`), css(`label[aria-label*="Condition"]`)},
			ConditionOption: []browser.Target{css(`div[role="option"]`), css(`[role="listbox"] span`)},
			Next:            []browser.Target{text(`div[role="button"]`, "Next"), text("button", "Next")},
			Publish:         []browser.Target{text(`div[role="button"]`, "Publish"), text("button", "Publish")},
			Permalink:       `a[href*="/marketplace/item/"]`,
		},
	}
}

// Validate checks that every required entry is present.
func (c *Catalog) Validate() error {
	if c == nil {
		return errors.New(errors.ErrCodeConfigInvalid, "catalog is nil")
	}
	var missing []string
	check := func(name string, ok bool) {
		if !ok {
			missing = append(missing, name)
		}
	}
	check("home_url", strings.TrimSpace(c.HomeURL) != "")
	check("create_url", strings.TrimSpace(c.CreateURL) != "")
	check("login_url_patterns", len(c.LoginURLPatterns) > 0)
	check("login.email", hasTarget(c.Login.Email))
	check("login.password", hasTarget(c.Login.Password))
	check("login.submit", hasTarget(c.Login.Submit))
	check("form.title", hasTarget(c.Form.Title))
	check("form.price", hasTarget(c.Form.Price))
	check("form.description", hasTarget(c.Form.Description))
	check("form.category", hasTarget(c.Form.Category))
	check("form.condition", hasTarget(c.Form.Condition))
	check("form.condition_option", hasTarget(c.Form.ConditionOption))
	check("form.next", hasTarget(c.Form.Next))
	check("form.publish", hasTarget(c.Form.Publish))
	if len(missing) == 0 {
		return nil
	}
	return errors.New(errors.ErrCodeConfigInvalid, "catalog is missing "+strings.Join(missing, ", "))
}

// IsLoginURL reports whether url matches a login page pattern.
func (c *Catalog) IsLoginURL(url string) bool {
	for _, p := range c.LoginURLPatterns {
		if p != "" && strings.Contains(url, p) {
			return true
		}
	}
	return false
}

// IsCreateURL reports whether url is still inside the create-listing flow.
func (c *Catalog) IsCreateURL(url string) bool {
	return c.CreateURL != "" && strings.HasPrefix(url, c.CreateURL)
}

// IsItemURL reports whether url is a published item page.
func (c *Catalog) IsItemURL(url string) bool {
	return c.ItemURLPattern != "" && strings.Contains(url, c.ItemURLPattern)
}

// permalinkSelector is the configured permalink selector, or any link
// containing ItemURLPattern.
func (c *Catalog) permalinkSelector() string {
	if strings.TrimSpace(c.Form.Permalink) != "" {
		return c.Form.Permalink
	}
	if c.ItemURLPattern == "" {
		return ""
	}
	return `a[href*="` + strings.ReplaceAll(c.ItemURLPattern, `"`, `\"`) + `"]`
}

// LoadCatalog reads a YAML catalog. Missing sections fall back to
// DefaultCatalog.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigLoad, "read catalog").WithContext("path", path)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes YAML over DefaultCatalog.
func ParseCatalog(data []byte) (*Catalog, error) {
	var file Catalog
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigParse, "parse catalog")
	}
	merged := DefaultCatalog()
	merged.merge(&file)
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	return merged, nil
}

func (c *Catalog) merge(o *Catalog) {
	setString(&c.HomeURL, o.HomeURL)
	setString(&c.CreateURL, o.CreateURL)
	setString(&c.ItemURLPattern, o.ItemURLPattern)
	if len(o.LoginURLPatterns) > 0 {
		c.LoginURLPatterns = o.LoginURLPatterns
	}
	setTargets(&c.Login.Email, o.Login.Email)
	setTargets(&c.Login.Password, o.Login.Password)
	setTargets(&c.Login.Submit, o.Login.Submit)
	setTargets(&c.Form.Photo, o.Form.Photo)
	setTargets(&c.Form.Title, o.Form.Title)
	setTargets(&c.Form.Price, o.Form.Price)
	setTargets(&c.Form.Category, o.Form.Category)
	setTargets(&c.Form.CategoryOption, o.Form.CategoryOption)
	setTargets(&c.Form.Description, o.Form.Description)
	setTargets(&c.Form.Condition, o.Form.Condition)
	setTargets(&c.Form.ConditionOption, o.Form.ConditionOption)
	setTargets(&c.Form.Next, o.Form.Next)
	setTargets(&c.Form.Publish, o.Form.Publish)
	setString(&c.Form.Permalink, o.Form.Permalink)
}

func setString(dst *string, v string) {
	if strings.TrimSpace(v) != "" {
		*dst = strings.TrimSpace(v)
	}
}

func setTargets(dst *[]browser.Target, v []browser.Target) {
	if hasTarget(v) {
		*dst = v
	}
}

func hasTarget(targets []browser.Target) bool {
	for _, t := range targets {
		if !t.IsZero() {
			return true
		}
	}
	return false
}

// CatalogStore serves the current catalog and swaps it atomically when the
// backing file changes.
type CatalogStore struct {
	path    string
	current atomic.Pointer[Catalog]
	logger  *observability.Logger
}

// NewCatalogStore loads path, or uses DefaultCatalog when path is empty.
func NewCatalogStore(path string, logger *observability.Logger) (*CatalogStore, error) {
	if logger == nil {
		logger = observability.Discard()
	}
	s := &CatalogStore{path: strings.TrimSpace(path), logger: logger}
	if s.path == "" {
		s.current.Store(DefaultCatalog())
		return s, nil
	}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// StaticCatalog wraps a fixed catalog.
func StaticCatalog(c *Catalog) *CatalogStore {
	s := &CatalogStore{logger: observability.Discard()}
	if c == nil {
		c = DefaultCatalog()
	}
	s.current.Store(c)
	return s
}

// Current returns the active catalog. Callers must not mutate it.
func (s *CatalogStore) Current() *Catalog {
	if s == nil {
		return DefaultCatalog()
	}
	if c := s.current.Load(); c != nil {
		return c
	}
	return DefaultCatalog()
}

// Reload re-reads the backing file. A bad file leaves the current catalog
// in place.
func (s *CatalogStore) Reload() error {
	if s.path == "" {
		return nil
	}
	c, err := LoadCatalog(s.path)
	if err != nil {
		return err
	}
	s.current.Store(c)
	return nil
}

// Watch reloads the catalog whenever its file is written, until ctx ends.
// The parent directory is watched so that editors that replace the file by
// rename are seen too.
func (s *CatalogStore) Watch(ctx context.Context) error {
	if s.path == "" {
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create catalog watcher: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	go func() {
		defer watcher.Close()
		const debounce = 200 * time.Millisecond
		var timer *time.Timer
		var fire <-chan time.Time
		target := filepath.Clean(s.path)
		for {
			select {
			case <-ctx.Done():
				if timer != nil {
					timer.Stop()
				}
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
					continue
				}
				if timer == nil {
					timer = time.NewTimer(debounce)
				} else {
					timer.Reset(debounce)
				}
				fire = timer.C
			case <-fire:
				fire = nil
				if err := s.Reload(); err != nil {
					s.logger.Warn("catalog reload failed, keeping previous catalog", "path", s.path, "error", err)
					continue
				}
				s.logger.Info("catalog reloaded", "path", s.path)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.logger.Warn("catalog watcher error", "error", err)
			}
		}
	}()
	return nil
}
