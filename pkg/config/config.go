package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Engine names accepted by browser.engine.
const (
	EngineChromedp = "chromedp"
	EngineSim      = "sim"
)

// Bus driver names accepted by bus.driver.
const (
	BusMemory = "memory"
	BusNATS   = "nats"
)

// DefaultUserAgent is the desktop Chrome UA sent by every browser session.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

// Config holds all snaplist configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Browser     BrowserConfig     `yaml:"browser"`
	Registry    RegistryConfig    `yaml:"registry"`
	Marketplace MarketplaceConfig `yaml:"marketplace"`
	Storage     StorageConfig     `yaml:"storage"`
	Bus         BusConfig         `yaml:"bus"`
	Telemetry   TelemetryConfig   `yaml:"telemetry"`
}

// ServerConfig controls the HTTP control surface.
type ServerConfig struct {
	Bind            string        `yaml:"bind"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes"`
}

// BrowserConfig controls the browser engine and its timeouts.
type BrowserConfig struct {
	Engine            string        `yaml:"engine"`
	Headless          bool          `yaml:"headless"`
	ExecPath          string        `yaml:"exec_path"`
	NoSandbox         bool          `yaml:"no_sandbox"`
	UserAgent         string        `yaml:"user_agent"`
	ViewportWidth     int           `yaml:"viewport_width"`
	ViewportHeight    int           `yaml:"viewport_height"`
	Locale            string        `yaml:"locale"`
	LaunchTimeout     time.Duration `yaml:"launch_timeout"`
	OperationTimeout  time.Duration `yaml:"operation_timeout"`
	NavigationTimeout time.Duration `yaml:"navigation_timeout"`
	CloseGrace        time.Duration `yaml:"close_grace"`
	ProfileRoot       string        `yaml:"profile_root"`
}

// RegistryConfig bounds the live session pool.
type RegistryConfig struct {
	MaxSessions     int           `yaml:"max_sessions"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// MarketplaceConfig controls the login and submission steps.
type MarketplaceConfig struct {
	CatalogPath            string        `yaml:"catalog_path"`
	WatchCatalog           bool          `yaml:"watch_catalog"`
	CategoryStrategy       string        `yaml:"category_strategy"`
	ImageFetchTimeout      time.Duration `yaml:"image_fetch_timeout"`
	MaxImageBytes          int64         `yaml:"max_image_bytes"`
	LoginTimeout           time.Duration `yaml:"login_timeout"`
	SettleTimeout          time.Duration `yaml:"settle_timeout"`
	ReadyTimeout           time.Duration `yaml:"ready_timeout"`
	LoginAttemptsPerMinute float64       `yaml:"login_attempts_per_minute"`
	LoginBurst             int           `yaml:"login_burst"`
}

// StorageConfig locates the audit database.
type StorageConfig struct {
	Path string `yaml:"path"`
}

// BusConfig selects where lifecycle events are published.
type BusConfig struct {
	Driver        string `yaml:"driver"`
	URL           string `yaml:"url"`
	Name          string `yaml:"name"`
	SubjectPrefix string `yaml:"subject_prefix"`
}

// TelemetryConfig controls logging and tracing.
type TelemetryConfig struct {
	LogLevel string `yaml:"log_level"`
	Tracing  bool   `yaml:"tracing"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Bind:            "127.0.0.1:3001",
			ShutdownTimeout: 5 * time.Second,
			MaxBodyBytes:    1 << 20,
		},
		Browser: BrowserConfig{
			Engine:            EngineChromedp,
			Headless:          true,
			NoSandbox:         true,
			UserAgent:         DefaultUserAgent,
			ViewportWidth:     1280,
			ViewportHeight:    720,
			Locale:            "en-US",
			LaunchTimeout:     30 * time.Second,
			OperationTimeout:  15 * time.Second,
			NavigationTimeout: 30 * time.Second,
			CloseGrace:        5 * time.Second,
		},
		Registry: RegistryConfig{
			MaxSessions:     8,
			IdleTimeout:     30 * time.Minute,
			CleanupInterval: time.Minute,
		},
		Marketplace: MarketplaceConfig{
			CategoryStrategy:       "typeahead",
			ImageFetchTimeout:      10 * time.Second,
			MaxImageBytes:          10 << 20,
			LoginTimeout:           20 * time.Second,
			SettleTimeout:          10 * time.Second,
			ReadyTimeout:           15 * time.Second,
			LoginAttemptsPerMinute: 3,
			LoginBurst:             2,
		},
		Storage: StorageConfig{
			Path: defaultStoragePath(),
		},
		Bus: BusConfig{
			Driver:        BusMemory,
			URL:           "nats://localhost:4222",
			Name:          "snaplist",
			SubjectPrefix: "snaplist",
		},
		Telemetry: TelemetryConfig{
			LogLevel: "info",
		},
	}
}

func defaultStoragePath() string {
	home, err := os.UserHomeDir()
	if err != nil || strings.TrimSpace(home) == "" {
		return filepath.Join(".snaplist", "snaplist.db")
	}
	return filepath.Join(home, ".snaplist", "snaplist.db")
}

// Load loads configuration from ~/.snaplist/config.yaml, then
// ./.snaplist/config.yaml, then SNAPLIST_* environment variables.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	home, err := os.UserHomeDir()
	if err != nil {
		home = os.Getenv("HOME")
	}
	if home != "" {
		userConfigPath := filepath.Join(home, ".snaplist", "config.yaml")
		if err := loadAndMerge(cfg, userConfigPath); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("loading user config: %w", err)
		}
	}

	projectConfigPath := filepath.Join(".", ".snaplist", "config.yaml")
	if err := loadAndMerge(cfg, projectConfigPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("loading project config: %w", err)
	}

	applyEnvOverrides(cfg)
	cfg.expandPaths()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// LoadFromPath loads configuration from a specific file path
func LoadFromPath(path string) (*Config, error) {
	cfg := DefaultConfig()

	if err := loadAndMerge(cfg, path); err != nil {
		return nil, fmt.Errorf("loading config from %s: %w", path, err)
	}

	applyEnvOverrides(cfg)
	cfg.expandPaths()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("SNAPLIST_BIND")); v != "" {
		cfg.Server.Bind = v
	}
	if v := os.Getenv("SNAPLIST_ALLOWED_ORIGINS"); v != "" {
		cfg.Server.AllowedOrigins = splitCommaList(v)
	}
	if v := strings.TrimSpace(os.Getenv("SNAPLIST_ENGINE")); v != "" {
		cfg.Browser.Engine = strings.ToLower(v)
	}
	if val, ok := envBool("SNAPLIST_HEADLESS"); ok {
		cfg.Browser.Headless = val
	}
	if v := strings.TrimSpace(os.Getenv("SNAPLIST_CHROME_PATH")); v != "" {
		cfg.Browser.ExecPath = v
	}
	if v := strings.TrimSpace(os.Getenv("SNAPLIST_MAX_SESSIONS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.Registry.MaxSessions = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("SNAPLIST_CATALOG_PATH")); v != "" {
		cfg.Marketplace.CatalogPath = v
	}
	if v := strings.TrimSpace(os.Getenv("SNAPLIST_DB_PATH")); v != "" {
		cfg.Storage.Path = v
	}
	if v := strings.TrimSpace(os.Getenv("SNAPLIST_BUS_DRIVER")); v != "" {
		cfg.Bus.Driver = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv("SNAPLIST_NATS_URL")); v != "" {
		cfg.Bus.URL = v
	}
	if v := strings.TrimSpace(os.Getenv("SNAPLIST_LOG_LEVEL")); v != "" {
		cfg.Telemetry.LogLevel = v
	}
	if val, ok := envBool("SNAPLIST_TRACING"); ok {
		cfg.Telemetry.Tracing = val
	}
}

func (c *Config) expandPaths() {
	c.Browser.ExecPath = expandHomeDir(c.Browser.ExecPath)
	c.Browser.ProfileRoot = expandHomeDir(c.Browser.ProfileRoot)
	c.Marketplace.CatalogPath = expandHomeDir(c.Marketplace.CatalogPath)
	if c.Storage.Path != ":memory:" {
		c.Storage.Path = expandHomeDir(c.Storage.Path)
	}
}

func splitCommaList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

func envBool(key string) (bool, bool) {
	val := os.Getenv(key)
	if val == "" {
		return false, false
	}
	switch strings.ToLower(val) {
	case "1", "true", "yes", "on":
		return true, true
	case "0", "false", "no", "off":
		return false, true
	default:
		return false, false
	}
}

// IsLoopbackBind reports whether the server only listens on a loopback address.
func (c *Config) IsLoopbackBind() bool {
	return isLoopbackBindAddress(c.Server.Bind)
}

func isLoopbackBindAddress(addr string) bool {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return false
	}

	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}
	host = strings.TrimSpace(host)
	if host == "" {
		return false
	}
	switch strings.ToLower(host) {
	case "localhost":
		return true
	case "0.0.0.0", "::":
		return false
	default:
		ip := net.ParseIP(host)
		if ip == nil {
			return false
		}
		return ip.IsLoopback()
	}
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Server.Bind) == "" {
		return fmt.Errorf("server.bind is required")
	}
	if _, _, err := net.SplitHostPort(c.Server.Bind); err != nil {
		return fmt.Errorf("invalid server.bind %q: %w", c.Server.Bind, err)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be positive")
	}
	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("server.max_body_bytes must be positive")
	}

	switch c.Browser.Engine {
	case EngineChromedp, EngineSim:
	default:
		return fmt.Errorf("invalid browser.engine: %s (must be chromedp or sim)", c.Browser.Engine)
	}
	if c.Browser.ViewportWidth <= 0 || c.Browser.ViewportHeight <= 0 {
		return fmt.Errorf("browser viewport must be positive, got %dx%d", c.Browser.ViewportWidth, c.Browser.ViewportHeight)
	}
	for name, d := range map[string]time.Duration{
		"browser.launch_timeout":          c.Browser.LaunchTimeout,
		"browser.operation_timeout":       c.Browser.OperationTimeout,
		"browser.navigation_timeout":      c.Browser.NavigationTimeout,
		"marketplace.image_fetch_timeout": c.Marketplace.ImageFetchTimeout,
		"marketplace.login_timeout":       c.Marketplace.LoginTimeout,
		"marketplace.settle_timeout":      c.Marketplace.SettleTimeout,
		"marketplace.ready_timeout":       c.Marketplace.ReadyTimeout,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	if c.Browser.CloseGrace < 0 {
		return fmt.Errorf("browser.close_grace must be zero or positive")
	}

	if c.Registry.MaxSessions < 0 {
		return fmt.Errorf("registry.max_sessions must be zero (unbounded) or positive")
	}
	if c.Registry.IdleTimeout < 0 || c.Registry.CleanupInterval < 0 {
		return fmt.Errorf("registry timeouts must be zero or positive")
	}

	switch c.Marketplace.CategoryStrategy {
	case "typeahead", "option":
	default:
		return fmt.Errorf("invalid marketplace.category_strategy: %s (must be typeahead or option)", c.Marketplace.CategoryStrategy)
	}
	if c.Marketplace.MaxImageBytes <= 0 {
		return fmt.Errorf("marketplace.max_image_bytes must be positive")
	}
	if c.Marketplace.LoginAttemptsPerMinute < 0 || c.Marketplace.LoginBurst < 0 {
		return fmt.Errorf("marketplace login throttle must be zero (disabled) or positive")
	}
	if c.Marketplace.WatchCatalog && strings.TrimSpace(c.Marketplace.CatalogPath) == "" {
		return fmt.Errorf("marketplace.watch_catalog requires marketplace.catalog_path")
	}

	if strings.TrimSpace(c.Storage.Path) == "" {
		return fmt.Errorf("storage.path is required")
	}

	switch c.Bus.Driver {
	case BusMemory:
	case BusNATS:
		if strings.TrimSpace(c.Bus.URL) == "" {
			return fmt.Errorf("bus.url is required for the nats driver")
		}
	default:
		return fmt.Errorf("invalid bus.driver: %s (must be memory or nats)", c.Bus.Driver)
	}

	switch strings.ToLower(c.Telemetry.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid telemetry.log_level: %s", c.Telemetry.LogLevel)
	}

	return nil
}

// ValidationWarnings returns non-fatal configuration concerns.
func (c *Config) ValidationWarnings() []string {
	var warnings []string
	if !c.IsLoopbackBind() && len(c.Server.AllowedOrigins) == 0 {
		warnings = append(warnings, fmt.Sprintf("server.bind %s is not loopback and no allowed_origins are set; the control surface accepts credentials", c.Server.Bind))
	}
	if c.Browser.Engine == EngineSim {
		warnings = append(warnings, "browser.engine is sim; listings are not posted to the real marketplace")
	}
	if c.Registry.MaxSessions == 0 {
		warnings = append(warnings, "registry.max_sessions is 0; the number of browsers is unbounded")
	}
	if c.Marketplace.LoginAttemptsPerMinute == 0 {
		warnings = append(warnings, "login throttling is disabled")
	}
	return warnings
}

func expandHomeDir(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}
	if path == "~" {
		if home, err := os.UserHomeDir(); err == nil && strings.TrimSpace(home) != "" {
			return home
		}
		return path
	}
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil && strings.TrimSpace(home) != "" {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
