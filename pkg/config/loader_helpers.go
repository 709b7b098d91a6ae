package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// loadAndMerge loads a YAML file and merges it into the config.
func loadAndMerge(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var override Config
	if err := yaml.Unmarshal(data, &override); err != nil {
		return fmt.Errorf("parsing YAML: %w", err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parsing YAML: %w", err)
	}

	mergeConfigs(cfg, &override, raw)
	return nil
}

// mergeConfigs merges override into base. Zero values leave base untouched;
// booleans are applied only when the key is present in raw.
func mergeConfigs(base, override *Config, raw map[string]any) {
	if override == nil {
		return
	}

	setString(&base.Server.Bind, override.Server.Bind)
	if len(override.Server.AllowedOrigins) > 0 {
		base.Server.AllowedOrigins = append([]string(nil), override.Server.AllowedOrigins...)
	}
	if override.Server.ShutdownTimeout != 0 {
		base.Server.ShutdownTimeout = override.Server.ShutdownTimeout
	}
	if override.Server.MaxBodyBytes != 0 {
		base.Server.MaxBodyBytes = override.Server.MaxBodyBytes
	}

	if override.Browser.Engine != "" {
		base.Browser.Engine = strings.ToLower(strings.TrimSpace(override.Browser.Engine))
	}
	if boolFieldSet(raw, "browser", "headless") {
		base.Browser.Headless = override.Browser.Headless
	}
	if boolFieldSet(raw, "browser", "no_sandbox") {
		base.Browser.NoSandbox = override.Browser.NoSandbox
	}
	setString(&base.Browser.ExecPath, override.Browser.ExecPath)
	setString(&base.Browser.UserAgent, override.Browser.UserAgent)
	setString(&base.Browser.Locale, override.Browser.Locale)
	setString(&base.Browser.ProfileRoot, override.Browser.ProfileRoot)
	if override.Browser.ViewportWidth != 0 {
		base.Browser.ViewportWidth = override.Browser.ViewportWidth
	}
	if override.Browser.ViewportHeight != 0 {
		base.Browser.ViewportHeight = override.Browser.ViewportHeight
	}
	if override.Browser.LaunchTimeout != 0 {
		base.Browser.LaunchTimeout = override.Browser.LaunchTimeout
	}
	if override.Browser.OperationTimeout != 0 {
		base.Browser.OperationTimeout = override.Browser.OperationTimeout
	}
	if override.Browser.NavigationTimeout != 0 {
		base.Browser.NavigationTimeout = override.Browser.NavigationTimeout
	}
	if boolFieldSet(raw, "browser", "close_grace") {
		base.Browser.CloseGrace = override.Browser.CloseGrace
	}

	if boolFieldSet(raw, "registry", "max_sessions") {
		base.Registry.MaxSessions = override.Registry.MaxSessions
	}
	if override.Registry.IdleTimeout != 0 {
		base.Registry.IdleTimeout = override.Registry.IdleTimeout
	}
	if override.Registry.CleanupInterval != 0 {
		base.Registry.CleanupInterval = override.Registry.CleanupInterval
	}

	setString(&base.Marketplace.CatalogPath, override.Marketplace.CatalogPath)
	if boolFieldSet(raw, "marketplace", "watch_catalog") {
		base.Marketplace.WatchCatalog = override.Marketplace.WatchCatalog
	}
	if override.Marketplace.CategoryStrategy != "" {
		base.Marketplace.CategoryStrategy = strings.ToLower(strings.TrimSpace(override.Marketplace.CategoryStrategy))
	}
	if override.Marketplace.ImageFetchTimeout != 0 {
		base.Marketplace.ImageFetchTimeout = override.Marketplace.ImageFetchTimeout
	}
	if override.Marketplace.MaxImageBytes != 0 {
		base.Marketplace.MaxImageBytes = override.Marketplace.MaxImageBytes
	}
	if override.Marketplace.LoginTimeout != 0 {
		base.Marketplace.LoginTimeout = override.Marketplace.LoginTimeout
	}
	if override.Marketplace.SettleTimeout != 0 {
		base.Marketplace.SettleTimeout = override.Marketplace.SettleTimeout
	}
	if override.Marketplace.ReadyTimeout != 0 {
		base.Marketplace.ReadyTimeout = override.Marketplace.ReadyTimeout
	}
	// Zero disables throttling, so presence decides.
	if boolFieldSet(raw, "marketplace", "login_attempts_per_minute") {
		base.Marketplace.LoginAttemptsPerMinute = override.Marketplace.LoginAttemptsPerMinute
	}
	if boolFieldSet(raw, "marketplace", "login_burst") {
		base.Marketplace.LoginBurst = override.Marketplace.LoginBurst
	}

	setString(&base.Storage.Path, override.Storage.Path)

	if override.Bus.Driver != "" {
		base.Bus.Driver = strings.ToLower(strings.TrimSpace(override.Bus.Driver))
	}
	setString(&base.Bus.URL, override.Bus.URL)
	setString(&base.Bus.Name, override.Bus.Name)
	setString(&base.Bus.SubjectPrefix, override.Bus.SubjectPrefix)

	setString(&base.Telemetry.LogLevel, override.Telemetry.LogLevel)
	if boolFieldSet(raw, "telemetry", "tracing") {
		base.Telemetry.Tracing = override.Telemetry.Tracing
	}
}

func setString(dst *string, v string) {
	if strings.TrimSpace(v) != "" {
		*dst = strings.TrimSpace(v)
	}
}

// boolFieldSet reports whether the nested key path is present in raw YAML.
func boolFieldSet(raw map[string]any, path ...string) bool {
	if len(path) == 0 || raw == nil {
		return false
	}
	current := any(raw)
	for _, key := range path {
		m, ok := current.(map[string]any)
		if !ok {
			return false
		}
		val, ok := m[key]
		if !ok {
			return false
		}
		current = val
	}
	return true
}
