package chrome

import (
	"errors"
	"strings"
	"time"
)

// Config controls how the chromedp adapter launches Chrome.
type Config struct {
	// ExecPath overrides Chrome discovery when set.
	ExecPath          string
	Headless          bool
	NoSandbox         bool
	ProfileRoot       string
	LaunchTimeout     time.Duration
	OperationTimeout  time.Duration
	NavigationTimeout time.Duration
	CloseGrace        time.Duration
	PollInterval      time.Duration
}

// DefaultConfig returns the default adapter configuration.
func DefaultConfig() Config {
	return Config{
		Headless:          true,
		NoSandbox:         true,
		LaunchTimeout:     30 * time.Second,
		OperationTimeout:  15 * time.Second,
		NavigationTimeout: 30 * time.Second,
		CloseGrace:        5 * time.Second,
		PollInterval:      200 * time.Millisecond,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	out := c
	out.ExecPath = strings.TrimSpace(c.ExecPath)
	out.ProfileRoot = strings.TrimSpace(c.ProfileRoot)
	if c.LaunchTimeout == 0 {
		out.LaunchTimeout = defaults.LaunchTimeout
	}
	if c.OperationTimeout == 0 {
		out.OperationTimeout = defaults.OperationTimeout
	}
	if c.NavigationTimeout == 0 {
		out.NavigationTimeout = defaults.NavigationTimeout
	}
	if c.CloseGrace == 0 {
		out.CloseGrace = defaults.CloseGrace
	}
	if c.PollInterval == 0 {
		out.PollInterval = defaults.PollInterval
	}
	return out
}

// Validate checks whether the config is usable.
func (c Config) Validate() error {
	if c.LaunchTimeout < 0 || c.OperationTimeout < 0 || c.NavigationTimeout < 0 {
		return errors.New("timeouts must be zero or positive")
	}
	if c.CloseGrace < 0 {
		return errors.New("close_grace must be zero or positive")
	}
	if c.PollInterval < 0 {
		return errors.New("poll_interval must be zero or positive")
	}
	return nil
}
