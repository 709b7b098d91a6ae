package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/odvcencio/snaplist/pkg/config"
	"github.com/odvcencio/snaplist/pkg/storage"
)

func runForTest(t *testing.T, stdin string, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, strings.NewReader(stdin), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestVersionCommand(t *testing.T) {
	for _, arg := range []string{"version", "--version", "-v"} {
		code, out, _ := runForTest(t, "", arg)
		if code != exitOK {
			t.Fatalf("%s exit = %d, want 0", arg, code)
		}
		if !strings.HasPrefix(out, "snaplist "+version) {
			t.Fatalf("%s output = %q", arg, out)
		}
	}
}

func TestHelpCommand(t *testing.T) {
	code, out, _ := runForTest(t, "", "help")
	if code != exitOK {
		t.Fatalf("help exit = %d", code)
	}
	if !strings.Contains(out, "snaplist link") {
		t.Fatalf("help output missing link usage: %q", out)
	}
}

func TestUnknownCommand(t *testing.T) {
	code, _, stderr := runForTest(t, "", "publish")
	if code != exitUsage {
		t.Fatalf("exit = %d, want %d", code, exitUsage)
	}
	if !strings.Contains(stderr, `unknown command "publish"`) {
		t.Fatalf("stderr = %q", stderr)
	}
}

func TestLinkFromFlags(t *testing.T) {
	code, out, stderr := runForTest(t, "", "link", "--title", "Desk", "--price", "50", "--description", "Oak", "--category", "Furniture")
	if code != exitOK {
		t.Fatalf("exit = %d, stderr = %s", code, stderr)
	}

	var payload struct {
		Success      bool   `json:"success"`
		URL          string `json:"url"`
		Instructions string `json:"instructions"`
		Listing      struct {
			Title       string `json:"title"`
			Price       string `json:"price"`
			Description string `json:"description"`
			Category    string `json:"category"`
		} `json:"listing"`
	}
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	if !payload.Success || payload.URL != "https://www.facebook.com/marketplace/create/item" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
	if payload.Listing.Price != "$50" || payload.Listing.Category != "Furniture" {
		t.Fatalf("unexpected listing: %+v", payload.Listing)
	}
}

func TestLinkFromStdinWithFlagOverride(t *testing.T) {
	stdin := `{"listing":{"title":"Lamp","price":12.5,"description":"Brass"}}`
	code, out, stderr := runForTest(t, stdin, "link", "--json", "-", "--price", "15")
	if code != exitOK {
		t.Fatalf("exit = %d, stderr = %s", code, stderr)
	}
	if !strings.Contains(out, `"title": "Lamp"`) || !strings.Contains(out, `"price": "$15"`) {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestLinkFromPipedStdin(t *testing.T) {
	code, out, stderr := runForTest(t, `{"title":"Chair","price":20,"description":"Pine"}`, "link")
	if code != exitOK {
		t.Fatalf("exit = %d, stderr = %s", code, stderr)
	}
	if !strings.Contains(out, `"title": "Chair"`) {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestLinkFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "listing.json")
	if err := os.WriteFile(path, []byte(`{"title":"Bike","price":80,"description":"Red"}`), 0o600); err != nil {
		t.Fatal(err)
	}
	code, out, stderr := runForTest(t, "", "link", "--json", path)
	if code != exitOK {
		t.Fatalf("exit = %d, stderr = %s", code, stderr)
	}
	if !strings.Contains(out, `"price": "$80"`) {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestLinkUsageErrors(t *testing.T) {
	tests := [][]string{
		{"link"},
		{"link", "--price", "abc"},
		{"link", "--json", filepath.Join(t.TempDir(), "missing.json")},
	}
	for _, args := range tests {
		code, _, _ := runForTest(t, "", args...)
		if code != exitUsage {
			t.Fatalf("%v exit = %d, want %d", args, code, exitUsage)
		}
	}

	code, _, _ := runForTest(t, "{not json", "link", "--json", "-")
	if code != exitUsage {
		t.Fatalf("bad stdin exit = %d, want %d", code, exitUsage)
	}
}

func TestExitCodeForError(t *testing.T) {
	if got := exitCodeForError(nil); got != exitOK {
		t.Fatalf("nil = %d", got)
	}
	if got := exitCodeForError(errors.New("boom")); got != exitFailure {
		t.Fatalf("plain = %d", got)
	}
	wrapped := fmt.Errorf("outer: %w", withExitCode(errors.New("bad config"), exitConfig))
	if got := exitCodeForError(wrapped); got != exitConfig {
		t.Fatalf("wrapped = %d", got)
	}
	if withExitCode(nil, exitConfig) != nil {
		t.Fatal("withExitCode(nil) should be nil")
	}
}

func TestStringListValue(t *testing.T) {
	var got []string
	v := &stringListValue{target: &got}
	if err := v.Set("https://a.example, ,https://b.example"); err != nil {
		t.Fatal(err)
	}
	if err := v.Set("https://c.example"); err != nil {
		t.Fatal(err)
	}
	if v.String() != "https://a.example,https://b.example,https://c.example" {
		t.Fatalf("String() = %q", v.String())
	}
}

func stubServeConfig(t *testing.T, mutate func(*config.Config)) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Browser.Engine = config.EngineSim
	cfg.Storage.Path = filepath.Join(t.TempDir(), "snaplist.db")
	cfg.Server.ShutdownTimeout = time.Second
	cfg.Browser.CloseGrace = time.Second
	if mutate != nil {
		mutate(cfg)
	}
	prev := serveLoadConfigFn
	serveLoadConfigFn = func(string) (*config.Config, error) { return cfg, nil }
	t.Cleanup(func() { serveLoadConfigFn = prev })
	return cfg
}

func freeAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()
	return addr
}

func TestServeConfigErrors(t *testing.T) {
	prev := serveLoadConfigFn
	t.Cleanup(func() { serveLoadConfigFn = prev })

	serveLoadConfigFn = func(string) (*config.Config, error) { return nil, errors.New("parse failed") }
	if code, _, _ := runForTest(t, "", "serve"); code != exitConfig {
		t.Fatalf("load error exit = %d, want %d", code, exitConfig)
	}

	stubServeConfig(t, nil)
	if code, _, _ := runForTest(t, "", "serve", "--engine", "servo"); code != exitConfig {
		t.Fatalf("bad engine exit = %d, want %d", code, exitConfig)
	}
	if code, _, _ := runForTest(t, "", "serve", "extra"); code != exitUsage {
		t.Fatalf("extra args exit = %d, want %d", code, exitUsage)
	}
}

func TestServeSimLifecycle(t *testing.T) {
	addr := freeAddr(t)
	cfg := stubServeConfig(t, func(c *config.Config) { c.Server.Bind = addr })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var stderr bytes.Buffer
	done := make(chan int, 1)
	go func() {
		done <- run(ctx, []string{"--log-level", "warn"}, strings.NewReader(""), &bytes.Buffer{}, &stderr)
	}()

	base := "http://" + addr
	deadline := time.Now().Add(5 * time.Second)
	for {
		resp, err := http.Get(base + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				break
			}
		}
		if time.Now().After(deadline) {
			t.Fatalf("server never became healthy: %v", err)
		}
		time.Sleep(20 * time.Millisecond)
	}

	req, _ := http.NewRequest(http.MethodPost, base+"/api/marketplace/init", nil)
	req.Header.Set("x-session-id", "smoke")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("init status = %d", resp.StatusCode)
	}

	cancel()
	select {
	case code := <-done:
		if code != exitOK {
			t.Fatalf("serve exit = %d, stderr = %s", code, stderr.String())
		}
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not stop")
	}

	store, err := storage.New(cfg.Storage.Path)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	events, err := store.ListSessionEvents(context.Background(), "smoke", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 2 || events[0].Event != "closed" || events[0].Reason != "shutdown" {
		t.Fatalf("expected created then closed(shutdown), got %+v", events)
	}
}
