package session

import (
	"strings"
	"testing"

	"github.com/odvcencio/snaplist/pkg/errors"
)

func TestResolveIDDefaultsBlankKeys(t *testing.T) {
	for _, raw := range []string{"", "   "} {
		id, err := ResolveID(raw)
		if err != nil {
			t.Fatalf("ResolveID(%q) error = %v", raw, err)
		}
		if id != DefaultID {
			t.Fatalf("ResolveID(%q) = %s, want %s", raw, id, DefaultID)
		}
	}
}

func TestResolveIDAcceptsOpaqueKeys(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"  user-42@device:1 ", "user-42@device:1"},
		{"has space", "has space"},
		{"semi;colon/slash?q=1", "semi;colon/slash?q=1"},
		{"bad id!", "bad id!"},
		{"ключ-сессии", "ключ-сессии"},
		{strings.Repeat("a", maxIDLength), strings.Repeat("a", maxIDLength)},
	}
	for _, tt := range tests {
		id, err := ResolveID(tt.raw)
		if err != nil {
			t.Fatalf("ResolveID(%q) error = %v", tt.raw, err)
		}
		if id != tt.want {
			t.Fatalf("ResolveID(%q) = %q, want %q", tt.raw, id, tt.want)
		}
	}
}

func TestResolveIDRejectsBadKeys(t *testing.T) {
	cases := []string{
		"line\nbreak",
		"nul\x00byte",
		"bad\xffutf8",
		strings.Repeat("a", maxIDLength+1),
	}
	for _, raw := range cases {
		_, err := ResolveID(raw)
		if !errors.IsCode(err, errors.ErrCodeInvalidInput) {
			t.Fatalf("ResolveID(%q) error = %v, want INVALID_INPUT", raw, err)
		}
	}
}

func TestNewInstanceIDIsUniqueAndSorted(t *testing.T) {
	prev := NewInstanceID()
	for i := 0; i < 50; i++ {
		next := NewInstanceID()
		if next <= prev {
			t.Fatalf("instance ids not increasing: %s then %s", prev, next)
		}
		prev = next
	}
	if len(prev) != 26 || strings.ToLower(prev) != prev {
		t.Fatalf("unexpected instance id format %q", prev)
	}
}
