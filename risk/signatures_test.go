package risk

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestSignatureSetDefaults(t *testing.T) {
	s := NewSignatureSet(nil)
	cases := map[string]bool{
		"Mozilla/5.0 (X11; Linux x86_64) HeadlessChrome/120.0": true,
		"curl/8.4.0":            true,
		"python-requests/2.31":  true,
		"Go-http-client/1.1":    true,
		"Mozilla/5.0 Firefox/1": false,
		"":                      false,
	}
	for sig, want := range cases {
		if got := s.Matches(sig); got != want {
			t.Fatalf("%q: expected %v, got %v", sig, want, got)
		}
	}

	var nilSet *SignatureSet
	if nilSet.Matches("curl/8") {
		t.Fatalf("nil set must not match")
	}
}

func TestParseMarkers(t *testing.T) {
	markers, err := ParseMarkers(strings.NewReader("# comment\n\n  Foo \nbar\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(markers) != 2 || markers[0] != "Foo" || markers[1] != "bar" {
		t.Fatalf("unexpected markers: %v", markers)
	}

	s := NewSignatureSet(markers)
	if !s.Matches("my-FOO-client") {
		t.Fatalf("markers must match case-insensitively")
	}
}

func TestSignatureSetLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "markers.txt")
	if err := os.WriteFile(path, []byte("customclient\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	s := NewSignatureSet(nil)
	if err := s.LoadFile(path); err != nil {
		t.Fatalf("load: %v", err)
	}
	if !s.Matches("CustomClient/1.0") || s.Matches("curl/8") {
		t.Fatalf("loaded markers must replace defaults, got %v", s.Markers())
	}
	if err := s.LoadFile(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestSignatureSetWatchReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "markers.txt")
	if err := os.WriteFile(path, []byte("first\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := NewSignatureSet(nil)
	if err := s.Watch(ctx, path, nil); err != nil {
		t.Fatalf("watch: %v", err)
	}
	if !s.Matches("first") {
		t.Fatalf("initial load missing")
	}

	if err := os.WriteFile(path, []byte("second\n"), 0o600); err != nil {
		t.Fatalf("rewrite: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if s.Matches("second") {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("expected reload to pick up new markers, have %v", s.Markers())
}
