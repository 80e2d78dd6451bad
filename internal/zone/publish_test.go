package zone

import (
	"crypto/sha256"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestPublishWritesTarget(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "zones")
	p := NewPublisher(dir)

	if err := p.Publish("example.local", "zone one\n"); err != nil {
		t.Fatalf("publish: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(dir, "db.example.local"))
	if err != nil {
		t.Fatalf("read published file: %v", err)
	}
	if string(got) != "zone one\n" {
		t.Fatalf("unexpected content: %q", got)
	}

	// no temp leftovers
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	for _, e := range entries {
		if strings.Contains(e.Name(), ".tmp-") {
			t.Fatalf("temp file left behind: %s", e.Name())
		}
	}
}

func TestPublishIdempotent(t *testing.T) {
	p := NewPublisher(t.TempDir())
	text := "$ORIGIN example.local.\n$TTL 300\n"

	if err := p.Publish("example.local", text); err != nil {
		t.Fatalf("first publish: %v", err)
	}
	first, err := os.ReadFile(p.Path("example.local"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	if err := p.Publish("example.local", text); err != nil {
		t.Fatalf("second publish: %v", err)
	}
	second, err := os.ReadFile(p.Path("example.local"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	if sha256.Sum256(first) != sha256.Sum256(second) {
		t.Fatalf("republishing identical content changed the file")
	}
}

func TestPublishReplacesAtomically(t *testing.T) {
	p := NewPublisher(t.TempDir())

	if err := p.Publish("example.local", "old content\n"); err != nil {
		t.Fatalf("publish old: %v", err)
	}
	if err := p.Publish("example.local", "new content, longer than before\n"); err != nil {
		t.Fatalf("publish new: %v", err)
	}

	got, err := os.ReadFile(p.Path("example.local"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != "new content, longer than before\n" {
		t.Fatalf("unexpected content after replace: %q", got)
	}
}

func TestPublishInterruptedTempWriteKeepsTarget(t *testing.T) {
	dir := t.TempDir()
	p := NewPublisher(dir)

	if err := p.Publish("example.local", "old, complete version\n"); err != nil {
		t.Fatalf("publish: %v", err)
	}

	// A writer that dies mid-write leaves a partial temp file behind and
	// never renames; the target must still hold the old bytes.
	partial := filepath.Join(dir, ".db.example.local.tmp-crashed")
	if err := os.WriteFile(partial, []byte("trunc"), 0o644); err != nil {
		t.Fatalf("write partial temp: %v", err)
	}

	got, err := os.ReadFile(p.Path("example.local"))
	if err != nil {
		t.Fatalf("read target: %v", err)
	}
	if string(got) != "old, complete version\n" {
		t.Fatalf("target corrupted by abandoned temp write: %q", got)
	}

	// The next successful publish replaces the target with the fully new
	// content in one step.
	if err := p.Publish("example.local", "new, complete version\n"); err != nil {
		t.Fatalf("publish new: %v", err)
	}
	got, err = os.ReadFile(p.Path("example.local"))
	if err != nil {
		t.Fatalf("read target: %v", err)
	}
	if string(got) != "new, complete version\n" {
		t.Fatalf("target not fully replaced: %q", got)
	}
}

func TestPublishFailureKeepsPreviousFile(t *testing.T) {
	dir := t.TempDir()
	p := NewPublisher(dir)

	if err := p.Publish("example.local", "good version\n"); err != nil {
		t.Fatalf("publish: %v", err)
	}

	// Point a second publisher at a path that is a file, not a directory;
	// MkdirAll must fail and the original file must survive untouched.
	broken := NewPublisher(p.Path("example.local"))
	if err := broken.Publish("example.local", "never written\n"); err == nil {
		t.Fatalf("expected publish failure")
	}

	got, err := os.ReadFile(p.Path("example.local"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != "good version\n" {
		t.Fatalf("previous file damaged: %q", got)
	}
}

func TestPublishNormalizesDomainPath(t *testing.T) {
	p := NewPublisher(t.TempDir())
	if got, want := filepath.Base(p.Path("Example.LOCAL.")), "db.example.local"; got != want {
		t.Fatalf("path %q, want %q", got, want)
	}
}
