package zone

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Publisher writes rendered zones under a single directory with atomic
// replace semantics: a reader never observes a partially written file, and
// a failed publish leaves the previous file intact.
type Publisher struct {
	Dir string
}

func NewPublisher(dir string) *Publisher {
	return &Publisher{Dir: dir}
}

// Path returns the deterministic target path for a domain.
func (p *Publisher) Path(domain string) string {
	name := strings.TrimSuffix(strings.ToLower(domain), ".")
	return filepath.Join(p.Dir, "db."+name)
}

// Publish writes text to a temporary file in the target directory and
// renames it over the target. The temp file lives in the same directory so
// the rename stays on one filesystem.
func (p *Publisher) Publish(domain, text string) error {
	if err := os.MkdirAll(p.Dir, 0o755); err != nil {
		return fmt.Errorf("create zones directory: %w", err)
	}

	target := p.Path(domain)
	tmp, err := os.CreateTemp(p.Dir, "."+filepath.Base(target)+".tmp-")
	if err != nil {
		return fmt.Errorf("create temp zone file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(text); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp zone file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp zone file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("chmod temp zone file: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace zone file: %w", err)
	}
	return nil
}
