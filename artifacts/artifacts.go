// Package artifacts manages the failure screenshots written by the
// scenario hooks: listing them, pruning old ones on a schedule and serving
// them over HTTP for review.
package artifacts

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/GoCodeAlone/scenariokit"
)

var (
	ErrInvalidName  = errors.New("artifacts: invalid artifact name")
	ErrNotArtifact  = errors.New("artifacts: not a screenshot artifact")
	ErrNoRetention  = errors.New("artifacts: retention must be positive")
	ErrScheduleSpec = errors.New("artifacts: invalid prune schedule")
)

// Artifact describes one screenshot file.
type Artifact struct {
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"modTime"`
}

// IsScreenshot reports whether name looks like a failure screenshot.
func IsScreenshot(name string) bool {
	return strings.HasPrefix(name, "screenshot-error-") && strings.HasSuffix(name, ".png")
}

// List returns the screenshots in dir, newest first. A missing directory
// yields an empty list.
func List(dir string) ([]Artifact, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []Artifact{}, nil
		}
		return nil, fmt.Errorf("artifacts: read %s: %w", dir, err)
	}

	out := make([]Artifact, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !IsScreenshot(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, Artifact{Name: e.Name(), Size: info.Size(), ModTime: info.ModTime()})
	}
	slices.SortFunc(out, func(a, b Artifact) int {
		if c := b.ModTime.Compare(a.ModTime); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	})
	return out, nil
}

// Path returns the on-disk path of artifact name inside dir. Names that
// would escape dir or are not screenshots are rejected.
func Path(dir, name string) (string, error) {
	if name == "" || filepath.Base(name) != name || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if !IsScreenshot(name) {
		return "", fmt.Errorf("%w: %q", ErrNotArtifact, name)
	}
	return filepath.Join(dir, name), nil
}

// Pruner deletes screenshots older than a retention period.
type Pruner struct {
	dir       string
	retention time.Duration
	now       func() time.Time
	logger    scenariokit.Logger
}

// NewPruner creates a Pruner for dir.
func NewPruner(dir string, retention time.Duration, logger scenariokit.Logger) (*Pruner, error) {
	if retention <= 0 {
		return nil, ErrNoRetention
	}
	if logger == nil {
		logger = scenariokit.NewSlogLogger(nil)
	}
	return &Pruner{dir: dir, retention: retention, now: time.Now, logger: logger}, nil
}

// Prune removes expired screenshots and returns their names.
func (p *Pruner) Prune() ([]string, error) {
	list, err := List(p.dir)
	if err != nil {
		return nil, err
	}

	cutoff := p.now().Add(-p.retention)
	var removed []string
	var errs []error
	for _, a := range list {
		if !a.ModTime.Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(p.dir, a.Name)); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
			continue
		}
		removed = append(removed, a.Name)
	}

	if len(removed) > 0 {
		p.logger.Info("Pruned screenshots", "dir", p.dir, "count", len(removed))
	}
	return removed, errors.Join(errs...)
}

// Schedule runs Prune on the cron spec (standard five-field syntax or
// descriptors such as "@every 1h") and returns the started scheduler.
// Stop it with Stop().
func (p *Pruner) Schedule(spec string) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		if _, err := p.Prune(); err != nil {
			p.logger.Warn("Scheduled prune failed", "dir", p.dir, "error", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrScheduleSpec, spec, err)
	}
	c.Start()
	return c, nil
}
