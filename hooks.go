package scenariokit

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"time"
)

const (
	// DefaultArtifactsDir is where failure screenshots are written.
	DefaultArtifactsDir = "./output/errorShots"

	// DefaultFixturePattern matches fixture data keys that must be reloaded
	// for every scenario.
	DefaultFixturePattern = `support/data`

	screenshotPrefix = "screenshot-error-"
	screenshotSuffix = ".png"
)

// BrowserControl is the subset of browser automation the hooks need.
type BrowserControl interface {
	// DeleteCookies removes every cookie from the current browser session.
	DeleteCookies(ctx context.Context) error

	// SaveScreenshot writes a full-page screenshot to path and returns once
	// the file has been written or the capture has failed.
	SaveScreenshot(ctx context.Context, path string) error
}

// Scenario exposes the outcome of a finished scenario.
type Scenario interface {
	IsFailed() bool
}

// FixtureStore holds cached fixture data. Invalidate drops every entry
// whose key matches pattern and returns the dropped keys. Entries that do
// not match are never touched.
type FixtureStore interface {
	Invalidate(pattern *regexp.Regexp) ([]string, error)
}

// Clock supplies the wall-clock time used to name screenshots.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to the Clock interface.
type ClockFunc func() time.Time

// Now calls f.
func (f ClockFunc) Now() time.Time { return f() }

// ScreenshotName returns the artifact file name for a failure at t:
// screenshot-error-<D>-<M>-<YY> <hh><mm><ss>.png with day of month,
// zero-based month and two-digit year, none of them zero padded.
func ScreenshotName(t time.Time) string {
	return fmt.Sprintf("%s%d-%d-%d %d%d%d%s",
		screenshotPrefix,
		t.Day(), int(t.Month())-1, t.Year()%100,
		t.Hour(), t.Minute(), t.Second(),
		screenshotSuffix)
}

// AfterReport is the completion value of the after-scenario hook.
type AfterReport struct {
	// Failed mirrors the scenario outcome the hook observed.
	Failed bool

	// InvalidatedFixtures lists the fixture keys dropped from the store.
	InvalidatedFixtures []string

	// ScreenshotPath is the path passed to the browser for a failed
	// scenario. Empty when the scenario passed.
	ScreenshotPath string

	// Warnings collects recoverable failures, such as a screenshot that
	// could not be written. They never abort the suite.
	Warnings []error
}

// ScreenshotCaptured reports whether a screenshot was requested and
// written without error.
func (r *AfterReport) ScreenshotCaptured() bool {
	return r.ScreenshotPath != "" && len(r.Warnings) == 0
}

// HookManager runs the per-scenario side effects: cookie reset before each
// scenario; fixture invalidation and failure screenshots after it.
//
// Hooks are not safe for concurrent use against the same browser session;
// the BDD runner calls them one scenario at a time.
type HookManager struct {
	browser        BrowserControl
	fixtures       FixtureStore
	clock          Clock
	logger         Logger
	subject        Subject
	artifactsDir   string
	fixturePattern *regexp.Regexp
}

// HookOption configures a HookManager.
type HookOption func(*HookManager) error

// WithClock sets the clock used for screenshot names.
func WithClock(clock Clock) HookOption {
	return func(m *HookManager) error {
		m.clock = clock
		return nil
	}
}

// WithLogger sets the hook logger.
func WithLogger(logger Logger) HookOption {
	return func(m *HookManager) error {
		m.logger = logger
		return nil
	}
}

// WithSubject routes lifecycle CloudEvents to subject.
func WithSubject(subject Subject) HookOption {
	return func(m *HookManager) error {
		m.subject = subject
		return nil
	}
}

// WithArtifactsDir sets the directory screenshots are written to.
func WithArtifactsDir(dir string) HookOption {
	return func(m *HookManager) error {
		m.artifactsDir = dir
		return nil
	}
}

// WithFixturePattern sets the regular expression selecting fixture keys
// to invalidate after each scenario.
func WithFixturePattern(expr string) HookOption {
	return func(m *HookManager) error {
		re, err := regexp.Compile(expr)
		if err != nil {
			return fmt.Errorf("%w %q: %w", ErrInvalidFixtureExpr, expr, err)
		}
		m.fixturePattern = re
		return nil
	}
}

// NewHookManager creates a HookManager around the given capabilities.
func NewHookManager(browser BrowserControl, fixtures FixtureStore, opts ...HookOption) (*HookManager, error) {
	if browser == nil {
		return nil, ErrBrowserControlNil
	}
	if fixtures == nil {
		return nil, ErrFixtureStoreNil
	}

	m := &HookManager{
		browser:        browser,
		fixtures:       fixtures,
		clock:          ClockFunc(time.Now),
		logger:         noopLogger{},
		artifactsDir:   DefaultArtifactsDir,
		fixturePattern: regexp.MustCompile(DefaultFixturePattern),
	}
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}
	if m.logger == nil {
		m.logger = noopLogger{}
	}
	return m, nil
}

// Before deletes all cookies so the scenario starts without a session.
// Errors are returned to the runner, which marks the scenario failed.
func (m *HookManager) Before(ctx context.Context) error {
	if err := m.browser.DeleteCookies(ctx); err != nil {
		m.logger.Error("Cookie reset failed", "error", err)
		return fmt.Errorf("%w: %w", ErrCookieReset, err)
	}
	m.logger.Debug("Browser cookies deleted")
	return nil
}

// After invalidates fixture data and, for a failed scenario, captures a
// screenshot. It returns exactly one report once every side effect has
// settled.
//
// A screenshot failure is logged and recorded in AfterReport.Warnings; it
// is never returned. A fixture invalidation failure is returned after the
// screenshot step so the scenario fails while the suite keeps going.
func (m *HookManager) After(ctx context.Context, scenario Scenario) (*AfterReport, error) {
	if scenario == nil {
		return nil, ErrScenarioNil
	}
	report := &AfterReport{Failed: scenario.IsFailed()}

	invalidated, invalidateErr := m.fixtures.Invalidate(m.fixturePattern)
	report.InvalidatedFixtures = invalidated
	if invalidateErr != nil {
		m.logger.Error("Fixture invalidation failed", "pattern", m.fixturePattern.String(), "error", invalidateErr)
		invalidateErr = fmt.Errorf("%w: %w", ErrFixtureInvalidate, invalidateErr)
	} else {
		m.logger.Debug("Fixtures invalidated", "pattern", m.fixturePattern.String(), "count", len(invalidated))
	}
	m.emit(ctx, EventTypeFixturesInvalidated, map[string]any{
		"pattern": m.fixturePattern.String(),
		"keys":    invalidated,
	})

	if report.Failed {
		m.captureScreenshot(ctx, report)
	}

	return report, invalidateErr
}

func (m *HookManager) captureScreenshot(ctx context.Context, report *AfterReport) {
	path := filepath.Join(m.artifactsDir, ScreenshotName(m.clock.Now()))
	report.ScreenshotPath = path

	if err := m.browser.SaveScreenshot(ctx, path); err != nil {
		warning := fmt.Errorf("%w %s: %w", ErrScreenshotCapture, path, err)
		report.Warnings = append(report.Warnings, warning)
		m.logger.Warn("Screenshot capture failed, continuing", "path", path, "error", err)
		m.emit(ctx, EventTypeScreenshotFailed, map[string]any{"path": path, "error": err.Error()})
		return
	}

	m.logger.Info("Failure screenshot saved", "path", path)
	m.emit(ctx, EventTypeScreenshotCaptured, map[string]any{"path": path})
}

func (m *HookManager) emit(ctx context.Context, eventType string, data any) {
	if m.subject == nil {
		return
	}
	event := NewCloudEvent(eventType, eventSource, data, nil)
	if err := m.subject.NotifyObservers(ctx, event); err != nil {
		m.logger.Warn("Failed to notify observers", "event", eventType, "error", err)
	}
}
