// Package harness assembles a ready-to-run scenario environment from a
// scenariokit.Config: fixture store and watcher, browser session, event
// bus and hook manager.
package harness

import (
	"context"
	"errors"
	"fmt"

	"github.com/cucumber/godog"

	"github.com/GoCodeAlone/scenariokit"
	"github.com/GoCodeAlone/scenariokit/browser"
	"github.com/GoCodeAlone/scenariokit/fixtures"
)

// Option configures a Harness under construction.
type Option func(*builder) error

type builder struct {
	cfg       *scenariokit.Config
	logger    scenariokit.Logger
	browser   scenariokit.BrowserControl
	clock     scenariokit.Clock
	observers []scenariokit.Observer
}

// WithConfig uses cfg instead of scenariokit.DefaultConfig().
func WithConfig(cfg *scenariokit.Config) Option {
	return func(b *builder) error {
		if cfg == nil {
			return scenariokit.ErrConfigNil
		}
		b.cfg = cfg
		return nil
	}
}

// WithLogger sets the logger shared by every component.
func WithLogger(logger scenariokit.Logger) Option {
	return func(b *builder) error {
		b.logger = logger
		return nil
	}
}

// WithBrowser supplies an existing browser instead of starting one from
// the browser config section. The harness does not close it.
func WithBrowser(control scenariokit.BrowserControl) Option {
	return func(b *builder) error {
		if control == nil {
			return scenariokit.ErrBrowserControlNil
		}
		b.browser = control
		return nil
	}
}

// WithClock sets the clock used for screenshot names.
func WithClock(clock scenariokit.Clock) Option {
	return func(b *builder) error {
		b.clock = clock
		return nil
	}
}

// WithObservers registers observers for every lifecycle event.
func WithObservers(observers ...scenariokit.Observer) Option {
	return func(b *builder) error {
		b.observers = append(b.observers, observers...)
		return nil
	}
}

// Harness owns the components a suite runs against.
type Harness struct {
	Config   *scenariokit.Config
	Hooks    *scenariokit.HookManager
	Fixtures *fixtures.Store
	Events   *scenariokit.EventBus
	Browser  scenariokit.BrowserControl

	logger       scenariokit.Logger
	ownedBrowser *browser.Control
	watcher      *fixtures.Watcher
	stopWatch    context.CancelFunc
	watchDone    chan error
}

// New builds a Harness. Unless WithBrowser is given, a browser session is
// started from the config and closed by Close.
func New(ctx context.Context, opts ...Option) (*Harness, error) {
	b := &builder{}
	for _, opt := range opts {
		if err := opt(b); err != nil {
			return nil, err
		}
	}
	if b.cfg == nil {
		b.cfg = scenariokit.DefaultConfig()
	}
	if b.logger == nil {
		b.logger = scenariokit.NewSlogLogger(nil)
	}

	h := &Harness{
		Config:   b.cfg,
		Fixtures: fixtures.NewStore(b.cfg.Fixtures.Root, fixtures.WithLogger(b.logger)),
		Events:   scenariokit.NewEventBus(b.logger),
		Browser:  b.browser,
		logger:   b.logger,
	}

	for _, obs := range b.observers {
		if err := h.Events.RegisterObserver(obs); err != nil {
			return nil, err
		}
	}

	if h.Browser == nil {
		ctrl := browser.New(browser.ConfigFrom(b.cfg.Browser, b.logger))
		if err := ctrl.Start(ctx); err != nil {
			return nil, fmt.Errorf("start browser: %w", err)
		}
		h.ownedBrowser = ctrl
		h.Browser = ctrl
	}

	hookOpts := []scenariokit.HookOption{
		scenariokit.WithArtifactsDir(b.cfg.Artifacts.Dir),
		scenariokit.WithFixturePattern(b.cfg.Fixtures.Pattern),
		scenariokit.WithLogger(b.logger),
		scenariokit.WithSubject(h.Events),
	}
	if b.clock != nil {
		hookOpts = append(hookOpts, scenariokit.WithClock(b.clock))
	}
	hooks, err := scenariokit.NewHookManager(h.Browser, h.Fixtures, hookOpts...)
	if err != nil {
		_ = h.Close()
		return nil, err
	}
	h.Hooks = hooks

	if b.cfg.Fixtures.Watch {
		if err := h.watch(); err != nil {
			_ = h.Close()
			return nil, err
		}
	}
	return h, nil
}

func (h *Harness) watch() error {
	w, err := fixtures.NewWatcher(h.Fixtures)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(context.Background())
	h.watcher = w
	h.stopWatch = cancel
	h.watchDone = make(chan error, 1)
	go func() { h.watchDone <- w.Run(ctx) }()
	h.logger.Debug("Watching fixture data", "root", h.Fixtures.Root())
	return nil
}

// Suite returns a godog.TestSuite with the hooks registered ahead of
// initializers.
func (h *Harness) Suite(name string, opts *godog.Options, initializers ...func(*godog.ScenarioContext)) godog.TestSuite {
	return scenariokit.NewSuite(name, h.Hooks, opts, initializers...)
}

// Close stops the fixture watcher and closes a browser started by New.
func (h *Harness) Close() error {
	var errs []error
	if h.watcher != nil {
		h.stopWatch()
		errs = append(errs, h.watcher.Close(), <-h.watchDone)
		h.watcher = nil
	}
	if h.ownedBrowser != nil {
		errs = append(errs, h.ownedBrowser.Close())
		h.ownedBrowser = nil
	}
	return errors.Join(errs...)
}
