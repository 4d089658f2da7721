// Package browser drives a Chrome session through Rod and exposes the
// operations the scenario hooks need: clearing cookies and writing
// full-page screenshots. Control satisfies scenariokit.BrowserControl.
package browser

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/rod/lib/utils"
	"github.com/go-rod/stealth"

	"github.com/GoCodeAlone/scenariokit"
)

var (
	ErrNotStarted = errors.New("browser: session not started")
	ErrClosed     = errors.New("browser: control is closed")
	ErrNoBaseURL  = errors.New("browser: no base URL configured")
)

// Config configures the browser session.
type Config struct {
	// RemoteURL is the DevTools WebSocket URL of an external Chrome.
	// Empty = launch a local Chrome via launcher.
	RemoteURL string

	// BaseURL is prepended to relative paths passed to Open.
	BaseURL string

	// Proxy is passed to Chrome as --proxy-server.
	Proxy string

	// UserAgent overrides the page user agent when set.
	UserAgent string

	Headful          bool
	IgnoreCertErrors bool

	// Stealth opens the session page with go-rod/stealth applied.
	Stealth bool

	Logger scenariokit.Logger
}

// ConfigFrom converts the browser section of a scenariokit.Config.
func ConfigFrom(c scenariokit.BrowserConfig, logger scenariokit.Logger) Config {
	return Config{
		RemoteURL:        c.RemoteURL,
		BaseURL:          c.BaseURL,
		Proxy:            c.Proxy,
		UserAgent:        c.UserAgent,
		Headful:          c.Headful,
		IgnoreCertErrors: c.IgnoreCertErrors,
		Stealth:          c.Stealth,
		Logger:           logger,
	}
}

func (c *Config) defaults() {
	if c.Logger == nil {
		c.Logger = scenariokit.NewSlogLogger(nil)
	}
}

// Control owns one browser and the page the scenarios run in.
type Control struct {
	cfg     Config
	mu      sync.Mutex
	browser *rod.Browser
	page    *rod.Page
	lnch    *launcher.Launcher
	closed  bool
}

// New creates a Control. Call Start to launch or connect to Chrome.
func New(cfg Config) *Control {
	cfg.defaults()
	return &Control{cfg: cfg}
}

// Start launches Chrome (or connects to RemoteURL) and opens the session
// page.
func (c *Control) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if c.browser != nil {
		return nil
	}

	b, err := c.launch()
	if err != nil {
		return err
	}

	page, err := c.openPage(ctx, b)
	if err != nil {
		_ = b.Close()
		c.killLauncher()
		return err
	}

	c.browser = b
	c.page = page
	return nil
}

func (c *Control) launch() (*rod.Browser, error) {
	log := c.cfg.Logger
	wsURL := c.cfg.RemoteURL

	if wsURL != "" {
		log.Info("browser: connecting to remote", "url", wsURL)
	} else {
		l := launcher.New().Headless(!c.cfg.Headful)
		if c.cfg.Proxy != "" {
			l = l.Proxy(c.cfg.Proxy)
		}
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("browser: launch: %w", err)
		}
		wsURL = u
		c.lnch = l
		log.Info("browser: launched local chrome", "url", wsURL, "headful", c.cfg.Headful)
	}

	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		c.killLauncher()
		return nil, fmt.Errorf("browser: connect: %w", err)
	}

	if c.cfg.IgnoreCertErrors {
		if err := b.IgnoreCertErrors(true); err != nil {
			log.Warn("browser: ignore cert errors failed", "error", err)
		}
	}
	return b, nil
}

func (c *Control) openPage(ctx context.Context, b *rod.Browser) (*rod.Page, error) {
	var (
		page *rod.Page
		err  error
	)
	if c.cfg.Stealth {
		page, err = stealth.Page(b)
	} else {
		page, err = b.Page(proto.TargetCreateTarget{URL: ""})
	}
	if err != nil {
		return nil, fmt.Errorf("browser: create page: %w", err)
	}

	if c.cfg.UserAgent != "" {
		ua := &proto.NetworkSetUserAgentOverride{UserAgent: c.cfg.UserAgent}
		if err := page.Context(ctx).SetUserAgent(ua); err != nil {
			_ = page.Close()
			return nil, fmt.Errorf("browser: set user agent: %w", err)
		}
	}
	return page, nil
}

// Page returns the session page, or nil before Start.
func (c *Control) Page() *rod.Page {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.page
}

// Open navigates the session page to target, resolved against BaseURL
// when relative, and waits for the load event.
func (c *Control) Open(ctx context.Context, target string) error {
	u, err := ResolveURL(c.cfg.BaseURL, target)
	if err != nil {
		return err
	}
	page, err := c.session()
	if err != nil {
		return err
	}
	p := page.Context(ctx)
	if err := p.Navigate(u); err != nil {
		return fmt.Errorf("browser: navigate %s: %w", u, err)
	}
	if err := p.WaitLoad(); err != nil {
		c.cfg.Logger.Warn("browser: wait load failed", "url", u, "error", err)
	}
	return nil
}

// DeleteCookies clears every cookie in the browser.
func (c *Control) DeleteCookies(ctx context.Context) error {
	c.mu.Lock()
	b := c.browser
	closed := c.closed
	c.mu.Unlock()

	if closed {
		return ErrClosed
	}
	if b == nil {
		return ErrNotStarted
	}
	// An empty cookie list clears all cookies.
	if err := b.Context(ctx).SetCookies(nil); err != nil {
		return fmt.Errorf("browser: delete cookies: %w", err)
	}
	return nil
}

// SaveScreenshot captures the whole session page as PNG and writes it to
// path, creating parent directories.
func (c *Control) SaveScreenshot(ctx context.Context, path string) error {
	page, err := c.session()
	if err != nil {
		return err
	}
	data, err := page.Context(ctx).Screenshot(true, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return fmt.Errorf("browser: capture screenshot: %w", err)
	}
	if err := utils.OutputFile(path, data); err != nil {
		return fmt.Errorf("browser: write screenshot %s: %w", path, err)
	}
	return nil
}

func (c *Control) session() (*rod.Page, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}
	if c.page == nil {
		return nil, ErrNotStarted
	}
	return c.page, nil
}

// Close closes the browser and, if it was launched locally, kills Chrome.
func (c *Control) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	var err error
	if c.browser != nil {
		err = c.browser.Close()
		c.browser = nil
		c.page = nil
	}
	c.killLauncher()
	return err
}

func (c *Control) killLauncher() {
	if c.lnch != nil {
		c.lnch.Kill()
		c.lnch.Cleanup()
		c.lnch = nil
	}
}

// ResolveURL resolves target against base. Absolute targets are returned
// unchanged; relative targets require a base.
func ResolveURL(base, target string) (string, error) {
	t, err := url.Parse(target)
	if err != nil {
		return "", fmt.Errorf("browser: parse %q: %w", target, err)
	}
	if t.IsAbs() {
		return t.String(), nil
	}
	if base == "" {
		return "", fmt.Errorf("%w for %q", ErrNoBaseURL, target)
	}
	b, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("browser: parse base %q: %w", base, err)
	}
	return b.ResolveReference(t).String(), nil
}
