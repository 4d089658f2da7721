package scenariokit

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/cucumber/godog"
)

// Static error variables for BDD tests to comply with err113 linting rule
var (
	errHookManagerNotCreated    = errors.New("hook manager was not created in background")
	errUnexpectedCookieCount    = errors.New("unexpected number of cookie deletions")
	errUnexpectedScreenshot     = errors.New("unexpected screenshot request")
	errScreenshotNameMismatch   = errors.New("screenshot name does not match the artifact pattern")
	errFixtureStillCached       = errors.New("fixture should have been invalidated")
	errFixtureNotCached         = errors.New("fixture should still be cached")
	errUnexpectedCompletion     = errors.New("after hook did not complete exactly once")
	errMissingScreenshotWarning = errors.New("report should carry a screenshot warning")
)

var artifactNamePattern = regexp.MustCompile(`^screenshot-error-\d{1,2}-\d{1,2}-\d{1,2} \d{3,6}\.png$`)

// HooksBDDTestContext holds the state of one hook scenario.
type HooksBDDTestContext struct {
	browser     *fakeBrowser
	store       *fakeFixtureStore
	hooks       *HookManager
	report      *AfterReport
	afterErr    error
	completions int
}

func (c *HooksBDDTestContext) resetContext() {
	c.browser = nil
	c.store = nil
	c.hooks = nil
	c.report = nil
	c.afterErr = nil
	c.completions = 0
}

func (c *HooksBDDTestContext) aHookManagerWithARecordingBrowser() error {
	c.browser = &fakeBrowser{}
	c.store = newFakeFixtureStore()
	hooks, err := NewHookManager(c.browser, c.store, WithArtifactsDir("output/errorShots"))
	if err != nil {
		return err
	}
	c.hooks = hooks
	return nil
}

func (c *HooksBDDTestContext) fixtureDataIsCached(path string) error {
	c.store.keys["/suite/"+path] = true
	return nil
}

func (c *HooksBDDTestContext) theBrowserCannotSaveScreenshots() error {
	c.browser.screenshotErr = errors.New("no page to capture")
	return nil
}

func (c *HooksBDDTestContext) theBeforeHookRunsTimes(n int) error {
	if c.hooks == nil {
		return errHookManagerNotCreated
	}
	for i := 0; i < n; i++ {
		if err := c.hooks.Before(context.Background()); err != nil {
			return err
		}
	}
	return nil
}

func (c *HooksBDDTestContext) theBrowserReceivedCookieDeletions(n int) error {
	if c.browser.cookieDeletes != n {
		return fmt.Errorf("%w: want %d, got %d", errUnexpectedCookieCount, n, c.browser.cookieDeletes)
	}
	return nil
}

func (c *HooksBDDTestContext) runAfter(failed bool) error {
	if c.hooks == nil {
		return errHookManagerNotCreated
	}
	report, err := c.hooks.After(context.Background(), stubScenario(failed))
	if report != nil {
		c.completions++
	}
	c.report = report
	c.afterErr = err
	return nil
}

func (c *HooksBDDTestContext) theAfterHookRunsForAPassedScenario() error {
	return c.runAfter(false)
}

func (c *HooksBDDTestContext) theAfterHookRunsForAFailedScenario() error {
	return c.runAfter(true)
}

func (c *HooksBDDTestContext) noScreenshotIsRequested() error {
	if len(c.browser.screenshots) != 0 {
		return fmt.Errorf("%w: %v", errUnexpectedScreenshot, c.browser.screenshots)
	}
	return nil
}

func (c *HooksBDDTestContext) exactlyOneScreenshotIsRequestedWithAnArtifactName() error {
	if len(c.browser.screenshots) != 1 {
		return fmt.Errorf("%w: %v", errUnexpectedScreenshot, c.browser.screenshots)
	}
	name := filepath.Base(c.browser.screenshots[0])
	if !artifactNamePattern.MatchString(name) {
		return fmt.Errorf("%w: %q", errScreenshotNameMismatch, name)
	}
	return nil
}

func (c *HooksBDDTestContext) fixtureDataIsNoLongerCached(path string) error {
	if c.store.keys["/suite/"+path] {
		return fmt.Errorf("%w: %s", errFixtureStillCached, path)
	}
	return nil
}

func (c *HooksBDDTestContext) fixtureDataIsStillCached(path string) error {
	if !c.store.keys["/suite/"+path] {
		return fmt.Errorf("%w: %s", errFixtureNotCached, path)
	}
	return nil
}

func (c *HooksBDDTestContext) theAfterHookCompletedExactlyOnce() error {
	if c.completions != 1 || c.afterErr != nil {
		return fmt.Errorf("%w: completions=%d err=%v", errUnexpectedCompletion, c.completions, c.afterErr)
	}
	return nil
}

func (c *HooksBDDTestContext) theReportCarriesAScreenshotWarning() error {
	if c.report == nil || len(c.report.Warnings) != 1 || !errors.Is(c.report.Warnings[0], ErrScreenshotCapture) {
		return errMissingScreenshotWarning
	}
	return nil
}

// InitializeHooksScenario initializes the scenario hook BDD steps
func InitializeHooksScenario(ctx *godog.ScenarioContext) {
	testCtx := &HooksBDDTestContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		testCtx.resetContext()
		return ctx, nil
	})

	ctx.Step(`^a hook manager with a recording browser$`, testCtx.aHookManagerWithARecordingBrowser)
	ctx.Step(`^fixture data "([^"]*)" is cached$`, testCtx.fixtureDataIsCached)
	ctx.Step(`^the browser cannot save screenshots$`, testCtx.theBrowserCannotSaveScreenshots)

	ctx.Step(`^the before hook runs (\d+) times$`, testCtx.theBeforeHookRunsTimes)
	ctx.Step(`^the browser received (\d+) cookie deletions$`, testCtx.theBrowserReceivedCookieDeletions)

	ctx.Step(`^the after hook runs for a passed scenario$`, testCtx.theAfterHookRunsForAPassedScenario)
	ctx.Step(`^the after hook runs for a failed scenario$`, testCtx.theAfterHookRunsForAFailedScenario)
	ctx.Step(`^no screenshot is requested$`, testCtx.noScreenshotIsRequested)
	ctx.Step(`^exactly one screenshot is requested with an artifact name$`, testCtx.exactlyOneScreenshotIsRequestedWithAnArtifactName)
	ctx.Step(`^fixture data "([^"]*)" is no longer cached$`, testCtx.fixtureDataIsNoLongerCached)
	ctx.Step(`^fixture data "([^"]*)" is still cached$`, testCtx.fixtureDataIsStillCached)
	ctx.Step(`^the after hook completed exactly once$`, testCtx.theAfterHookCompletedExactlyOnce)
	ctx.Step(`^the report carries a screenshot warning$`, testCtx.theReportCarriesAScreenshotWarning)
}

// TestScenarioHooks runs the BDD tests for the scenario lifecycle hooks
func TestScenarioHooks(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeHooksScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features/scenario_hooks.feature"},
			TestingT: t,
			Strict:   true,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
