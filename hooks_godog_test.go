package scenariokit

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/cucumber/godog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBrokenPage = errors.New("page is broken")

// fakeBrowser counts browser calls made through the godog hooks.
type fakeBrowser struct {
	mu            sync.Mutex
	cookieDeletes int
	screenshots   []string
	screenshotErr error
}

func (b *fakeBrowser) DeleteCookies(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cookieDeletes++
	return nil
}

func (b *fakeBrowser) SaveScreenshot(_ context.Context, path string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.screenshots = append(b.screenshots, path)
	return b.screenshotErr
}

const checkoutFeature = `Feature: checkout

  Scenario: open the cart
    Given a working page

  Scenario: pay for the order
    Given a broken page

  Scenario: view the receipt
    Given a working page
`

func runCheckoutSuite(t *testing.T, browser *fakeBrowser, store FixtureStore) (int, []*AfterReport) {
	t.Helper()

	hooks, err := NewHookManager(browser, store, WithArtifactsDir(t.TempDir()))
	require.NoError(t, err)

	var reports []*AfterReport
	steps := func(sc *godog.ScenarioContext) {
		sc.Step(`^a working page$`, func() error { return nil })
		sc.Step(`^a broken page$`, func() error { return errBrokenPage })
		sc.After(func(ctx context.Context, _ *godog.Scenario, _ error) (context.Context, error) {
			reports = append(reports, ReportFromContext(ctx))
			return ctx, nil
		})
	}

	suite := NewSuite("checkout", hooks, &godog.Options{
		Format:          "progress",
		Output:          io.Discard,
		Strict:          true,
		FeatureContents: []godog.Feature{{Name: "checkout.feature", Contents: []byte(checkoutFeature)}},
	}, steps)

	return suite.Run(), reports
}

func TestRegisteredHooksDriveTheBrowser(t *testing.T) {
	browser := &fakeBrowser{}
	store := newFakeFixtureStore("/suite/src/support/data/cart.json")

	status, reports := runCheckoutSuite(t, browser, store)

	assert.Equal(t, 1, status, "the broken scenario fails the suite")
	assert.Equal(t, 3, browser.cookieDeletes, "one cookie reset per scenario")
	require.Len(t, browser.screenshots, 1, "only the failed scenario is captured")
	assert.Regexp(t, `screenshot-error-\d+-\d+-\d+ \d+\.png$`, browser.screenshots[0])
	assert.Equal(t, 3, store.calls, "fixtures are invalidated after every scenario")

	require.Len(t, reports, 3)
	for _, r := range reports {
		require.NotNil(t, r)
	}
	assert.False(t, reports[0].Failed)
	assert.True(t, reports[1].Failed)
	assert.Equal(t, browser.screenshots[0], reports[1].ScreenshotPath)
	assert.False(t, reports[2].Failed)
	assert.Equal(t, []string{"/suite/src/support/data/cart.json"}, reports[0].InvalidatedFixtures)
	assert.Empty(t, reports[1].InvalidatedFixtures)
}

func TestRegisteredHooksSurviveScreenshotFailure(t *testing.T) {
	browser := &fakeBrowser{screenshotErr: errors.New("target closed")}

	status, reports := runCheckoutSuite(t, browser, newFakeFixtureStore())

	assert.Equal(t, 1, status)
	require.Len(t, reports, 3, "every scenario still completes")
	require.Len(t, reports[1].Warnings, 1)
	assert.ErrorIs(t, reports[1].Warnings[0], ErrScreenshotCapture)
	assert.Equal(t, 3, browser.cookieDeletes)
}

func TestReportFromContextWithoutHook(t *testing.T) {
	assert.Nil(t, ReportFromContext(context.Background()))
}
