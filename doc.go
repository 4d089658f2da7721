// Package scenariokit supports behavior-driven browser test suites run
// with godog.
//
// It provides two building blocks:
//
//   - Render, a template helper that replaces {name} placeholders with
//     values from a Mapping and leaves unknown names untouched.
//   - HookManager, the per-scenario lifecycle: cookies are deleted before
//     every scenario, cached fixture data is invalidated after every
//     scenario and a full-page screenshot is written when a scenario fails.
//
// The browser and the fixture cache are reached through the BrowserControl
// and FixtureStore interfaces; the browser and fixtures packages provide
// Rod- and file-backed implementations. Register wires the hooks into a
// godog.ScenarioContext:
//
//	store := fixtures.NewStore("./src")
//	ctrl := browser.New(browser.ConfigFrom(cfg.Browser, logger))
//	hooks, err := scenariokit.NewHookManager(ctrl, store,
//	    scenariokit.WithArtifactsDir(cfg.Artifacts.Dir),
//	    scenariokit.WithFixturePattern(cfg.Fixtures.Pattern),
//	    scenariokit.WithLogger(logger),
//	)
//	if err != nil {
//	    return err
//	}
//	suite := scenariokit.NewSuite("shop", hooks, opts, steps.Initialize)
package scenariokit
