package scenariokit

import (
	"context"

	"github.com/cucumber/godog"
)

type reportContextKey struct{}

// ReportFromContext returns the AfterReport stored by the registered
// after-scenario hook, or nil if the hook has not run.
func ReportFromContext(ctx context.Context) *AfterReport {
	report, _ := ctx.Value(reportContextKey{}).(*AfterReport)
	return report
}

// godogScenario adapts the step error godog hands to after hooks.
type godogScenario struct {
	err error
}

func (s godogScenario) IsFailed() bool { return s.err != nil }

type scenarioEvent struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	URI    string   `json:"uri"`
	Failed bool     `json:"failed,omitempty"`
	Shot   string   `json:"screenshot,omitempty"`
	Keys   []string `json:"invalidatedFixtures,omitempty"`
}

// Register installs the before and after hooks on a godog scenario
// context. Call it from the suite's ScenarioInitializer.
func (m *HookManager) Register(sc *godog.ScenarioContext) {
	sc.Before(func(ctx context.Context, pickle *godog.Scenario) (context.Context, error) {
		m.emit(ctx, EventTypeScenarioStarted, scenarioEvent{ID: pickle.Id, Name: pickle.Name, URI: pickle.Uri})
		if err := m.Before(ctx); err != nil {
			return ctx, err
		}
		return ctx, nil
	})

	sc.After(func(ctx context.Context, pickle *godog.Scenario, stepErr error) (context.Context, error) {
		report, err := m.After(ctx, godogScenario{err: stepErr})
		if report != nil {
			ctx = context.WithValue(ctx, reportContextKey{}, report)
			m.emit(ctx, EventTypeScenarioFinished, scenarioEvent{
				ID:     pickle.Id,
				Name:   pickle.Name,
				URI:    pickle.Uri,
				Failed: report.Failed,
				Shot:   report.ScreenshotPath,
				Keys:   report.InvalidatedFixtures,
			})
			for _, w := range report.Warnings {
				m.logger.Warn("Scenario finished with warning", "scenario", pickle.Name, "warning", w)
			}
		}
		return ctx, err
	})
}

// NewSuite builds a godog.TestSuite whose scenario initializer registers
// the hooks before the caller's step initializers.
//
// Example:
//
//	suite := scenariokit.NewSuite("checkout", hooks, &godog.Options{
//	    Format:   "pretty",
//	    Paths:    []string{"features"},
//	    TestingT: t,
//	    Strict:   true,
//	}, steps.Initialize)
//	if suite.Run() != 0 {
//	    t.Fatal("non-zero status returned, failed to run feature tests")
//	}
func NewSuite(name string, hooks *HookManager, opts *godog.Options, initializers ...func(*godog.ScenarioContext)) godog.TestSuite {
	return godog.TestSuite{
		Name: name,
		ScenarioInitializer: func(sc *godog.ScenarioContext) {
			if hooks != nil {
				hooks.Register(sc)
			}
			for _, init := range initializers {
				init(sc)
			}
		},
		Options: opts,
	}
}
