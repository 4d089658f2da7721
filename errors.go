package scenariokit

import (
	"errors"
)

// Hook errors
var (
	ErrBrowserControlNil  = errors.New("browser control is nil")
	ErrFixtureStoreNil    = errors.New("fixture store is nil")
	ErrScenarioNil        = errors.New("scenario is nil")
	ErrCookieReset        = errors.New("failed to delete browser cookies")
	ErrFixtureInvalidate  = errors.New("failed to invalidate fixture data")
	ErrScreenshotCapture  = errors.New("failed to capture failure screenshot")
	ErrInvalidFixtureExpr = errors.New("invalid fixture path pattern")
)

// Configuration errors
var (
	ErrConfigNil                  = errors.New("config is nil")
	ErrConfigNotPointer           = errors.New("config must be a pointer")
	ErrConfigNotStruct            = errors.New("config must be a struct")
	ErrConfigRequiredFieldMissing = errors.New("required field is missing")
	ErrConfigValidationFailed     = errors.New("config validation failed")
	ErrDefaultValueParseError     = errors.New("failed to parse default value")
	ErrUnsupportedConfigFormat    = errors.New("unsupported config file format")
	ErrConfigFeederError          = errors.New("config feeder error")
)

// Observer errors
var (
	ErrObserverNil = errors.New("observer is nil")
)
