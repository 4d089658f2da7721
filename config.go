package scenariokit

import (
	"encoding"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/golobby/cast"
	"github.com/golobby/config/v3"
	"github.com/robfig/cron/v3"

	"github.com/GoCodeAlone/scenariokit/feeders"
)

const (
	// Struct tag keys
	tagDefault  = "default"
	tagRequired = "required"
)

// Config is the scenariokit configuration. It is read from an optional
// YAML, TOML or JSON file, then from SCENARIOKIT_* environment variables;
// `default` tags fill whatever is still empty.
type Config struct {
	LogLevel  string          `yaml:"logLevel" toml:"logLevel" json:"logLevel" env:"SCENARIOKIT_LOG_LEVEL" default:"info"`
	Artifacts ArtifactsConfig `yaml:"artifacts" toml:"artifacts" json:"artifacts"`
	Fixtures  FixturesConfig  `yaml:"fixtures" toml:"fixtures" json:"fixtures"`
	Browser   BrowserConfig   `yaml:"browser" toml:"browser" json:"browser"`
	Server    ServerConfig    `yaml:"server" toml:"server" json:"server"`
}

// ArtifactsConfig controls where failure screenshots go and how long they
// are kept.
type ArtifactsConfig struct {
	Dir           string   `yaml:"dir" toml:"dir" json:"dir" env:"SCENARIOKIT_ARTIFACTS_DIR" default:"./output/errorShots" required:"true"`
	Retention     Duration `yaml:"retention" toml:"retention" json:"retention" default:"168h"`
	PruneSchedule string   `yaml:"pruneSchedule" toml:"pruneSchedule" json:"pruneSchedule" env:"SCENARIOKIT_ARTIFACTS_PRUNE_SCHEDULE" default:"@every 1h"`
}

// FixturesConfig locates fixture data and selects the keys invalidated
// after every scenario.
type FixturesConfig struct {
	Root    string `yaml:"root" toml:"root" json:"root" env:"SCENARIOKIT_FIXTURES_ROOT" default:"./src/support/data"`
	Pattern string `yaml:"pattern" toml:"pattern" json:"pattern" env:"SCENARIOKIT_FIXTURES_PATTERN" default:"support/data" required:"true"`
	Watch   bool   `yaml:"watch" toml:"watch" json:"watch" env:"SCENARIOKIT_FIXTURES_WATCH"`
}

// BrowserConfig describes the browser session the hooks drive.
type BrowserConfig struct {
	RemoteURL        string `yaml:"remoteURL" toml:"remoteURL" json:"remoteURL" env:"SCENARIOKIT_BROWSER_REMOTE_URL"`
	BaseURL          string `yaml:"baseURL" toml:"baseURL" json:"baseURL" env:"SCENARIOKIT_BROWSER_BASE_URL"`
	Proxy            string `yaml:"proxy" toml:"proxy" json:"proxy" env:"SCENARIOKIT_BROWSER_PROXY"`
	UserAgent        string `yaml:"userAgent" toml:"userAgent" json:"userAgent" env:"SCENARIOKIT_BROWSER_USER_AGENT"`
	Headful          bool   `yaml:"headful" toml:"headful" json:"headful" env:"SCENARIOKIT_BROWSER_HEADFUL"`
	IgnoreCertErrors bool   `yaml:"ignoreCertErrors" toml:"ignoreCertErrors" json:"ignoreCertErrors" env:"SCENARIOKIT_BROWSER_IGNORE_CERT_ERRORS"`
	Stealth          bool   `yaml:"stealth" toml:"stealth" json:"stealth" env:"SCENARIOKIT_BROWSER_STEALTH"`
}

// ServerConfig configures the artifact browser served by `scenariokit serve`.
type ServerConfig struct {
	Addr string `yaml:"addr" toml:"addr" json:"addr" env:"SCENARIOKIT_SERVER_ADDR" default:":8088"`
}

// Validate checks values that struct tags cannot express.
func (c *Config) Validate() error {
	if _, err := regexp.Compile(c.Fixtures.Pattern); err != nil {
		return fmt.Errorf("%w: fixtures.pattern: %w", ErrConfigValidationFailed, err)
	}
	if c.Artifacts.Retention < 0 {
		return fmt.Errorf("%w: artifacts.retention must not be negative", ErrConfigValidationFailed)
	}
	if c.Artifacts.PruneSchedule != "" {
		if _, err := cron.ParseStandard(c.Artifacts.PruneSchedule); err != nil {
			return fmt.Errorf("%w: artifacts.pruneSchedule: %w", ErrConfigValidationFailed, err)
		}
	}
	return nil
}

// LoadConfig reads configuration from path (if non-empty) and the
// environment, applies defaults and validates the result.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}

	builder := config.New()
	if path != "" {
		f, err := feeders.ForFile(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrUnsupportedConfigFormat, err)
		}
		builder.AddFeeder(f)
	}
	builder.AddFeeder(feeders.NewEnvFeeder())
	builder.AddStruct(cfg)

	if err := builder.Feed(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfigFeederError, err)
	}
	if err := ProcessConfigDefaults(cfg); err != nil {
		return nil, err
	}
	if err := ValidateConfigRequired(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DefaultConfig returns a Config holding only default values.
func DefaultConfig() *Config {
	cfg := &Config{}
	// The defaults on Config are all well-formed; an error here is a bug.
	if err := ProcessConfigDefaults(cfg); err != nil {
		panic(err)
	}
	return cfg
}

// ProcessConfigDefaults applies `default:"value"` struct tags to zero
// fields of the struct cfg points to, recursing into nested structs.
func ProcessConfigDefaults(cfg any) error {
	v, err := structValue(cfg)
	if err != nil {
		return err
	}
	return processStructDefaults(v)
}

func processStructDefaults(v reflect.Value) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		if !field.CanSet() {
			continue
		}

		if field.Kind() == reflect.Struct {
			if err := processStructDefaults(field); err != nil {
				return err
			}
			continue
		}

		defaultVal, hasDefault := fieldType.Tag.Lookup(tagDefault)
		if !hasDefault || !field.IsZero() {
			continue
		}

		if err := setDefaultValue(field, defaultVal); err != nil {
			return fmt.Errorf("failed to set default value for %s: %w", fieldType.Name, err)
		}
	}

	return nil
}

func setDefaultValue(field reflect.Value, defaultVal string) error {
	if field.CanAddr() {
		if u, ok := field.Addr().Interface().(encoding.TextUnmarshaler); ok {
			if err := u.UnmarshalText([]byte(defaultVal)); err != nil {
				return fmt.Errorf("%w: %w", ErrDefaultValueParseError, err)
			}
			return nil
		}
	}
	if field.Type() == reflect.TypeOf(time.Duration(0)) {
		d, err := time.ParseDuration(defaultVal)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrDefaultValueParseError, err)
		}
		field.SetInt(int64(d))
		return nil
	}

	converted, err := cast.FromType(defaultVal, field.Type())
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDefaultValueParseError, err)
	}
	field.Set(reflect.ValueOf(converted).Convert(field.Type()))
	return nil
}

// ValidateConfigRequired checks that every field tagged `required:"true"`
// holds a non-zero value.
func ValidateConfigRequired(cfg any) error {
	v, err := structValue(cfg)
	if err != nil {
		return err
	}

	var missing []string
	validateRequiredFields(v, "", &missing)
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrConfigRequiredFieldMissing, strings.Join(missing, ", "))
	}
	return nil
}

func validateRequiredFields(v reflect.Value, prefix string, missing *[]string) {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)
		fieldName := fieldType.Name
		if prefix != "" {
			fieldName = prefix + "." + fieldName
		}

		if !field.CanSet() {
			continue
		}

		if field.Kind() == reflect.Struct {
			validateRequiredFields(field, fieldName, missing)
			continue
		}

		if required, ok := fieldType.Tag.Lookup(tagRequired); ok && required == "true" && field.IsZero() {
			*missing = append(*missing, fieldName)
		}
	}
}

func structValue(cfg any) (reflect.Value, error) {
	if cfg == nil {
		return reflect.Value{}, ErrConfigNil
	}
	v := reflect.ValueOf(cfg)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return reflect.Value{}, ErrConfigNotPointer
	}
	v = v.Elem()
	if v.Kind() != reflect.Struct {
		return reflect.Value{}, ErrConfigNotStruct
	}
	return v, nil
}
