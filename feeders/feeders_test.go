package feeders

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/golobby/config/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type browserSection struct {
	BaseURL string `yaml:"baseURL" toml:"baseURL" json:"baseURL"`
	Headful bool   `yaml:"headful" toml:"headful" json:"headful"`
}

type fileConfig struct {
	LogLevel string         `yaml:"logLevel" toml:"logLevel" json:"logLevel" env:"FEEDERS_TEST_LOG_LEVEL"`
	Browser  browserSection `yaml:"browser" toml:"browser" json:"browser"`
}

var sampleFiles = map[string]string{
	"config.yaml": "logLevel: debug\nbrowser:\n  baseURL: https://a.test\n  headful: true\n",
	"config.yml":  "logLevel: debug\nbrowser:\n  baseURL: https://a.test\n  headful: true\n",
	"config.toml": "logLevel = \"debug\"\n[browser]\nbaseURL = \"https://a.test\"\nheadful = true\n",
	"config.json": `{"logLevel":"debug","browser":{"baseURL":"https://a.test","headful":true}}`,
}

func writeSample(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(sampleFiles[name]), 0o600))
	return path
}

func TestForFileFeedsEveryFormat(t *testing.T) {
	for name := range sampleFiles {
		t.Run(name, func(t *testing.T) {
			f, err := ForFile(writeSample(t, name))
			require.NoError(t, err)

			var cfg fileConfig
			require.NoError(t, config.New().AddFeeder(f).AddStruct(&cfg).Feed())

			assert.Equal(t, "debug", cfg.LogLevel)
			assert.Equal(t, browserSection{BaseURL: "https://a.test", Headful: true}, cfg.Browser)
		})
	}
}

func TestForFileRejectsUnknownExtension(t *testing.T) {
	_, err := ForFile("settings.ini")
	assert.ErrorIs(t, err, ErrUnsupportedExtension)
	assert.Contains(t, err.Error(), ".ini")
}

func TestEnvFeederOverridesFile(t *testing.T) {
	t.Setenv("FEEDERS_TEST_LOG_LEVEL", "warn")
	f, err := ForFile(writeSample(t, "config.yaml"))
	require.NoError(t, err)

	var cfg fileConfig
	require.NoError(t, config.New().AddFeeder(f, NewEnvFeeder()).AddStruct(&cfg).Feed())

	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "https://a.test", cfg.Browser.BaseURL)
}
