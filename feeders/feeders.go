// Package feeders provides configuration feeders for scenariokit config
// files (YAML, TOML, JSON) and the process environment, built on
// github.com/golobby/config/v3.
package feeders

import (
	"path/filepath"
	"strings"

	"github.com/golobby/config/v3"
)

// ForFile returns the feeder matching the extension of path.
func ForFile(path string) (config.Feeder, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		return NewYamlFeeder(path), nil
	case ".toml":
		return NewTomlFeeder(path), nil
	case ".json":
		return NewJSONFeeder(path), nil
	default:
		return nil, wrapExtensionError(path, ext)
	}
}
