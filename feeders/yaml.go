package feeders

import "github.com/golobby/config/v3/pkg/feeder"

// YamlFeeder is a feeder that reads YAML files
type YamlFeeder struct {
	feeder.Yaml
}

// NewYamlFeeder creates a new YamlFeeder that reads from the specified YAML file
func NewYamlFeeder(filePath string) YamlFeeder {
	return YamlFeeder{feeder.Yaml{Path: filePath}}
}
