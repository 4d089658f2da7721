package feeders

import "github.com/golobby/config/v3/pkg/feeder"

// JSONFeeder is a feeder that reads JSON files
type JSONFeeder struct {
	feeder.Json
}

// NewJSONFeeder creates a new JSONFeeder that reads from the specified JSON file
func NewJSONFeeder(filePath string) JSONFeeder {
	return JSONFeeder{feeder.Json{Path: filePath}}
}
