// Package assets fetches named files from a local directory or a web
// server. Directory sources can also list their contents; web sources
// cannot, and callers fall back to an index manifest.
package assets

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when a named asset does not exist.
var ErrNotFound = errors.New("asset not found")

// Fetcher retrieves one asset by name.
type Fetcher interface {
	Fetch(ctx context.Context, name string) ([]byte, error)
	Location() string
}

// Lister enumerates the assets a source holds.
type Lister interface {
	List(ctx context.Context) ([]string, error)
}

// Open picks a source for location: http(s) URLs are served over HTTP,
// anything else is a local directory.
func Open(location string) (Fetcher, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return nil, fmt.Errorf("asset location is empty")
	}
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		return NewHTTP(location, nil)
	}
	return NewDir(location), nil
}

func validName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("invalid asset name %q", name)
	}
	return nil
}
