// Package phrases loads the phrase pool from a newline-delimited file.
package phrases

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/verte-zerg/entrylab/internal/assets"
)

// DefaultFile is the phrase file name inside the assets location.
const DefaultFile = "phrases.txt"

// Parse returns one phrase per non-blank line.
func Parse(data []byte) []string {
	var out []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	return out
}

// Load fetches and parses name from src.
func Load(ctx context.Context, src assets.Fetcher, name string) ([]string, error) {
	data, err := src.Fetch(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to load phrases: %w", err)
	}
	pool := Parse(data)
	if len(pool) == 0 {
		return nil, fmt.Errorf("phrase list %s is empty", name)
	}
	return pool, nil
}
