// Package templates loads and saves the gesture template library.
package templates

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"github.com/verte-zerg/entrylab/internal/assets"
	"github.com/verte-zerg/entrylab/internal/geom"
	"github.com/verte-zerg/entrylab/internal/gesture"
)

// IndexName is the manifest listing template files for sources that cannot
// list a directory.
const IndexName = "index.txt"

// ErrReadOnly is returned when saving to a source that is not a local
// directory.
var ErrReadOnly = errors.New("template store is read-only")

type fileTemplate struct {
	Name   string      `json:"name" yaml:"name"`
	Points []geom.Vec3 `json:"points" yaml:"points"`
}

// Store reads templates from an asset source.
type Store struct {
	src    assets.Fetcher
	logger *slog.Logger
}

// New returns a store over src.
func New(src assets.Fetcher, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{src: src, logger: logger}
}

// Location returns where templates are read from.
func (s *Store) Location() string {
	return s.src.Location()
}

// Load reads every template the source offers. Files that fail to fetch or
// parse are skipped with a warning. An error is returned only when the set
// of files cannot be determined at all.
func (s *Store) Load(ctx context.Context) ([]gesture.Template, error) {
	names, err := s.names(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]gesture.Template, 0, len(names))
	for _, name := range names {
		data, err := s.src.Fetch(ctx, name)
		if err != nil {
			if ctx.Err() != nil {
				return out, ctx.Err()
			}
			s.logger.Warn("skipping gesture template", "file", name, "error", err)
			continue
		}
		tmpl, err := Decode(name, data)
		if err != nil {
			s.logger.Warn("skipping gesture template", "file", name, "error", err)
			continue
		}
		out = append(out, tmpl)
	}
	s.logger.Debug("gesture templates loaded", "count", len(out), "location", s.src.Location())
	return out, nil
}

func (s *Store) names(ctx context.Context) ([]string, error) {
	if lister, ok := s.src.(assets.Lister); ok {
		all, err := lister.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list templates: %w", err)
		}
		names := make([]string, 0, len(all))
		for _, name := range all {
			if isTemplateFile(name) {
				names = append(names, name)
			}
		}
		return names, nil
	}
	data, err := s.src.Fetch(ctx, IndexName)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch template index: %w", err)
	}
	return parseIndex(data), nil
}

func parseIndex(data []byte) []string {
	var names []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		names = append(names, line)
	}
	return names
}

// templatePattern matches the file names Load and WriteIndex consider.
const templatePattern = "*.{json,yaml,yml}"

func isTemplateFile(name string) bool {
	ok, err := doublestar.Match(templatePattern, strings.ToLower(filepath.Base(name)))
	return err == nil && ok
}

// Decode parses a template file. The encoding follows the extension; a
// template without a name takes its label from the file name.
func Decode(file string, data []byte) (gesture.Template, error) {
	var ft fileTemplate
	switch strings.ToLower(filepath.Ext(file)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &ft); err != nil {
			return gesture.Template{}, fmt.Errorf("failed to decode %s: %w", file, err)
		}
	default:
		if err := json.Unmarshal(data, &ft); err != nil {
			return gesture.Template{}, fmt.Errorf("failed to decode %s: %w", file, err)
		}
	}
	name := strings.TrimSpace(ft.Name)
	if name == "" {
		name = labelFromFile(file)
	}
	if name == "" {
		return gesture.Template{}, fmt.Errorf("template %s has no name", file)
	}
	if len(ft.Points) == 0 {
		return gesture.Template{}, fmt.Errorf("template %s has no points", file)
	}
	points := make(gesture.PointSet, len(ft.Points))
	for i, p := range ft.Points {
		points[i] = geom.Vec2{X: p.X, Y: p.Y}
	}
	return gesture.Template{Name: name, Points: points}, nil
}

// Encode serializes a template as JSON with z = 0.
func Encode(t gesture.Template) ([]byte, error) {
	ft := fileTemplate{Name: t.Name, Points: make([]geom.Vec3, len(t.Points))}
	for i, p := range t.Points {
		ft.Points[i] = geom.Vec3{X: p.X, Y: p.Y}
	}
	return json.MarshalIndent(ft, "", "  ")
}

func labelFromFile(file string) string {
	base := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
	if i := strings.LastIndex(base, "_"); i > 0 {
		base = base[:i]
	}
	return base
}

// Save writes points as lower(name)_N.json, N being the smallest positive
// integer without an existing file. It returns the written path.
func (s *Store) Save(name string, points gesture.PointSet) (string, error) {
	dir, ok := s.src.(*assets.Dir)
	if !ok {
		return "", ErrReadOnly
	}
	label := strings.ToLower(strings.TrimSpace(name))
	if label == "" || strings.ContainsAny(label, `/\`) {
		return "", fmt.Errorf("invalid template name %q", name)
	}
	if len(points) == 0 {
		return "", fmt.Errorf("no gesture points to save")
	}
	data, err := Encode(gesture.Template{Name: label, Points: points})
	if err != nil {
		return "", fmt.Errorf("failed to encode template: %w", err)
	}
	if err := os.MkdirAll(dir.Location(), 0o755); err != nil {
		return "", fmt.Errorf("failed to create template directory: %w", err)
	}
	for n := 1; ; n++ {
		path := dir.Path(fmt.Sprintf("%s_%d.json", label, n))
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err != nil {
			if errors.Is(err, os.ErrExist) {
				continue
			}
			return "", fmt.Errorf("failed to create template: %w", err)
		}
		if _, err := f.Write(data); err != nil {
			_ = f.Close()
			_ = os.Remove(path)
			return "", fmt.Errorf("failed to write template: %w", err)
		}
		if err := f.Close(); err != nil {
			return "", fmt.Errorf("failed to close template: %w", err)
		}
		s.logger.Info("gesture template saved", "path", path)
		return path, nil
	}
}

// WriteIndex regenerates the index manifest from the directory listing and
// returns the number of entries written.
func (s *Store) WriteIndex(ctx context.Context) (int, error) {
	dir, ok := s.src.(*assets.Dir)
	if !ok {
		return 0, ErrReadOnly
	}
	all, err := dir.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list templates: %w", err)
	}
	var b strings.Builder
	count := 0
	for _, name := range all {
		if !isTemplateFile(name) {
			continue
		}
		b.WriteString(name)
		b.WriteByte('\n')
		count++
	}
	if err := assets.WriteFile(dir.Path(IndexName), []byte(b.String())); err != nil {
		return 0, err
	}
	return count, nil
}

// CountByLabel returns template counts keyed by label and the labels in
// sorted order.
func CountByLabel(ts []gesture.Template) (map[string]int, []string) {
	counts := map[string]int{}
	for _, t := range ts {
		counts[t.Name]++
	}
	labels := make([]string, 0, len(counts))
	for label := range counts {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return counts, labels
}
