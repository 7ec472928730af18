package cfg

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/lysyi3m/rss-herald/internal/feed"
)

type sourcesFile struct {
	Sources []sourceConfig `yaml:"sources"`
}

type sourceConfig struct {
	Category string         `yaml:"category"`
	URL      string         `yaml:"url"`
	Enabled  *bool          `yaml:"enabled"`
	Filters  []filterConfig `yaml:"filters"`
}

type filterConfig struct {
	Field    string   `yaml:"field"`
	Includes []string `yaml:"includes"`
	Excludes []string `yaml:"excludes"`
}

// LoadSources reads the enabled feed sources from a YAML file. An empty
// result is an error.
func LoadSources(path string) ([]feed.Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var file sourcesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	var sources []feed.Source
	for i, sc := range file.Sources {
		if err := validateSource(sc); err != nil {
			return nil, fmt.Errorf("invalid source %d: %w", i+1, err)
		}

		if sc.Enabled != nil && !*sc.Enabled {
			slog.Debug("Source disabled", "category", sc.Category)
			continue
		}

		source := feed.Source{Category: sc.Category, URL: sc.URL}
		for _, fc := range sc.Filters {
			source.Filters = append(source.Filters, feed.Filter{
				Field:    fc.Field,
				Includes: fc.Includes,
				Excludes: fc.Excludes,
			})
		}
		sources = append(sources, source)
	}

	if len(sources) == 0 {
		return nil, fmt.Errorf("no enabled sources in %s", path)
	}

	return sources, nil
}

func validateSource(sc sourceConfig) error {
	if sc.Category == "" {
		return fmt.Errorf("category is required")
	}
	if sc.URL == "" {
		return fmt.Errorf("url is required")
	}

	u, err := url.Parse(sc.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid url: %s", sc.URL)
	}

	for _, fc := range sc.Filters {
		if !feed.FilterFields[fc.Field] {
			return fmt.Errorf("invalid filter field: %s", fc.Field)
		}
		if len(fc.Includes) == 0 && len(fc.Excludes) == 0 {
			return fmt.Errorf("filter on %s has neither includes nor excludes", fc.Field)
		}
	}

	return nil
}
