package config

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultRulesGlob matches the rule files LoadDir picks up when no
// pattern is given.
const DefaultRulesGlob = "**/*.{json,yaml,yml}"

// LoadDir loads every config file under dir whose path (relative to
// dir) matches the doublestar glob pattern, and merges them in lexical
// path order: rules are concatenated, proxy ports are unioned, and the
// first file to set a version or logging option wins.
func LoadDir(dir, pattern string) (*Config, error) {
	if pattern == "" {
		pattern = DefaultRulesGlob
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid glob pattern %q", pattern)
	}

	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		ok, err := doublestar.Match(pattern, filepath.ToSlash(rel))
		if err != nil {
			return err
		}
		if ok {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", dir, err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no config files matching %q under %s", pattern, dir)
	}
	sort.Strings(paths)

	merged := &Config{}
	for _, path := range paths {
		cfg, err := Load(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		merge(merged, cfg)
	}

	// Re-check the merged document: files that are individually valid
	// can still collide on rule IDs or ports.
	if result := merged.Validate(); !result.IsValid() {
		return nil, fmt.Errorf("validation failed after merge:\n%s", result.Error())
	}
	return merged, nil
}

func merge(dst, src *Config) {
	if dst.Version == "" {
		dst.Version = src.Version
	}
	if dst.Logging.Level == "" {
		dst.Logging.Level = src.Logging.Level
	}
	if dst.Logging.Format == "" {
		dst.Logging.Format = src.Logging.Format
	}

	seen := make(map[int]bool, len(dst.ProxyPorts))
	for _, p := range dst.ProxyPorts {
		seen[p] = true
	}
	for _, p := range src.ProxyPorts {
		if !seen[p] {
			dst.ProxyPorts = append(dst.ProxyPorts, p)
			seen[p] = true
		}
	}

	dst.Rules = append(dst.Rules, src.Rules...)
}
