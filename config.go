package webppl

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// LoadOptions reads compiler options from a webppl.yaml file.
func LoadOptions(path string) (Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Options{}, fmt.Errorf("reading config %s: %w", path, err)
	}
	return ParseOptions(data, path)
}

// ParseOptions parses webppl.yaml content from bytes. The path
// argument is used only for error messages.
func ParseOptions(data []byte, path string) (Options, error) {
	var opts Options
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return Options{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	if len(opts.CacheFunctions) > 0 && !opts.Caching {
		return Options{}, fmt.Errorf("%s: cache_functions listed but caching is disabled", path)
	}
	return opts, nil
}

// FindOptions searches for webppl.yaml starting from dir and walking
// up to parent directories. Returns the empty string when no config
// file exists.
func FindOptions(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, "webppl.yaml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}
