package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".webkb.yaml"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// LoadConfigFile loads site configurations from a YAML file.
// If the file does not exist, it returns ErrConfigNotFound.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, err
	}
	if cf.Sites == nil {
		cf.Sites = make(map[string]SiteConfig)
	}
	return &cf, nil
}

// FindConfigFile returns configPath when it exists, otherwise the first
// .webkb.yaml found in the current directory, the user's home directory
// and the XDG config directory. It returns "" when there is none.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	candidates := make([]string, 0, 3)
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, DefaultConfigFile))
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, DefaultConfigFile))
	}
	candidates = append(candidates, filepath.Join(XDGConfigDir(), "config.yaml"))

	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	return ""
}

// SampleConfig is written by `webkb init`.
const SampleConfig = `# webkb configuration file
#
# defaults apply to every crawl; sites override them per host.

defaults:
  # maxDepth: 3
  # maxPages: 50
  # userAgent: "Mozilla/5.0 ..."
  # headers:
  #   Accept-Language: "en-US,en;q=0.9"

sites:
  # docs.example.com:
  #   maxDepth: 5
  #   pathPrefixes:
  #     - /docs
  #   allowedHosts:
  #     - docs.example.com
  #     - api.example.com
  #   mainSelectors:
  #     - "div.markdown-body"
  #   cookie: "session=abc123"
`
