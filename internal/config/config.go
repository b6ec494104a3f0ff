// Package config handles run configuration loading and validation.
package config

import (
	"errors"
	"net/url"
	"os"
	"time"

	"github.com/woozymasta/geoscrape/internal/textutil"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Defaults applied by ApplyDefaults.
const (
	DefaultStartURL    = "https://wikimapia.org/country/"
	DefaultOutDir      = "output"
	DefaultTimeout     = 30 * time.Second
	DefaultMaxPages    = 200
	DefaultMaxBodySize = 10 << 20
	DefaultUserAgent   = "geoscrape/1.0 (+https://github.com/woozymasta/geoscrape)"

	// DefaultName is the output file name used when the search name yields an empty slug.
	DefaultName = "output"
)

// Validation errors returned by RunConfig.Validate.
var (
	ErrNoSearchName    = errors.New("no search name: pass it as an argument or set WIKI_SEARCHNAME")
	ErrInvalidStartURL = errors.New("invalid start url: must be an absolute http(s) url")
	ErrInvalidTimeout  = errors.New("invalid timeout: must be positive")
	ErrInvalidDepth    = errors.New("invalid depth: must be non-negative")
	ErrInvalidMaxPages = errors.New("invalid max pages: must be positive")
)

// RunConfig holds everything a single scrape run needs.
// It is assembled once at startup and treated as read-only afterwards.
type RunConfig struct {
	SearchName   string        `yaml:"search_name"`
	StartURL     string        `yaml:"start_url"`
	OutDir       string        `yaml:"out_dir"`
	LinkSelector string        `yaml:"link_selector,omitempty"`
	UserAgent    string        `yaml:"user_agent,omitempty"`
	Timeout      time.Duration `yaml:"timeout,omitempty"`
	MaxBodySize  int64         `yaml:"max_body_size,omitempty"`

	// Depth of the sub-location crawl below the target page, 0 visits the target page only.
	Depth    int  `yaml:"depth,omitempty"`
	MaxPages int  `yaml:"max_pages,omitempty"`
	Describe bool `yaml:"describe,omitempty"`
	Compact  bool `yaml:"compact,omitempty"`
	Preview  bool `yaml:"preview,omitempty"`
}

// Load reads and parses the YAML configuration file from the specified path.
func Load(path string) (*RunConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "config: read %s", path)
	}

	var cfg RunConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, eris.Wrapf(err, "config: parse %s", path)
	}

	return &cfg, nil
}

// ApplyDefaults fills every unset field with its default value.
func (c *RunConfig) ApplyDefaults() {
	if c.StartURL == "" {
		c.StartURL = DefaultStartURL
	}
	if c.OutDir == "" {
		c.OutDir = DefaultOutDir
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxPages == 0 {
		c.MaxPages = DefaultMaxPages
	}
	if c.MaxBodySize <= 0 {
		c.MaxBodySize = DefaultMaxBodySize
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
}

// Validate checks the configuration and returns the first problem found.
func (c *RunConfig) Validate() error {
	if textutil.Normalize(c.SearchName) == "" {
		return ErrNoSearchName
	}

	u, err := url.Parse(c.StartURL)
	if err != nil || !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidStartURL
	}

	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.Depth < 0 {
		return ErrInvalidDepth
	}
	if c.MaxPages <= 0 {
		return ErrInvalidMaxPages
	}

	return nil
}

// Slug returns the file name stem for the run output.
func (c *RunConfig) Slug() string {
	if s := textutil.Slugify(c.SearchName); s != "" {
		return s
	}
	return DefaultName
}
