package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".mailscan"

// File represents the structure of the .mailscan configuration file.
//
// Every field is a pointer so that Apply can tell "not set" apart from a
// zero value: `dns_validation: false` must disable validation, while a
// missing key must keep the default.
type File struct {
	// OutputPath is the results file.
	OutputPath *string `yaml:"output_path,omitempty"`

	// MaxDepth is the number of link hops followed from a seed.
	MaxDepth *int `yaml:"max_depth,omitempty"`

	// Concurrency is the number of crawl workers.
	Concurrency *int `yaml:"concurrency,omitempty"`

	// RequestTimeout is the per-request timeout in seconds.
	RequestTimeout *float64 `yaml:"request_timeout,omitempty"`

	// DNSValidation enables DNS lookups for email domains.
	DNSValidation *bool `yaml:"dns_validation,omitempty"`

	// Proxy is an optional proxy URL.
	Proxy *string `yaml:"proxy,omitempty"`

	// AllowedDomains restricts fetching to these hostnames.
	AllowedDomains []string `yaml:"allowed_domains,omitempty"`

	// DNSWorkers bounds the number of concurrent DNS lookups.
	DNSWorkers *int `yaml:"dns_workers,omitempty"`

	// DNSTimeout is the per-lookup timeout in seconds.
	DNSTimeout *float64 `yaml:"dns_timeout,omitempty"`

	// UserAgent is the User-Agent header.
	UserAgent *string `yaml:"user_agent,omitempty"`

	// MaxBodySize is the response body limit in bytes.
	MaxBodySize *int64 `yaml:"max_body_size,omitempty"`
}

// Apply overlays every value set in the file onto cfg.
func (cf *File) Apply(cfg *Config) {
	if cf == nil || cfg == nil {
		return
	}

	if cf.OutputPath != nil {
		cfg.OutputPath = *cf.OutputPath
	}
	if cf.MaxDepth != nil {
		cfg.MaxDepth = *cf.MaxDepth
	}
	if cf.Concurrency != nil {
		cfg.Concurrency = *cf.Concurrency
	}
	if cf.RequestTimeout != nil {
		cfg.RequestTimeout = seconds(*cf.RequestTimeout)
	}
	if cf.DNSValidation != nil {
		cfg.DNSValidation = *cf.DNSValidation
	}
	if cf.Proxy != nil {
		cfg.Proxy = *cf.Proxy
	}
	if len(cf.AllowedDomains) > 0 {
		cfg.AllowedDomains = append([]string(nil), cf.AllowedDomains...)
	}
	if cf.DNSWorkers != nil {
		cfg.DNSWorkers = *cf.DNSWorkers
	}
	if cf.DNSTimeout != nil {
		cfg.DNSTimeout = seconds(*cf.DNSTimeout)
	}
	if cf.UserAgent != nil {
		cfg.UserAgent = *cf.UserAgent
	}
	if cf.MaxBodySize != nil {
		cfg.MaxBodySize = *cf.MaxBodySize
	}
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// LoadConfigFile loads a YAML configuration file.
// If the file does not exist, it returns ErrConfigNotFound.
// Callers should handle this error appropriately based on whether
// the config file path was explicitly specified by the user.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	return &cf, nil
}

// FindConfigFile searches for the configuration file in the following order:
// 1. If configPath is specified, use it directly
// 2. Look for .mailscan in the current directory
// 3. Look for .mailscan in the XDG config directory
// 4. Look for .mailscan in the user's home directory
//
// Returns the path to the configuration file if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	var candidates []string
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, DefaultConfigFile))
	}
	candidates = append(candidates, filepath.Join(XDGConfigDir(), DefaultConfigFile))
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, DefaultConfigFile))
	}

	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}

	return ""
}

// ReadSeedFile reads start URLs from path, one per line.
// Surrounding whitespace is trimmed; blank lines and lines starting with
// "#" are skipped.
func ReadSeedFile(path string) ([]string, error) {
	f, err := os.Open(path) //nolint:gosec // User-provided input path is intentional
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}
	defer f.Close()

	var seeds []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		seeds = append(seeds, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read input file: %w", err)
	}

	return seeds, nil
}
