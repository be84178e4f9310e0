package config

import (
	"path/filepath"
	"runtime"
	"time"

	"github.com/adrg/xdg"
	"github.com/nao1215/mailscan/internal/transport"
)

// Default configuration values.
// They match the defaults of the settings file shipped with the first
// releases of the scraper, so an empty config file changes nothing.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "mailscan"

	// DefaultMaxDepth follows links two hops away from each seed.
	// Depth 0 fetches only the seeds.
	DefaultMaxDepth = 2

	// DefaultConcurrency is the number of crawl workers, and so the maximum
	// number of requests in flight at once.
	DefaultConcurrency = 10

	// DefaultRequestTimeout bounds a single page fetch, body included.
	DefaultRequestTimeout = 10 * time.Second

	// DefaultDNSTimeout bounds a single DNS lookup.
	DefaultDNSTimeout = 5 * time.Second

	// DefaultOutputPath is where results are written when --output is not given.
	DefaultOutputPath = "results.json"

	// DefaultUserAgent identifies MailScan in HTTP requests.
	DefaultUserAgent = transport.DefaultUserAgent

	// DefaultMaxBodySize limits the maximum response body size to read.
	DefaultMaxBodySize = transport.DefaultMaxBodySize

	// DefaultLogLevel is the log level used without --log-level or --verbose.
	DefaultLogLevel = "INFO"
)

// Output formats accepted by Config.Format.
const (
	// FormatJSON writes a JSON array of {"email", "dnsLookup"} objects.
	FormatJSON = "json"

	// FormatReport writes the whole crawl report, statistics included, as JSON.
	FormatReport = "report"

	// FormatMarkdown writes a GitHub Flavored Markdown report.
	FormatMarkdown = "markdown"

	// FormatText writes a human-readable summary.
	FormatText = "text"
)

// Formats lists every supported output format.
var Formats = []string{FormatJSON, FormatReport, FormatMarkdown, FormatText}

// DefaultDNSWorkers returns the default size of the DNS lookup pool:
// min(32, NumCPU+4).
func DefaultDNSWorkers() int {
	return min(32, runtime.NumCPU()+4)
}

// Config holds all configuration options for MailScan.
// It is populated from defaults, then the optional config file, then CLI
// flags, and passed through the application rather than kept in globals.
//
// Design decision: We use a single flat struct instead of nested structs
// (e.g., CrawlConfig, OutputConfig) for simplicity. The number of options
// is manageable, and nesting would add complexity without significant benefit.
type Config struct {
	// Seeds are the start URLs collected from arguments and the input file.
	Seeds []string

	// InputFile is an optional file with one start URL per line.
	InputFile string

	// OutputPath is the file the results are written to.
	// "-" writes to stdout.
	OutputPath string

	// Format selects the result writer. See Formats.
	Format string

	// MaxDepth is the number of link hops followed from a seed.
	MaxDepth int

	// Concurrency is the number of crawl workers.
	Concurrency int

	// RequestTimeout is the deadline for a single fetch.
	RequestTimeout time.Duration

	// DNSValidation enables DNS lookups for discovered email domains.
	// When false, every discovered email is reported as valid.
	DNSValidation bool

	// DNSWorkers bounds the number of concurrent DNS lookups.
	DNSWorkers int

	// DNSTimeout bounds a single DNS lookup.
	DNSTimeout time.Duration

	// Proxy is an optional proxy URL (http, https, socks5 or socks5h).
	// It may carry credentials, so it must never be logged unredacted.
	Proxy string

	// AllowedDomains optionally restricts fetching to these hostnames.
	// Empty means every host may be fetched.
	AllowedDomains []string

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes to read.
	MaxBodySize int64

	// LogLevel is one of DEBUG, INFO, WARNING or ERROR.
	LogLevel string

	// Verbose forces the DEBUG log level.
	Verbose bool

	// ConfigFilePath is an explicit path to the configuration file.
	// If empty, FindConfigFile searches the default locations.
	ConfigFilePath string

	// SaveHistory records the finished crawl in the history database.
	SaveHistory bool

	// DBDir is the directory holding the history database.
	// Defaults to the XDG data directory (~/.local/share/mailscan on Linux).
	DBDir string
}

// NewConfig creates a new Config with default values.
//
// Design decision: We use a constructor function instead of relying on
// zero values because many defaults are non-zero (e.g., timeouts, DNS
// validation). This also serves as documentation of what the defaults are.
func NewConfig() *Config {
	return &Config{
		OutputPath:     DefaultOutputPath,
		Format:         FormatJSON,
		MaxDepth:       DefaultMaxDepth,
		Concurrency:    DefaultConcurrency,
		RequestTimeout: DefaultRequestTimeout,
		DNSValidation:  true,
		DNSWorkers:     DefaultDNSWorkers(),
		DNSTimeout:     DefaultDNSTimeout,
		UserAgent:      DefaultUserAgent,
		MaxBodySize:    DefaultMaxBodySize,
		LogLevel:       DefaultLogLevel,
		SaveHistory:    true,
		DBDir:          XDGDataDir(),
	}
}

// XDGDataDir returns the XDG data directory for MailScan.
// On Linux: ~/.local/share/mailscan
// On macOS: ~/Library/Application Support/mailscan
// On Windows: %LOCALAPPDATA%\mailscan
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for MailScan.
// On Linux: ~/.config/mailscan
// On macOS: ~/Library/Application Support/mailscan
// On Windows: %APPDATA%\mailscan
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns the first sentinel error describing what is invalid.
//
// We chose to return the first error found rather than collecting all errors
// because fixing one error often makes others irrelevant.
func (c *Config) Validate() error {
	if len(c.Seeds) == 0 {
		return ErrNoSeeds
	}
	return c.ValidateSettings()
}

// ValidateSettings checks every option except the seed list.
// The CLI uses it so that an empty seed list is reported rather than fatal.
func (c *Config) ValidateSettings() error {
	if c.MaxDepth < 0 {
		return ErrInvalidMaxDepth
	}

	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}

	if c.RequestTimeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.DNSValidation {
		if c.DNSWorkers <= 0 {
			return ErrInvalidDNSWorkers
		}
		if c.DNSTimeout <= 0 {
			return ErrInvalidDNSTimeout
		}
	}

	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}

	if c.OutputPath == "" {
		return ErrNoOutput
	}

	if !IsValidFormat(c.Format) {
		return ErrUnknownFormat
	}

	return nil
}

// IsValidFormat reports whether format is one of Formats.
func IsValidFormat(format string) bool {
	for _, f := range Formats {
		if f == format {
			return true
		}
	}
	return false
}
