package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/nao1215/mailscan/internal/config"
	"github.com/nao1215/mailscan/internal/crawler"
	"github.com/nao1215/mailscan/internal/database"
	"github.com/nao1215/mailscan/internal/log"
	"github.com/nao1215/mailscan/internal/model"
	"github.com/nao1215/mailscan/internal/report"
	"github.com/spf13/cobra"
)

// Log output formats accepted by --log-format.
const (
	logFormatText = "text"
	logFormatJSON = "json"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl [url...]",
		Short: "Crawl web sites and collect email addresses",
		Long: `Crawl fetches every seed URL, follows links up to --max-depth hops away and
collects the email addresses found on each page.

Seed URLs come from the arguments and from --input (one URL per line,
blank lines and lines starting with # are ignored). URLs without a scheme
are fetched over http.

Pressing Ctrl+C stops the crawl; the addresses found so far are still
written to the output.

Examples:
  # Crawl a single site
  mailscan crawl https://example.com

  # Crawl the URLs listed in a file and write a Markdown report
  mailscan crawl --input urls.txt --format markdown --output report.md

  # Stay on one host, skip DNS validation, print to stdout
  mailscan crawl --allow-domain example.com --no-dns-validation -o - example.com

  # Crawl through a SOCKS5 proxy
  mailscan crawl --proxy socks5h://127.0.0.1:9050 https://example.com`,
		Args: cobra.ArbitraryArgs,
		RunE: runCrawlCmd,
	}

	// Input and output flags
	cmd.Flags().StringP("input", "i", "",
		"File with one seed URL per line")
	cmd.Flags().StringP("output", "o", config.DefaultOutputPath,
		`Write results to this file ("-" for stdout)`)
	cmd.Flags().StringP("format", "f", config.FormatJSON,
		"Output format: "+strings.Join(config.Formats, ", "))

	// Crawl behavior flags
	cmd.Flags().IntP("max-depth", "d", config.DefaultMaxDepth,
		"Maximum number of link hops from a seed (0 fetches only the seeds)")
	cmd.Flags().IntP("concurrency", "n", config.DefaultConcurrency,
		"Number of pages fetched in parallel")
	cmd.Flags().DurationP("timeout", "t", config.DefaultRequestTimeout,
		"Timeout for each request")
	cmd.Flags().StringP("proxy", "x", "",
		"Proxy URL (http, https, socks5 or socks5h)")
	cmd.Flags().StringSliceP("allow-domain", "a", nil,
		"Only fetch pages on this host (repeatable)")
	cmd.Flags().String("user-agent", config.DefaultUserAgent,
		"User-Agent header for HTTP requests")
	cmd.Flags().Int64("max-body-size", config.DefaultMaxBodySize,
		"Maximum response body size in bytes")

	// DNS validation flags
	cmd.Flags().Bool("no-dns-validation", false,
		"Skip DNS validation of email domains")
	cmd.Flags().Int("dns-workers", config.DefaultDNSWorkers(),
		"Maximum number of DNS lookups in flight")
	cmd.Flags().Duration("dns-timeout", config.DefaultDNSTimeout,
		"Timeout for each DNS lookup")

	// Configuration, history and logging
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .mailscan in current, XDG config or home directory)")
	cmd.Flags().Bool("no-history", false,
		"Do not record this crawl in the history database")
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory of the history database")
	cmd.Flags().String("log-level", config.DefaultLogLevel,
		"Log level: DEBUG, INFO, WARNING or ERROR")
	cmd.Flags().String("log-format", logFormatText,
		"Log format: text or json")

	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.ValidateSettings(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logFormat, err := cmd.Flags().GetString("log-format")
	if err != nil {
		return err
	}
	logger, err := newLogger(cmd.ErrOrStderr(), cfg, logFormat)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	// Nothing to crawl is reported, not fatal; no output or history is written.
	if len(cfg.Seeds) == 0 {
		logger.Warn("no URLs to crawl; pass URLs as arguments or use --input", "input", cfg.InputFile)
		return nil
	}

	// SIGINT/SIGTERM stop the crawl; partial results are still written.
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runCrawl(ctx, cfg, cmd.OutOrStdout(), cmd.ErrOrStderr(), logger)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from defaults, the configuration file and
// the flags the user actually set, in that order of precedence.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error
	cfg.ConfigFilePath, err = flags.GetString("config")
	if err != nil {
		return nil, err
	}

	// An explicit --config that does not exist is an error; a missing
	// default config file is not.
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	if configPath != "" {
		file, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		file.Apply(cfg)
	} else if cfg.ConfigFilePath != "" {
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	}

	if err := applyFlags(cmd, cfg); err != nil {
		return nil, err
	}

	cfg.Verbose = getVerboseFlag(cmd)

	cfg.Seeds = append(cfg.Seeds, args...)
	if cfg.InputFile != "" {
		seeds, err := config.ReadSeedFile(cfg.InputFile)
		if err != nil {
			return nil, err
		}
		cfg.Seeds = append(cfg.Seeds, seeds...)
	}

	return cfg, nil
}

// applyFlags copies every flag the user set on the command line into cfg.
// Flags left at their default do not override the configuration file.
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()

	stringFlags := map[string]*string{
		"input":      &cfg.InputFile,
		"output":     &cfg.OutputPath,
		"format":     &cfg.Format,
		"proxy":      &cfg.Proxy,
		"user-agent": &cfg.UserAgent,
		"db-dir":     &cfg.DBDir,
		"log-level":  &cfg.LogLevel,
	}
	for name, dst := range stringFlags {
		if !flags.Changed(name) {
			continue
		}
		v, err := flags.GetString(name)
		if err != nil {
			return err
		}
		*dst = v
	}

	intFlags := map[string]*int{
		"max-depth":   &cfg.MaxDepth,
		"concurrency": &cfg.Concurrency,
		"dns-workers": &cfg.DNSWorkers,
	}
	for name, dst := range intFlags {
		if !flags.Changed(name) {
			continue
		}
		v, err := flags.GetInt(name)
		if err != nil {
			return err
		}
		*dst = v
	}

	durationFlags := map[string]*time.Duration{
		"timeout":     &cfg.RequestTimeout,
		"dns-timeout": &cfg.DNSTimeout,
	}
	for name, dst := range durationFlags {
		if !flags.Changed(name) {
			continue
		}
		v, err := flags.GetDuration(name)
		if err != nil {
			return err
		}
		*dst = v
	}

	// Negated switches: --no-x turns x off.
	negatedFlags := map[string]*bool{
		"no-dns-validation": &cfg.DNSValidation,
		"no-history":        &cfg.SaveHistory,
	}
	for name, dst := range negatedFlags {
		if !flags.Changed(name) {
			continue
		}
		v, err := flags.GetBool(name)
		if err != nil {
			return err
		}
		*dst = !v
	}

	if flags.Changed("allow-domain") {
		domains, err := flags.GetStringSlice("allow-domain")
		if err != nil {
			return err
		}
		cfg.AllowedDomains = domains
	}

	if flags.Changed("max-body-size") {
		size, err := flags.GetInt64("max-body-size")
		if err != nil {
			return err
		}
		cfg.MaxBodySize = size
	}

	return nil
}

// newLogger creates the secure structured logger for a crawl.
// --verbose forces DEBUG regardless of --log-level.
func newLogger(w io.Writer, cfg *config.Config, format string) (*slog.Logger, error) {
	level := slog.LevelDebug
	if !cfg.Verbose {
		var err error
		level, err = log.ParseLevel(cfg.LogLevel)
		if err != nil {
			return nil, err
		}
	}

	switch format {
	case logFormatText:
		return log.NewSecureLogger(w, level), nil
	case logFormatJSON:
		return log.NewSecureJSONLogger(w, level), nil
	default:
		return nil, fmt.Errorf("unknown log format %q: expected %s or %s", format, logFormatText, logFormatJSON)
	}
}

// runCrawl runs one crawl and writes its results.
// An interrupted crawl still writes and records the partial result, then
// returns the interruption error.
func runCrawl(ctx context.Context, cfg *config.Config, stdout, stderr io.Writer, logger *slog.Logger) error {
	logger.Debug("crawl configuration",
		"seeds", len(cfg.Seeds),
		"maxDepth", cfg.MaxDepth,
		"concurrency", cfg.Concurrency,
		"dnsValidation", cfg.DNSValidation,
		"proxy", cfg.Proxy,
		"output", cfg.OutputPath,
		"format", cfg.Format,
	)

	crawlReport, crawlErr := crawler.Run(ctx, crawler.Params{
		Seeds:          cfg.Seeds,
		MaxDepth:       cfg.MaxDepth,
		Concurrency:    cfg.Concurrency,
		RequestTimeout: cfg.RequestTimeout,
		DNSValidate:    cfg.DNSValidation,
		DNSWorkers:     cfg.DNSWorkers,
		DNSTimeout:     cfg.DNSTimeout,
		Proxy:          cfg.Proxy,
		AllowedDomains: cfg.AllowedDomains,
		UserAgent:      cfg.UserAgent,
		MaxBodySize:    cfg.MaxBodySize,
	}, logger)
	if crawlReport == nil {
		return crawlErr
	}
	if crawlErr != nil {
		logger.Warn("crawl stopped early, writing partial results", "error", crawlErr)
	}

	if err := outputReport(cfg, crawlReport, stdout); err != nil {
		return err
	}

	// The crawl context may already be cancelled; recording the partial
	// result must not be.
	if err := saveHistory(context.WithoutCancel(ctx), cfg, crawlReport, logger); err != nil {
		logger.Error("failed to record crawl history", "error", err)
	}

	printSummary(stderr, cfg, crawlReport)

	return crawlErr
}

// writerFactory returns the report writer factory for format.
func writerFactory(format string) (report.WriterFactory, error) {
	switch format {
	case config.FormatJSON:
		return func(w io.Writer) report.Writer {
			return report.NewJSONWriter(w, report.WithPrettyPrint())
		}, nil
	case config.FormatReport:
		return func(w io.Writer) report.Writer {
			return report.NewFullJSONWriter(w, getVersion(), report.WithPrettyPrint())
		}, nil
	case config.FormatMarkdown:
		return func(w io.Writer) report.Writer {
			return report.NewMarkdownWriter(w)
		}, nil
	case config.FormatText:
		return func(w io.Writer) report.Writer {
			return report.NewSimpleWriter(w)
		}, nil
	default:
		return nil, fmt.Errorf("%w: %s", config.ErrUnknownFormat, format)
	}
}

// outputReport writes the crawl report in the configured format to the
// output file, or to stdout when the output path is "-".
func outputReport(cfg *config.Config, crawlReport *model.CrawlReport, stdout io.Writer) error {
	newWriter, err := writerFactory(cfg.Format)
	if err != nil {
		return err
	}

	if cfg.OutputPath == "-" {
		if _, err := newWriter(stdout).Write(crawlReport); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
		return nil
	}

	_, err = report.WriteFile(cfg.OutputPath, crawlReport, newWriter)
	return err
}

// saveHistory records the report in the history database.
// It is a no-op when history is disabled.
func saveHistory(ctx context.Context, cfg *config.Config, crawlReport *model.CrawlReport, logger *slog.Logger) error {
	if !cfg.SaveHistory {
		return nil
	}

	db, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	runID, err := db.SaveCrawlReport(ctx, crawlReport)
	if err != nil {
		return err
	}

	logger.Info("crawl recorded in history", "run", runID, "db", db.Path())
	return nil
}

// printSummary prints a one-line result summary for the user.
func printSummary(w io.Writer, cfg *config.Config, crawlReport *model.CrawlReport) {
	destination := cfg.OutputPath
	if destination == "-" {
		destination = "stdout"
	}

	status := "Crawl completed"
	if crawlReport.Interrupted {
		status = "Crawl interrupted"
	}

	fmt.Fprintf(w, "%s in %s: %d pages, %d emails (%d resolved), written to %s\n",
		status,
		crawlReport.Duration().Round(time.Millisecond),
		crawlReport.Stats.PagesFetched,
		len(crawlReport.Emails),
		crawlReport.ValidatedCount(),
		destination,
	)
}
