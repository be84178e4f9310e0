package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for MailScan.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mailscan",
		Short: "Crawl web sites and collect email addresses",
		Long: `MailScan crawls web sites starting from one or more seed URLs, extracts
the email addresses found on every page and, by default, checks that the
domain of each address resolves in DNS.

Results are written as JSON (or Markdown / plain text), and every finished
crawl is recorded in a local history database.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose (DEBUG) logging")

	// Add subcommands
	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
