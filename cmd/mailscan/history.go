package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/nao1215/mailscan/internal/config"
	"github.com/nao1215/mailscan/internal/database"
	"github.com/spf13/cobra"
)

// defaultHistoryLimit is the number of runs listed without --limit.
const defaultHistoryLimit = 20

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show past crawls",
		Long: `History lists the crawls recorded in the local history database,
newest first. With --run it shows the emails found by a single crawl.

Examples:
  # List the 20 most recent crawls
  mailscan history

  # List every recorded crawl
  mailscan history --limit 0

  # Show the emails found by crawl 3
  mailscan history --run 3`,
		Args: cobra.NoArgs,
		RunE: runHistoryCmd,
	}

	cmd.Flags().IntP("limit", "l", defaultHistoryLimit,
		"Maximum number of crawls to list (0 lists all)")
	cmd.Flags().Int64P("run", "r", 0,
		"Show the emails found by this crawl")
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory of the history database")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	runID, err := cmd.Flags().GetInt64("run")
	if err != nil {
		return err
	}
	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	db, err := database.Open(dbDir, database.Options{CreateIfNotExists: false})
	if errors.Is(err, os.ErrNotExist) {
		fmt.Fprintln(out, "No crawl history found.")
		return nil
	}
	if err != nil {
		return err
	}
	defer db.Close()

	if runID > 0 {
		return showRun(cmd, db, runID, out)
	}
	return listRuns(cmd, db, limit, out)
}

// listRuns prints a table of recent crawls.
func listRuns(cmd *cobra.Command, db *database.HistoryDB, limit int, out io.Writer) error {
	runs, err := db.ListRuns(cmd.Context(), limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "No crawl history found.")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tDURATION\tPAGES\tFAILED\tEMAILS\tSTATUS\tSEEDS")
	for _, run := range runs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\t%d\t%s\t%s\n",
			run.ID,
			run.StartedAt.Local().Format(time.DateTime),
			run.FinishedAt.Sub(run.StartedAt).Round(time.Second),
			run.PagesFetched,
			run.PagesFailed,
			run.EmailCount,
			runStatus(run),
			seedSummary(run.Seeds),
		)
	}
	return tw.Flush()
}

// showRun prints one crawl and the emails it found.
func showRun(cmd *cobra.Command, db *database.HistoryDB, runID int64, out io.Writer) error {
	run, err := db.GetRun(cmd.Context(), runID)
	if err != nil {
		return err
	}
	emails, err := db.RunEmails(cmd.Context(), runID)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Crawl #%d (%s)\n", run.ID, runStatus(*run))
	fmt.Fprintf(out, "  Started:  %s\n", run.StartedAt.Local().Format(time.DateTime))
	fmt.Fprintf(out, "  Finished: %s\n", run.FinishedAt.Local().Format(time.DateTime))
	fmt.Fprintf(out, "  Seeds:    %s\n", strings.Join(run.Seeds, ", "))
	fmt.Fprintf(out, "  Depth:    %d\n", run.MaxDepth)
	fmt.Fprintf(out, "  Pages:    %d fetched, %d failed\n", run.PagesFetched, run.PagesFailed)
	fmt.Fprintln(out)

	if len(emails) == 0 {
		fmt.Fprintln(out, "No emails found.")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "EMAIL\tDNS")
	for _, e := range emails {
		dns := "unresolved"
		switch {
		case !run.DNSValidation:
			dns = "not checked"
		case e.DNSValidated:
			dns = "resolved"
		}
		fmt.Fprintf(tw, "%s\t%s\n", e.Email, dns)
	}
	return tw.Flush()
}

func runStatus(run database.RunSummary) string {
	if run.Interrupted {
		return "interrupted"
	}
	return "complete"
}

// seedSummary shortens the seed list for the table view.
func seedSummary(seeds []string) string {
	switch len(seeds) {
	case 0:
		return "-"
	case 1:
		return seeds[0]
	default:
		return fmt.Sprintf("%s (+%d more)", seeds[0], len(seeds)-1)
	}
}
