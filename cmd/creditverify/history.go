package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/creditverify/internal/history"
)

// =============================================================================
// 📜 history 命令
// =============================================================================

func runHistory(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "Path to config file")
	limit := fs.Int("limit", 20, "Number of runs to list")
	asJSON := fs.Bool("json", false, "Print JSON")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load config: %v\n", err)
		return exitUsage
	}

	store, err := history.Open(cfg.History, zap.NewNop())
	if err != nil {
		fmt.Fprintf(stderr, "Failed to open history: %v\n", err)
		return 1
	}
	defer store.Close()

	runs, err := store.Recent(ctx, *limit)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to list history: %v\n", err)
		return 1
	}

	if *asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(runs); err != nil {
			fmt.Fprintf(stderr, "Failed to encode history: %v\n", err)
			return 1
		}
		return 0
	}
	printRuns(stdout, runs)
	return 0
}

func printRuns(w io.Writer, runs []history.RunRecord) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tRUN ID\tOUTCOME\tCHECKPOINT\tDURATION\tCAUSE")
	for _, r := range runs {
		cp := "-"
		if r.Checkpoint > 0 {
			cp = fmt.Sprintf("%d %s", r.Checkpoint, r.Label)
		}
		cause := r.ErrorCode
		if cause == "" {
			cause = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.StartedAt.Local().Format(time.DateTime),
			r.RunID, r.Outcome, cp,
			r.Duration().Round(time.Millisecond), cause)
	}
	_ = tw.Flush()
}
