package cli

import (
	"fmt"
	"strings"

	"github.com/HartBrook/tokun/internal/store"
	"github.com/spf13/cobra"
)

type historyOptions struct {
	limit int
	clear bool
	json  bool
}

// NewHistoryCmd creates the history command.
func NewHistoryCmd(g *globalOptions) *cobra.Command {
	opts := &historyOptions{}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent optimizations and total tokens saved",
		Example: `  tokun history
  tokun history --limit 50 --json
  tokun history --clear`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd, g, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 10, "Number of entries to show (0 = all)")
	cmd.Flags().BoolVar(&opts.clear, "clear", false, "Delete all history")
	cmd.Flags().BoolVar(&opts.json, "json", false, "Print history as JSON")

	return cmd
}

func runHistory(cmd *cobra.Command, g *globalOptions, opts *historyOptions) error {
	ctx := cmd.Context()
	a, err := openApp(ctx, g)
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()

	if opts.clear {
		if err := a.db.ClearHistory(ctx); err != nil {
			return err
		}
		printSuccess(out, "History cleared")
		return nil
	}

	records, err := a.db.ListHistory(ctx, opts.limit)
	if err != nil {
		return err
	}
	totals, err := a.db.HistoryTotals(ctx)
	if err != nil {
		return err
	}

	if opts.json {
		if records == nil {
			records = []store.Record{}
		}
		return writeJSON(out, map[string]any{
			"entries": records,
			"totals":  totals,
		})
	}

	if len(records) == 0 {
		fmt.Fprintln(out, dim("No history yet."))
		return nil
	}

	for _, r := range records {
		fmt.Fprintf(out, "%s  %s  %s  %d → %d tokens %s\n",
			dim(r.CreatedAt.Local().Format("2006-01-02 15:04")),
			info(fmt.Sprintf("%-10s", r.Provider)),
			fmt.Sprintf("%-9s", r.Mode),
			r.OriginalTokens, r.OptimizedTokens,
			dim(fmt.Sprintf("(%+d)", -r.Saved())))
		fmt.Fprintf(out, "    %s\n", dim(preview(r.OptimizedText, 72)))
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "%d runs, %s saved\n", totals.Count,
		success(fmt.Sprintf("%d tokens", totals.Saved())))
	return nil
}

// preview returns the first line of s, shortened to n runes.
func preview(s string, n int) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i] + " ..."
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}
