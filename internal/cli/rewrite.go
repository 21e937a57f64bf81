package cli

import (
	"fmt"

	"github.com/HartBrook/tokun/internal/rewrite"
	"github.com/HartBrook/tokun/internal/tokens"
	"github.com/spf13/cobra"
)

type rewriteOptions struct {
	strategy  string
	showDiff  bool
	json      bool
	noHistory bool
}

// NewRewriteCmd creates the rewrite command.
func NewRewriteCmd(g *globalOptions) *cobra.Command {
	opts := &rewriteOptions{}

	cmd := &cobra.Command{
		Use:   "rewrite [text...]",
		Short: "Shorten a prompt locally without calling a provider",
		Long: `Shortens a prompt with a local heuristic. No API key is needed.

Strategies:
  strip      remove filler phrases such as "please" and "could you"
  sentences  keep a representative subset of sentences`,
		Example: `  tokun rewrite "Could you please kindly summarize the report"
  tokun rewrite --strategy sentences < long-prompt.txt`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRewrite(cmd, g, opts, args)
		},
	}

	cmd.Flags().StringVar(&opts.strategy, "strategy", string(rewrite.StrategyStrip), "Rewrite strategy: strip or sentences")
	cmd.Flags().BoolVar(&opts.showDiff, "diff", false, "Show before/after diff")
	cmd.Flags().BoolVar(&opts.json, "json", false, "Print the result as JSON")
	cmd.Flags().BoolVar(&opts.noHistory, "no-history", false, "Do not record this run in history")

	return cmd
}

func runRewrite(cmd *cobra.Command, g *globalOptions, opts *rewriteOptions, args []string) error {
	strategy, err := rewrite.ParseStrategy(opts.strategy)
	if err != nil {
		return err
	}

	text, err := readText(cmd, args)
	if err != nil {
		return err
	}

	a, err := openApp(cmd.Context(), g)
	if err != nil {
		return err
	}
	defer a.Close()

	svc, err := a.service(serviceOptions{noHistory: opts.noHistory})
	if err != nil {
		return err
	}

	result := svc.RewriteLocally(cmd.Context(), text, strategy)
	stats := tokens.Stats{Before: svc.CountTokens(text).Tokens, After: result.Tokens}

	out := cmd.OutOrStdout()
	if opts.json {
		return writeJSON(out, optimizeOutput{
			Result:         result,
			OriginalTokens: stats.Before,
			Saved:          stats.Saved(),
		})
	}

	displayResult(out, text, &result, stats, opts.showDiff)
	return nil
}

type suggestOptions struct {
	json bool
}

// NewSuggestCmd creates the suggest command.
func NewSuggestCmd(_ *globalOptions) *cobra.Command {
	opts := &suggestOptions{}

	cmd := &cobra.Command{
		Use:   "suggest [text...]",
		Short: "List ways to make a prompt shorter",
		Long: `Prints up to six tips for shortening a prompt. Tips that match the prompt
(filler words, wordy phrases, long sentences) come first.`,
		Example: `  tokun suggest "Please explain, in order to help me, how caching works"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSuggest(cmd, opts, args)
		},
	}

	cmd.Flags().BoolVar(&opts.json, "json", false, "Print the suggestions as JSON")

	return cmd
}

func runSuggest(cmd *cobra.Command, opts *suggestOptions, args []string) error {
	text, err := readText(cmd, args)
	if err != nil {
		return err
	}

	suggestions := rewrite.Suggest(text)

	out := cmd.OutOrStdout()
	if opts.json {
		return writeJSON(out, map[string][]string{"suggestions": suggestions})
	}

	for _, s := range suggestions {
		fmt.Fprintf(out, "  %s %s\n", dim("•"), s)
	}
	return nil
}
