package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/HartBrook/tokun/internal/bridge"
	"github.com/HartBrook/tokun/internal/llm"
	"github.com/HartBrook/tokun/internal/optimize"
	"github.com/HartBrook/tokun/internal/rewrite"
	"github.com/HartBrook/tokun/internal/tokens"
	"github.com/spf13/cobra"
)

type optimizeOptions struct {
	target    int
	mode      string
	provider  string
	fallback  string
	strict    bool
	showDiff  bool
	json      bool
	noHistory bool
}

// optimizeOutput is the --json shape of optimize and rewrite.
type optimizeOutput struct {
	llm.Result
	OriginalTokens int  `json:"originalTokens"`
	Saved          int  `json:"saved"`
	Fallback       bool `json:"fallback,omitempty"`
}

// NewOptimizeCmd creates the optimize command.
func NewOptimizeCmd(g *globalOptions) *cobra.Command {
	opts := &optimizeOptions{}

	cmd := &cobra.Command{
		Use:   "optimize [text...]",
		Short: "Rewrite a prompt with fewer tokens using an LLM provider",
		Long: `Sends the prompt to the active provider and asks for a shorter version.

Balanced mode rewrites the prompt concisely. Detailed mode expands a short
idea into a detailed, well-structured prompt. When no target is given, tokun
aims for 70% of the original estimate (at least 10 tokens).

Only OpenAI and Perplexity are implemented. Anthropic and Google return the
prompt unchanged. "other" uses providers.other.base_url when it is set and
the OpenAI endpoint otherwise.

Use --fallback local to strip filler phrases locally when the provider call fails.`,
		Example: `  tokun optimize "Could you please write me a detailed summary of this report"
  tokun optimize --target 20 --mode detailed < prompt.txt
  tokun optimize --provider perplexity --diff "..."
  tokun optimize --fallback local --json "..."`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOptimize(cmd, g, opts, args)
		},
	}

	cmd.Flags().IntVar(&opts.target, "target", 0, "Target token count (0 = auto ~70% of the original)")
	cmd.Flags().StringVar(&opts.mode, "mode", string(llm.ModeBalanced), "Rewrite mode: balanced or detailed")
	cmd.Flags().StringVar(&opts.provider, "provider", "", "Use this provider for one call without switching to it")
	cmd.Flags().StringVar(&opts.fallback, "fallback", string(bridge.FallbackNone), "On provider failure: none or local")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "Fail for providers that are not implemented instead of echoing")
	cmd.Flags().BoolVar(&opts.showDiff, "diff", false, "Show before/after diff")
	cmd.Flags().BoolVar(&opts.json, "json", false, "Print the result as JSON")
	cmd.Flags().BoolVar(&opts.noHistory, "no-history", false, "Do not record this run in history")

	return cmd
}

func runOptimize(cmd *cobra.Command, g *globalOptions, opts *optimizeOptions, args []string) error {
	mode, err := llm.ParseMode(opts.mode)
	if err != nil {
		return err
	}
	fallback, err := bridge.ParseFallback(opts.fallback)
	if err != nil {
		return err
	}
	if opts.target < 0 {
		return fmt.Errorf("--target must not be negative")
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

	svc, err := a.service(serviceOptions{
		provider:  opts.provider,
		noHistory: opts.noHistory,
		strict:    opts.strict,
	})
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	usedFallback := false

	result, err := svc.OptimizePrompt(ctx, text, optimize.Options{TargetTokens: opts.target, Mode: mode})
	if err != nil {
		if fallback != bridge.FallbackLocal {
			return err
		}
		a.logger.Info("provider failed, rewriting locally", "error", err)
		if !opts.json {
			printWarning(cmd.ErrOrStderr(), "Provider failed (%v), rewriting locally", err)
		}
		local := svc.RewriteLocally(ctx, text, rewrite.StrategyStrip)
		result = &local
		usedFallback = true
	}

	stats := tokens.Stats{Before: svc.CountTokens(text).Tokens, After: result.Tokens}

	if opts.json {
		return writeJSON(out, optimizeOutput{
			Result:         *result,
			OriginalTokens: stats.Before,
			Saved:          stats.Saved(),
			Fallback:       usedFallback,
		})
	}

	if result.Pending {
		active := a.settings.Get().Provider
		if opts.provider != "" {
			active, _ = llm.ParseProvider(opts.provider)
		}
		printWarning(out, "%s is not implemented yet; the prompt was returned unchanged", active)
	}

	displayResult(out, text, result, stats, opts.showDiff)
	return nil
}

// displayResult prints the rewritten prompt, token stats and suggestions.
func displayResult(w io.Writer, original string, result *llm.Result, stats tokens.Stats, showDiff bool) {
	fmt.Fprintln(w, result.OptimizedText)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "  Before: %d tokens\n", stats.Before)
	fmt.Fprintf(w, "  After:  %d tokens\n", stats.After)
	if stats.Saved() > 0 {
		fmt.Fprintf(w, "  Saved:  %s\n", success(fmt.Sprintf("%d tokens (%.0f%%)", stats.Saved(), stats.PercentReduction())))
	} else {
		fmt.Fprintf(w, "  Saved:  %s\n", warning(fmt.Sprintf("%d tokens", stats.Saved())))
	}

	if showDiff {
		displayDiff(w, original, result.OptimizedText)
	}

	if len(result.Suggestions) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Suggestions:")
		for _, s := range result.Suggestions {
			fmt.Fprintf(w, "  %s %s\n", dim("•"), s)
		}
	}
}

// maxDiffChanges bounds the number of changed lines shown by displayDiff.
const maxDiffChanges = 20

func displayDiff(w io.Writer, original, optimized string) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, dim("--- original"))
	fmt.Fprintln(w, dim("+++ optimized"))

	origLines := strings.Split(original, "\n")
	optLines := strings.Split(optimized, "\n")

	shown := 0
	for i := 0; i < max(len(origLines), len(optLines)) && shown < maxDiffChanges; i++ {
		var origLine, optLine string
		if i < len(origLines) {
			origLine = origLines[i]
		}
		if i < len(optLines) {
			optLine = optLines[i]
		}
		if origLine == optLine {
			continue
		}
		if i < len(origLines) {
			fmt.Fprintf(w, "%s %s\n", danger("-"), origLine)
		}
		if i < len(optLines) {
			fmt.Fprintf(w, "%s %s\n", success("+"), optLine)
		}
		shown++
	}

	if shown >= maxDiffChanges {
		fmt.Fprintf(w, "\n%s\n", dim(fmt.Sprintf("(diff truncated, showing first %d changes)", maxDiffChanges)))
	}
}
