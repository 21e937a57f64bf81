package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

type countOptions struct {
	json bool
}

// NewCountCmd creates the count command.
func NewCountCmd(g *globalOptions) *cobra.Command {
	opts := &countOptions{}

	cmd := &cobra.Command{
		Use:   "count [text...]",
		Short: "Estimate the token count of a prompt",
		Long: `Estimates how many tokens a prompt will use with the active provider.

The estimate is word-based (words times a per-provider ratio) and never calls
the provider. Text is read from the arguments, or from stdin when none are given.`,
		Example: `  tokun count "Summarize this article in three bullet points"
  pbpaste | tokun count
  tokun count --json < prompt.txt`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCount(cmd, g, opts, args)
		},
	}

	cmd.Flags().BoolVar(&opts.json, "json", false, "Print the count as JSON")

	return cmd
}

func runCount(cmd *cobra.Command, g *globalOptions, opts *countOptions, args []string) error {
	text, err := readText(cmd, args)
	if err != nil {
		return err
	}

	a, err := openApp(cmd.Context(), g)
	if err != nil {
		return err
	}
	defer a.Close()

	svc, err := a.service(serviceOptions{noHistory: true})
	if err != nil {
		return err
	}
	count := svc.CountTokens(text)

	out := cmd.OutOrStdout()
	if opts.json {
		return writeJSON(out, count)
	}

	fmt.Fprintf(out, "%s tokens, %s words %s\n",
		info(fmt.Sprint(count.Tokens)),
		fmt.Sprint(count.Words),
		dim("("+a.settings.Get().Provider.String()+" estimate)"))
	return nil
}
