// Package cli implements the tokun command-line interface.
package cli

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	// Version is set at build time.
	Version = "dev"

	// Output helpers.
	successIcon = color.New(color.FgGreen).Sprint("✓")
	warningIcon = color.New(color.FgYellow).Sprint("⚠")
	errorIcon   = color.New(color.FgRed).Sprint("✗")

	success = color.New(color.FgGreen).SprintFunc()
	warning = color.New(color.FgYellow).SprintFunc()
	danger  = color.New(color.FgRed).SprintFunc()
	info    = color.New(color.FgCyan).SprintFunc()
	dim     = color.New(color.Faint).SprintFunc()
)

// globalOptions holds flags shared by every command.
type globalOptions struct {
	configPath string
	logLevel   string
}

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	g := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "tokun",
		Short: "Count and trim the tokens in your LLM prompts",
		Long: `Tokun estimates how many tokens a prompt will cost and rewrites it to be
shorter, either with an LLM provider (OpenAI, Perplexity) or locally.

It also runs a small local server so the browser extension can optimize
prompts in place.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&g.configPath, "config", "", "Config file (default ~/.config/tokun/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "Diagnostic log level: debug, info, warn, or error")

	// Add subcommands
	rootCmd.AddCommand(NewCountCmd(g))
	rootCmd.AddCommand(NewOptimizeCmd(g))
	rootCmd.AddCommand(NewRewriteCmd(g))
	rootCmd.AddCommand(NewSuggestCmd(g))
	rootCmd.AddCommand(NewConfigCmd(g))
	rootCmd.AddCommand(NewServeCmd(g))
	rootCmd.AddCommand(NewHistoryCmd(g))
	rootCmd.AddCommand(NewVersionCmd())

	return rootCmd
}

// NewVersionCmd creates the version command.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "tokun %s\n", Version)
		},
	}
}

// Execute runs the CLI.
func Execute() error {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		printErrorWithHint(os.Stderr, err)
		return err
	}
	return nil
}

// printErrorWithHint prints err and, when the error carries one, its hint.
func printErrorWithHint(w io.Writer, err error) {
	fmt.Fprintf(w, "%s %s\n", errorIcon, err.Error())

	var hinted interface{ HintText() string }
	if stderrors.As(err, &hinted) {
		if hint := hinted.HintText(); hint != "" {
			fmt.Fprintf(w, "  %s\n", dim(hint))
		}
	}
}

// printSuccess prints a success message.
func printSuccess(w io.Writer, format string, args ...interface{}) {
	fmt.Fprintf(w, "%s %s\n", successIcon, fmt.Sprintf(format, args...))
}

// printWarning prints a warning message.
func printWarning(w io.Writer, format string, args ...interface{}) {
	fmt.Fprintf(w, "%s %s\n", warningIcon, fmt.Sprintf(format, args...))
}

// printInfo prints an info line.
func printInfo(w io.Writer, label, value string) {
	fmt.Fprintf(w, "  %s: %s\n", dim(label), value)
}
