package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/HartBrook/tokun/internal/config"
	"github.com/HartBrook/tokun/internal/llm"
	"github.com/HartBrook/tokun/internal/settings"
	"github.com/spf13/cobra"
	"golang.org/x/term"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// displayNames overrides title-cased provider names.
var displayNames = map[llm.Provider]string{
	llm.ProviderOpenAI: "OpenAI",
	llm.ProviderGoogle: "Google AI",
}

// providerDisplayName returns a human-readable provider name.
func providerDisplayName(p llm.Provider) string {
	if name, ok := displayNames[p]; ok {
		return name
	}
	return cases.Title(language.English).String(string(p))
}

// maskKey hides all but the edges of an API key.
func maskKey(key string) string {
	key = strings.TrimSpace(key)
	switch {
	case key == "":
		return ""
	case len(key) <= 8:
		return strings.Repeat("*", len(key))
	default:
		return key[:3] + "..." + key[len(key)-4:]
	}
}

// NewConfigCmd creates the config command.
func NewConfigCmd(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show and change provider settings",
		Long: `Shows and changes the active provider, API keys, models and token limits.

Settings are stored in a local database; API keys are encrypted at rest.
Keys can also come from OPENAI_API_KEY, PERPLEXITY_API_KEY and friends.`,
	}

	cmd.AddCommand(newConfigShowCmd(g))
	cmd.AddCommand(newConfigUseCmd(g))
	cmd.AddCommand(newConfigSetCmd(g))
	cmd.AddCommand(newConfigSetKeyCmd(g))
	cmd.AddCommand(newConfigResetCmd(g))
	cmd.AddCommand(newConfigInitCmd(g))

	return cmd
}

func newConfigShowCmd(g *globalOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the active provider and every provider's settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), g)
			if err != nil {
				return err
			}
			defer a.Close()
			return showConfig(cmd.OutOrStdout(), a, asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print settings as JSON (keys are masked)")

	return cmd
}

type providerView struct {
	Provider  llm.Provider `json:"provider"`
	Name      string       `json:"name"`
	Active    bool         `json:"active"`
	APIKey    string       `json:"apiKey,omitempty"`
	KeySource string       `json:"keySource,omitempty"`
	Model     string       `json:"model"`
	MaxTokens int          `json:"maxTokens,omitempty"`
}

func showConfig(w io.Writer, a *app, asJSON bool) error {
	active := a.settings.Get().Provider

	var views []providerView
	for _, p := range llm.Providers {
		cfg := a.settings.For(p)
		views = append(views, providerView{
			Provider:  p,
			Name:      providerDisplayName(p),
			Active:    p == active,
			APIKey:    maskKey(cfg.APIKey),
			KeySource: string(a.settings.KeySource(p)),
			Model:     cfg.ModelOr(llm.DefaultModels[p]),
			MaxTokens: cfg.MaxTokens,
		})
	}

	if asJSON {
		return writeJSON(w, map[string]any{
			"active":    active,
			"providers": views,
		})
	}

	fmt.Fprintf(w, "Active provider: %s\n", info(providerDisplayName(active)))
	fmt.Fprintln(w)

	for _, v := range views {
		marker := " "
		if v.Active {
			marker = success("*")
		}
		fmt.Fprintf(w, "%s %s\n", marker, v.Name)

		switch v.KeySource {
		case string(settings.KeyFromStore):
			printInfo(w, "key", v.APIKey)
		case string(settings.KeyFromEnv):
			printInfo(w, "key", fmt.Sprintf("%s %s", v.APIKey, dim("(from "+settings.EnvKeys[v.Provider]+")")))
		default:
			printInfo(w, "key", warning("not set"))
		}
		printInfo(w, "model", v.Model)
		if v.MaxTokens > 0 {
			printInfo(w, "max tokens", strconv.Itoa(v.MaxTokens))
		}
	}
	return nil
}

func newConfigUseCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:       "use <provider>",
		Short:     "Switch the active provider",
		Long:      "Switches the active provider. Its previously stored key and model are recalled.",
		Example:   "  tokun config use perplexity",
		Args:      cobra.ExactArgs(1),
		ValidArgs: providerNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := llm.ParseProvider(args[0])
			if err != nil {
				return err
			}

			a, err := openApp(cmd.Context(), g)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.settings.Set(cmd.Context(), settings.Update{Provider: &p}); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			printSuccess(out, "Now using %s", providerDisplayName(p))
			if !a.settings.Get().HasAPIKey() {
				printWarning(out, "No API key for %s. Run %s", providerDisplayName(p), info("tokun config set-key"))
			}
			return nil
		},
	}
}

func providerNames() []string {
	names := make([]string, len(llm.Providers))
	for i, p := range llm.Providers {
		names[i] = string(p)
	}
	return names
}

func newConfigSetCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set <model|max-tokens> <value>",
		Short: "Set the active provider's model or token limit",
		Long: `Sets a value for the active provider. An empty value clears it and the
configured default applies again.`,
		Example: `  tokun config set model gpt-4o
  tokun config set max-tokens 512
  tokun config set model ""`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			update, err := parseSetting(args[0], args[1])
			if err != nil {
				return err
			}

			a, err := openApp(cmd.Context(), g)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.settings.Set(cmd.Context(), update); err != nil {
				return err
			}
			printSuccess(cmd.OutOrStdout(), "Updated %s for %s", args[0], providerDisplayName(a.settings.Get().Provider))
			return nil
		},
	}
}

// parseSetting converts a `config set` name and value into an Update.
func parseSetting(name, value string) (settings.Update, error) {
	switch strings.ToLower(name) {
	case "model":
		return settings.Update{Model: &value}, nil
	case "max-tokens", "max_tokens", "maxtokens":
		if strings.TrimSpace(value) == "" {
			return settings.Update{MaxTokens: settings.Ptr(0)}, nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return settings.Update{}, fmt.Errorf("max-tokens must be a number, got %q", value)
		}
		return settings.Update{MaxTokens: &n}, nil
	case "provider":
		p, err := llm.ParseProvider(value)
		if err != nil {
			return settings.Update{}, err
		}
		return settings.Update{Provider: &p}, nil
	default:
		return settings.Update{}, fmt.Errorf("unknown setting %q (use model, max-tokens, or provider)", name)
	}
}

func newConfigSetKeyCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set-key",
		Short: "Store the API key for the active provider",
		Long: `Prompts for the active provider's API key and stores it encrypted.
The key is read without echo from a terminal, or as one line from stdin.
An empty key removes the stored one.`,
		Example: `  tokun config set-key
  echo "$OPENAI_API_KEY" | tokun config set-key`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), g)
			if err != nil {
				return err
			}
			defer a.Close()

			p := a.settings.Get().Provider
			key, err := readSecret(cmd, fmt.Sprintf("%s API key: ", providerDisplayName(p)))
			if err != nil {
				return err
			}

			if err := a.settings.Set(cmd.Context(), settings.Update{APIKey: &key}); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if key == "" {
				printSuccess(out, "Removed the stored %s key", providerDisplayName(p))
			} else {
				printSuccess(out, "Saved %s key %s", providerDisplayName(p), dim(maskKey(key)))
			}
			return nil
		},
	}
}

// readSecret reads one line, without echo when stdin is a terminal.
func readSecret(cmd *cobra.Command, prompt string) (string, error) {
	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(cmd.ErrOrStderr(), prompt)
		secret, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", fmt.Errorf("failed to read key: %w", err)
		}
		return strings.TrimSpace(string(secret)), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read key: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func newConfigResetCmd(g *globalOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete every stored setting and key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("this deletes all stored keys and settings; rerun with --yes to confirm")
			}

			a, err := openApp(cmd.Context(), g)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.settings.Reset(cmd.Context()); err != nil {
				return err
			}
			printSuccess(cmd.OutOrStdout(), "Settings reset; using %s", providerDisplayName(a.settings.Get().Provider))
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm the reset")

	return cmd
}

func newConfigInitCmd(g *globalOptions) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with the default values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := g.configPath
			if path == "" {
				path = config.NewPaths().ConfigFile
			}

			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists; use --force to overwrite", path)
			}

			if err := config.SaveTo(config.Default(), path); err != nil {
				return err
			}
			printSuccess(cmd.OutOrStdout(), "Wrote %s", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config file")

	return cmd
}
