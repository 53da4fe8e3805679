package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/kris-hansen/scrollystory/utils/config"
	"github.com/kris-hansen/scrollystory/utils/models"
)

var (
	listFlag     bool
	removeFlag   string
	defaultFlag  string
	providerOpts providerOptions
)

// providerOptions are the values given on the command line; empty values are prompted for
type providerOptions struct {
	name    string
	kind    string
	baseURL string
	model   string
}

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Configure model providers",
	Long: `Configure adds or updates an OpenAI-compatible provider (OpenAI, Gemini, AIPipe,
OpenRouter or any custom base URL) in the environment file. The API key is read
without echo.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := config.GetEnvPath()
		envConfig, err := config.LoadOrEmpty(configPath)
		if err != nil {
			return fmt.Errorf("error loading configuration: %w", err)
		}

		out := cmd.OutOrStdout()
		switch {
		case listFlag:
			listConfiguration(out, configPath, envConfig)
			return nil
		case removeFlag != "":
			if _, ok := envConfig.Providers[removeFlag]; !ok {
				return fmt.Errorf("provider %s not found", removeFlag)
			}
			envConfig.RemoveProvider(removeFlag)
			fmt.Fprintf(out, "Removed provider %s\n", removeFlag)
		case defaultFlag != "":
			if _, ok := envConfig.Providers[defaultFlag]; !ok {
				return fmt.Errorf("provider %s not found", defaultFlag)
			}
			envConfig.DefaultProvider = defaultFlag
			fmt.Fprintf(out, "Default provider set to %s\n", defaultFlag)
		default:
			reader := bufio.NewReader(cmd.InOrStdin())
			secret := func() (string, error) { return readSecret(cmd.InOrStdin(), reader) }
			if err := configureProvider(reader, out, envConfig, providerOpts, secret); err != nil {
				return err
			}
		}

		if err := config.SaveEnvConfig(configPath, envConfig); err != nil {
			return fmt.Errorf("error saving configuration: %w", err)
		}
		fmt.Fprintf(out, "Configuration saved successfully to %s!\n", configPath)
		return nil
	},
}

// configureProvider prompts for any option not given and stores the provider
func configureProvider(reader *bufio.Reader, out io.Writer, envConfig *config.EnvConfig, opts providerOptions, secret func() (string, error)) error {
	kind := models.Custom
	if opts.kind != "" {
		k, err := models.ParseProviderKind(opts.kind)
		if err != nil {
			return err
		}
		kind = k
	}

	if opts.baseURL == "" && opts.kind == "" {
		for {
			answer := ask(reader, out, fmt.Sprintf("Enter provider kind (%s)", kindChoices()), models.OpenAI.String())
			k, err := models.ParseProviderKind(answer)
			if err == nil {
				kind = k
				break
			}
			fmt.Fprintln(out, err)
		}
	}

	baseURL := opts.baseURL
	if baseURL == "" {
		baseURL = ask(reader, out, "Enter base URL", kind.DefaultBaseURL())
	}
	if baseURL == "" {
		return fmt.Errorf("a base URL is required for custom providers")
	}
	if resolved := models.ResolveKind(baseURL); resolved != models.Custom {
		kind = resolved
	}

	name := opts.name
	if name == "" {
		name = ask(reader, out, "Enter a name for this provider", kind.String())
	}

	existing := envConfig.Providers[name]
	fmt.Fprint(out, "Enter API key (leave empty to keep the current key): ")
	apiKey, err := secret()
	fmt.Fprintln(out)
	if err != nil {
		return fmt.Errorf("error reading API key: %w", err)
	}
	if apiKey == "" && existing != nil {
		apiKey = existing.APIKey
	}

	model := opts.model
	if model == "" {
		current := kind.DefaultModel()
		if existing != nil && existing.Model != "" {
			current = existing.Model
		}
		model = ask(reader, out, "Enter model name", current)
	}

	provider := config.Provider{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Model:   model,
	}
	if kind != models.ResolveKind(baseURL) {
		provider.Kind = kind.String()
	}
	if existing != nil {
		provider.Models = existing.Models
	}
	envConfig.AddProvider(name, provider)

	if envConfig.DefaultProvider == "" {
		envConfig.DefaultProvider = name
	}
	fmt.Fprintf(out, "Configured provider %s (%s, model %s)\n", name, kind, model)
	return nil
}

// ask reads one line, returning def for an empty answer
func ask(reader *bufio.Reader, out io.Writer, question, def string) string {
	if def != "" {
		fmt.Fprintf(out, "%s [%s]: ", question, def)
	} else {
		fmt.Fprintf(out, "%s: ", question)
	}
	answer, _ := reader.ReadString('\n')
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return def
	}
	return answer
}

// readSecret reads without echo from a terminal, or a plain line otherwise
func readSecret(in io.Reader, reader *bufio.Reader) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		secret, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(secret)), nil
	}
	line, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func kindChoices() string {
	var names []string
	for _, k := range models.Kinds() {
		names = append(names, k.String())
	}
	return strings.Join(names, "/")
}

func listConfiguration(out io.Writer, configPath string, envConfig *config.EnvConfig) {
	if len(envConfig.Providers) == 0 {
		fmt.Fprintf(out, "No providers configured in %s.\n", configPath)
		return
	}

	fmt.Fprintf(out, "Configuration from %s:\n", configPath)
	if envConfig.DefaultProvider != "" {
		fmt.Fprintf(out, "Default Provider: %s\n", envConfig.DefaultProvider)
	}
	fmt.Fprintln(out, "\nConfigured Providers:")
	for _, name := range envConfig.ProviderNames() {
		stored := envConfig.Providers[name]
		p, err := models.FromConfig(name, stored)
		if err != nil {
			fmt.Fprintf(out, "\n%s: %v\n", name, err)
			continue
		}
		fmt.Fprintf(out, "\n%s:\n", name)
		fmt.Fprintf(out, "  Kind: %s\n", p.Kind)
		fmt.Fprintf(out, "  Base URL: %s\n", p.Endpoint())
		fmt.Fprintf(out, "  Model: %s\n", p.ResolvedModel())
		if stored.APIKey != "" {
			fmt.Fprintf(out, "  API Key: %s\n", config.MaskKey(stored.APIKey))
		} else {
			fmt.Fprintln(out, "  API Key: (not set)")
		}
		if len(p.Models) > 0 {
			fmt.Fprintf(out, "  Known Models: %s\n", strings.Join(p.Models, ", "))
		}
	}
}

func init() {
	configureCmd.Flags().BoolVar(&listFlag, "list", false, "List all configured providers")
	configureCmd.Flags().StringVar(&removeFlag, "remove", "", "Remove the named provider")
	configureCmd.Flags().StringVar(&defaultFlag, "default", "", "Set the default provider")
	configureCmd.Flags().StringVar(&providerOpts.name, "name", "", "Provider name")
	configureCmd.Flags().StringVar(&providerOpts.kind, "kind", "", "Provider kind ("+kindChoices()+")")
	configureCmd.Flags().StringVar(&providerOpts.baseURL, "base-url", "", "OpenAI-compatible base URL")
	configureCmd.Flags().StringVar(&providerOpts.model, "model", "", "Model name")
	rootCmd.AddCommand(configureCmd)
}
