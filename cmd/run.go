package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/kris-hansen/scrollystory/utils/config"
	"github.com/kris-hansen/scrollystory/utils/fileutil"
	"github.com/kris-hansen/scrollystory/utils/input"
	"github.com/kris-hansen/scrollystory/utils/models"
	"github.com/kris-hansen/scrollystory/utils/progress"
	"github.com/kris-hansen/scrollystory/utils/story"
)

// runFlags are shared by generate and refactor
type runFlags struct {
	output      string
	provider    string
	model       string
	temperature float64
	stream      bool
	echo        bool
}

func (f *runFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "output HTML file, or - for stdout (default "+story.DefaultFileName+")")
	cmd.Flags().StringVar(&f.provider, "provider", "", "configured provider to use (default: the configured default)")
	cmd.Flags().StringVar(&f.model, "model", "", "model to request (default: the provider's model)")
	cmd.Flags().Float64Var(&f.temperature, "temperature", config.DefaultTemperature, "sampling temperature")
	cmd.Flags().BoolVar(&f.stream, "stream", false, "stream the model response")
	cmd.Flags().BoolVar(&f.echo, "echo", false, "write streamed text to stderr as it arrives (implies --stream)")
}

// outputPath picks the flag value, then the configured default, then DefaultFileName
func (f *runFlags) outputPath(gen config.GenerationConfig) string {
	switch {
	case f.output != "":
		return f.output
	case gen.Output != "":
		return gen.Output
	default:
		return story.DefaultFileName
	}
}

func (f *runFlags) streaming(gen config.GenerationConfig) bool {
	return f.stream || f.echo || gen.Stream
}

// newGenerator resolves the provider and options for one run
func newGenerator(cmd *cobra.Command, envConfig *config.EnvConfig, f *runFlags) (*story.Generator, error) {
	provider, err := models.ResolveProvider(envConfig, f.provider)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrNotConfigured, err)
	}
	provider = provider.WithModel(f.model)
	if !provider.Usable() {
		return nil, fmt.Errorf("%w: provider %s has no API key; run 'scrollystory configure' or set %s",
			models.ErrNotConfigured, provider.Name, config.APIKeyVariable)
	}

	g := story.NewGenerator(models.NewClient(nil), provider)
	g.Options.Temperature = envConfig.GetGenerationConfig().SamplingTemperature()
	if cmd.Flags().Changed("temperature") {
		g.Options.Temperature = f.temperature
	}
	config.VerboseLog("Using provider %s", provider)
	return g, nil
}

// loadInput validates the extension and reads a file, stdin or URL
func loadInput(cmd *cobra.Command, path string, extensions []string) (*input.Input, error) {
	if err := input.NewValidator(extensions).ValidateFileExtension(path); err != nil {
		return nil, err
	}
	return input.NewHandler().WithStdin(cmd.InOrStdin()).Load(path)
}

// terminalProgress shows streamed progress on the spinner, or echoes the text itself
type terminalProgress struct {
	spinner *progress.Spinner
	echo    io.Writer
}

func (p *terminalProgress) WriteProgress(update progress.Update) error {
	if update.Type != progress.UpdateFragment {
		return nil
	}
	if p.echo != nil {
		_, err := io.WriteString(p.echo, update.Message)
		return err
	}
	p.spinner.SetMessage(fmt.Sprintf("Receiving story (%d characters)", update.Chars))
	return nil
}

// runStory executes the request with a spinner and writes the document to output
func runStory(cmd *cobra.Command, g *story.Generator, req story.Request, output string, echo bool) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	spinner := progress.NewSpinner()
	spinner.SetOutput(cmd.ErrOrStderr())
	if echo || !isTerminal(cmd.ErrOrStderr()) {
		spinner.Disable()
	}

	if req.Stream {
		tp := &terminalProgress{spinner: spinner}
		if echo {
			tp.echo = cmd.ErrOrStderr()
		}
		g.OnFragment = progress.NewFragmentCounter(tp).Add
	}

	message := "Generating story"
	if req.IsRefactor() {
		message = "Refactoring story"
	}
	spinner.Start(fmt.Sprintf("%s with %s", message, g.Provider.ResolvedModel()))

	result, err := g.Run(ctx, req)
	if err != nil {
		spinner.Stop("failed")
		return describe(err)
	}
	spinner.Stop("done")
	if echo {
		fmt.Fprintln(cmd.ErrOrStderr())
	}

	return writeResult(cmd, result, output)
}

func writeResult(cmd *cobra.Command, result *story.Result, output string) error {
	if output == input.StdinPath {
		_, err := io.WriteString(cmd.OutOrStdout(), result.Document.HTML)
		return err
	}
	if err := fileutil.WriteDocument(output, result.Document.HTML); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Story written to %s (%d characters, model %s)\n",
		output, len(result.Document.HTML), result.Model)
	return nil
}

func describe(err error) error {
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("interrupted")
	}
	return err
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
