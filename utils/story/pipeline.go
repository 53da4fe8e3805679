// Package story runs the CSV to scrollytelling pipeline: profile, prompt, model call and extraction.
package story

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kris-hansen/scrollystory/utils/config"
	"github.com/kris-hansen/scrollystory/utils/extract"
	"github.com/kris-hansen/scrollystory/utils/models"
	"github.com/kris-hansen/scrollystory/utils/profile"
	"github.com/kris-hansen/scrollystory/utils/prompt"
)

// DefaultFileName is the name offered when a generated document is downloaded
const DefaultFileName = "scrollytelling-story.html"

// ErrMissingInstructions is returned when a refactor is requested without instructions
var ErrMissingInstructions = errors.New("refactor instructions are required")

const truncatedWarning = "the model stream ended before completion; the document may be incomplete"

// Request describes one generation. A non-empty PreviousHTML makes it a refactor.
type Request struct {
	CSV          string `json:"csv"`
	FileName     string `json:"fileName"`
	StoryStyle   string `json:"storyStyle,omitempty"`
	Instructions string `json:"instructions,omitempty"`
	PreviousHTML string `json:"previousHtml,omitempty"`
	Stream       bool   `json:"stream,omitempty"`
}

// IsRefactor reports whether the request modifies an existing document
func (r Request) IsRefactor() bool {
	return r.PreviousHTML != ""
}

// Result is a generated document and what it was built from
type Result struct {
	Document extract.Document
	Profile  *profile.Profile
	Warnings []string
	Model    string
}

// Generator runs requests against one provider
type Generator struct {
	Client   *models.Client
	Provider models.ProviderConfig
	Options  models.Options

	// OnFragment, if set, receives streamed text as it arrives
	OnFragment func(string)
}

// NewGenerator creates a generator with default options
func NewGenerator(client *models.Client, provider models.ProviderConfig) *Generator {
	return &Generator{
		Client:   client,
		Provider: provider,
		Options:  models.DefaultOptions(),
	}
}

// BuildPrompt profiles the CSV and renders the prompt the request would send
func BuildPrompt(req Request) (string, *profile.Profile, error) {
	p, err := profile.FromCSV(req.CSV)
	if err != nil {
		return "", nil, err
	}

	if req.IsRefactor() {
		if strings.TrimSpace(req.Instructions) == "" {
			return "", nil, ErrMissingInstructions
		}
		return prompt.BuildRefactorPrompt(req.Instructions, req.PreviousHTML, p, req.FileName), p, nil
	}
	return prompt.BuildGenerationPrompt(p, req.FileName, req.StoryStyle, req.Instructions), p, nil
}

// Run executes the pipeline. Any failure aborts it; no partial document is returned.
func (g *Generator) Run(ctx context.Context, req Request) (*Result, error) {
	if !g.Provider.Usable() {
		return nil, models.ErrNotConfigured
	}

	text, p, err := BuildPrompt(req)
	if err != nil {
		return nil, err
	}
	config.VerboseLog("Profiled %s: %d rows, %d columns", req.FileName, p.RowCount, p.ColumnCount)
	config.DebugLog("Prompt length: %d characters (refactor=%v)", len(text), req.IsRefactor())

	var (
		raw       string
		model     = g.Provider.ResolvedModel()
		truncated bool
	)
	if req.Stream {
		raw, truncated, err = g.stream(ctx, text)
	} else {
		raw, model, truncated, err = g.complete(ctx, text)
	}
	if err != nil {
		return nil, err
	}

	html, err := extract.ExtractHTML(raw)
	if err != nil {
		config.DebugLog("Extraction failed on %d characters of output: %v", len(raw), err)
		if truncated {
			return nil, errors.Join(err, models.ErrStreamTruncated)
		}
		return nil, err
	}

	var warnings []string
	if truncated {
		warnings = append(warnings, truncatedWarning)
	}
	warnings = append(warnings, extract.AdvisoryWarnings(html)...)
	for _, w := range warnings {
		config.WarnLog("%s", w)
	}

	config.VerboseLog("Generated document: %d characters", len(html))
	return &Result{
		Document: extract.Inspect(html),
		Profile:  p,
		Warnings: warnings,
		Model:    model,
	}, nil
}

func (g *Generator) complete(ctx context.Context, text string) (string, string, bool, error) {
	completion, err := g.Client.Complete(ctx, g.Provider, text, g.Options)
	if errors.Is(err, models.ErrStreamTruncated) && completion != nil {
		return completion.Text, completion.Model, true, nil
	}
	if err != nil {
		return "", "", false, err
	}
	return completion.Text, completion.Model, false, nil
}

func (g *Generator) stream(ctx context.Context, text string) (string, bool, error) {
	s, err := g.Client.CompleteStream(ctx, g.Provider, text, g.Options)
	if err != nil {
		return "", false, err
	}
	defer s.Close()

	for fragment := range s.Fragments() {
		if g.OnFragment != nil {
			g.OnFragment(fragment)
		}
	}

	err = s.Wait()
	switch {
	case errors.Is(err, models.ErrStreamTruncated):
		return s.Text(), true, nil
	case err != nil:
		return "", false, fmt.Errorf("error reading model stream: %w", err)
	}
	return s.Text(), false, nil
}
