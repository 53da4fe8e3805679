package models

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/kris-hansen/scrollystory/utils/config"
)

// maxErrorBody bounds how much of a failed response body is kept in the error
const maxErrorBody = 4096

// Options are per-call sampling options
type Options struct {
	Temperature float64
}

// DefaultOptions returns the options used when none are configured
func DefaultOptions() Options {
	return Options{Temperature: config.DefaultTemperature}
}

// chatRequest is the chat completion body. Temperature is always sent so that 0 reaches the provider.
type chatRequest struct {
	Model       string                         `json:"model"`
	Messages    []openai.ChatCompletionMessage `json:"messages"`
	Temperature float64                        `json:"temperature"`
	Stream      bool                           `json:"stream,omitempty"`
}

// Completion is the text of a batch completion
type Completion struct {
	Text  string
	Model string
}

// Client sends chat completion requests. It adds no timeouts of its own;
// callers bound a call with the context.
type Client struct {
	httpClient *http.Client
	catalog    *modelCache
}

// NewClient creates a client; a nil httpClient uses http.DefaultClient
func NewClient(httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{httpClient: httpClient, catalog: newModelCache(DefaultCatalogTTL)}
}

// Complete sends the prompt and returns the whole reply. A provider that answers with an
// event stream anyway is decoded as one; if that stream was cut off the collected text is
// returned together with ErrStreamTruncated.
func (c *Client) Complete(ctx context.Context, cfg ProviderConfig, prompt string, opts Options) (*Completion, error) {
	resp, err := c.send(ctx, cfg, prompt, opts, false)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	completion := &Completion{Model: cfg.ResolvedModel()}

	if isEventStream(resp) {
		config.DebugLog("Provider replied with an event stream to a batch request, decoding it")
		var text strings.Builder
		terminated, err := decodeStream(resp.Body, func(fragment string) bool {
			text.WriteString(fragment)
			return true
		})
		completion.Text = text.String()
		if err != nil {
			return nil, fmt.Errorf("error reading response stream: %w", err)
		}
		if !terminated {
			return completion, ErrStreamTruncated
		}
		return completion, nil
	}

	var reply openai.ChatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return nil, fmt.Errorf("error decoding response: %w", err)
	}
	if reply.Model != "" {
		completion.Model = reply.Model
	}
	if len(reply.Choices) > 0 {
		completion.Text = reply.Choices[0].Message.Content
	}

	config.DebugLog("Completion received from %s: %d characters", completion.Model, len(completion.Text))
	return completion, nil
}

// CompleteStream sends the prompt with streaming enabled. The returned stream owns the
// response body; callers drain Fragments and then call Wait, or call Close to abandon it.
func (c *Client) CompleteStream(ctx context.Context, cfg ProviderConfig, prompt string, opts Options) (*Stream, error) {
	ctx, cancel := context.WithCancel(ctx)
	resp, err := c.send(ctx, cfg, prompt, opts, true)
	if err != nil {
		cancel()
		return nil, err
	}
	return newStream(ctx, cancel, resp.Body), nil
}

func (c *Client) send(ctx context.Context, cfg ProviderConfig, prompt string, opts Options, stream bool) (*http.Response, error) {
	if !cfg.Usable() {
		return nil, ErrNotConfigured
	}

	body, err := json.Marshal(chatRequest{
		Model: cfg.ResolvedModel(),
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: opts.Temperature,
		Stream:      stream,
	})
	if err != nil {
		return nil, fmt.Errorf("error encoding request: %w", err)
	}

	endpoint := cfg.Endpoint() + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+cfg.APIKey)
	if stream {
		req.Header.Set("Accept", "text/event-stream")
	}
	for k, v := range cfg.extraHeaders() {
		req.Header.Set(k, v)
	}

	config.VerboseLog("Sending prompt to %s (model %s, %d characters, stream=%v)",
		cfg.Endpoint(), cfg.ResolvedModel(), len(prompt), stream)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error sending request to %s: %w", cfg.Endpoint(), err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		config.DebugLog("Provider returned %d: %s", resp.StatusCode, string(data))
		return nil, &ProviderRequestError{
			StatusCode: resp.StatusCode,
			Status:     http.StatusText(resp.StatusCode),
			Body:       string(data),
		}
	}
	return resp, nil
}

func isEventStream(resp *http.Response) bool {
	mediaType, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	return err == nil && mediaType == "text/event-stream"
}

// IsProviderError reports whether err carries a provider HTTP failure
func IsProviderError(err error) bool {
	var reqErr *ProviderRequestError
	return errors.As(err, &reqErr)
}
