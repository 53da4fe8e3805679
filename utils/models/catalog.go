package models

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/google/generative-ai-go/genai"
	openai "github.com/sashabaranov/go-openai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/kris-hansen/scrollystory/utils/config"
)

// ListModels returns the model ids the provider offers, sorted. Successful listings are
// reused for DefaultCatalogTTL.
func (c *Client) ListModels(ctx context.Context, cfg ProviderConfig) ([]string, error) {
	if !cfg.Usable() {
		return nil, ErrNotConfigured
	}

	key := cacheKey(cfg)
	if cached, ok := c.catalog.get(key); ok {
		config.DebugLog("Using cached model list for %s", cfg.Endpoint())
		return cached, nil
	}

	ids, err := c.listModels(ctx, cfg)
	if err != nil {
		return nil, err
	}
	c.catalog.set(key, ids)
	return ids, nil
}

// ClearModelCache drops all cached model listings
func (c *Client) ClearModelCache() {
	c.catalog.clear()
}

func (c *Client) listModels(ctx context.Context, cfg ProviderConfig) ([]string, error) {
	if cfg.Kind == Gemini && cfg.Endpoint() == Gemini.DefaultBaseURL() {
		return listGeminiModels(ctx, cfg)
	}
	return c.listOpenAIModels(ctx, cfg)
}

// Validate checks that the provider accepts the configured API key. Providers without a
// model catalog answer 404, which is accepted.
func (c *Client) Validate(ctx context.Context, cfg ProviderConfig) error {
	if !cfg.Usable() {
		return ErrNotConfigured
	}

	_, err := c.listModels(ctx, cfg)
	var reqErr *ProviderRequestError
	if errors.As(err, &reqErr) && reqErr.StatusCode == http.StatusNotFound {
		config.VerboseLog("Provider %s has no model catalog, skipping key check", cfg.Endpoint())
		return nil
	}
	return err
}

func (c *Client) listOpenAIModels(ctx context.Context, cfg ProviderConfig) ([]string, error) {
	oc := openai.DefaultConfig(cfg.APIKey)
	oc.BaseURL = cfg.Endpoint()
	oc.HTTPClient = &http.Client{
		Transport: &headerTransport{base: c.httpClient.Transport, headers: cfg.extraHeaders()},
		Timeout:   c.httpClient.Timeout,
	}

	config.VerboseLog("Listing models from %s", cfg.Endpoint())
	list, err := openai.NewClientWithConfig(oc).ListModels(ctx)
	if err != nil {
		return nil, fromSDKError(err)
	}

	ids := make([]string, 0, len(list.Models))
	for _, m := range list.Models {
		ids = append(ids, m.ID)
	}
	sort.Strings(ids)
	return ids, nil
}

func listGeminiModels(ctx context.Context, cfg ProviderConfig) ([]string, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("error creating Gemini client: %w", err)
	}
	defer client.Close()

	config.VerboseLog("Listing Gemini models")
	var ids []string
	iter := client.ListModels(ctx)
	for {
		m, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error listing Gemini models: %w", err)
		}
		if !supportsGeneration(m.SupportedGenerationMethods) {
			continue
		}
		ids = append(ids, strings.TrimPrefix(m.Name, "models/"))
	}
	sort.Strings(ids)
	return ids, nil
}

func supportsGeneration(methods []string) bool {
	for _, m := range methods {
		if m == "generateContent" {
			return true
		}
	}
	return false
}

// fromSDKError maps go-openai errors onto ProviderRequestError so callers see one error type
func fromSDKError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return &ProviderRequestError{
			StatusCode: apiErr.HTTPStatusCode,
			Status:     http.StatusText(apiErr.HTTPStatusCode),
			Body:       apiErr.Message,
		}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		body := ""
		if reqErr.Err != nil {
			body = reqErr.Err.Error()
		}
		return &ProviderRequestError{
			StatusCode: reqErr.HTTPStatusCode,
			Status:     http.StatusText(reqErr.HTTPStatusCode),
			Body:       body,
		}
	}
	return fmt.Errorf("error listing models: %w", err)
}

// headerTransport adds fixed headers to every request
type headerTransport struct {
	base    http.RoundTripper
	headers map[string]string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	if len(t.headers) == 0 {
		return base.RoundTrip(req)
	}
	req = req.Clone(req.Context())
	for k, v := range t.headers {
		req.Header.Set(k, v)
	}
	return base.RoundTrip(req)
}
