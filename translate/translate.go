// Package translate talks to the text-completion backend that turns comments
// and docstrings into Chinese.
//
// The rest of the tool only sees the Translator interface. Client implements
// it over HTTP for OpenAI-compatible chat completion endpoints (self-hosted
// servers, Ollama, Groq, OpenAI) and the Google Gemini generateContent API,
// with retries on rate limits and server errors.
package translate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/minios-linux/zhdoc/langmeta"
)

// Span kinds understood by the prompt templates.
const (
	KindComment   = "comment"
	KindDocstring = "docstring"
)

// ErrEmptyResponse is returned when the backend answers with no text.
var ErrEmptyResponse = errors.New("backend returned an empty translation")

// Translator translates one comment or docstring body. kind is KindComment
// or KindDocstring and only changes how the request is framed.
type Translator interface {
	Translate(ctx context.Context, text, kind string) (string, error)
}

// Func adapts a function to the Translator interface.
type Func func(ctx context.Context, text, kind string) (string, error)

// Translate calls f.
func (f Func) Translate(ctx context.Context, text, kind string) (string, error) {
	return f(ctx, text, kind)
}

// ---------------------------------------------------------------------------
// Options
// ---------------------------------------------------------------------------

// Options controls the backend client.
type Options struct {
	// Provider is the backend configuration.
	Provider Provider
	// Prompts are the request templates; empty fields use the defaults.
	Prompts Prompts
	// Language is the target language code (default zh-CN).
	Language string
	// Temperature is the sampling temperature (default 0.3).
	Temperature float64
	// MaxTokens caps the completion length (default 500).
	MaxTokens int
	// Timeout is the per-request timeout (overrides provider timeout if set).
	Timeout time.Duration
	// MaxRetries is the maximum number of retries on 429, 5xx and transport
	// errors. Default: 3.
	MaxRetries int
	// Verbose enables request tracing.
	Verbose bool
}

func (o *Options) effectiveTimeout() time.Duration {
	if o.Timeout > 0 {
		return o.Timeout
	}
	if o.Provider.Timeout > 0 {
		return o.Provider.Timeout
	}
	return 120 * time.Second
}

func (o *Options) effectiveMaxRetries() int {
	if o.MaxRetries > 0 {
		return o.MaxRetries
	}
	return 3
}

func (o *Options) effectiveMaxTokens() int {
	if o.MaxTokens > 0 {
		return o.MaxTokens
	}
	return 500
}

func (o *Options) effectiveTemperature() float64 {
	if o.Temperature > 0 {
		return o.Temperature
	}
	return 0.3
}

func (o *Options) languageName() string {
	lang := o.Language
	if lang == "" {
		lang = langmeta.Target
	}
	return langmeta.Resolve(lang).Name
}

// ---------------------------------------------------------------------------
// Client
// ---------------------------------------------------------------------------

// Client is the HTTP Translator.
type Client struct {
	opts    Options
	prompts Prompts
	http    *http.Client
}

// New returns a Client for opts.
func New(opts Options) *Client {
	return &Client{
		opts:    opts,
		prompts: opts.Prompts.Merge(DefaultPrompts()),
		http:    makeHTTPClient(opts.Provider.Proxy, opts.effectiveTimeout()),
	}
}

// Provider returns the provider the client talks to.
func (c *Client) Provider() Provider {
	return c.opts.Provider
}

// Validate checks that the provider is usable before any request is sent.
func (c *Client) Validate() error {
	return ValidateProvider(c.opts.Provider)
}

// Translate sends text to the backend and returns the raw answer, trimmed.
func (c *Client) Translate(ctx context.Context, text, kind string) (string, error) {
	r := request{
		system:      c.prompts.System,
		user:        c.prompts.Render(text, kind, c.opts.languageName()),
		temperature: c.opts.effectiveTemperature(),
		maxTokens:   c.opts.effectiveMaxTokens(),
	}

	out, err := callHTTPProvider(ctx, c.http, c.opts.Provider, r, c.opts.effectiveMaxRetries(), c.opts.Verbose)
	if err != nil {
		return "", err
	}
	out = strings.TrimSpace(stripCodeFence(out))
	if out == "" {
		return "", ErrEmptyResponse
	}
	return out, nil
}

// stripCodeFence removes a markdown code fence wrapping the whole answer.
func stripCodeFence(s string) string {
	t := strings.TrimSpace(s)
	if !strings.HasPrefix(t, "```") || !strings.HasSuffix(t, "```") || len(t) < 6 {
		return s
	}
	t = strings.TrimSuffix(strings.TrimPrefix(t, "```"), "```")
	if nl := strings.IndexByte(t, '\n'); nl >= 0 && !strings.ContainsAny(t[:nl], " \t") {
		t = t[nl+1:]
	}
	return t
}

// ValidateProvider reports a missing model or endpoint.
func ValidateProvider(prov Provider) error {
	if prov.Model == "" {
		return fmt.Errorf("--model is required for provider '%s'", prov.ID)
	}
	if prov.BaseURL == "" {
		return fmt.Errorf("provider '%s' requires an endpoint URL (--base-url)", prov.ID)
	}
	if prov.ID == ProviderGoogle && prov.APIKey == "" {
		return fmt.Errorf("provider 'google' requires an API key\n\n" +
			"Get an API key from: https://aistudio.google.com/apikey")
	}
	return nil
}

// ResolveProvider builds a Provider from a name and overrides. Unknown names
// are treated as custom OpenAI-compatible endpoints.
func ResolveProvider(name, baseURL, apiKey, model, proxy string, timeout time.Duration) Provider {
	defaults := DefaultProviders()
	prov, ok := defaults[strings.ToLower(name)]
	if !ok {
		prov = defaults[ProviderCustomOpenAI]
		if name != "" {
			prov.Name = name
		}
	}

	if baseURL != "" {
		prov.BaseURL = baseURL
	}
	if apiKey != "" {
		prov.APIKey = apiKey
	}
	if model != "" {
		prov.Model = model
	}
	if proxy != "" {
		prov.Proxy = proxy
	}
	if timeout > 0 {
		prov.Timeout = timeout
	}
	return prov
}
