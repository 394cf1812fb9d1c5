// Package gemini calls Gemini generateContent with mixed text and inline data
// parts through the Google Gen AI SDK.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"gemini-relay/internal/domain"
)

const defaultTimeout = 60 * time.Second

type Client struct {
	models *genai.Models
}

type options struct {
	baseURL    string
	httpClient *http.Client
}

type Option func(*options)

// WithBaseURL points the client at another endpoint root; the SDK appends the
// API version and method path.
func WithBaseURL(baseURL string) Option {
	return func(o *options) {
		o.baseURL = strings.TrimSpace(baseURL)
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(o *options) {
		o.httpClient = httpClient
	}
}

func NewClient(ctx context.Context, apiKey string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini: api key must not be empty")
	}
	o := options{httpClient: &http.Client{Timeout: defaultTimeout}}
	for _, opt := range opts {
		opt(&o)
	}
	if o.httpClient == nil {
		o.httpClient = &http.Client{Timeout: defaultTimeout}
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  o.httpClient,
		HTTPOptions: genai.HTTPOptions{BaseURL: o.baseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return &Client{models: client.Models}, nil
}

// Generate sends parts as a single user turn and returns the parts of the
// first candidate. modalities, when given, selects the response modalities
// (for example "TEXT", "IMAGE").
func (c *Client) Generate(ctx context.Context, model string, parts []domain.Part, modalities ...string) ([]domain.Part, error) {
	if model == "" {
		return nil, errors.New("gemini: model must not be empty")
	}
	if len(parts) == 0 {
		return nil, errors.New("gemini: at least one part is required")
	}

	var cfg *genai.GenerateContentConfig
	if len(modalities) > 0 {
		cfg = &genai.GenerateContentConfig{ResponseModalities: modalities}
	}
	contents := []*genai.Content{{Role: "user", Parts: toGenai(parts)}}

	resp, err := c.models.GenerateContent(ctx, model, contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini: generate: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		if pf := resp.PromptFeedback; pf != nil && pf.BlockReason != "" {
			return nil, fmt.Errorf("gemini: prompt blocked: %s", pf.BlockReason)
		}
		return nil, errors.New("gemini: no candidates in response")
	}
	return fromGenai(resp.Candidates[0].Content.Parts), nil
}

func toGenai(parts []domain.Part) []*genai.Part {
	out := make([]*genai.Part, 0, len(parts))
	for _, p := range parts {
		if p.InlineData != nil {
			out = append(out, &genai.Part{InlineData: &genai.Blob{MIMEType: p.InlineData.MIMEType, Data: p.InlineData.Data}})
			continue
		}
		out = append(out, &genai.Part{Text: p.Text})
	}
	return out
}

// fromGenai keeps text and inline data parts; other kinds (thoughts, function
// calls) are not used by the relay.
func fromGenai(parts []*genai.Part) []domain.Part {
	out := make([]domain.Part, 0, len(parts))
	for _, p := range parts {
		switch {
		case p == nil, p.Thought:
		case p.InlineData != nil:
			out = append(out, domain.Part{InlineData: &domain.Blob{MIMEType: p.InlineData.MIMEType, Data: p.InlineData.Data}})
		case p.Text != "":
			out = append(out, domain.Part{Text: p.Text})
		}
	}
	return out
}
