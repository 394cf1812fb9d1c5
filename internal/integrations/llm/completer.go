// Package llm adapts a langchaingo model to single-prompt text completion.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
)

type Completer struct {
	model llms.Model
	opts  []llms.CallOption
}

func New(model llms.Model, opts ...llms.CallOption) (*Completer, error) {
	if model == nil {
		return nil, errors.New("llm: model must not be nil")
	}
	return &Completer{model: model, opts: opts}, nil
}

// NewGoogleAI builds a Completer backed by the Gemini API.
func NewGoogleAI(ctx context.Context, apiKey, modelName string, opts ...llms.CallOption) (*Completer, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("llm: api key must not be empty")
	}
	if strings.TrimSpace(modelName) == "" {
		return nil, errors.New("llm: model name must not be empty")
	}
	model, err := googleai.New(ctx,
		googleai.WithAPIKey(apiKey),
		googleai.WithDefaultModel(modelName),
	)
	if err != nil {
		return nil, fmt.Errorf("llm: create googleai model: %w", err)
	}
	return New(model, opts...)
}

func (c *Completer) Complete(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", errors.New("llm: prompt must not be empty")
	}
	out, err := llms.GenerateFromSinglePrompt(ctx, c.model, prompt, c.opts...)
	if err != nil {
		return "", fmt.Errorf("llm: generate: %w", err)
	}
	return out, nil
}
