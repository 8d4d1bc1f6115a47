// Package ai defines the text generation backend shared by the query
// generator and the batch scorer.
package ai

import (
	"context"
	"time"
)

// Generator produces a single text completion for a prompt.
type Generator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
	Model() string
}

// GeneratorFunc adapts a plain function to the Generator interface.
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

func (f GeneratorFunc) GenerateContent(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

func (f GeneratorFunc) Model() string {
	return "func"
}

type timeoutGenerator struct {
	Generator
	timeout time.Duration
}

// WithTimeout bounds every GenerateContent call of g. Non-positive timeouts return g unchanged.
func WithTimeout(g Generator, timeout time.Duration) Generator {
	if g == nil || timeout <= 0 {
		return g
	}
	return &timeoutGenerator{Generator: g, timeout: timeout}
}

func (t *timeoutGenerator) GenerateContent(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.Generator.GenerateContent(ctx, prompt)
}
