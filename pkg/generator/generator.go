// Package generator defines the port to an external text-generation endpoint.
package generator

import (
	"context"
)

// Generator turns a prompt into reply text.
type Generator interface {
	// Generate sends prompt as the sole content of one request and returns
	// the extracted reply text.
	Generate(ctx context.Context, prompt string) (string, error)

	// Name identifies the provider in logs and metrics.
	Name() string
}
