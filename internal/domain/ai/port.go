package ai

import "context"

// Client asks a language model for a second opinion on a contract.
// The result is a JSON object as described by the reviewer prompt.
type Client interface {
	Review(ctx context.Context, contractName, source string) (string, error)
	ModelName() string
}
