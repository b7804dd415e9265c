package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/bryanwahyu/automaton-sol/internal/domain/ai"
	"github.com/bryanwahyu/automaton-sol/internal/infra/ai/prompt"
)

const (
	maxTokens    = 2048
	DefaultModel = "o3-2025-04-16"
)

type Client struct {
	*openai.Client
	Model string
}

func NewClient(apiKey, model string) *Client {
	return &Client{Client: openai.NewClient(apiKey), Model: model}
}

// NewClientWithConfig is used when the API lives behind a proxy or a compatible gateway.
func NewClientWithConfig(cfg openai.ClientConfig, model string) *Client {
	return &Client{Client: openai.NewClientWithConfig(cfg), Model: model}
}

func (c *Client) ModelName() string {
	if c.Model == "" {
		return DefaultModel
	}
	return c.Model
}

// Review implements ai.Client
func (c *Client) Review(ctx context.Context, contractName, source string) (string, error) {
	resp, err := c.CreateChatCompletion(ctx, buildRequest(c.ModelName(), contractName, source))
	if err != nil {
		if isQuota(err) {
			return "", fmt.Errorf("%w: %v", ai.ErrQuotaExceeded, err)
		}
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("empty completion")
	}
	content := resp.Choices[0].Message.Content
	// validasi bentuk JSON, jawaban tetap disimpan apa adanya
	if _, err := prompt.ParseSuggestion(content); err != nil {
		return "", err
	}
	return content, nil
}

func buildRequest(model, contractName, source string) openai.ChatCompletionRequest {
	req := openai.ChatCompletionRequest{
		Model: model,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt.GetSystemPrompt()},
			{Role: openai.ChatMessageRoleUser, Content: prompt.GetUserPrompt(contractName, source)},
		},
	}
	// For reasoning models (o1/o3/o4/gpt-5*) use MaxCompletionTokens instead of MaxTokens
	if isReasoningModel(model) {
		req.MaxCompletionTokens = maxTokens
	} else {
		req.MaxTokens = maxTokens
	}
	return req
}

func isReasoningModel(model string) bool {
	for _, p := range []string{"o1", "o3", "o4", "gpt-5"} {
		if strings.HasPrefix(model, p) {
			return true
		}
	}
	return false
}

func isQuota(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.Type == "insufficient_quota"
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests
	}
	return false
}
