package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

var (
	// ErrAIUnavailable is returned when the OpenAI integration is not configured.
	ErrAIUnavailable = errors.New("openai integration is not configured")
	// ErrEmptyCompletion is returned when the model answers without content.
	ErrEmptyCompletion = errors.New("openai returned no choices")
)

const studyAssistantPrompt = "You are a helpful study assistant."

// TextGenerator turns a prompt into generated text.
type TextGenerator interface {
	Complete(ctx context.Context, prompt string, maxTokens int) (string, error)
}

type AIService struct {
	client *openai.Client
	model  string
}

func NewAIService(apiKey string, model string, apiEndpoint string) *AIService {
	if apiKey == "" {
		return &AIService{}
	}

	cfg := openai.DefaultConfig(apiKey)
	if apiEndpoint != "" {
		cfg.BaseURL = apiEndpoint
	}
	return &AIService{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

func (s *AIService) disabled() bool {
	return s.client == nil || s.model == ""
}

// Complete sends prompt as the user turn of a single chat completion and
// returns the trimmed content of the first choice.
func (s *AIService) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if s.disabled() {
		return "", ErrAIUnavailable
	}

	req := openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: studyAssistantPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		MaxTokens: maxTokens,
	}

	resp, err := s.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("request openai completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// FailureKind classifies why a generation call did not produce text.
type FailureKind string

const (
	FailureNone        FailureKind = ""
	FailureTimeout     FailureKind = "timeout"
	FailureCanceled    FailureKind = "canceled"
	FailureAuth        FailureKind = "auth"
	FailureRateLimited FailureKind = "rate_limited"
	FailureBadRequest  FailureKind = "bad_request"
	FailureEmpty       FailureKind = "empty_response"
	FailureUpstream    FailureKind = "upstream"
)

// ClassifyFailure maps a generation error to a FailureKind.
func ClassifyFailure(err error) FailureKind {
	if err == nil {
		return FailureNone
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return FailureTimeout
	case errors.Is(err, context.Canceled):
		return FailureCanceled
	case errors.Is(err, ErrAIUnavailable):
		return FailureAuth
	case errors.Is(err, ErrEmptyCompletion):
		return FailureEmpty
	}

	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	if errors.As(err, &apiErr) {
		status = apiErr.HTTPStatusCode
	} else if errors.As(err, &reqErr) {
		status = reqErr.HTTPStatusCode
	}
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return FailureAuth
	case status == http.StatusTooManyRequests:
		return FailureRateLimited
	case status >= 400 && status < 500:
		return FailureBadRequest
	}
	return FailureUpstream
}
