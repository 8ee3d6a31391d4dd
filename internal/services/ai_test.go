package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chatRequest struct {
	Model     string `json:"model"`
	MaxTokens int    `json:"max_tokens"`
	Messages  []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func TestAIServiceComplete(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"model": "gpt-4o-mini",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "  A short summary.\n"}, "finish_reason": "stop"}]
		}`))
	}))
	defer srv.Close()

	ai := NewAIService("test-key", "gpt-4o-mini", srv.URL)
	out, err := ai.Complete(context.Background(), PromptFor(ArtifactSummary, "cells"), DefaultMaxTokens)
	require.NoError(t, err)
	assert.Equal(t, "A short summary.", out)

	assert.Equal(t, "gpt-4o-mini", got.Model)
	assert.Equal(t, 300, got.MaxTokens)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "You are a helpful study assistant.", got.Messages[0].Content)
	assert.Equal(t, "user", got.Messages[1].Role)
	assert.Equal(t, "Summarize the following study notes:\ncells", got.Messages[1].Content)
}

func TestAIServiceNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": "chatcmpl-2", "object": "chat.completion", "choices": []}`))
	}))
	defer srv.Close()

	_, err := NewAIService("test-key", "gpt-4o-mini", srv.URL).Complete(context.Background(), "hi", 10)
	assert.ErrorIs(t, err, ErrEmptyCompletion)
	assert.Equal(t, FailureEmpty, ClassifyFailure(err))
}

func TestAIServiceUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": {"message": "Incorrect API key provided", "type": "invalid_request_error", "code": "invalid_api_key"}}`))
	}))
	defer srv.Close()

	_, err := NewAIService("bad-key", "gpt-4o-mini", srv.URL).Complete(context.Background(), "hi", 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Incorrect API key provided")
	assert.Equal(t, FailureAuth, ClassifyFailure(err))
}

func TestAIServiceTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := NewAIService("test-key", "gpt-4o-mini", srv.URL).Complete(ctx, "hi", 10)
	require.Error(t, err)
	assert.Equal(t, FailureTimeout, ClassifyFailure(err))
}

func TestAIServiceWithoutKey(t *testing.T) {
	_, err := NewAIService("", "gpt-4o-mini", "").Complete(context.Background(), "hi", 10)
	assert.ErrorIs(t, err, ErrAIUnavailable)
}
