// Package services provides a thin client for OpenAI's chat completions
// API. The narration pipeline treats the model as a fallible collaborator:
// callers validate every response and fall back to deterministic behavior
// on schema violations.
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/narraflow/narraflow/internal/utils"
)

const defaultBaseURL = "https://api.openai.com/v1"

// ChatGPTService provides a centralized way to interact with OpenAI's
// chat completions API
type ChatGPTService struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// ChatMessage represents a message in the conversation
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// responseFormat selects the completion output format
type responseFormat struct {
	Type string `json:"type"`
}

// ChatRequest represents an OpenAI API request
type ChatRequest struct {
	Model          string          `json:"model"`
	Messages       []ChatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

// ChatResponse represents an OpenAI API response
type ChatResponse struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	Choices []struct {
		Index        int         `json:"index"`
		Message      ChatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// ChatError represents an error from the OpenAI API
type ChatError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// CompletionOptions contains the parameters for a completion request
type CompletionOptions struct {
	Model            string
	Temperature      float64
	MaxTokens        int
	RequestTimeoutMS int
	JSONResponse     bool // Force a JSON object response
}

// NewChatGPTService creates a new service instance from the environment
func NewChatGPTService() (*ChatGPTService, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, errors.New("OPENAI_API_KEY environment variable is not set")
	}

	return &ChatGPTService{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		client:  &http.Client{},
	}, nil
}

// NewChatGPTServiceWithEndpoint creates a service pointed at a custom API
// endpoint. Used by tests.
func NewChatGPTServiceWithEndpoint(apiKey, baseURL string) *ChatGPTService {
	return &ChatGPTService{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  &http.Client{},
	}
}

// Complete sends a completion request to the OpenAI API
func (s *ChatGPTService) Complete(ctx context.Context, messages []ChatMessage, opts CompletionOptions) (*ChatResponse, error) {
	if opts.RequestTimeoutMS > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(opts.RequestTimeoutMS)*time.Millisecond)
		defer cancel()
	}

	reqBody := ChatRequest{
		Model:       opts.Model,
		Messages:    messages,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	}
	if opts.JSONResponse {
		reqBody.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	reqData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		s.baseURL+"/chat/completions",
		bytes.NewBuffer(reqData),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			utils.LogWarning("Failed to close response body: %v", err)
		}
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var chatError ChatError
		if err := json.Unmarshal(respBody, &chatError); err == nil && chatError.Error.Message != "" {
			return nil, fmt.Errorf("API error: %s", chatError.Error.Message)
		}
		return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var chatResp ChatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if len(chatResp.Choices) == 0 {
		return nil, errors.New("no response from ChatGPT")
	}

	return &chatResp, nil
}

// GetContent is a helper function that returns just the content from the
// first choice
func (s *ChatGPTService) GetContent(ctx context.Context, messages []ChatMessage, opts CompletionOptions) (string, error) {
	resp, err := s.Complete(ctx, messages, opts)
	if err != nil {
		return "", err
	}

	return resp.Choices[0].Message.Content, nil
}

// IsAPIKeySet checks if the OpenAI API key is set in the environment
func IsAPIKeySet() bool {
	return os.Getenv("OPENAI_API_KEY") != ""
}
