package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completionResponse(content string) string {
	return `{"id":"chatcmpl-1","object":"chat.completion","created":1,
		"choices":[{"index":0,"message":{"role":"assistant","content":` +
		string(mustJSON(content)) + `},"finish_reason":"stop"}],
		"usage":{"prompt_tokens":10,"completion_tokens":5,"total_tokens":15}}`
}

func mustJSON(s string) []byte {
	data, _ := json.Marshal(s)
	return data
}

func TestComplete(t *testing.T) {
	var gotReq ChatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionResponse("hello")))
	}))
	defer server.Close()

	service := NewChatGPTServiceWithEndpoint("test-key", server.URL)

	resp, err := service.Complete(context.Background(), []ChatMessage{
		{Role: "system", Content: "be brief"},
		{Role: "user", Content: "hi"},
	}, CompletionOptions{Model: "gpt-4o", Temperature: 0, JSONResponse: true})
	require.NoError(t, err)

	require.Len(t, resp.Choices, 1)
	assert.Equal(t, "hello", resp.Choices[0].Message.Content)
	assert.Equal(t, "gpt-4o", gotReq.Model)
	require.NotNil(t, gotReq.ResponseFormat)
	assert.Equal(t, "json_object", gotReq.ResponseFormat.Type)
	require.Len(t, gotReq.Messages, 2)
}

func TestGetContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(completionResponse(`{"segments":[]}`)))
	}))
	defer server.Close()

	service := NewChatGPTServiceWithEndpoint("test-key", server.URL)

	content, err := service.GetContent(context.Background(), nil, CompletionOptions{Model: "gpt-4o"})
	require.NoError(t, err)
	assert.Equal(t, `{"segments":[]}`, content)
}

func TestCompleteAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"invalid api key","type":"auth","code":"401"}}`))
	}))
	defer server.Close()

	service := NewChatGPTServiceWithEndpoint("bad-key", server.URL)

	_, err := service.Complete(context.Background(), nil, CompletionOptions{Model: "gpt-4o"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid api key")
}

func TestCompleteNoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"chatcmpl-1","choices":[]}`))
	}))
	defer server.Close()

	service := NewChatGPTServiceWithEndpoint("test-key", server.URL)

	_, err := service.Complete(context.Background(), nil, CompletionOptions{Model: "gpt-4o"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no response")
}
