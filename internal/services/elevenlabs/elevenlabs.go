// Package elevenlabs provides the speech synthesis client. One call
// synthesizes one clause of text; pauses are never requested from the
// provider - they are a client-side concern of the splice engine.
package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/narraflow/narraflow/internal/utils"
)

const defaultBaseURL = "https://api.elevenlabs.io"

// SynthesisError carries the provider's response for a failed synthesis
// call so the orchestrator can decide whether to retry.
type SynthesisError struct {
	StatusCode int
	Message    string
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("synthesis failed with status %d: %s", e.StatusCode, e.Message)
}

// Synthesizer converts one clause of text into raw audio bytes.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voiceID string) ([]byte, error)
}

// Client is the ElevenLabs text-to-speech client. It requests raw PCM so
// the pipeline can decode responses without an external codec.
type Client struct {
	apiKey       string
	baseURL      string
	modelID      string
	outputFormat string
	client       *http.Client
}

// synthesisRequest is the provider's request payload.
type synthesisRequest struct {
	Text    string `json:"text"`
	ModelID string `json:"model_id"`
}

// NewClient creates a client from the ELEVENLABS_API_KEY environment
// variable. sampleRate selects the PCM output format.
func NewClient(modelID string, sampleRate, timeoutMS int) (*Client, error) {
	apiKey := os.Getenv("ELEVENLABS_API_KEY")
	if apiKey == "" {
		return nil, errors.New("ELEVENLABS_API_KEY environment variable is not set")
	}
	return newClient(apiKey, defaultBaseURL, modelID, sampleRate, timeoutMS), nil
}

// NewClientWithEndpoint creates a client pointed at a custom endpoint.
// Used by tests.
func NewClientWithEndpoint(apiKey, baseURL, modelID string, sampleRate, timeoutMS int) *Client {
	return newClient(apiKey, baseURL, modelID, sampleRate, timeoutMS)
}

func newClient(apiKey, baseURL, modelID string, sampleRate, timeoutMS int) *Client {
	return &Client{
		apiKey:       apiKey,
		baseURL:      baseURL,
		modelID:      modelID,
		outputFormat: fmt.Sprintf("pcm_%d", sampleRate),
		client:       &http.Client{Timeout: time.Duration(timeoutMS) * time.Millisecond},
	}
}

// Synthesize performs one text-to-speech call and returns the raw PCM
// bytes. Non-success responses surface as *SynthesisError.
func (c *Client) Synthesize(ctx context.Context, text, voiceID string) ([]byte, error) {
	if voiceID == "" {
		return nil, errors.New("voice id is required for synthesis")
	}

	reqData, err := json.Marshal(synthesisRequest{Text: text, ModelID: c.modelID})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal synthesis request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1/text-to-speech/%s?output_format=%s",
		c.baseURL, url.PathEscape(voiceID), url.QueryEscape(c.outputFormat))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(reqData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("synthesis request failed: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			utils.LogWarning("Failed to close response body: %v", err)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read synthesis response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &SynthesisError{StatusCode: resp.StatusCode, Message: string(body)}
	}

	return body, nil
}

// IsAPIKeySet checks if the ElevenLabs API key is set in the environment
func IsAPIKeySet() bool {
	return os.Getenv("ELEVENLABS_API_KEY") != ""
}
