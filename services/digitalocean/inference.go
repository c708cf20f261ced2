package digitalocean

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/classmate-ai/backend/config"
)

const (
	defaultInferenceBaseURL = "https://inference.do-ai.run"
	defaultInferenceModel   = "llama3.3-70b-instruct"
	inferenceTimeout        = 120 * time.Second
)

// ErrInferenceNotConfigured is returned when no API key is set. Handlers map
// this to 501 so clients can distinguish "chat disabled" from a live failure.
var ErrInferenceNotConfigured = errors.New("inference service is not configured")

// InferenceMessage is a single message in a chat completion request
type InferenceMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// InferenceClient calls the DigitalOcean serverless inference API
// (OpenAI-compatible chat completions).
type InferenceClient struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// NewInferenceClient creates an inference client. An empty apiKey yields a
// client whose calls fail with ErrInferenceNotConfigured.
func NewInferenceClient(apiKey, model string) *InferenceClient {
	if model == "" {
		model = defaultInferenceModel
	}
	return &InferenceClient{
		apiKey:  apiKey,
		model:   model,
		baseURL: defaultInferenceBaseURL,
		httpClient: &http.Client{
			Timeout: inferenceTimeout,
		},
	}
}

// NewInferenceClientFromGlobalConfig builds a client from environment configuration
func NewInferenceClientFromGlobalConfig() (*InferenceClient, error) {
	getEnv, err := config.Get()
	if err != nil {
		return nil, err
	}
	return NewInferenceClient(getEnv.DO_INFERENCE_KEY, getEnv.DO_INFERENCE_MODEL), nil
}

// IsConfigured reports whether an API key is present
func (ic *InferenceClient) IsConfigured() bool {
	return ic.apiKey != ""
}

type chatCompletionRequest struct {
	Model       string             `json:"model"`
	Messages    []InferenceMessage `json:"messages"`
	Temperature float64            `json:"temperature"`
	MaxTokens   int                `json:"max_tokens,omitempty"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// ChatCompletion sends the messages to the model and returns the first choice's
// content. The returned string may be empty when the model produced no output.
func (ic *InferenceClient) ChatCompletion(ctx context.Context, messages []InferenceMessage) (string, error) {
	if !ic.IsConfigured() {
		return "", ErrInferenceNotConfigured
	}

	reqBody := chatCompletionRequest{
		Model:       ic.model,
		Messages:    messages,
		Temperature: 0.2,
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to encode completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		ic.baseURL+"/v1/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+ic.apiKey)

	resp, err := ic.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("inference request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read inference response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("inference API returned status %d: %s", resp.StatusCode, string(body))
	}

	var completion chatCompletionResponse
	if err := json.Unmarshal(body, &completion); err != nil {
		return "", fmt.Errorf("failed to decode inference response: %w", err)
	}
	if completion.Error != nil {
		return "", fmt.Errorf("inference API error: %s", completion.Error.Message)
	}
	if len(completion.Choices) == 0 {
		return "", nil
	}
	return completion.Choices[0].Message.Content, nil
}
