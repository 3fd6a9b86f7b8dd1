package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/flightchat/backend/internal/logger"
	"github.com/flightchat/backend/internal/models"
)

// OllamaClient talks to a local Ollama instance over its generate API.
type OllamaClient struct {
	baseURL string
	model   string
	client  *http.Client
}

type ollamaGenerateRequest struct {
	Model   string                 `json:"model"`
	Prompt  string                 `json:"prompt"`
	Stream  bool                   `json:"stream"`
	Options map[string]interface{} `json:"options,omitempty"`
}

type ollamaGenerateResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

func NewOllamaClient(baseURL, model string) *OllamaClient {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "llama2:13b"
	}

	timeout := 300 * time.Second
	if timeoutStr := os.Getenv("OLLAMA_TIMEOUT_SECONDS"); timeoutStr != "" {
		if t, err := time.ParseDuration(timeoutStr + "s"); err == nil {
			timeout = t
		}
	}

	return &OllamaClient{
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{Timeout: timeout},
	}
}

func (oc *OllamaClient) Name() string {
	return "ollama"
}

// Chat flattens the request into one prompt for the generate endpoint.
func (oc *OllamaClient) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	prompt := buildTranscriptPrompt(req)

	body := ollamaGenerateRequest{
		Model:  oc.model,
		Prompt: prompt,
		Stream: false,
		Options: map[string]interface{}{
			"temperature": 0.2,
			"top_p":       0.8,
		},
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/api/generate", oc.baseURL)
	logger.WithLLM(oc.Name(), "chat").Debugf("Making LLM request to %s with prompt length: %d characters", url, len(prompt))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := oc.client.Do(httpReq)
	if err != nil {
		return nil, transient(fmt.Errorf("HTTP request failed: %w", err))
	}
	defer resp.Body.Close()

	logger.WithLLM(oc.Name(), "chat").Debugf("LLM request completed in %v with status: %d", time.Since(start), resp.StatusCode)

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		err := fmt.Errorf("Ollama API returned status %d, body: %s", resp.StatusCode, string(respBody))
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return nil, transient(err)
		}
		return nil, err
	}

	var ollamaResp ollamaGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&ollamaResp); err != nil {
		return nil, fmt.Errorf("failed to decode Ollama response: %w", err)
	}

	return ParseEnvelope(ollamaResp.Response), nil
}

// CheckHealth verifies the Ollama instance is reachable.
func (oc *OllamaClient) CheckHealth() error {
	resp, err := oc.client.Get(fmt.Sprintf("%s/api/tags", oc.baseURL))
	if err != nil {
		return fmt.Errorf("LLM service not available: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("LLM service returned status %d", resp.StatusCode)
	}
	return nil
}

// buildTranscriptPrompt renders system text, history, and the new question
// as one prompt for completion-style providers.
func buildTranscriptPrompt(req ChatRequest) string {
	var b strings.Builder
	if req.System != "" {
		b.WriteString(req.System)
		b.WriteString("\n\n")
	}
	for _, turn := range req.History {
		switch turn.Role {
		case models.RoleAgent:
			b.WriteString("Assistant: ")
		default:
			b.WriteString("User: ")
		}
		b.WriteString(turn.Text)
		b.WriteString("\n")
	}
	b.WriteString("User: ")
	b.WriteString(req.Question)
	b.WriteString("\nAssistant:")
	return b.String()
}
