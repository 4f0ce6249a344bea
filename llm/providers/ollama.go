// Package providers registers the backend wire formats for the llm client.
// Import it blank to register via init().
package providers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/c360studio/forumdigest/llm"
)

// OllamaProvider speaks the native Ollama chat API.
type OllamaProvider struct{}

func init() {
	llm.RegisterProvider(&OllamaProvider{})
}

// Name returns the provider identifier.
func (o *OllamaProvider) Name() string {
	return "ollama"
}

// BuildURL constructs the native chat endpoint.
func (o *OllamaProvider) BuildURL(baseURL string) string {
	if baseURL == "" {
		baseURL = "http://127.0.0.1:11434"
	}
	baseURL = strings.TrimSuffix(baseURL, "/")
	if strings.HasSuffix(baseURL, "/api/chat") {
		return baseURL
	}
	return baseURL + "/api/chat"
}

// SetHeaders adds provider-specific headers. Ollama needs none.
func (o *OllamaProvider) SetHeaders(_ *http.Request) {}

type ollamaRequest struct {
	Model     string        `json:"model"`
	Stream    bool          `json:"stream"`
	Messages  []llm.Message `json:"messages"`
	KeepAlive string        `json:"keep_alive,omitempty"`
}

type ollamaResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	PromptEvalCount int `json:"prompt_eval_count"`
	EvalCount       int `json:"eval_count"`
}

// BuildRequestBody creates the native chat request. keep_alive holds the
// model loaded between topics in one run.
func (o *OllamaProvider) BuildRequestBody(model string, messages []llm.Message) ([]byte, error) {
	return json.Marshal(ollamaRequest{
		Model:     model,
		Stream:    false,
		Messages:  messages,
		KeepAlive: "5m",
	})
}

// ParseResponse decodes the native chat envelope. Ollama reports eval counts
// rather than OpenAI-style usage; they map to the same thing.
func (o *OllamaProvider) ParseResponse(body []byte) (*llm.RawResponse, error) {
	var resp ollamaResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse ollama response: %w", err)
	}
	if resp.Message.Content == "" {
		return nil, fmt.Errorf("empty message content in ollama response")
	}

	raw := &llm.RawResponse{Content: resp.Message.Content}
	if resp.PromptEvalCount > 0 || resp.EvalCount > 0 {
		raw.Usage = &llm.TokenUsage{
			PromptTokens:     resp.PromptEvalCount,
			CompletionTokens: resp.EvalCount,
		}
	}
	return raw, nil
}
