package llm

import (
	"net/http"
	"sync"
)

// Message is one chat message in a summarization request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// TokenUsage is backend-reported token consumption. Nil fields mean the
// backend did not report usage and the client estimates locally.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

// RawResponse is the provider-decoded backend reply before summary parsing.
type RawResponse struct {
	// Content is the model's generated text.
	Content string

	// Usage is the backend-reported token usage, nil when not reported.
	Usage *TokenUsage
}

// Provider adapts one backend wire format (Ollama native, OpenAI-compatible).
type Provider interface {
	// Name returns the provider identifier ("ollama", "openai").
	Name() string

	// BuildURL constructs the chat endpoint from the configured base URL.
	BuildURL(baseURL string) string

	// SetHeaders adds provider-specific headers to the request.
	SetHeaders(req *http.Request)

	// BuildRequestBody creates the JSON request body.
	BuildRequestBody(model string, messages []Message) ([]byte, error)

	// ParseResponse decodes the provider-specific response envelope.
	ParseResponse(body []byte) (*RawResponse, error)
}

var (
	providerRegistry = make(map[string]Provider)
	providerMu       sync.RWMutex
)

// RegisterProvider adds a provider to the registry. Providers register
// themselves via init() in the providers package.
func RegisterProvider(p Provider) {
	providerMu.Lock()
	defer providerMu.Unlock()
	providerRegistry[p.Name()] = p
}

// GetProvider retrieves a provider by name, nil when unknown.
func GetProvider(name string) Provider {
	providerMu.RLock()
	defer providerMu.RUnlock()
	return providerRegistry[name]
}
