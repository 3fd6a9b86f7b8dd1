package llm

import (
	"fmt"
	"os"
	"strings"
)

// NewClientFromEnv selects the reasoning provider once at startup from
// LLM_PROVIDER (ollama, openai, anthropic). Ollama is the default since it
// needs no API key.
func NewClientFromEnv() (Client, error) {
	provider := strings.ToLower(os.Getenv("LLM_PROVIDER"))
	if provider == "" {
		provider = "ollama"
	}

	switch provider {
	case "ollama":
		return NewOllamaClient(os.Getenv("OLLAMA_URL"), os.Getenv("OLLAMA_MODEL")), nil
	case "openai":
		return NewOpenAIClient()
	case "anthropic":
		return NewAnthropicClient()
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", provider)
	}
}
