package advisor

import "context"

// LLMClient abstracts the chat model so backends can be swapped or mocked.
// Implementations invoke the model exactly once per call.
type LLMClient interface {
	Complete(ctx context.Context, prompt Prompt) (string, error)
}

// LLMSettings is the backend configuration shared by the concrete clients.
type LLMSettings struct {
	Provider    string
	Model       string
	APIKey      string
	BaseURL     string
	APIVersion  string
	Temperature float64
}

// Providers understood by NewLLMFromSettings.
const (
	ProviderOpenAI   = "openai"
	ProviderDeepSeek = "deepseek"
	ProviderAzure    = "azure"
	ProviderMock     = "mock"
)

// DefaultModel matches the model the advisor was tuned against.
const DefaultModel = "gpt-4o-mini-2024-07-18"
