package advisor

import "fmt"

// NewLLMFromSettings builds the backend named by settings.Provider.
func NewLLMFromSettings(settings *LLMSettings) (LLMClient, error) {
	if settings == nil || settings.Provider == "" {
		return nil, fmt.Errorf("llm config missing; please set llm.provider/model/api_key in config")
	}
	switch settings.Provider {
	case ProviderOpenAI:
		return NewOpenAILLMFromConfig(settings)
	case ProviderDeepSeek:
		// DeepSeek exposes an OpenAI-compatible API; base_url is mandatory.
		if settings.BaseURL == "" {
			return nil, fmt.Errorf("llm provider deepseek requires base_url (OpenAI-compatible endpoint)")
		}
		return NewOpenAILLMFromConfig(settings)
	case ProviderAzure:
		return NewAzureLLMFromConfig(settings)
	case ProviderMock:
		return MockLLM{}, nil
	default:
		return nil, fmt.Errorf("llm provider %s not supported", settings.Provider)
	}
}
