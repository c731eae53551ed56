package advisor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	goopenai "github.com/sashabaranov/go-openai"
)

// AzureLLM implements LLMClient against an Azure OpenAI deployment. The
// deployment name is taken from Model.
type AzureLLM struct {
	Model       string
	Temperature float64
	client      *goopenai.Client
}

func NewAzureLLMFromConfig(cfg *LLMSettings) (*AzureLLM, error) {
	if cfg == nil {
		return nil, errors.New("llm config is nil")
	}
	if cfg.APIKey == "" {
		return nil, errors.New("azure api key missing; provide llm.api_key")
	}
	if cfg.BaseURL == "" {
		return nil, errors.New("llm provider azure requires base_url (resource endpoint)")
	}
	if cfg.Model == "" {
		return nil, errors.New("llm provider azure requires model (deployment name)")
	}
	clientCfg := goopenai.DefaultAzureConfig(cfg.APIKey, cfg.BaseURL)
	if cfg.APIVersion != "" {
		clientCfg.APIVersion = cfg.APIVersion
	}
	return &AzureLLM{
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		client:      goopenai.NewClientWithConfig(clientCfg),
	}, nil
}

func (a *AzureLLM) Complete(ctx context.Context, prompt Prompt) (string, error) {
	msgs := make([]goopenai.ChatCompletionMessage, 0, len(prompt.Messages))
	for _, m := range prompt.Messages {
		role := goopenai.ChatMessageRoleUser
		switch m.Role {
		case RoleSystem:
			role = goopenai.ChatMessageRoleSystem
		case RoleAssistant:
			role = goopenai.ChatMessageRoleAssistant
		}
		msgs = append(msgs, goopenai.ChatCompletionMessage{Role: role, Content: m.Content})
	}

	req := goopenai.ChatCompletionRequest{
		Model:       a.Model,
		Messages:    msgs,
		Temperature: float32(a.Temperature),
	}
	if prompt.Schema != nil {
		raw, err := json.Marshal(prompt.Schema.Schema)
		if err != nil {
			return "", fmt.Errorf("marshal response schema: %w", err)
		}
		req.ResponseFormat = &goopenai.ChatCompletionResponseFormat{
			Type: goopenai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &goopenai.ChatCompletionResponseFormatJSONSchema{
				Name:   prompt.Schema.Name,
				Schema: json.RawMessage(raw),
				Strict: true,
			},
		}
	}

	resp, err := a.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("azure chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("azure: empty choices")
	}
	return resp.Choices[0].Message.Content, nil
}
