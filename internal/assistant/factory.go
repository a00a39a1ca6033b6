package assistant

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/ignite/visitor-insights/internal/config"
	"github.com/ignite/visitor-insights/internal/pkg/logger"
	"github.com/ignite/visitor-insights/internal/storage"
)

const offlineReply = "No language model is configured, so only the data context is available. " +
	"Set OPENAI_API_KEY or ANTHROPIC_API_KEY, or select the bedrock provider, to get written insights."

// NewProvider builds the provider named by cfg.Provider. A hosted provider
// without credentials degrades to an offline MockProvider.
func NewProvider(ctx context.Context, cfg config.AssistantConfig) (Provider, error) {
	switch cfg.Provider {
	case "openai":
		if cfg.OpenAI.APIKey == "" {
			return offline("openai"), nil
		}
		return NewOpenAIProvider(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.Model)
	case "anthropic":
		if cfg.Anthropic.APIKey == "" {
			return offline("anthropic"), nil
		}
		model := cfg.Model
		if model == "gpt-4o-mini" {
			model = ""
		}
		return NewAnthropicProvider(cfg.Anthropic.APIKey, model)
	case "bedrock":
		awsCfg, err := storage.LoadAWSConfig(ctx, cfg.Bedrock.Region, "", "", "")
		if err != nil {
			return nil, err
		}
		return NewBedrockProvider(bedrockruntime.NewFromConfig(awsCfg), cfg.Bedrock.ModelID), nil
	case "mock":
		return offline("mock"), nil
	default:
		return nil, fmt.Errorf("assistant: unknown provider %q", cfg.Provider)
	}
}

func offline(provider string) *MockProvider {
	if provider != "mock" {
		logger.Warn("assistant: no API key, answering offline", "provider", provider)
	}
	m := NewMockProvider()
	m.Fallback = offlineReply
	return m
}
