package openaiLLM

import (
	"context"
	"errors"
	"fmt"

	"github.com/akolanti/CyberScholar/internal/config"
	"github.com/akolanti/CyberScholar/internal/customHttpClient"
	"github.com/akolanti/CyberScholar/internal/rag/llm"
	"github.com/akolanti/CyberScholar/pkg/logger_i"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

type llmClient struct {
	client    openai.Client
	modelName string
	logger    *logger_i.Logger
}

var errNoChoices = errors.New("openai returned no choices")

// GetOpenAIClient returns nil without an api key. Extra options (base url) are for tests and proxies.
func GetOpenAIClient(apiKey string, modelName string, opts ...option.RequestOption) llm.Provider {
	logger := logger_i.NewLogger("llm_openai")
	if apiKey == "" {
		logger.Error("OpenAI api key missing")
		return nil
	}
	base := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(customHttpClient.GetClient()),
	}
	logger.Info("OpenAI client created", "model", modelName)
	return &llmClient{
		client:    openai.NewClient(append(base, opts...)...),
		modelName: modelName,
		logger:    logger,
	}
}

func (c *llmClient) Generate(ctx context.Context, userQuery string, matches []string, messageHistory []string) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.modelName),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(config.ModelContext),
			openai.UserMessage(llm.BuildPrompt(userQuery, matches, messageHistory)),
		},
		Temperature: openai.Float(float64(config.ModelTemperature)),
	})
	if err != nil {
		c.logger.ForRequest(ctx).Error("OpenAI generation failed", "error", err)
		return "", fmt.Errorf("openai generate: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errNoChoices
	}
	return resp.Choices[0].Message.Content, nil
}
