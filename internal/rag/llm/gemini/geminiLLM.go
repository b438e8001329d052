package gemini

import (
	"context"
	"errors"
	"fmt"

	"github.com/akolanti/CyberScholar/internal/config"
	"github.com/akolanti/CyberScholar/internal/customHttpClient"
	"github.com/akolanti/CyberScholar/internal/rag/llm"
	"github.com/akolanti/CyberScholar/pkg/logger_i"
	"google.golang.org/genai"
)

type llmClient struct {
	client    *genai.Client
	modelName string
	logger    *logger_i.Logger
}

var errEmptyResponse = errors.New("gemini returned no text")

// GetGeminiClient returns nil when the client cannot be built
func GetGeminiClient(ctx context.Context, apiKey string, modelName string) llm.Provider {
	logger := logger_i.NewLogger("llm_gemini")
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: customHttpClient.GetClient(),
	})
	if err != nil {
		logger.Error("Error creating Gemini client", "error", err)
		return nil
	}
	logger.Info("Gemini client created", "model", modelName)
	return &llmClient{client: c, modelName: modelName, logger: logger}
}

func (c *llmClient) Generate(ctx context.Context, userQuery string, matches []string, messageHistory []string) (string, error) {
	log := c.logger.ForRequest(ctx)
	contentConfig := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(config.ModelContext, genai.RoleUser),
		Temperature:       genai.Ptr(config.ModelTemperature),
	}

	result, err := c.client.Models.GenerateContent(
		ctx,
		c.modelName,
		genai.Text(llm.BuildPrompt(userQuery, matches, messageHistory)),
		contentConfig,
	)
	if err != nil {
		log.Error("Gemini generation failed", "error", err)
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	text := result.Text()
	if text == "" {
		return "", errEmptyResponse
	}
	return text, nil
}
