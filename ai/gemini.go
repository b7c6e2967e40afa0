package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"greenhouse-assistant/backend/pkg/config"
	apperrors "greenhouse-assistant/backend/pkg/errors"
	"greenhouse-assistant/backend/pkg/logger"
	"greenhouse-assistant/backend/pkg/resilience"

	"google.golang.org/genai"
)

// GenerationSettings are the sampling parameters sent with every request
type GenerationSettings struct {
	Model           string
	Temperature     float32
	TopP            float32
	TopK            float32
	MaxOutputTokens int32
}

// DefaultGenerationSettings returns the settings the assistant is tuned for
func DefaultGenerationSettings() GenerationSettings {
	return GenerationSettings{
		Model:           "gemini-2.5-flash",
		Temperature:     0.7,
		TopP:            0.95,
		TopK:            40,
		MaxOutputTokens: 2048,
	}
}

// safetySettings blocks medium-and-above content in every harm category
func safetySettings() []*genai.SafetySetting {
	categories := []genai.HarmCategory{
		genai.HarmCategoryHarassment,
		genai.HarmCategoryHateSpeech,
		genai.HarmCategorySexuallyExplicit,
		genai.HarmCategoryDangerousContent,
	}
	settings := make([]*genai.SafetySetting, 0, len(categories))
	for _, category := range categories {
		settings = append(settings, &genai.SafetySetting{
			Category:  category,
			Threshold: genai.HarmBlockThresholdBlockMediumAndAbove,
		})
	}
	return settings
}

// GeminiGenerator is the Generator backed by the Gemini API
type GeminiGenerator struct {
	models *genai.Models
	model  string
	config *genai.GenerateContentConfig
}

// NewGeminiGenerator creates a Gemini API client for apiKey
func NewGeminiGenerator(ctx context.Context, apiKey string, settings GenerationSettings) (*GeminiGenerator, error) {
	if apiKey == "" {
		return nil, ErrMissingCredential
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiGenerator{
		models: client.Models,
		model:  settings.Model,
		config: &genai.GenerateContentConfig{
			Temperature:     genai.Ptr(settings.Temperature),
			TopP:            genai.Ptr(settings.TopP),
			TopK:            genai.Ptr(settings.TopK),
			MaxOutputTokens: settings.MaxOutputTokens,
			SafetySettings:  safetySettings(),
		},
	}, nil
}

// Generate implements Generator
func (g *GeminiGenerator) Generate(ctx context.Context, contents []Turn) (string, error) {
	resp, err := g.models.GenerateContent(ctx, g.model, toGenaiContents(contents), g.config)
	if err != nil {
		return "", err
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("prompt blocked: %s", resp.PromptFeedback.BlockReason)
	}
	text := resp.Text()
	if text == "" {
		if len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason != "" {
			return "", fmt.Errorf("empty response from model (finish reason %s)", resp.Candidates[0].FinishReason)
		}
		return "", errors.New("empty response from model")
	}
	return text, nil
}

func toGenaiContents(turns []Turn) []*genai.Content {
	contents := make([]*genai.Content, 0, len(turns))
	for _, turn := range turns {
		role := genai.Role(genai.RoleUser)
		if turn.Role == RoleModel {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(strings.Join(turn.Parts, "\n"), role))
	}
	return contents
}

// NewGeminiClient builds the assistant client from configuration. An empty
// apiKey is a configuration error.
func NewGeminiClient(ctx context.Context, cfg *config.Config, apiKey string, log *logger.Logger) (*Client, error) {
	if apiKey == "" {
		return nil, apperrors.NewConfigurationError("GEMINI_API_KEY is not configured", ErrMissingCredential)
	}

	settings := GenerationSettings{
		Model:           cfg.AI.Model,
		Temperature:     float32(cfg.AI.Temperature),
		TopP:            float32(cfg.AI.TopP),
		TopK:            float32(cfg.AI.TopK),
		MaxOutputTokens: int32(cfg.AI.MaxOutputTokens),
	}
	gen, err := NewGeminiGenerator(ctx, apiKey, settings)
	if err != nil {
		return nil, apperrors.NewConfigurationError("Failed to initialize AI client", err)
	}

	prompt, err := LoadSystemPrompt(cfg.AI.PromptPath, log)
	if err != nil {
		return nil, apperrors.NewConfigurationError("Failed to load system prompt", err)
	}

	breaker := resilience.NewCircuitBreaker(resilience.Config{
		Name:             "gemini",
		FailureThreshold: uint(cfg.AI.BreakerFailures),
		SuccessThreshold: 1,
		RetryTimeout:     cfg.AI.BreakerRetry,
	}, log)

	client, err := NewClient(gen, Options{
		SystemPrompt: prompt,
		Timeout:      cfg.AI.RequestTimeout,
		Breaker:      breaker,
		Logger:       log,
	})
	if err != nil {
		return nil, err
	}
	if log != nil {
		log.Info("AI client initialized", "model", settings.Model)
	}
	return client, nil
}
