package nodes

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	einomodel "github.com/cloudwego/eino/components/model"
	"google.golang.org/genai"

	"github.com/catalog-agent/server/internal/agent/model"
	logx "github.com/catalog-agent/server/pkg/logger"
)

// ChatModelConfig holds the configuration for chat model creation
type ChatModelConfig struct {
	APIKey           string
	BaseURL          string
	ClassifierConfig *model.ClassifierModelConfig
	AnswerConfig     *model.AnswerModelConfig
}

// ChatModels holds the classifier and answer chat models plus the shared
// genai client, which the embedding path reuses.
type ChatModels struct {
	Classifier          einomodel.BaseChatModel
	Answer              einomodel.BaseChatModel
	ClassifierModelName string
	AnswerModelName     string
	Client              *genai.Client
}

// NewChatModels creates both classifier and answer chat models with the given configuration
func NewChatModels(ctx context.Context, config ChatModelConfig) (*ChatModels, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.BaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = config.BaseURL
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Gemini client")
		return nil, fmt.Errorf("error creating Gemini client: %w", err)
	}

	chatModelClassifier, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       config.ClassifierConfig.Model,
		Temperature: &config.ClassifierConfig.Temperature,
		MaxTokens:   &config.ClassifierConfig.MaxTokens,
		ThinkingConfig: &genai.ThinkingConfig{
			IncludeThoughts: false,
			ThinkingBudget:  genai.Ptr(int32(0)),
		},
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating classifier model")
		return nil, fmt.Errorf("error creating classifier model: %w", err)
	}

	chatModelAnswer, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       config.AnswerConfig.Model,
		Temperature: &config.AnswerConfig.Temperature,
		MaxTokens:   &config.AnswerConfig.MaxTokens,
		ThinkingConfig: &genai.ThinkingConfig{
			IncludeThoughts: true,
			ThinkingBudget:  genai.Ptr(int32(2000)),
		},
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating answer model")
		return nil, fmt.Errorf("error creating answer model: %w", err)
	}

	return &ChatModels{
		Classifier:          chatModelClassifier,
		Answer:              chatModelAnswer,
		ClassifierModelName: config.ClassifierConfig.Model,
		AnswerModelName:     config.AnswerConfig.Model,
		Client:              client,
	}, nil
}
