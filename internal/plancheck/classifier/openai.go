package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/planhaus/planhaus/internal/config"
	"github.com/planhaus/planhaus/internal/plancheck/domain"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const systemPrompt = `You are an expert architect assistant.
Your job is to validate if an uploaded image is a usable floor plan.
Check for AT LEAST ONE:
1. Room labels (Living, Kitchen, Zimmer, Bad).
2. Dimensions/Areas (numbers with m² or cm).
3. Scale bar or graphical lines representing walls.

If it's just a photo of a building exterior or completely blurry/blank, valid=false.

Return JSON: { "valid": boolean, "reason": "short string" }`

// Vision asks a vision model whether an image is a usable floor plan.
type Vision struct {
	client *openai.Client
	log    *zap.Logger
}

func NewVision(cfg config.Config, log *zap.Logger) domain.Classifier {
	var client *openai.Client
	if cfg.OpenAIAPIKey != "" {
		client = openai.NewClient(cfg.OpenAIAPIKey)
	}
	return &Vision{client: client, log: log.Named("plancheck.vision")}
}

func (v *Vision) Classify(ctx context.Context, imageURL string) (domain.ValidateResponse, error) {
	if v.client == nil {
		return domain.ValidateResponse{}, errors.New("vision classifier not configured")
	}

	resp, err := v.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     openai.GPT4o,
		MaxTokens: 300,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt,
			},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeText,
						Text: "Analyze this floor plan.",
					},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    imageURL,
							Detail: openai.ImageURLDetailHigh,
						},
					},
				},
			},
		},
	})
	if err != nil {
		return domain.ValidateResponse{}, err
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return domain.ValidateResponse{}, errors.New("empty classifier response")
	}

	var verdict domain.ValidateResponse
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &verdict); err != nil {
		return domain.ValidateResponse{}, fmt.Errorf("parse classifier verdict: %w", err)
	}
	v.log.Info("classifier verdict",
		zap.Bool("valid", verdict.Valid),
		zap.String("reason", verdict.Reason))
	return verdict, nil
}
