package ai

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

type geminiConfig struct {
	APIKey string `json:"api_key"`
}

type geminiGenerator struct {
	apiKey string
	model  string
}

func (p *geminiGenerator) Name() string {
	return "gemini"
}

func (p *geminiGenerator) GenerateStream(ctx context.Context, req GenerateRequest, consumer func(Delta) error) error {
	if p.apiKey == "" {
		return ErrUnavailable
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  p.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return err
	}
	config := &genai.GenerateContentConfig{}
	if req.System != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: req.System}}}
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}
	for resp, err := range client.Models.GenerateContentStream(
		ctx,
		p.model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: req.Prompt}}}},
		config,
	) {
		if err != nil {
			return err
		}
		if text := resp.Text(); text != "" {
			if err := consumer(Delta{Text: text}); err != nil {
				return err
			}
		}
	}
	return consumer(Delta{Done: true})
}

type geminiEmbedder struct {
	apiKey string
	model  string
}

func (p *geminiEmbedder) Name() string {
	return "gemini"
}

func (p *geminiEmbedder) ModelName() string {
	return p.model
}

func (p *geminiEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	if p.apiKey == "" {
		return nil, ErrUnavailable
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  p.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	var config *genai.EmbedContentConfig
	if taskType != "" {
		config = &genai.EmbedContentConfig{
			TaskType: taskType,
		}
	}
	resp, err := client.Models.EmbedContent(
		ctx,
		p.model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: text}}}},
		config,
	)
	if err != nil {
		return nil, err
	}
	if len(resp.Embeddings) == 0 {
		return nil, fmt.Errorf("no embedding values returned")
	}
	return resp.Embeddings[0].Values, nil
}

func init() {
	RegisterGenerator("gemini", func(model string, args interface{}) (Generator, error) {
		cfg := &geminiConfig{}
		if err := decodeConfig(args, cfg); err != nil {
			return nil, err
		}
		if model == "" {
			return nil, fmt.Errorf("gemini generator model is required")
		}
		return &geminiGenerator{apiKey: strings.TrimSpace(cfg.APIKey), model: model}, nil
	})
	RegisterEmbedder("gemini", func(model string, args interface{}) (Embedder, error) {
		cfg := &geminiConfig{}
		if err := decodeConfig(args, cfg); err != nil {
			return nil, err
		}
		if model == "" {
			return nil, fmt.Errorf("gemini embedder model is required")
		}
		return &geminiEmbedder{apiKey: strings.TrimSpace(cfg.APIKey), model: model}, nil
	})
}
