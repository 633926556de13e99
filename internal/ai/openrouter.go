package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const defaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"

type openrouterConfig struct {
	APIKey      string `json:"api_key"`
	BaseURL     string `json:"base_url"`
	HTTPReferer string `json:"http_referer"`
	XTitle      string `json:"x_title"`
}

// openrouterGenerator speaks the openai-compatible streaming protocol with
// the extra attribution headers openrouter expects.
type openrouterGenerator struct {
	apiKey      string
	baseURL     string
	model       string
	httpReferer string
	xTitle      string
}

func (p *openrouterGenerator) Name() string {
	return "openrouter"
}

func (p *openrouterGenerator) GenerateStream(ctx context.Context, genReq GenerateRequest, consumer func(Delta) error) error {
	if p.apiKey == "" {
		return ErrUnavailable
	}
	messages := make([]openAIChatMsg, 0, 2)
	if genReq.System != "" {
		messages = append(messages, openAIChatMsg{Role: "system", Content: genReq.System})
	}
	messages = append(messages, openAIChatMsg{Role: "user", Content: genReq.Prompt})
	data, err := json.Marshal(openAIChatRequest{
		Model:     p.model,
		Messages:  messages,
		MaxTokens: genReq.MaxTokens,
		Stream:    true,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")
	if p.httpReferer != "" {
		req.Header.Set("HTTP-Referer", p.httpReferer)
	}
	if p.xTitle != "" {
		req.Header.Set("X-Title", p.xTitle)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("openrouter request failed: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	return consumeSSEStream(ctx, resp.Body, consumer)
}

func init() {
	RegisterGenerator("openrouter", func(model string, args interface{}) (Generator, error) {
		cfg := &openrouterConfig{}
		if err := decodeConfig(args, cfg); err != nil {
			return nil, err
		}
		if model == "" {
			return nil, fmt.Errorf("openrouter generator model is required")
		}
		baseURL := strings.TrimSpace(cfg.BaseURL)
		if baseURL == "" {
			baseURL = defaultOpenRouterBaseURL
		}
		return &openrouterGenerator{
			apiKey:      strings.TrimSpace(cfg.APIKey),
			baseURL:     strings.TrimRight(baseURL, "/"),
			model:       model,
			httpReferer: strings.TrimSpace(cfg.HTTPReferer),
			xTitle:      strings.TrimSpace(cfg.XTitle),
		}, nil
	})
}
