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

const defaultElevenLabsBaseURL = "https://api.elevenlabs.io/v1"

type elevenLabsConfig struct {
	APIKey  string `json:"api_key"`
	BaseURL string `json:"base_url"`
	VoiceID string `json:"voice_id"`
}

type elevenLabsSynthesizer struct {
	apiKey  string
	baseURL string
	model   string
	voiceID string
}

type elevenLabsVoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

type elevenLabsSpeechRequest struct {
	Text          string                  `json:"text"`
	ModelID       string                  `json:"model_id"`
	VoiceSettings elevenLabsVoiceSettings `json:"voice_settings"`
}

func (p *elevenLabsSynthesizer) Name() string {
	return "elevenlabs"
}

func (p *elevenLabsSynthesizer) Synthesize(ctx context.Context, text string, voice string) ([]byte, error) {
	if p.apiKey == "" {
		return nil, ErrUnavailable
	}
	if voice == "" {
		voice = p.voiceID
	}
	if voice == "" {
		return nil, fmt.Errorf("elevenlabs voice id is required")
	}
	data, err := json.Marshal(elevenLabsSpeechRequest{
		Text:    text,
		ModelID: p.model,
		VoiceSettings: elevenLabsVoiceSettings{
			Stability:       0.5,
			SimilarityBoost: 0.75,
		},
	})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/text-to-speech/"+voice, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("xi-api-key", p.apiKey)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("elevenlabs request failed: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	return io.ReadAll(resp.Body)
}

func init() {
	RegisterSynthesizer("elevenlabs", func(model string, args interface{}) (Synthesizer, error) {
		cfg := &elevenLabsConfig{}
		if err := decodeConfig(args, cfg); err != nil {
			return nil, err
		}
		if model == "" {
			model = "eleven_turbo_v2"
		}
		baseURL := strings.TrimSpace(cfg.BaseURL)
		if baseURL == "" {
			baseURL = defaultElevenLabsBaseURL
		}
		return &elevenLabsSynthesizer{
			apiKey:  strings.TrimSpace(cfg.APIKey),
			baseURL: strings.TrimRight(baseURL, "/"),
			model:   model,
			voiceID: strings.TrimSpace(cfg.VoiceID),
		}, nil
	})
}
