package ai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

type openAIConfig struct {
	APIKey  string `json:"api_key"`
	BaseURL string `json:"base_url"`
	Voice   string `json:"voice"`
}

func openAIBase(cfg *openAIConfig) string {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	return strings.TrimRight(baseURL, "/")
}

func openAIFail(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)
	return fmt.Errorf("openai request failed: %s: %s", resp.Status, strings.TrimSpace(string(body)))
}

// ---- transcription (whisper) ----

type openAITranscriber struct {
	apiKey  string
	baseURL string
	model   string
}

type openAITranscribeResponse struct {
	Text string `json:"text"`
}

func (p *openAITranscriber) Name() string {
	return "openai"
}

func (p *openAITranscriber) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	if p.apiKey == "" {
		return "", ErrUnavailable
	}
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", fileNameForMime(mimeType))
	if err != nil {
		return "", err
	}
	if _, err := part.Write(audio); err != nil {
		return "", err
	}
	if err := writer.WriteField("model", p.model); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/audio/transcriptions", &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return "", openAIFail(resp)
	}
	var out openAITranscribeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	return strings.TrimSpace(out.Text), nil
}

func fileNameForMime(mimeType string) string {
	switch mimeType {
	case "audio/wav", "audio/x-wav":
		return "audio.wav"
	case "audio/mpeg", "audio/mp3":
		return "audio.mp3"
	case "audio/ogg":
		return "audio.ogg"
	default:
		return "audio.webm"
	}
}

// ---- embeddings ----

type openAIEmbedder struct {
	apiKey  string
	baseURL string
	model   string
}

type openAIEmbedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type openAIEmbedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

func (p *openAIEmbedder) Name() string {
	return "openai"
}

func (p *openAIEmbedder) ModelName() string {
	return p.model
}

func (p *openAIEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	if p.apiKey == "" {
		return nil, ErrUnavailable
	}
	_ = taskType // openai embeddings are task-agnostic
	data, err := json.Marshal(openAIEmbedRequest{Model: p.model, Input: text})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/embeddings", bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, openAIFail(resp)
	}
	var out openAIEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	if len(out.Data) == 0 {
		return nil, fmt.Errorf("openai response has no embeddings")
	}
	return out.Data[0].Embedding, nil
}

// ---- streaming chat ----

type openAIGenerator struct {
	apiKey  string
	baseURL string
	model   string
}

type openAIChatMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIChatRequest struct {
	Model     string          `json:"model"`
	Messages  []openAIChatMsg `json:"messages"`
	MaxTokens int             `json:"max_tokens,omitempty"`
	Stream    bool            `json:"stream"`
}

type openAIChatStreamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
}

func (p *openAIGenerator) Name() string {
	return "openai"
}

func (p *openAIGenerator) GenerateStream(ctx context.Context, genReq GenerateRequest, consumer func(Delta) error) error {
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
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return openAIFail(resp)
	}
	return consumeSSEStream(ctx, resp.Body, consumer)
}

// consumeSSEStream parses an openai-compatible event stream: one
// `data: {json}` line per chunk, terminated by `data: [DONE]`.
func consumeSSEStream(ctx context.Context, body io.Reader, consumer func(Delta) error) error {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "" {
			continue
		}
		if payload == "[DONE]" {
			return consumer(Delta{Done: true})
		}
		var chunk openAIChatStreamChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			return err
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		if text := chunk.Choices[0].Delta.Content; text != "" {
			if err := consumer(Delta{Text: text}); err != nil {
				return err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return consumer(Delta{Done: true})
}

// ---- speech synthesis ----

type openAISynthesizer struct {
	apiKey  string
	baseURL string
	model   string
	voice   string
}

type openAISpeechRequest struct {
	Model string `json:"model"`
	Voice string `json:"voice"`
	Input string `json:"input"`
}

func (p *openAISynthesizer) Name() string {
	return "openai"
}

func (p *openAISynthesizer) Synthesize(ctx context.Context, text string, voice string) ([]byte, error) {
	if p.apiKey == "" {
		return nil, ErrUnavailable
	}
	if voice == "" {
		voice = p.voice
	}
	data, err := json.Marshal(openAISpeechRequest{Model: p.model, Voice: voice, Input: text})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/audio/speech", bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, openAIFail(resp)
	}
	return io.ReadAll(resp.Body)
}

func init() {
	RegisterTranscriber("openai", func(model string, args interface{}) (Transcriber, error) {
		cfg := &openAIConfig{}
		if err := decodeConfig(args, cfg); err != nil {
			return nil, err
		}
		if model == "" {
			model = "whisper-1"
		}
		return &openAITranscriber{apiKey: strings.TrimSpace(cfg.APIKey), baseURL: openAIBase(cfg), model: model}, nil
	})
	RegisterEmbedder("openai", func(model string, args interface{}) (Embedder, error) {
		cfg := &openAIConfig{}
		if err := decodeConfig(args, cfg); err != nil {
			return nil, err
		}
		if model == "" {
			model = "text-embedding-3-small"
		}
		return &openAIEmbedder{apiKey: strings.TrimSpace(cfg.APIKey), baseURL: openAIBase(cfg), model: model}, nil
	})
	RegisterGenerator("openai", func(model string, args interface{}) (Generator, error) {
		cfg := &openAIConfig{}
		if err := decodeConfig(args, cfg); err != nil {
			return nil, err
		}
		if model == "" {
			return nil, fmt.Errorf("openai generator model is required")
		}
		return &openAIGenerator{apiKey: strings.TrimSpace(cfg.APIKey), baseURL: openAIBase(cfg), model: model}, nil
	})
	RegisterSynthesizer("openai", func(model string, args interface{}) (Synthesizer, error) {
		cfg := &openAIConfig{}
		if err := decodeConfig(args, cfg); err != nil {
			return nil, err
		}
		if model == "" {
			model = "tts-1"
		}
		voice := strings.TrimSpace(cfg.Voice)
		if voice == "" {
			voice = "alloy"
		}
		return &openAISynthesizer{apiKey: strings.TrimSpace(cfg.APIKey), baseURL: openAIBase(cfg), model: model, voice: voice}, nil
	})
}
