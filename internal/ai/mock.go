package ai

import (
	"context"
	"strings"
)

// Mock adapters used by tests and by local development without upstream
// credentials.

type MockTranscriber struct {
	Text string
	Err  error
}

func (m *MockTranscriber) Name() string {
	return "mock"
}

func (m *MockTranscriber) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	return m.Text, nil
}

type MockEmbedder struct {
	Vector []float32
	Err    error
}

func (m *MockEmbedder) Name() string {
	return "mock"
}

func (m *MockEmbedder) ModelName() string {
	return "mock-embedding"
}

func (m *MockEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Vector != nil {
		return m.Vector, nil
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

// MockGenerator replays Deltas (or a text split into fragments) through the
// consumer and then signals completion.
type MockGenerator struct {
	Deltas []string
	Err    error
}

func (m *MockGenerator) Name() string {
	return "mock"
}

func (m *MockGenerator) GenerateStream(ctx context.Context, req GenerateRequest, consumer func(Delta) error) error {
	if m.Err != nil {
		return m.Err
	}
	for _, text := range m.Deltas {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := consumer(Delta{Text: text}); err != nil {
			return err
		}
	}
	return consumer(Delta{Done: true})
}

type MockSynthesizer struct {
	Err     error
	FailFor map[string]error
}

func (m *MockSynthesizer) Name() string {
	return "mock"
}

func (m *MockSynthesizer) Synthesize(ctx context.Context, text string, voice string) ([]byte, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if m.FailFor != nil {
		for substr, err := range m.FailFor {
			if strings.Contains(text, substr) {
				return nil, err
			}
		}
	}
	return []byte("audio:" + text), nil
}

func init() {
	RegisterTranscriber("mock", func(model string, args interface{}) (Transcriber, error) {
		return &MockTranscriber{Text: "What happened in the last chapter?"}, nil
	})
	RegisterEmbedder("mock", func(model string, args interface{}) (Embedder, error) {
		return &MockEmbedder{}, nil
	})
	RegisterGenerator("mock", func(model string, args interface{}) (Generator, error) {
		return &MockGenerator{Deltas: []string{"The story has just begun. ", "Keep listening."}}, nil
	})
	RegisterSynthesizer("mock", func(model string, args interface{}) (Synthesizer, error) {
		return &MockSynthesizer{}, nil
	})
}
