package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var ErrUnavailable = errors.New("ai provider unavailable")

// Transcriber converts a recorded speech clip to text.
type Transcriber interface {
	Name() string
	Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error)
}

// Embedder converts text into a dense vector.
type Embedder interface {
	Name() string
	ModelName() string
	Embed(ctx context.Context, text string, taskType string) ([]float32, error)
}

// Delta is one streamed fragment of model output.
type Delta struct {
	Text string
	Done bool
}

type GenerateRequest struct {
	System    string
	Prompt    string
	MaxTokens int
}

// Generator streams model output through consumer as it is produced.
// Returning an error from consumer aborts the stream.
type Generator interface {
	Name() string
	GenerateStream(ctx context.Context, req GenerateRequest, consumer func(Delta) error) error
}

// Synthesizer converts one sentence of text into encoded audio bytes.
// An empty voice selects the provider default.
type Synthesizer interface {
	Name() string
	Synthesize(ctx context.Context, text string, voice string) ([]byte, error)
}

type (
	TranscriberFactory func(model string, args interface{}) (Transcriber, error)
	EmbedderFactory    func(model string, args interface{}) (Embedder, error)
	GeneratorFactory   func(model string, args interface{}) (Generator, error)
	SynthesizerFactory func(model string, args interface{}) (Synthesizer, error)
)

var (
	transcriberRegistry = map[string]TranscriberFactory{}
	embedderRegistry    = map[string]EmbedderFactory{}
	generatorRegistry   = map[string]GeneratorFactory{}
	synthesizerRegistry = map[string]SynthesizerFactory{}
)

func registryKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func RegisterTranscriber(name string, factory TranscriberFactory) {
	if key := registryKey(name); key != "" && factory != nil {
		transcriberRegistry[key] = factory
	}
}

func RegisterEmbedder(name string, factory EmbedderFactory) {
	if key := registryKey(name); key != "" && factory != nil {
		embedderRegistry[key] = factory
	}
}

func RegisterGenerator(name string, factory GeneratorFactory) {
	if key := registryKey(name); key != "" && factory != nil {
		generatorRegistry[key] = factory
	}
}

func RegisterSynthesizer(name string, factory SynthesizerFactory) {
	if key := registryKey(name); key != "" && factory != nil {
		synthesizerRegistry[key] = factory
	}
}

func NewTranscriber(name, model string, args interface{}) (Transcriber, error) {
	factory := transcriberRegistry[registryKey(name)]
	if factory == nil {
		return nil, fmt.Errorf("unsupported transcriber provider: %s", name)
	}
	return factory(model, args)
}

func NewEmbedder(name, model string, args interface{}) (Embedder, error) {
	factory := embedderRegistry[registryKey(name)]
	if factory == nil {
		return nil, fmt.Errorf("unsupported embedder provider: %s", name)
	}
	return factory(model, args)
}

func NewGenerator(name, model string, args interface{}) (Generator, error) {
	factory := generatorRegistry[registryKey(name)]
	if factory == nil {
		return nil, fmt.Errorf("unsupported generator provider: %s", name)
	}
	return factory(model, args)
}

func NewSynthesizer(name, model string, args interface{}) (Synthesizer, error) {
	factory := synthesizerRegistry[registryKey(name)]
	if factory == nil {
		return nil, fmt.Errorf("unsupported synthesizer provider: %s", name)
	}
	return factory(model, args)
}

func decodeConfig(args interface{}, dst interface{}) error {
	if args == nil {
		args = map[string]interface{}{}
	}
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode provider config: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode provider config: %w", err)
	}
	return nil
}
