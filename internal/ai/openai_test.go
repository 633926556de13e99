package ai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
)

func TestConsumeSSEStream(t *testing.T) {
	stream := strings.Join([]string{
		`data: {"choices":[{"delta":{"content":"Hello"}}]}`,
		``,
		`data: {"choices":[{"delta":{"content":" world."}}]}`,
		`: keepalive comment`,
		`data: {"choices":[{"delta":{},"finish_reason":"stop"}]}`,
		`data: [DONE]`,
	}, "\n")

	var texts []string
	doneSeen := false
	err := consumeSSEStream(context.Background(), strings.NewReader(stream), func(d Delta) error {
		if d.Done {
			doneSeen = true
			return nil
		}
		texts = append(texts, d.Text)
		return nil
	})
	if err != nil {
		t.Fatalf("consumeSSEStream() error = %v", err)
	}
	if !doneSeen {
		t.Error("expected a final Done delta")
	}
	if want := []string{"Hello", " world."}; !reflect.DeepEqual(texts, want) {
		t.Errorf("texts = %v, want %v", texts, want)
	}
}

func TestConsumeSSEStreamWithoutDoneMarker(t *testing.T) {
	stream := `data: {"choices":[{"delta":{"content":"partial"}}]}` + "\n"
	doneSeen := false
	err := consumeSSEStream(context.Background(), strings.NewReader(stream), func(d Delta) error {
		if d.Done {
			doneSeen = true
		}
		return nil
	})
	if err != nil {
		t.Fatalf("consumeSSEStream() error = %v", err)
	}
	if !doneSeen {
		t.Error("stream end must still produce a Done delta")
	}
}

func TestOpenAIGeneratorStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("authorization = %q", got)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte(
			"data: {\"choices\":[{\"delta\":{\"content\":\"The answer.\"}}]}\n\ndata: [DONE]\n",
		))
	}))
	defer server.Close()

	gen, err := NewGenerator("openai", "gpt-4o-mini", map[string]interface{}{
		"api_key":  "test-key",
		"base_url": server.URL,
	})
	if err != nil {
		t.Fatalf("NewGenerator() error = %v", err)
	}

	var full strings.Builder
	err = gen.GenerateStream(context.Background(), GenerateRequest{
		System:    "be brief",
		Prompt:    "question",
		MaxTokens: 100,
	}, func(d Delta) error {
		full.WriteString(d.Text)
		return nil
	})
	if err != nil {
		t.Fatalf("GenerateStream() error = %v", err)
	}
	if full.String() != "The answer." {
		t.Errorf("answer = %q", full.String())
	}
}

func TestOpenAIGeneratorWithoutKey(t *testing.T) {
	gen, err := NewGenerator("openai", "gpt-4o-mini", nil)
	if err != nil {
		t.Fatalf("NewGenerator() error = %v", err)
	}
	err = gen.GenerateStream(context.Background(), GenerateRequest{Prompt: "q"}, func(Delta) error { return nil })
	if err != ErrUnavailable {
		t.Errorf("err = %v, want ErrUnavailable", err)
	}
}

func TestFileNameForMime(t *testing.T) {
	tests := map[string]string{
		"audio/wav":   "audio.wav",
		"audio/mpeg":  "audio.mp3",
		"audio/ogg":   "audio.ogg",
		"audio/webm":  "audio.webm",
		"video/x-foo": "audio.webm",
	}
	for mime, want := range tests {
		if got := fileNameForMime(mime); got != want {
			t.Errorf("fileNameForMime(%q) = %q, want %q", mime, got, want)
		}
	}
}
