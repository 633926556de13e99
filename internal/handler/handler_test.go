package handler

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/jan-barg/lectorius/internal/ai"
	"github.com/jan-barg/lectorius/internal/config"
	"github.com/jan-barg/lectorius/internal/filestore"
	"github.com/jan-barg/lectorius/internal/model"
	"github.com/jan-barg/lectorius/internal/service"
)

func writeFixtureBook(t *testing.T, root string) {
	t.Helper()
	bookDir := filepath.Join(root, "b1")
	require.NoError(t, os.MkdirAll(bookDir, 0o755))

	writeJSON := func(name string, v interface{}) {
		data, err := json.Marshal(v)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(bookDir, name), data, 0o644))
	}
	writeJSONL := func(name string, items []interface{}) {
		var buf bytes.Buffer
		for _, item := range items {
			data, err := json.Marshal(item)
			require.NoError(t, err)
			buf.Write(data)
			buf.WriteByte('\n')
		}
		require.NoError(t, os.WriteFile(filepath.Join(bookDir, name), buf.Bytes(), 0o644))
	}

	writeJSON("book.json", model.BookMeta{
		BookID: "b1", Title: "Voyage", Author: "N. Narrator",
		BookType: "fiction", Status: "ready", TTSProvider: "mock", VoiceID: "narrator",
	})
	writeJSON("manifest.json", model.Manifest{
		BookID: "b1", Version: 1,
		Stats: model.ManifestStats{Chapters: 1, Chunks: 10, TotalAudioDurationMs: 200000},
	})
	writeJSONL("chapters.jsonl", []interface{}{
		model.Chapter{BookID: "b1", ChapterID: "ch1", Index: 1, Title: "Departure"},
	})
	var chunks, playback []interface{}
	for i := 1; i <= 10; i++ {
		chunks = append(chunks, model.Chunk{
			BookID: "b1", ChapterID: "ch1",
			ChunkID: fmt.Sprintf("c%d", i), ChunkIndex: i,
			Text: fmt.Sprintf("Chunk %d of the voyage.", i),
		})
		playback = append(playback, model.PlaybackMapEntry{
			ChunkID: fmt.Sprintf("c%d", i), ChapterID: "ch1",
			ChunkIndex: i, AudioPath: fmt.Sprintf("audio/%d.mp3", i), DurationMs: 20000,
		})
	}
	writeJSONL("chunks.jsonl", chunks)
	writeJSONL("playback_map.jsonl", playback)
}

type stubQuestionLister struct {
	entries []model.QuestionLog
}

func (s *stubQuestionLister) ListByBook(ctx context.Context, bookID string, limit int) ([]model.QuestionLog, error) {
	if limit < len(s.entries) {
		return s.entries[:limit], nil
	}
	return s.entries, nil
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	root := t.TempDir()
	writeFixtureBook(t, root)
	playlistDir := filepath.Join(root, "music", "general", "night-walk")
	require.NoError(t, os.MkdirAll(playlistDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(playlistDir, "01-low_tide.mp3"), []byte("mp3"), 0o644))
	store, err := filestore.New(config.FileStoreConfig{
		Type: "local",
		Data: map[string]interface{}{"dir": root, "public_url": "http://assets"},
	})
	require.NoError(t, err)
	books := service.NewBookService(store, store, 8, time.Minute)

	opts := service.DefaultQAOptions()
	opts.CallTimeout = 5 * time.Second
	qa := service.NewQAService(
		books,
		&ai.MockTranscriber{Text: "Who is the captain of the ship?"},
		&ai.MockGenerator{Deltas: []string{"The captain is Ana Vane. ", "She took command in port."}},
		map[string]ai.Synthesizer{"mock": &ai.MockSynthesizer{}},
		"mock",
		nil,
		nil,
		opts,
	)

	lister := &stubQuestionLister{entries: []model.QuestionLog{
		{ID: 1, BookID: "b1", Question: "Who is the captain?", IP: "10.0.0.1"},
	}}

	engine := gin.New()
	RegisterRoutes(engine.Group("/api/v1"), RouterDeps{
		Ask:   NewAskHandler(qa, books),
		Books: NewBookHandler(books, lister),
		Music: NewMusicHandler(service.NewMusicService(store)),
	})
	return engine
}

func TestListAndGetBooks(t *testing.T) {
	router := newTestRouter(t)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/books", nil))
	require.Equal(t, http.StatusOK, resp.Code)

	var list struct {
		Code int `json:"code"`
		Data []struct {
			BookID string `json:"book_id"`
			Title  string `json:"title"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &list))
	require.Len(t, list.Data, 1)
	require.Equal(t, "b1", list.Data[0].BookID)
	require.Equal(t, "Voyage", list.Data[0].Title)

	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/books/b1", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	require.Contains(t, resp.Body.String(), "Voyage")

	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/books/missing", nil))
	require.Contains(t, resp.Body.String(), `"code":404`)
}

func TestListPlaylistsRoute(t *testing.T) {
	router := newTestRouter(t)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/music/playlists", nil))
	require.Equal(t, http.StatusOK, resp.Code)

	var out struct {
		Code int `json:"code"`
		Data struct {
			Playlists []model.Playlist `json:"playlists"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out))
	require.Len(t, out.Data.Playlists, 1)
	require.Equal(t, "night-walk", out.Data.Playlists[0].PlaylistID)
	require.Equal(t, "Night Walk", out.Data.Playlists[0].Name)
	require.Len(t, out.Data.Playlists[0].Songs, 1)
	require.Equal(t, "Low Tide", out.Data.Playlists[0].Songs[0].Title)
}

func TestBookQuestionsRoute(t *testing.T) {
	router := newTestRouter(t)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/books/b1/questions", nil))
	require.Equal(t, http.StatusOK, resp.Code)

	var out struct {
		Code int                 `json:"code"`
		Data []model.QuestionLog `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out))
	require.Len(t, out.Data, 1)
	require.Equal(t, "Who is the captain?", out.Data[0].Question)
}

func TestBookRefreshRoute(t *testing.T) {
	router := newTestRouter(t)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/books/b1/refresh", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	require.Contains(t, resp.Body.String(), "Voyage")

	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/books/missing/refresh", nil))
	require.Contains(t, resp.Body.String(), `"code":404`)
}

func decodeEvents(t *testing.T, body string) []model.AskEvent {
	t.Helper()
	var events []model.AskEvent
	scanner := bufio.NewScanner(strings.NewReader(body))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var ev model.AskEvent
		require.NoError(t, json.Unmarshal([]byte(line), &ev))
		events = append(events, ev)
	}
	require.NoError(t, scanner.Err())
	return events
}

func TestAskStreamsEvents(t *testing.T) {
	router := newTestRouter(t)

	body, err := json.Marshal(model.AskRequest{
		BookID:      "b1",
		ChunkIndex:  8,
		AudioBase64: base64.StdEncoding.EncodeToString([]byte("webm")),
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/ask", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-Name", "bob")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, "application/x-ndjson", resp.Header().Get("Content-Type"))

	events := decodeEvents(t, resp.Body.String())
	require.Len(t, events, 4)
	require.Equal(t, model.EventQuestion, events[0].Type)
	require.Equal(t, "Who is the captain of the ship?", events[0].Text)
	require.Equal(t, model.EventAudio, events[1].Type)
	require.Equal(t, "The captain is Ana Vane.", events[1].Text)
	require.Equal(t, model.EventAudio, events[2].Type)
	require.Equal(t, model.EventDone, events[3].Type)
	require.Equal(t, "The captain is Ana Vane. She took command in port.", events[3].FullAnswer)
}

func TestAskRejectsMissingFields(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/ask", strings.NewReader(`{"book_id":"b1"}`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	events := decodeEvents(t, resp.Body.String())
	require.Len(t, events, 1)
	require.Equal(t, model.EventError, events[0].Type)
	require.Equal(t, "http://assets/fallback-audio/default/error.mp3", events[0].FallbackAudioURL)
}
