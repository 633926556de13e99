package service

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/jan-barg/lectorius/internal/filestore"
	"github.com/jan-barg/lectorius/internal/model"
	appErr "github.com/jan-barg/lectorius/internal/pkg/errors"
)

// Fallback clip ids known to exist in the system store, generated offline by
// the book pipeline for every configured voice.
const (
	FallbackError        = "error"
	FallbackNoContextYet = "no_context_yet"
	FallbackBookOnly     = "book_only"
)

// BookService loads processed book assets from the object store and keeps a
// short-lived cache so repeated questions against the same book skip the
// downloads.
type BookService struct {
	books  filestore.Store
	system filestore.Store
	cache  *expirable.LRU[string, *model.LoadedBook]
}

func NewBookService(books, system filestore.Store, cacheSize int, cacheTTL time.Duration) *BookService {
	return &BookService{
		books:  books,
		system: system,
		cache:  expirable.NewLRU[string, *model.LoadedBook](cacheSize, nil, cacheTTL),
	}
}

// GetBook returns the full in-memory view of a book. Any load failure maps
// to ErrBookNotFound so the orchestrator can fail fast before spending money
// on transcription.
func (s *BookService) GetBook(ctx context.Context, bookID string) (*model.LoadedBook, error) {
	if cached, ok := s.cache.Get(bookID); ok {
		return cached, nil
	}
	logger := logutil.GetLogger(ctx).With(zap.String("book_id", bookID))
	book, err := s.loadBook(ctx, bookID)
	if err != nil {
		logger.Warn("book load failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %s", appErr.ErrBookNotFound, bookID)
	}
	s.cache.Add(bookID, book)
	logger.Debug("book loaded",
		zap.Int("chunks", len(book.Chunks)),
		zap.Int("checkpoints", len(book.Checkpoints)))
	return book, nil
}

func (s *BookService) Invalidate(bookID string) {
	s.cache.Remove(bookID)
}

func (s *BookService) loadBook(ctx context.Context, bookID string) (*model.LoadedBook, error) {
	var meta model.BookMeta
	if err := s.readJSON(ctx, bookID+"/book.json", &meta); err != nil {
		return nil, err
	}
	chapters, err := readJSONL[model.Chapter](ctx, s.books, bookID+"/chapters.jsonl")
	if err != nil {
		return nil, err
	}
	chunks, err := readJSONL[model.Chunk](ctx, s.books, bookID+"/chunks.jsonl")
	if err != nil {
		return nil, err
	}
	playbackMap, err := readJSONL[model.PlaybackMapEntry](ctx, s.books, bookID+"/playback_map.jsonl")
	if err != nil {
		return nil, err
	}
	// checkpoints appear only after the memory stage has run
	checkpoints, err := readJSONL[model.MemoryCheckpoint](ctx, s.books, bookID+"/memory/checkpoints.jsonl")
	if err != nil {
		checkpoints = nil
	}
	for i := range playbackMap {
		playbackMap[i].AudioPath = s.books.URL(bookID + "/" + playbackMap[i].AudioPath)
	}
	return &model.LoadedBook{
		Book:        meta,
		Chapters:    chapters,
		Chunks:      chunks,
		PlaybackMap: playbackMap,
		Checkpoints: checkpoints,
	}, nil
}

// ListBooks enumerates book directories at the store root. Entries that fail
// to load are skipped rather than failing the whole listing.
func (s *BookService) ListBooks(ctx context.Context) ([]model.BookListItem, error) {
	dirs, err := s.books.ListDirs(ctx, "")
	if err != nil {
		return nil, err
	}
	logger := logutil.GetLogger(ctx)
	items := make([]model.BookListItem, 0, len(dirs))
	for _, dir := range dirs {
		var meta model.BookMeta
		if err := s.readJSON(ctx, dir+"/book.json", &meta); err != nil {
			logger.Warn("skipping unreadable book entry", zap.String("dir", dir), zap.Error(err))
			continue
		}
		var manifest model.Manifest
		if err := s.readJSON(ctx, dir+"/manifest.json", &manifest); err != nil {
			logger.Warn("skipping book without manifest", zap.String("dir", dir), zap.Error(err))
			continue
		}
		items = append(items, model.BookListItem{
			BookID:          meta.BookID,
			Title:           meta.Title,
			Author:          meta.Author,
			Status:          meta.Status,
			TotalChapters:   manifest.Stats.Chapters,
			TotalChunks:     manifest.Stats.Chunks,
			TotalDurationMs: manifest.Stats.TotalAudioDurationMs,
		})
	}
	return items, nil
}

// FallbackAudioURL resolves the pre-recorded clip for a failure category,
// preferring the book's voice variant and falling back to the default voice.
func (s *BookService) FallbackAudioURL(category, voiceID string) string {
	if voiceID == "" {
		voiceID = "default"
	}
	return s.system.URL("fallback-audio/" + voiceID + "/" + category + ".mp3")
}

func (s *BookService) readJSON(ctx context.Context, key string, dst interface{}) error {
	rc, err := s.books.Open(ctx, key)
	if err != nil {
		return err
	}
	defer rc.Close()
	return json.NewDecoder(rc).Decode(dst)
}

func readJSONL[T any](ctx context.Context, store filestore.Store, key string) ([]T, error) {
	rc, err := store.Open(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return parseJSONL[T](rc)
}

func parseJSONL[T any](r io.Reader) ([]T, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	var out []T
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var item T
		if err := json.Unmarshal(line, &item); err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, scanner.Err()
}
