package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jan-barg/lectorius/internal/config"
	"github.com/jan-barg/lectorius/internal/filestore"
	appErr "github.com/jan-barg/lectorius/internal/pkg/errors"
)

func TestGetBook(t *testing.T) {
	svc := newTestBookService(t)

	book, err := svc.GetBook(context.Background(), "b1")
	require.NoError(t, err)
	require.Equal(t, "The Mill on the Hill", book.Book.Title)
	require.Len(t, book.Chapters, 1)
	require.Len(t, book.Chunks, 10)
	require.Len(t, book.PlaybackMap, 10)
	require.Len(t, book.Checkpoints, 1)
	require.Equal(t, 5, book.Checkpoints[0].UntilChunkIndex)

	// audio paths are rewritten to public URLs
	require.Equal(t, "http://assets/b1/audio/1.mp3", book.PlaybackMap[0].AudioPath)

	// second load is served from cache
	again, err := svc.GetBook(context.Background(), "b1")
	require.NoError(t, err)
	require.Same(t, book, again)
}

func TestInvalidate(t *testing.T) {
	svc := newTestBookService(t)

	book, err := svc.GetBook(context.Background(), "b1")
	require.NoError(t, err)

	svc.Invalidate("b1")

	reloaded, err := svc.GetBook(context.Background(), "b1")
	require.NoError(t, err)
	require.NotSame(t, book, reloaded)
	require.Equal(t, book.Book.Title, reloaded.Book.Title)
}

func TestGetBookMissing(t *testing.T) {
	svc := newTestBookService(t)

	_, err := svc.GetBook(context.Background(), "nope")
	require.Error(t, err)
	require.ErrorIs(t, err, appErr.ErrBookNotFound)
}

func TestGetBookWithoutCheckpoints(t *testing.T) {
	root := t.TempDir()
	writeBookFixture(t, root)
	require.NoError(t, os.Remove(filepath.Join(root, "b1", "memory", "checkpoints.jsonl")))

	store, err := filestore.New(config.FileStoreConfig{
		Type: "local",
		Data: map[string]interface{}{"dir": root, "public_url": "http://assets"},
	})
	require.NoError(t, err)
	svc := NewBookService(store, store, 8, time.Minute)

	book, err := svc.GetBook(context.Background(), "b1")
	require.NoError(t, err)
	require.Empty(t, book.Checkpoints)
}

func TestListBooksSkipsBrokenEntries(t *testing.T) {
	root := t.TempDir()
	writeBookFixture(t, root)
	// a directory without book.json must not break the listing
	require.NoError(t, os.MkdirAll(filepath.Join(root, "half-uploaded"), 0o755))

	store, err := filestore.New(config.FileStoreConfig{
		Type: "local",
		Data: map[string]interface{}{"dir": root, "public_url": "http://assets"},
	})
	require.NoError(t, err)
	svc := NewBookService(store, store, 8, time.Minute)

	items, err := svc.ListBooks(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "b1", items[0].BookID)
	require.Equal(t, 10, items[0].TotalChunks)
	require.Equal(t, int64(200000), items[0].TotalDurationMs)
}

func TestFallbackAudioURL(t *testing.T) {
	svc := newTestBookService(t)

	require.Equal(t,
		"http://assets/fallback-audio/narrator/error.mp3",
		svc.FallbackAudioURL(FallbackError, "narrator"))
	require.Equal(t,
		"http://assets/fallback-audio/default/no_context_yet.mp3",
		svc.FallbackAudioURL(FallbackNoContextYet, ""))
	require.Equal(t,
		"http://assets/fallback-audio/default/book_only.mp3",
		svc.FallbackAudioURL(FallbackBookOnly, ""))
}
