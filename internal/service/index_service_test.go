package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jan-barg/lectorius/internal/ai"
	"github.com/jan-barg/lectorius/internal/model"
)

type fakePassageWriter struct {
	upserts []model.Chunk
	err     error
}

func (f *fakePassageWriter) Upsert(ctx context.Context, chunk *model.Chunk, modelName string, embedding []float32, now int64) error {
	if f.err != nil {
		return f.err
	}
	f.upserts = append(f.upserts, *chunk)
	return nil
}

func (f *fakePassageWriter) CountByBook(ctx context.Context, bookID string) (int64, error) {
	return int64(len(f.upserts)), nil
}

func TestIndexBook(t *testing.T) {
	writer := &fakePassageWriter{}
	svc := NewIndexService(newTestBookService(t), &ai.MockEmbedder{}, writer)

	require.NoError(t, svc.IndexBook(context.Background(), "b1"))
	require.Len(t, writer.upserts, 10)
	require.Equal(t, "c1", writer.upserts[0].ChunkID)
	require.Equal(t, 10, writer.upserts[9].ChunkIndex)
}

func TestIndexBookErrors(t *testing.T) {
	t.Run("missing book", func(t *testing.T) {
		svc := NewIndexService(newTestBookService(t), &ai.MockEmbedder{}, &fakePassageWriter{})
		require.Error(t, svc.IndexBook(context.Background(), "missing"))
	})
	t.Run("embedder failure", func(t *testing.T) {
		svc := NewIndexService(newTestBookService(t), &ai.MockEmbedder{Err: errors.New("down")}, &fakePassageWriter{})
		require.Error(t, svc.IndexBook(context.Background(), "b1"))
	})
	t.Run("store failure", func(t *testing.T) {
		svc := NewIndexService(newTestBookService(t), &ai.MockEmbedder{}, &fakePassageWriter{err: errors.New("db down")})
		require.Error(t, svc.IndexBook(context.Background(), "b1"))
	})
}
