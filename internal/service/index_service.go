package service

import (
	"context"
	"fmt"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/jan-barg/lectorius/internal/ai"
	"github.com/jan-barg/lectorius/internal/model"
)

// PassageWriter stores chunk embeddings for later retrieval.
type PassageWriter interface {
	Upsert(ctx context.Context, chunk *model.Chunk, modelName string, embedding []float32, now int64) error
	CountByBook(ctx context.Context, bookID string) (int64, error)
}

// IndexService embeds a book's chunks into the passage index so the
// retriever can find them later. Run from the CLI after a book has been
// processed and uploaded.
type IndexService struct {
	books    *BookService
	embedder ai.Embedder
	passages PassageWriter
}

func NewIndexService(books *BookService, embedder ai.Embedder, passages PassageWriter) *IndexService {
	return &IndexService{books: books, embedder: embedder, passages: passages}
}

func (s *IndexService) IndexBook(ctx context.Context, bookID string) error {
	if s.embedder == nil {
		return fmt.Errorf("embedder is not configured")
	}
	logger := logutil.GetLogger(ctx).With(zap.String("book_id", bookID))
	book, err := s.books.GetBook(ctx, bookID)
	if err != nil {
		return err
	}
	logger.Info("indexing book", zap.Int("chunks", len(book.Chunks)))

	now := time.Now().UnixMilli()
	for i := range book.Chunks {
		chunk := &book.Chunks[i]
		embedding, err := s.embedder.Embed(ctx, chunk.Text, "RETRIEVAL_DOCUMENT")
		if err != nil {
			return fmt.Errorf("embed chunk %d: %w", chunk.ChunkIndex, err)
		}
		if err := s.passages.Upsert(ctx, chunk, s.embedder.ModelName(), embedding, now); err != nil {
			return fmt.Errorf("store chunk %d: %w", chunk.ChunkIndex, err)
		}
		if chunk.ChunkIndex%100 == 0 {
			logger.Info("indexing progress", zap.Int("chunk_index", chunk.ChunkIndex))
		}
	}
	count, err := s.passages.CountByBook(ctx, bookID)
	if err != nil {
		return err
	}
	logger.Info("indexing complete", zap.Int64("passages", count))
	return nil
}
