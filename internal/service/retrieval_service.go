package service

import (
	"context"
	"fmt"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/jan-barg/lectorius/internal/ai"
	"github.com/jan-barg/lectorius/internal/model"
	appErr "github.com/jan-barg/lectorius/internal/pkg/errors"
)

// PassageIndex is the nearest-neighbor lookup over indexed passages. The
// spoiler bound is a parameter of the query itself.
type PassageIndex interface {
	Search(ctx context.Context, bookID string, embedding []float32, maxChunkIndex int, limit int) ([]model.RetrievedPassage, error)
}

// RetrievalService looks up earlier passages semantically related to the
// question while never crossing the listener's playback position. Retrieval
// is an enhancement: every failure degrades to an empty result.
type RetrievalService struct {
	embedder ai.Embedder
	index    PassageIndex
	limit    int
}

func NewRetrievalService(embedder ai.Embedder, index PassageIndex, limit int) *RetrievalService {
	if limit <= 0 {
		limit = 5
	}
	return &RetrievalService{embedder: embedder, index: index, limit: limit}
}

// Retrieve returns up to limit passages with chunk_index <= maxChunkIndex.
// An unconfigured embedder or index, or any upstream failure, yields an
// empty slice, never an error to the caller.
func (s *RetrievalService) Retrieve(ctx context.Context, bookID, question string, maxChunkIndex int) []model.RetrievedPassage {
	if s == nil || s.embedder == nil || s.index == nil {
		return nil
	}
	logger := logutil.GetLogger(ctx).With(zap.String("book_id", bookID))
	embedding, err := s.embedder.Embed(ctx, question, "RETRIEVAL_QUERY")
	if err != nil {
		logger.Warn("question embedding failed, skipping retrieval",
			zap.Error(fmt.Errorf("%w: %v", appErr.ErrRetrieval, err)))
		return nil
	}
	passages, err := s.index.Search(ctx, bookID, embedding, maxChunkIndex, s.limit)
	if err != nil {
		logger.Warn("passage search failed, skipping retrieval",
			zap.Error(fmt.Errorf("%w: %v", appErr.ErrRetrieval, err)))
		return nil
	}
	return passages
}
