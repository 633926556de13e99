package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jan-barg/lectorius/internal/ai"
	"github.com/jan-barg/lectorius/internal/model"
)

func TestRetrievePassesBound(t *testing.T) {
	index := &recordingIndex{
		result: []model.RetrievedPassage{
			{ChunkID: "c3", ChunkIndex: 3, ChapterID: "ch1"},
		},
	}
	svc := NewRetrievalService(&ai.MockEmbedder{}, index, 7)

	got := svc.Retrieve(context.Background(), "b1", "who was she?", 42)
	require.Len(t, got, 1)
	require.Equal(t, "b1", index.gotBookID)
	require.Equal(t, 42, index.gotBound)
	require.Equal(t, 7, index.gotLimit)
}

func TestRetrieveFailSoft(t *testing.T) {
	t.Run("embedder failure", func(t *testing.T) {
		svc := NewRetrievalService(&ai.MockEmbedder{Err: errors.New("down")}, &recordingIndex{}, 5)
		require.Nil(t, svc.Retrieve(context.Background(), "b1", "q", 10))
	})
	t.Run("index failure", func(t *testing.T) {
		svc := NewRetrievalService(&ai.MockEmbedder{}, &recordingIndex{err: errors.New("db down")}, 5)
		require.Nil(t, svc.Retrieve(context.Background(), "b1", "q", 10))
	})
	t.Run("nil service", func(t *testing.T) {
		var svc *RetrievalService
		require.Nil(t, svc.Retrieve(context.Background(), "b1", "q", 10))
	})
}
