package service

import (
	"github.com/jan-barg/lectorius/internal/model"
)

// RecentChunks walks backward from currentChunkIndex, accumulating audio
// durations from the playback map until targetDurationMs of narration is
// covered or chunk 1 is passed. The walk is bounded by time rather than
// chunk count since narration density varies. Chunks without a timing entry
// are skipped but do not stop the walk. The result is in ascending index
// order.
func RecentChunks(chunks []model.Chunk, playbackMap []model.PlaybackMapEntry, currentChunkIndex int, targetDurationMs int64) []model.Chunk {
	chunkByIndex := make(map[int]*model.Chunk, len(chunks))
	for i := range chunks {
		chunkByIndex[chunks[i].ChunkIndex] = &chunks[i]
	}
	durationByIndex := make(map[int]int64, len(playbackMap))
	for _, entry := range playbackMap {
		durationByIndex[entry.ChunkIndex] = entry.DurationMs
	}

	var result []model.Chunk
	var totalDuration int64
	for i := currentChunkIndex; i >= 1 && totalDuration < targetDurationMs; i-- {
		duration, hasTiming := durationByIndex[i]
		chunk := chunkByIndex[i]
		if !hasTiming || chunk == nil {
			continue
		}
		result = append(result, *chunk)
		totalDuration += duration
	}
	// reverse into forward reading order
	for i, j := 0, len(result)-1; i < j; i, j = i+1, j-1 {
		result[i], result[j] = result[j], result[i]
	}
	return result
}

// CurrentCheckpoint returns the latest checkpoint whose coverage does not
// extend past currentChunkIndex, or nil when the position precedes every
// checkpoint. Checkpoints are ordered by until_chunk_index ascending.
func CurrentCheckpoint(checkpoints []model.MemoryCheckpoint, currentChunkIndex int) *model.MemoryCheckpoint {
	for i := len(checkpoints) - 1; i >= 0; i-- {
		if checkpoints[i].UntilChunkIndex <= currentChunkIndex {
			return &checkpoints[i]
		}
	}
	return nil
}
