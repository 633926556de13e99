package model

type BookMeta struct {
	BookID      string `json:"book_id"`
	Title       string `json:"title"`
	Author      string `json:"author"`
	Language    string `json:"language"`
	Year        int    `json:"year"`
	BookType    string `json:"book_type"`
	Source      string `json:"source"`
	SourceID    string `json:"source_id"`
	Status      string `json:"status"`
	TTSProvider string `json:"tts_provider"`
	VoiceID     string `json:"voice_id"`
}

type ManifestConfig struct {
	TTSVoiceID               string `json:"tts_voice_id"`
	TTSModel                 string `json:"tts_model"`
	ChunkTargetChars         int    `json:"chunk_target_chars"`
	ChunkMinChars            int    `json:"chunk_min_chars"`
	ChunkMaxChars            int    `json:"chunk_max_chars"`
	CheckpointIntervalChunks int    `json:"checkpoint_interval_chunks"`
	EmbeddingModel           string `json:"embedding_model"`
}

type ManifestStats struct {
	Chapters             int   `json:"chapters"`
	Chunks               int   `json:"chunks"`
	TotalAudioDurationMs int64 `json:"total_audio_duration_ms"`
	TotalChars           int64 `json:"total_chars"`
}

type Manifest struct {
	BookID          string         `json:"book_id"`
	Version         int            `json:"version"`
	PipelineVersion string         `json:"pipeline_version"`
	StagesCompleted []string       `json:"stages_completed"`
	Config          ManifestConfig `json:"config"`
	Stats           ManifestStats  `json:"stats"`
}

type Chapter struct {
	BookID    string `json:"book_id"`
	ChapterID string `json:"chapter_id"`
	Index     int    `json:"index"`
	Title     string `json:"title"`
	CharStart int    `json:"char_start"`
	CharEnd   int    `json:"char_end"`
}

// Chunk is an indexed unit of book text. ChunkIndex is 1-based and
// contiguous within a book.
type Chunk struct {
	BookID     string `json:"book_id"`
	ChapterID  string `json:"chapter_id"`
	ChunkID    string `json:"chunk_id"`
	ChunkIndex int    `json:"chunk_index"`
	Text       string `json:"text"`
	CharStart  int    `json:"char_start"`
	CharEnd    int    `json:"char_end"`
}

// PlaybackMapEntry maps a chunk to its audio timing, one-to-one by index.
type PlaybackMapEntry struct {
	ChunkID    string `json:"chunk_id"`
	ChapterID  string `json:"chapter_id"`
	ChunkIndex int    `json:"chunk_index"`
	AudioPath  string `json:"audio_path"`
	DurationMs int64  `json:"duration_ms"`
	StartMs    int64  `json:"start_ms"`
	EndMs      int64  `json:"end_ms"`
}

type Person struct {
	Name        string   `json:"name"`
	Aliases     []string `json:"aliases"`
	Role        string   `json:"role"`
	Description string   `json:"description"`
	FirstChunk  int      `json:"first_chunk"`
	LastChunk   int      `json:"last_chunk"`
}

type Place struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	FirstChunk  int    `json:"first_chunk"`
	LastChunk   int    `json:"last_chunk"`
}

type PlotThread struct {
	ID               string `json:"id"`
	Description      string `json:"description"`
	Status           string `json:"status"`
	IntroducedChunk  int    `json:"introduced_chunk"`
	LastUpdatedChunk int    `json:"last_updated_chunk"`
}

type Entities struct {
	People      []Person     `json:"people"`
	Places      []Place      `json:"places"`
	OpenThreads []PlotThread `json:"open_threads"`
}

// MemoryCheckpoint is a running story summary covering chunks up to and
// including UntilChunkIndex. Checkpoints are produced offline by the book
// pipeline and are read-only here.
type MemoryCheckpoint struct {
	BookID          string   `json:"book_id"`
	CheckpointIndex int      `json:"checkpoint_index"`
	UntilChunkIndex int      `json:"until_chunk_index"`
	UntilChunkID    string   `json:"until_chunk_id"`
	Summary         string   `json:"summary"`
	Entities        Entities `json:"entities"`
}

// LoadedBook is the full in-memory view of a processed book.
type LoadedBook struct {
	Book        BookMeta           `json:"book"`
	Chapters    []Chapter          `json:"chapters"`
	Chunks      []Chunk            `json:"chunks"`
	PlaybackMap []PlaybackMapEntry `json:"playback_map"`
	Checkpoints []MemoryCheckpoint `json:"checkpoints"`
}

type BookListItem struct {
	BookID          string `json:"book_id"`
	Title           string `json:"title"`
	Author          string `json:"author"`
	Status          string `json:"status"`
	TotalChapters   int    `json:"total_chapters"`
	TotalChunks     int    `json:"total_chunks"`
	TotalDurationMs int64  `json:"total_duration_ms"`
}
