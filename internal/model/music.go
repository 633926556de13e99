package model

// Song is one ambient-music track inside a playlist, served straight from
// the system store.
type Song struct {
	SongID     string `json:"song_id"`
	Title      string `json:"title"`
	DurationMs int64  `json:"duration_ms"`
	FilePath   string `json:"file_path"`
}

type Playlist struct {
	PlaylistID string `json:"playlist_id"`
	Name       string `json:"name"`
	Type       string `json:"type"`
	BookID     string `json:"book_id,omitempty"`
	Songs      []Song `json:"songs"`
}
