package model

const (
	EventQuestion = "question"
	EventAudio    = "audio"
	EventDone     = "done"
	EventError    = "error"
)

// AskEvent is one element of the server-to-client answer stream. Exactly one
// of the optional fields is populated depending on Type.
type AskEvent struct {
	Type             string `json:"type"`
	Text             string `json:"text,omitempty"`
	Audio            string `json:"audio,omitempty"`
	FullAnswer       string `json:"full_answer,omitempty"`
	Error            string `json:"error,omitempty"`
	FallbackAudioURL string `json:"fallback_audio_url,omitempty"`
}

// AskRequest is the inbound question payload. Audio is a base64 encoded
// speech clip recorded by the client.
type AskRequest struct {
	BookID      string `json:"book_id"`
	ChunkIndex  int    `json:"chunk_index"`
	AudioBase64 string `json:"audio_base64"`
	ClientIP    string `json:"-"`
	UserName    string `json:"-"`
}

// RetrievedPassage is a spoiler-bounded retrieval hit. ChunkIndex is
// guaranteed by the index query to not exceed the listener's position.
type RetrievedPassage struct {
	ChunkID    string `json:"chunk_id"`
	ChunkIndex int    `json:"chunk_index"`
	ChapterID  string `json:"chapter_id"`
}

type QuestionLog struct {
	ID       int64  `json:"id"`
	IP       string `json:"ip"`
	UserName string `json:"user_name"`
	BookID   string `json:"book_id"`
	Question string `json:"question"`
	Ctime    int64  `json:"ctime"`
}
