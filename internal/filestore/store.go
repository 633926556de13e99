package filestore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/jan-barg/lectorius/internal/config"
)

// Store is a read-oriented view of the bucket holding processed book assets
// and pre-recorded system audio. Keys are slash-separated paths rooted at
// the store ("<book_id>/chunks.jsonl", "fallback-audio/alloy/error.mp3").
type Store interface {
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// ListDirs returns the names of the immediate sub-directories under
	// prefix (book ids live at the bucket root).
	ListDirs(ctx context.Context, prefix string) ([]string, error)
	// ListFiles returns the names of the files directly under prefix,
	// without descending into sub-directories.
	ListFiles(ctx context.Context, prefix string) ([]string, error)
	// URL returns the public URL for a key.
	URL(key string) string
}

type Factory func(args interface{}) (Store, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

func Register(name string, factory Factory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	registryMu.Lock()
	registry[key] = factory
	registryMu.Unlock()
}

func New(cfg config.FileStoreConfig) (Store, error) {
	key := strings.ToLower(strings.TrimSpace(cfg.Type))
	if key == "" {
		return nil, fmt.Errorf("store type is required")
	}
	registryMu.RLock()
	factory := registry[key]
	registryMu.RUnlock()
	if factory == nil {
		return nil, fmt.Errorf("unsupported store type: %s", cfg.Type)
	}
	return factory(cfg.Data)
}

func decodeConfig(args interface{}, dst interface{}) error {
	if args == nil {
		return fmt.Errorf("store config is required")
	}
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode store config: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode store config: %w", err)
	}
	return nil
}
