package filestore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

type localConfig struct {
	Dir       string `json:"dir"`
	PublicURL string `json:"public_url"`
}

type localStore struct {
	dir       string
	publicURL string
}

func init() {
	Register("local", createLocalStore)
}

func createLocalStore(args interface{}) (Store, error) {
	config := &localConfig{}
	if err := decodeConfig(args, config); err != nil {
		return nil, err
	}
	if config.Dir == "" {
		return nil, fmt.Errorf("local store dir is required")
	}
	return &localStore{dir: config.Dir, publicURL: strings.TrimSuffix(config.PublicURL, "/")}, nil
}

func (s *localStore) resolve(key string) (string, error) {
	cleaned := filepath.Clean(strings.TrimPrefix(key, "/"))
	if cleaned == "." || strings.HasPrefix(cleaned, "..") {
		return "", fmt.Errorf("invalid file key: %s", key)
	}
	return filepath.Join(s.dir, cleaned), nil
}

func (s *localStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	_ = ctx
	path, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	return os.Open(path)
}

func (s *localStore) ListDirs(ctx context.Context, prefix string) ([]string, error) {
	_ = ctx
	root := s.dir
	if prefix != "" {
		resolved, err := s.resolve(prefix)
		if err != nil {
			return nil, err
		}
		root = resolved
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	var dirs []string
	for _, entry := range entries {
		if entry.IsDir() {
			dirs = append(dirs, entry.Name())
		}
	}
	return dirs, nil
}

func (s *localStore) ListFiles(ctx context.Context, prefix string) ([]string, error) {
	_ = ctx
	root := s.dir
	if prefix != "" {
		resolved, err := s.resolve(prefix)
		if err != nil {
			return nil, err
		}
		root = resolved
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, entry := range entries {
		if !entry.IsDir() {
			files = append(files, entry.Name())
		}
	}
	return files, nil
}

func (s *localStore) URL(key string) string {
	return s.publicURL + "/" + strings.TrimPrefix(key, "/")
}
