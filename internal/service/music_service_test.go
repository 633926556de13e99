package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jan-barg/lectorius/internal/config"
	"github.com/jan-barg/lectorius/internal/filestore"
)

func newTestMusicService(t *testing.T) *MusicService {
	t.Helper()
	root := t.TempDir()
	calm := filepath.Join(root, "music", "general", "calm-evening")
	require.NoError(t, os.MkdirAll(calm, 0o755))
	for _, name := range []string{"02_night-wind.mp3", "01-soft_rain.mp3", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(calm, name), []byte("mp3"), 0o644))
	}
	// a playlist with no tracks is skipped
	require.NoError(t, os.MkdirAll(filepath.Join(root, "music", "general", "empty"), 0o755))

	store, err := filestore.New(config.FileStoreConfig{
		Type: "local",
		Data: map[string]interface{}{"dir": root, "public_url": "http://assets"},
	})
	require.NoError(t, err)
	return NewMusicService(store)
}

func TestListPlaylists(t *testing.T) {
	svc := newTestMusicService(t)

	playlists, err := svc.ListPlaylists(context.Background())
	require.NoError(t, err)
	require.Len(t, playlists, 1)

	playlist := playlists[0]
	require.Equal(t, "calm-evening", playlist.PlaylistID)
	require.Equal(t, "Calm Evening", playlist.Name)
	require.Equal(t, "general", playlist.Type)

	require.Len(t, playlist.Songs, 2)
	require.Equal(t, "calm-evening-0", playlist.Songs[0].SongID)
	require.Equal(t, "Soft Rain", playlist.Songs[0].Title)
	require.Equal(t, "http://assets/music/general/calm-evening/01-soft_rain.mp3", playlist.Songs[0].FilePath)
	require.Equal(t, "Night Wind", playlist.Songs[1].Title)
}

func TestPrettifyName(t *testing.T) {
	tests := map[string]string{
		"03-night_wind.mp3": "Night Wind",
		"01 intro.MP3":      "Intro",
		"rainy-day.mp3":     "Rainy Day",
		"ambience":          "Ambience",
	}
	for in, want := range tests {
		if got := prettifyName(in); got != want {
			t.Errorf("prettifyName(%q) = %q, want %q", in, got, want)
		}
	}
}
