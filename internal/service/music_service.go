package service

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/jan-barg/lectorius/internal/filestore"
	"github.com/jan-barg/lectorius/internal/model"
)

// Ambient playlists live in the system store as one directory per
// playlist, each holding numbered mp3 tracks.
const musicPrefix = "music/general"

type MusicService struct {
	system filestore.Store
}

func NewMusicService(system filestore.Store) *MusicService {
	return &MusicService{system: system}
}

// ListPlaylists enumerates playlist directories and their tracks. Playlists
// that fail to list or hold no mp3 files are skipped.
func (s *MusicService) ListPlaylists(ctx context.Context) ([]model.Playlist, error) {
	folders, err := s.system.ListDirs(ctx, musicPrefix)
	if err != nil {
		return nil, fmt.Errorf("list playlists: %w", err)
	}
	logger := logutil.GetLogger(ctx)
	playlists := make([]model.Playlist, 0, len(folders))
	for _, folder := range folders {
		files, err := s.system.ListFiles(ctx, musicPrefix+"/"+folder)
		if err != nil {
			logger.Warn("skipping unreadable playlist", zap.String("playlist", folder), zap.Error(err))
			continue
		}
		var tracks []string
		for _, f := range files {
			if strings.HasSuffix(strings.ToLower(f), ".mp3") {
				tracks = append(tracks, f)
			}
		}
		if len(tracks) == 0 {
			continue
		}
		sort.Strings(tracks)
		songs := make([]model.Song, 0, len(tracks))
		for i, f := range tracks {
			songs = append(songs, model.Song{
				SongID:   fmt.Sprintf("%s-%d", folder, i),
				Title:    prettifyName(f),
				FilePath: s.system.URL(musicPrefix + "/" + folder + "/" + url.PathEscape(f)),
			})
		}
		playlists = append(playlists, model.Playlist{
			PlaylistID: folder,
			Name:       prettifyName(folder),
			Type:       "general",
			Songs:      songs,
		})
	}
	return playlists, nil
}

var (
	mp3SuffixPattern   = regexp.MustCompile(`(?i)\.mp3$`)
	trackNumberPattern = regexp.MustCompile(`^\d+[-_]?\s*`)
)

// prettifyName turns "03-night_wind.mp3" into "Night Wind".
func prettifyName(filename string) string {
	name := mp3SuffixPattern.ReplaceAllString(filename, "")
	name = trackNumberPattern.ReplaceAllString(name, "")
	name = strings.NewReplacer("-", " ", "_", " ").Replace(name)
	words := strings.Fields(name)
	for i, w := range words {
		runes := []rune(w)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
