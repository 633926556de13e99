package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/jan-barg/lectorius/internal/model"
	"github.com/jan-barg/lectorius/internal/pkg/response"
	"github.com/jan-barg/lectorius/internal/service"
)

type MusicHandler struct {
	music *service.MusicService
}

func NewMusicHandler(music *service.MusicService) *MusicHandler {
	return &MusicHandler{music: music}
}

type playlistsResponse struct {
	Playlists []model.Playlist `json:"playlists"`
}

func (h *MusicHandler) Playlists(c *gin.Context) {
	playlists, err := h.music.ListPlaylists(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, playlistsResponse{Playlists: playlists})
}
