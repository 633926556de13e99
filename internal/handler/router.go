package handler

import (
	"github.com/gin-gonic/gin"
)

type RouterDeps struct {
	Ask   *AskHandler
	Books *BookHandler
	Music *MusicHandler
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.GET("/books", deps.Books.List)
	api.GET("/books/:id", deps.Books.Get)
	api.POST("/books/:id/refresh", deps.Books.Refresh)
	api.GET("/books/:id/questions", deps.Books.Questions)
	api.GET("/music/playlists", deps.Music.Playlists)
	api.POST("/ask", deps.Ask.Ask)
}
