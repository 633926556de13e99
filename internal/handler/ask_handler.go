package handler

import (
	"encoding/json"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/jan-barg/lectorius/internal/model"
	"github.com/jan-barg/lectorius/internal/service"
)

type AskHandler struct {
	qa    *service.QAService
	books *service.BookService
}

func NewAskHandler(qa *service.QAService, books *service.BookService) *AskHandler {
	return &AskHandler{qa: qa, books: books}
}

// Ask streams the answer as newline-delimited JSON events, flushed per
// event so the client can start playback before generation finishes.
func (h *AskHandler) Ask(c *gin.Context) {
	var req model.AskRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.BookID == "" || req.ChunkIndex < 1 || req.AudioBase64 == "" {
		h.writeSingleError(c, "Missing required fields")
		return
	}
	req.ClientIP = clientIP(c)
	req.UserName = c.GetHeader("X-User-Name")

	c.Header("Content-Type", "application/x-ndjson")
	c.Header("Cache-Control", "no-cache")
	c.Writer.WriteHeaderNow()

	encoder := json.NewEncoder(c.Writer)
	for event := range h.qa.Ask(c.Request.Context(), req) {
		if err := encoder.Encode(event); err != nil {
			logutil.GetLogger(c.Request.Context()).Info("client write failed", zap.Error(err))
			return
		}
		c.Writer.Flush()
	}
}

func (h *AskHandler) writeSingleError(c *gin.Context, message string) {
	c.Header("Content-Type", "application/x-ndjson")
	event := model.AskEvent{
		Type:             model.EventError,
		Error:            message,
		FallbackAudioURL: h.books.FallbackAudioURL(service.FallbackError, ""),
	}
	_ = json.NewEncoder(c.Writer).Encode(event)
}

func clientIP(c *gin.Context) string {
	if forwarded := c.GetHeader("X-Forwarded-For"); forwarded != "" {
		if idx := strings.Index(forwarded, ","); idx >= 0 {
			return strings.TrimSpace(forwarded[:idx])
		}
		return strings.TrimSpace(forwarded)
	}
	return c.ClientIP()
}
