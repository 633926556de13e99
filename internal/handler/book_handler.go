package handler

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jan-barg/lectorius/internal/model"
	"github.com/jan-barg/lectorius/internal/pkg/response"
	"github.com/jan-barg/lectorius/internal/service"
)

const defaultQuestionLimit = 50

// QuestionLister reads back the question log for one book.
type QuestionLister interface {
	ListByBook(ctx context.Context, bookID string, limit int) ([]model.QuestionLog, error)
}

type BookHandler struct {
	books     *service.BookService
	questions QuestionLister
}

func NewBookHandler(books *service.BookService, questions QuestionLister) *BookHandler {
	return &BookHandler{books: books, questions: questions}
}

func (h *BookHandler) List(c *gin.Context) {
	items, err := h.books.ListBooks(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, items)
}

func (h *BookHandler) Get(c *gin.Context) {
	book, err := h.books.GetBook(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, book)
}

// Refresh drops the cached view of a book so re-uploaded assets are picked
// up before the cache TTL expires.
func (h *BookHandler) Refresh(c *gin.Context) {
	bookID := c.Param("id")
	h.books.Invalidate(bookID)
	book, err := h.books.GetBook(c.Request.Context(), bookID)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, book.Book)
}

func (h *BookHandler) Questions(c *gin.Context) {
	limit := defaultQuestionLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err == nil && parsed > 0 {
			limit = parsed
		}
	}
	entries, err := h.questions.ListByBook(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, entries)
}
