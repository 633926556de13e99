package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/jan-barg/lectorius/internal/pkg/errors"
	"github.com/jan-barg/lectorius/internal/pkg/response"
)

func handleError(c *gin.Context, err error) {
	logutil.GetLogger(c.Request.Context()).Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	switch {
	case errors.IsNotFound(err):
		response.Error(c, http.StatusNotFound, err.Error())
	case errors.Is(err, errors.ErrInvalid), errors.Is(err, errors.ErrInvalidQuestion):
		response.Error(c, http.StatusBadRequest, err.Error())
	default:
		response.Error(c, http.StatusInternalServerError, "internal error")
	}
}
