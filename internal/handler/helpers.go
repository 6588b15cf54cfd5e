package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/papergen/internal/pkg/errcode"
	appErr "github.com/xxxsen/papergen/internal/pkg/errors"
	"github.com/xxxsen/papergen/internal/pkg/response"
)

func handleError(c *gin.Context, err error) {
	logutil.GetLogger(c.Request.Context()).Warn("request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Error(err),
	)
	switch {
	case appErr.IsNotFound(err):
		response.Error(c, errcode.ErrNotFound, err.Error())
	case errors.Is(err, appErr.ErrInvalid), appErr.IsContextOverflow(err):
		response.Error(c, errcode.ErrInvalid, err.Error())
	case appErr.IsConflict(err):
		response.Error(c, errcode.ErrConflict, err.Error())
	default:
		response.Error(c, errcode.ErrInternal, "internal error")
	}
}
