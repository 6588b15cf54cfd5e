package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xxxsen/papergen/internal/pkg/response"
	"github.com/xxxsen/papergen/internal/service"
)

type SourceHandler struct {
	corpus *service.CorpusService
}

func NewSourceHandler(corpus *service.CorpusService) *SourceHandler {
	return &SourceHandler{corpus: corpus}
}

func (h *SourceHandler) List(c *gin.Context) {
	docs, err := h.corpus.List(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, docs)
}

func (h *SourceHandler) Get(c *gin.Context) {
	doc, err := h.corpus.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, doc)
}
