package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xxxsen/papergen/internal/pkg/response"
	"github.com/xxxsen/papergen/internal/service"
)

type BibliographyHandler struct {
	citations *service.CitationService
}

func NewBibliographyHandler(citations *service.CitationService) *BibliographyHandler {
	return &BibliographyHandler{citations: citations}
}

func (h *BibliographyHandler) List(c *gin.Context) {
	entries, err := h.citations.List(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, entries)
}

func (h *BibliographyHandler) BibTeX(c *gin.Context) {
	bibtex, err := h.citations.ExportBibTeX(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	c.Data(200, "application/x-bibtex; charset=utf-8", []byte(bibtex))
}
