package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/papergen/internal/model"
	"github.com/xxxsen/papergen/internal/pkg/errcode"
	appErr "github.com/xxxsen/papergen/internal/pkg/errors"
	"github.com/xxxsen/papergen/internal/pkg/response"
	"github.com/xxxsen/papergen/internal/service"
)

type SectionHandler struct {
	outline   *service.OutlineService
	versions  *service.VersionService
	citations *service.CitationService
}

func NewSectionHandler(outline *service.OutlineService, versions *service.VersionService, citations *service.CitationService) *SectionHandler {
	return &SectionHandler{outline: outline, versions: versions, citations: citations}
}

type sectionSummary struct {
	model.Section
	Version   int `json:"version"`
	WordCount int `json:"word_count"`
}

func (h *SectionHandler) List(c *gin.Context) {
	ctx := c.Request.Context()
	sections, err := h.outline.List(ctx)
	if err != nil {
		handleError(c, err)
		return
	}
	out := make([]sectionSummary, 0, len(sections))
	for _, section := range sections {
		item := sectionSummary{Section: section}
		current, err := h.versions.Current(ctx, section.ID)
		switch {
		case err == nil:
			item.Version = current.Version
			item.WordCount = current.WordCount
		case appErr.IsNotFound(err):
			// not drafted yet, version stays 0
		default:
			handleError(c, err)
			return
		}
		out = append(out, item)
	}
	response.Success(c, out)
}

type sectionView struct {
	*model.SectionSnapshot
	Format   string `json:"format,omitempty"`
	Rendered string `json:"rendered,omitempty"`
}

func (h *SectionHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()
	version := 0
	if value := c.Query("version"); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed <= 0 {
			response.Error(c, errcode.ErrInvalid, "invalid version")
			return
		}
		version = parsed
	}
	snapshot, err := h.versions.Get(ctx, c.Param("id"), version)
	if err != nil {
		handleError(c, err)
		return
	}
	view := sectionView{SectionSnapshot: snapshot}
	if format := c.Query("format"); format != "" && format != "raw" {
		rendered, err := h.citations.Render(ctx, snapshot.Content, service.RenderFormat(format))
		if err != nil {
			handleError(c, err)
			return
		}
		view.Format = format
		view.Rendered = rendered
	}
	response.Success(c, view)
}

func (h *SectionHandler) History(c *gin.Context) {
	history, err := h.versions.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, history)
}
