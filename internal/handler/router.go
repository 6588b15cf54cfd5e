package handler

import (
	"github.com/gin-gonic/gin"
)

type RouterDeps struct {
	Sections     *SectionHandler
	Bibliography *BibliographyHandler
	Sources      *SourceHandler
	Preview      *PreviewHandler
}

// RegisterRoutes wires the read-only preview surface. Nothing here mutates
// project state; all writes go through the cli.
func RegisterRoutes(root *gin.RouterGroup, deps RouterDeps) {
	root.GET("/", deps.Preview.Index)

	api := root.Group("/api/v1")
	api.GET("/sections", deps.Sections.List)
	api.GET("/sections/:id", deps.Sections.Get)
	api.GET("/sections/:id/history", deps.Sections.History)
	api.GET("/bibliography", deps.Bibliography.List)
	api.GET("/bibliography/bibtex", deps.Bibliography.BibTeX)
	api.GET("/sources", deps.Sources.List)
	api.GET("/sources/:id", deps.Sources.Get)
	api.GET("/document", deps.Preview.Download)
}
