package handler

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/papergen/internal/service"
)

const previewShell = `<!doctype html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>%s</title>
<style>
body { max-width: 52rem; margin: 2rem auto; padding: 0 1rem; font-family: Georgia, serif; line-height: 1.6; }
h1, h2, h3 { font-family: Helvetica, Arial, sans-serif; }
code { background: #f4f4f4; padding: 0 0.2rem; }
</style>
</head>
<body>
%s
</body>
</html>
`

type PreviewHandler struct {
	export *service.ExportService
	title  string
}

func NewPreviewHandler(export *service.ExportService, title string) *PreviewHandler {
	if strings.TrimSpace(title) == "" {
		title = "papergen preview"
	}
	return &PreviewHandler{export: export, title: title}
}

func (h *PreviewHandler) Index(c *gin.Context) {
	body, err := h.export.HTMLPreview(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	page := fmt.Sprintf(previewShell, html.EscapeString(h.title), body)
	c.Data(200, "text/html; charset=utf-8", []byte(page))
}

func (h *PreviewHandler) Download(c *gin.Context) {
	format := strings.TrimSpace(c.DefaultQuery("format", "markdown"))
	content, err := h.export.BuildDocument(c.Request.Context(), service.RenderFormat(format))
	if err != nil {
		handleError(c, err)
		return
	}
	ext, contentType := "md", "text/markdown; charset=utf-8"
	if service.RenderFormat(format) == service.RenderLaTeX {
		ext, contentType = "tex", "application/x-tex; charset=utf-8"
	}
	filename := fmt.Sprintf("paper-%s.%s", time.Now().Format("20060102-150405"), ext)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(200, contentType, []byte(content))
}
