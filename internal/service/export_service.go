package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/xxxsen/common/logutil"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	rendererhtml "github.com/yuin/goldmark/renderer/html"
	"go.uber.org/zap"

	"github.com/xxxsen/papergen/internal/config"
	"github.com/xxxsen/papergen/internal/model"
	appErr "github.com/xxxsen/papergen/internal/pkg/errors"
	"github.com/xxxsen/papergen/internal/repo"
)

// ExportService renders the current document state into output formats. It
// only reads: sections in outline order, each section's current snapshot,
// and the bibliography entries those snapshots cite.
type ExportService struct {
	sections  *repo.SectionRepo
	versions  *VersionService
	citations *CitationService
	project   config.ProjectConfig
	md        goldmark.Markdown
}

func NewExportService(sections *repo.SectionRepo, versions *VersionService, citations *CitationService, project config.ProjectConfig) *ExportService {
	return &ExportService{
		sections:  sections,
		versions:  versions,
		citations: citations,
		project:   project,
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
			goldmark.WithRendererOptions(rendererhtml.WithUnsafe()),
		),
	}
}

// CurrentText returns a section's current content with citation markers
// rendered for the target format.
func (s *ExportService) CurrentText(ctx context.Context, sectionID string, format RenderFormat) (string, error) {
	snapshot, err := s.versions.Current(ctx, sectionID)
	if err != nil {
		return "", err
	}
	return s.citations.Render(ctx, snapshot.Content, format)
}

// BuildDocument assembles the full paper in the requested format.
func (s *ExportService) BuildDocument(ctx context.Context, format RenderFormat) (string, error) {
	switch format {
	case RenderLaTeX:
		return s.BuildLaTeX(ctx)
	case RenderMarkdown:
		return s.BuildMarkdown(ctx)
	default:
		return "", fmt.Errorf("%w: unknown document format %q", appErr.ErrInvalid, format)
	}
}

type exportSection struct {
	section  model.Section
	snapshot *model.SectionSnapshot
}

// collectSections pairs every drafted section with its current snapshot and
// gathers the cited keys in first appearance order. Sections without drafts
// are skipped with a warning rather than failing the export.
func (s *ExportService) collectSections(ctx context.Context) ([]exportSection, []string, error) {
	sections, err := s.sections.List(ctx)
	if err != nil {
		return nil, nil, err
	}
	if len(sections) == 0 {
		return nil, nil, fmt.Errorf("%w: no outline sections to export", appErr.ErrNotFound)
	}
	parts := make([]exportSection, 0, len(sections))
	keys := make([]string, 0)
	seen := make(map[string]bool)
	for _, section := range sections {
		snapshot, err := s.versions.Current(ctx, section.ID)
		if err != nil {
			if errors.Is(err, appErr.ErrVersionNotFound) {
				logutil.GetLogger(ctx).Warn("section not drafted, skipped in export", zap.String("section_id", section.ID))
				continue
			}
			return nil, nil, err
		}
		parts = append(parts, exportSection{section: section, snapshot: snapshot})
		for _, key := range snapshot.CitationKeys {
			if !seen[key] {
				seen[key] = true
				keys = append(keys, key)
			}
		}
	}
	if len(parts) == 0 {
		return nil, nil, fmt.Errorf("%w: no drafted sections to export", appErr.ErrNotFound)
	}
	return parts, keys, nil
}

// BuildMarkdown renders the paper as a single markdown document with an
// author-year reference list.
func (s *ExportService) BuildMarkdown(ctx context.Context) (string, error) {
	parts, keys, err := s.collectSections(ctx)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString("# " + s.title() + "\n\n")
	if len(s.project.Authors) > 0 {
		b.WriteString(strings.Join(s.project.Authors, ", ") + "\n\n")
	}
	for _, part := range parts {
		rendered, err := s.citations.Render(ctx, part.snapshot.Content, RenderMarkdown)
		if err != nil {
			return "", err
		}
		b.WriteString(markdownHeading(part.section.Level) + " " + part.section.Title + "\n\n")
		b.WriteString(strings.TrimSpace(rendered))
		b.WriteString("\n\n")
	}
	refs, err := s.citations.References(ctx, keys)
	if err != nil {
		return "", err
	}
	if len(refs) > 0 {
		b.WriteString("## References\n\n")
		for i := range refs {
			b.WriteString("- " + FormatReference(&refs[i]) + "\n")
		}
	}
	return b.String(), nil
}

// BuildLaTeX renders the paper through the configured document template.
func (s *ExportService) BuildLaTeX(ctx context.Context) (string, error) {
	parts, keys, err := s.collectSections(ctx)
	if err != nil {
		return "", err
	}
	var body strings.Builder
	for i, part := range parts {
		rendered, err := s.citations.Render(ctx, part.snapshot.Content, RenderLaTeX)
		if err != nil {
			return "", err
		}
		if i > 0 {
			body.WriteString("\n\n")
		}
		body.WriteString(sectionCommand(part.section.Level) + "{" + escapeLaTeX(part.section.Title) + "}\n\n")
		body.WriteString(markdownToLaTeX(strings.TrimSpace(rendered)))
	}
	refs, err := s.citations.References(ctx, keys)
	if err != nil {
		return "", err
	}

	tpl, ok := latexTemplates[s.templateName()]
	if !ok {
		tpl = latexTemplates["basic"]
	}
	doc := strings.ReplaceAll(tpl, "{{TITLE}}", escapeLaTeX(s.title()))
	doc = strings.ReplaceAll(doc, "{{AUTHORS}}", s.formatLaTeXAuthors())
	doc = strings.ReplaceAll(doc, "{{SECTIONS}}", body.String())
	doc = strings.ReplaceAll(doc, "{{BIBLIOGRAPHY}}", latexBibliography(refs))
	return doc, nil
}

// HTMLPreview renders the whole paper as HTML for the preview server.
func (s *ExportService) HTMLPreview(ctx context.Context) (string, error) {
	doc, err := s.BuildMarkdown(ctx)
	if err != nil {
		return "", err
	}
	return s.RenderHTML(doc)
}

// RenderHTML converts markdown to HTML.
func (s *ExportService) RenderHTML(markdown string) (string, error) {
	var out bytes.Buffer
	if err := s.md.Convert([]byte(markdown), &out); err != nil {
		return "", err
	}
	return out.String(), nil
}

func (s *ExportService) title() string {
	if strings.TrimSpace(s.project.Title) != "" {
		return s.project.Title
	}
	return "Untitled"
}

func (s *ExportService) templateName() string {
	return strings.ToLower(strings.TrimSpace(s.project.Template))
}

func (s *ExportService) formatLaTeXAuthors() string {
	authors := s.project.Authors
	if len(authors) == 0 {
		return "Anonymous"
	}
	escaped := make([]string, 0, len(authors))
	for _, a := range authors {
		escaped = append(escaped, escapeLaTeX(a))
	}
	if s.templateName() == "ieee" {
		switch len(escaped) {
		case 1:
			return escaped[0]
		case 2:
			return escaped[0] + " and " + escaped[1]
		default:
			return strings.Join(escaped[:len(escaped)-1], ", ") + ", and " + escaped[len(escaped)-1]
		}
	}
	return strings.Join(escaped, ` \and `)
}

func markdownHeading(level int) string {
	// The document title takes "#", so sections start one level down.
	n := level + 1
	if n < 2 {
		n = 2
	}
	if n > 6 {
		n = 6
	}
	return strings.Repeat("#", n)
}

func sectionCommand(level int) string {
	switch {
	case level <= 1:
		return `\section`
	case level == 2:
		return `\subsection`
	default:
		return `\subsubsection`
	}
}

var (
	mdHeading3Re = regexp.MustCompile(`(?m)^### (.+)$`)
	mdHeading2Re = regexp.MustCompile(`(?m)^## (.+)$`)
	mdHeading1Re = regexp.MustCompile(`(?m)^# (.+)$`)
	mdBoldRe     = regexp.MustCompile(`\*\*(.+?)\*\*`)
	mdItalicRe   = regexp.MustCompile(`\*(.+?)\*`)
)

// markdownToLaTeX converts the markdown subset the generator produces:
// headings, bold, italic and dashed lists. Citation markers are expected to
// be rendered before this runs.
func markdownToLaTeX(text string) string {
	text = mdHeading3Re.ReplaceAllString(text, `\subsubsection{$1}`)
	text = mdHeading2Re.ReplaceAllString(text, `\subsection{$1}`)
	text = mdHeading1Re.ReplaceAllString(text, `\section{$1}`)
	text = mdBoldRe.ReplaceAllString(text, `\textbf{$1}`)
	text = mdItalicRe.ReplaceAllString(text, `\textit{$1}`)

	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	inList := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "- ") {
			if !inList {
				out = append(out, `\begin{itemize}`)
				inList = true
			}
			out = append(out, `  \item `+trimmed[2:])
			continue
		}
		if inList {
			out = append(out, `\end{itemize}`)
			inList = false
		}
		out = append(out, line)
	}
	if inList {
		out = append(out, `\end{itemize}`)
	}
	return strings.Join(out, "\n")
}

// latexEscaper runs in a single pass, so replacements never reprocess each
// other's output.
var latexEscaper = strings.NewReplacer(
	"\\", `\textbackslash{}`,
	"&", `\&`,
	"%", `\%`,
	"$", `\$`,
	"#", `\#`,
	"_", `\_`,
	"{", `\{`,
	"}", `\}`,
	"~", `\textasciitilde{}`,
	"^", `\^{}`,
)

func escapeLaTeX(text string) string {
	return latexEscaper.Replace(text)
}

func latexBibliography(entries []model.BibliographyEntry) string {
	if len(entries) == 0 {
		return "% no references"
	}
	lines := make([]string, 0, len(entries))
	for i := range entries {
		lines = append(lines, fmt.Sprintf(`\bibitem{%s} %s`, entries[i].Key, latexReference(&entries[i])))
	}
	return strings.Join(lines, "\n")
}

func latexReference(entry *model.BibliographyEntry) string {
	parts := make([]string, 0, 5)
	if len(entry.Authors) > 0 {
		parts = append(parts, escapeLaTeX(strings.Join(entry.Authors, ", "))+".")
	}
	if entry.Year != "" {
		parts = append(parts, "("+entry.Year+").")
	}
	if entry.Title != "" {
		parts = append(parts, escapeLaTeX(entry.Title)+".")
	}
	if entry.Journal != "" {
		parts = append(parts, `\textit{`+escapeLaTeX(entry.Journal)+`}.`)
	}
	if entry.DOI != "" {
		parts = append(parts, "doi:"+entry.DOI)
	} else if entry.URL != "" {
		parts = append(parts, `\url{`+entry.URL+`}`)
	}
	if len(parts) == 0 {
		return entry.Key
	}
	return strings.Join(parts, " ")
}

var latexTemplates = map[string]string{
	"ieee": `\documentclass[conference]{IEEEtran}
\usepackage{cite}
\usepackage{amsmath,amssymb,amsfonts}
\usepackage{graphicx}
\usepackage{url}

\begin{document}

\title{{{TITLE}}}
\author{\IEEEauthorblockN{{{AUTHORS}}}}
\maketitle

{{SECTIONS}}

\begin{thebibliography}{99}
{{BIBLIOGRAPHY}}
\end{thebibliography}

\end{document}
`,
	"acm": `\documentclass[sigconf]{acmart}
\usepackage{url}

\begin{document}

\title{{{TITLE}}}
\author{{{AUTHORS}}}
\maketitle

{{SECTIONS}}

\begin{thebibliography}{99}
{{BIBLIOGRAPHY}}
\end{thebibliography}

\end{document}
`,
	"basic": `\documentclass[11pt]{article}
\usepackage[utf8]{inputenc}
\usepackage{cite}
\usepackage{url}

\title{{{TITLE}}}
\author{{{AUTHORS}}}
\date{\today}

\begin{document}
\maketitle

{{SECTIONS}}

\begin{thebibliography}{99}
{{BIBLIOGRAPHY}}
\end{thebibliography}

\end{document}
`,
}
