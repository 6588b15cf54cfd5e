package extract

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode"

	"github.com/xxxsen/papergen/internal/model"
)

// Input carries the raw material for one source. Data holds file bytes for
// pdf and text sources, URL the remote address for web sources, and Text
// the inline content for notes.
type Input struct {
	Title string
	Data  []byte
	URL   string
	Text  string
}

type Result struct {
	Title   string
	Text    string
	URL     string
	Authors []string
	Year    string
}

type IExtractor interface {
	Kind() model.SourceKind
	Extract(ctx context.Context, in Input) (*Result, error)
}

// Registry binds each source kind to its extractor.
type Registry struct {
	extractors map[model.SourceKind]IExtractor
}

func NewRegistry(client *http.Client) *Registry {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	r := &Registry{extractors: map[model.SourceKind]IExtractor{}}
	for _, e := range []IExtractor{
		newPDFExtractor(),
		newWebExtractor(client),
		newTextExtractor(),
		newNoteExtractor(),
	} {
		r.extractors[e.Kind()] = e
	}
	return r
}

func (r *Registry) Extract(ctx context.Context, kind model.SourceKind, in Input) (*Result, error) {
	e, ok := r.extractors[kind]
	if !ok {
		return nil, fmt.Errorf("unsupported source kind: %s", kind)
	}
	return e.Extract(ctx, in)
}

// cleanText trims null bytes and collapses runs of horizontal whitespace
// while keeping line structure intact.
func cleanText(text string) string {
	text = strings.ReplaceAll(text, "\x00", "")
	var b strings.Builder
	lastWasSpace := false
	for _, r := range text {
		if unicode.IsSpace(r) {
			if r == '\n' {
				b.WriteRune('\n')
				lastWasSpace = false
				continue
			}
			if !lastWasSpace {
				b.WriteRune(' ')
				lastWasSpace = true
			}
			continue
		}
		b.WriteRune(r)
		lastWasSpace = false
	}
	return strings.TrimSpace(b.String())
}
