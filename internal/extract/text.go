package extract

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/xxxsen/papergen/internal/model"
)

type textExtractor struct{}

func newTextExtractor() IExtractor {
	return &textExtractor{}
}

func (e *textExtractor) Kind() model.SourceKind {
	return model.SourceKindText
}

func (e *textExtractor) Extract(ctx context.Context, in Input) (*Result, error) {
	if !utf8.Valid(in.Data) {
		return nil, fmt.Errorf("file is not valid utf-8 text")
	}
	text := strings.TrimSpace(string(in.Data))
	if text == "" {
		return nil, fmt.Errorf("file contains no text")
	}
	return &Result{Title: strings.TrimSpace(in.Title), Text: text}, nil
}

type noteExtractor struct{}

func newNoteExtractor() IExtractor {
	return &noteExtractor{}
}

func (e *noteExtractor) Kind() model.SourceKind {
	return model.SourceKindNote
}

func (e *noteExtractor) Extract(ctx context.Context, in Input) (*Result, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, fmt.Errorf("note is empty")
	}
	return &Result{Title: strings.TrimSpace(in.Title), Text: text}, nil
}
