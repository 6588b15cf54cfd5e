package model

type SourceKind string

const (
	SourceKindPDF  SourceKind = "pdf"
	SourceKindWeb  SourceKind = "web"
	SourceKindText SourceKind = "text"
	SourceKindNote SourceKind = "note"
)

type SourceDocument struct {
	ID         string     `json:"id"`
	Kind       SourceKind `json:"kind"`
	Title      string     `json:"title"`
	Text       string     `json:"text"`
	Authors    []string   `json:"authors"`
	Year       string     `json:"year"`
	URL        string     `json:"url"`
	Origin     string     `json:"origin"`
	ArchiveKey string     `json:"archive_key"`
	AddedAt    int64      `json:"added_at"`
}
