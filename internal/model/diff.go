package model

type DiffLineType string

const (
	DiffLineAdded     DiffLineType = "added"
	DiffLineRemoved   DiffLineType = "removed"
	DiffLineUnchanged DiffLineType = "unchanged"
)

type DiffLine struct {
	Type DiffLineType `json:"type"`
	Text string       `json:"text"`
}
