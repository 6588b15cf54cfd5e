package model

type SnapshotOperation string

const (
	OperationDraft  SnapshotOperation = "draft"
	OperationRevise SnapshotOperation = "revise"
	OperationPolish SnapshotOperation = "polish"
	OperationRevert SnapshotOperation = "revert"
	OperationManual SnapshotOperation = "manual"
)

type SectionSnapshot struct {
	ID              string            `json:"id"`
	SectionID       string            `json:"section_id"`
	Version         int               `json:"version"`
	Content         string            `json:"content"`
	Operation       SnapshotOperation `json:"operation"`
	OperationDetail string            `json:"operation_detail"`
	WordCount       int               `json:"word_count"`
	CitationKeys    []string          `json:"citation_keys"`
	Ctime           int64             `json:"ctime"`
}

type SectionSnapshotSummary struct {
	SectionID string            `json:"section_id"`
	Version   int               `json:"version"`
	Operation SnapshotOperation `json:"operation"`
	WordCount int               `json:"word_count"`
	Ctime     int64             `json:"ctime"`
}
