package model

// ContextPayload is an assembled, budget-bounded prompt context. It is never
// persisted; callers rebuild it per request.
type ContextPayload struct {
	Objective   string            `json:"objective"`
	Guidance    string            `json:"guidance"`
	Fragments   []ContextFragment `json:"fragments"`
	TotalTokens int               `json:"total_tokens"`
	MaxTokens   int               `json:"max_tokens"`
}

type ContextFragment struct {
	SourceID  string `json:"source_id"`
	Title     string `json:"title"`
	Excerpt   string `json:"excerpt"`
	Tokens    int    `json:"tokens"`
	Truncated bool   `json:"truncated"`
}
