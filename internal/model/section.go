package model

type Section struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Level      int      `json:"level"`
	Position   int      `json:"position"`
	Objectives []string `json:"objectives"`
	KeyPoints  []string `json:"key_points"`
	WordTarget int      `json:"word_target"`
	Guidance   string   `json:"guidance"`
	Ctime      int64    `json:"ctime"`
	Mtime      int64    `json:"mtime"`
}
