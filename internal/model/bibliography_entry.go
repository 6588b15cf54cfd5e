package model

type BibliographyEntry struct {
	Key      string   `json:"key"`
	Title    string   `json:"title"`
	Authors  []string `json:"authors"`
	Year     string   `json:"year"`
	Journal  string   `json:"journal"`
	DOI      string   `json:"doi"`
	URL      string   `json:"url"`
	SourceID string   `json:"source_id"`
	Ctime    int64    `json:"ctime"`
	Mtime    int64    `json:"mtime"`
}
