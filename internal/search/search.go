// Package search provides full-text search over journal entries.
// Meilisearch serves queries when reachable; PostgreSQL FTS is the
// always-available fallback.
package search

// Result is a single entry hit returned to the caller.
type Result struct {
	ID        string   `json:"id"`
	Snippet   string   `json:"snippet"`
	Tags      []string `json:"tags"`
	Mood      []string `json:"mood"`
	CreatedAt string   `json:"createdAt"`
}

// Query describes a search request. UserID is mandatory: entries are
// private, so every query is owner-scoped.
type Query struct {
	UserID string
	Text   string
	Tags   []string
	Limit  int
	Offset int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// EntryRecord is the data indexed per entry.
type EntryRecord struct {
	ID        string   `json:"id"`
	UserID    string   `json:"userId"`
	Body      string   `json:"body"`
	Tags      []string `json:"tags"`
	Mood      []string `json:"mood"`
	CreatedAt string   `json:"createdAt"`
}

// Searcher can execute a full-text search.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}
