package search

// ResultType identifies the kind of entity in a search result.
type ResultType string

const (
	ResultCanvas  ResultType = "canvas"
	ResultBacklog ResultType = "backlog"
)

// Result is a single search hit returned to the caller.
type Result struct {
	Type     ResultType `json:"type"`
	ID       string     `json:"id"`
	Slug     string     `json:"slug"`
	Title    string     `json:"title"`
	Snippet  string     `json:"snippet"`
	Priority string     `json:"priority,omitempty"`
	Status   string     `json:"status,omitempty"`
}

// Query describes a search request. UserID scopes results to the
// caller's own entities.
type Query struct {
	Text       string
	FilterType ResultType // empty = all types
	UserID     string
	Limit      int
	Offset     int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a full-text search.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}

// Indexer can push entities into a search index.
type Indexer interface {
	IndexCanvas(c CanvasRecord) error
	IndexBacklog(b BacklogRecord) error
	DeleteCanvas(id string) error
	DeleteBacklog(id string) error
}

// CanvasRecord is the data we index for a canvas.
type CanvasRecord struct {
	ID               string `json:"id"`
	Slug             string `json:"slug"`
	Name             string `json:"name"`
	Problem          string `json:"problem"`
	Solution         string `json:"solution"`
	UniqueValueProp  string `json:"uniqueValueProp"`
	CustomerSegments string `json:"customerSegments"`
	UserID           string `json:"userId"`
}

// BacklogRecord is the data we index for a backlog item.
type BacklogRecord struct {
	ID          string `json:"id"`
	Slug        string `json:"slug"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Tags        string `json:"tags"`
	Priority    string `json:"priority"`
	Status      string `json:"status"`
	UserID      string `json:"userId"`
}
