package search

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync/atomic"
	"time"

	meili "github.com/meilisearch/meilisearch-go"
)

const (
	idxCanvases = "leancanvas_canvases"
	idxBacklogs = "leancanvas_backlogs"
)

// Meili implements Searcher and Indexer via Meilisearch.
type Meili struct {
	client  meili.ServiceManager
	healthy atomic.Bool
	done    chan struct{}
}

// NewMeili creates a Meilisearch client and configures indexes.
// The caller should proceed without search if the instance stays down;
// the health loop picks it up when it comes back.
func NewMeili(url, apiKey string) *Meili {
	client := meili.New(url, meili.WithAPIKey(apiKey))

	m := &Meili{
		client: client,
		done:   make(chan struct{}),
	}

	if _, err := client.Health(); err != nil {
		log.Printf("search: meilisearch unavailable at %s: %v", url, err)
		m.healthy.Store(false)
	} else {
		m.healthy.Store(true)
		m.configureIndexes()
	}

	go m.healthLoop()
	return m
}

func (m *Meili) configureIndexes() {
	indexes := []struct {
		uid        string
		primaryKey string
		filterable []string
		searchable []string
	}{
		{
			uid:        idxCanvases,
			primaryKey: "id",
			filterable: []string{"userId"},
			searchable: []string{"name", "problem", "solution", "uniqueValueProp", "customerSegments"},
		},
		{
			uid:        idxBacklogs,
			primaryKey: "id",
			filterable: []string{"userId", "priority", "status"},
			searchable: []string{"title", "description", "tags"},
		},
	}

	for _, idx := range indexes {
		if _, err := m.client.CreateIndex(&meili.IndexConfig{
			Uid:        idx.uid,
			PrimaryKey: idx.primaryKey,
		}); err != nil {
			log.Printf("search: create index %s (may already exist): %v", idx.uid, err)
		}

		index := m.client.Index(idx.uid)
		filterableInterface := make([]interface{}, len(idx.filterable))
		for i, v := range idx.filterable {
			filterableInterface[i] = v
		}
		if _, err := index.UpdateFilterableAttributes(&filterableInterface); err != nil {
			log.Printf("search: update filterable attrs for %s: %v", idx.uid, err)
		}
		if _, err := index.UpdateSearchableAttributes(&idx.searchable); err != nil {
			log.Printf("search: update searchable attrs for %s: %v", idx.uid, err)
		}
	}
}

func (m *Meili) healthLoop() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			_, err := m.client.Health()
			wasHealthy := m.healthy.Load()
			m.healthy.Store(err == nil)
			if err == nil && !wasHealthy {
				log.Println("search: meilisearch recovered, reconfiguring indexes")
				m.configureIndexes()
			}
		}
	}
}

// Close stops the background health monitor.
func (m *Meili) Close() {
	close(m.done)
}

// Healthy reports whether Meilisearch is reachable.
func (m *Meili) Healthy() bool {
	return m.healthy.Load()
}

// Search queries both indexes (or a filtered subset) and merges results.
func (m *Meili) Search(q Query) ([]Result, int, error) {
	if !m.healthy.Load() {
		return nil, 0, fmt.Errorf("meilisearch unhealthy")
	}

	limit := int64(q.Limit)
	if limit == 0 {
		limit = 20
	}

	var queries []*meili.SearchRequest
	targetIndexes := []struct {
		uid  string
		rtyp ResultType
	}{
		{idxCanvases, ResultCanvas},
		{idxBacklogs, ResultBacklog},
	}

	for _, ti := range targetIndexes {
		if q.FilterType != "" && q.FilterType != ti.rtyp {
			continue
		}
		sr := &meili.SearchRequest{
			IndexUID:              ti.uid,
			Query:                 q.Text,
			Limit:                 limit,
			Offset:                int64(q.Offset),
			AttributesToHighlight: []string{"*"},
			HighlightPreTag:       "<mark>",
			HighlightPostTag:      "</mark>",
			ShowRankingScore:      true,
		}
		if q.UserID != "" {
			sr.Filter = []string{fmt.Sprintf("userId = %q", q.UserID)}
		}
		queries = append(queries, sr)
	}

	if len(queries) == 0 {
		return nil, 0, nil
	}

	resp, err := m.client.MultiSearch(&meili.MultiSearchRequest{
		Queries: queries,
	})
	if err != nil {
		m.healthy.Store(false)
		return nil, 0, fmt.Errorf("meilisearch multi-search: %w", err)
	}

	var results []Result
	total := 0
	for _, sr := range resp.Results {
		total += int(sr.EstimatedTotalHits)
		rtyp := indexToResultType(sr.IndexUID)
		for _, hit := range sr.Hits {
			results = append(results, hitToResult(hit, rtyp))
		}
	}

	return results, total, nil
}

func indexToResultType(uid string) ResultType {
	switch uid {
	case idxCanvases:
		return ResultCanvas
	case idxBacklogs:
		return ResultBacklog
	default:
		return ""
	}
}

func hitToResult(hit meili.Hit, rtyp ResultType) Result {
	r := Result{Type: rtyp}
	r.ID = decodeString(hit, "id")
	r.Slug = decodeString(hit, "slug")

	switch rtyp {
	case ResultCanvas:
		r.Title = firstNonBlank(decodeFormattedString(hit, "name"), decodeString(hit, "name"))
		r.Snippet = firstNonBlank(decodeFormattedString(hit, "problem"), decodeString(hit, "problem"))
	case ResultBacklog:
		r.Title = firstNonBlank(decodeFormattedString(hit, "title"), decodeString(hit, "title"))
		r.Snippet = firstNonBlank(decodeFormattedString(hit, "description"), decodeString(hit, "description"))
		r.Priority = decodeString(hit, "priority")
		r.Status = decodeString(hit, "status")
	}
	return r
}

func decodeString(hit meili.Hit, key string) string {
	raw, ok := hit[key]
	if !ok {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return ""
}

func decodeFormattedString(hit meili.Hit, key string) string {
	raw, ok := hit["_formatted"]
	if !ok {
		return ""
	}
	var formatted map[string]string
	if err := json.Unmarshal(raw, &formatted); err != nil {
		return ""
	}
	return strings.TrimSpace(formatted[key])
}

func firstNonBlank(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}

// IndexCanvas adds or updates a canvas in the search index.
func (m *Meili) IndexCanvas(c CanvasRecord) error {
	_, err := m.client.Index(idxCanvases).AddDocuments([]CanvasRecord{c}, nil)
	return err
}

// IndexBacklog adds or updates a backlog item in the search index.
func (m *Meili) IndexBacklog(b BacklogRecord) error {
	_, err := m.client.Index(idxBacklogs).AddDocuments([]BacklogRecord{b}, nil)
	return err
}

// DeleteCanvas removes a canvas from the search index.
func (m *Meili) DeleteCanvas(id string) error {
	_, err := m.client.Index(idxCanvases).DeleteDocument(id, nil)
	return err
}

// DeleteBacklog removes a backlog item from the search index.
func (m *Meili) DeleteBacklog(id string) error {
	_, err := m.client.Index(idxBacklogs).DeleteDocument(id, nil)
	return err
}

// IndexCanvases bulk-indexes canvases.
func (m *Meili) IndexCanvases(canvases []CanvasRecord) error {
	if len(canvases) == 0 {
		return nil
	}
	_, err := m.client.Index(idxCanvases).AddDocuments(canvases, nil)
	return err
}

// IndexBacklogs bulk-indexes backlog items.
func (m *Meili) IndexBacklogs(backlogs []BacklogRecord) error {
	if len(backlogs) == 0 {
		return nil
	}
	_, err := m.client.Index(idxBacklogs).AddDocuments(backlogs, nil)
	return err
}
