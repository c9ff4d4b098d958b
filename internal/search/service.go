// Package search provides full-text search over canvases and backlog
// items, preferring Meilisearch with a PostgreSQL FTS fallback.
package search

import (
	"context"
	"log"
)

// Service is the facade that tries Meilisearch first and falls back to PG FTS.
type Service struct {
	meili *Meili
	pgfts *PgFTS
}

// NewService creates a search service. meili may be nil if Meilisearch is not configured.
func NewService(meili *Meili, pgfts *PgFTS) *Service {
	return &Service{meili: meili, pgfts: pgfts}
}

// Search tries Meilisearch if healthy, otherwise falls back to PG FTS.
func (s *Service) Search(q Query) Response {
	if s.meili != nil && s.meili.Healthy() {
		results, total, err := s.meili.Search(q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text}
		}
		log.Printf("search: meilisearch error, falling back to pgfts: %v", err)
	}

	results, total, err := s.pgfts.Search(q)
	if err != nil {
		log.Printf("search: pgfts error: %v", err)
		return Response{Results: []Result{}, Total: 0, Query: q.Text}
	}
	return Response{Results: nonNil(results), Total: total, Query: q.Text}
}

// IndexCanvas indexes a canvas (fire-and-forget to Meilisearch).
func (s *Service) IndexCanvas(c CanvasRecord) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.IndexCanvas(c); err != nil {
			log.Printf("search: index canvas %s: %v", c.ID, err)
		}
	}()
}

// IndexBacklog indexes a backlog item (fire-and-forget to Meilisearch).
func (s *Service) IndexBacklog(b BacklogRecord) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.IndexBacklog(b); err != nil {
			log.Printf("search: index backlog %s: %v", b.ID, err)
		}
	}()
}

// DeleteCanvas removes a canvas from the search index (fire-and-forget).
func (s *Service) DeleteCanvas(id string) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.DeleteCanvas(id); err != nil {
			log.Printf("search: delete canvas %s: %v", id, err)
		}
	}()
}

// DeleteBacklog removes a backlog item from the search index (fire-and-forget).
func (s *Service) DeleteBacklog(id string) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.DeleteBacklog(id); err != nil {
			log.Printf("search: delete backlog %s: %v", id, err)
		}
	}()
}

// ReindexAllFromPG reindexes all searchable entities from PostgreSQL
// into Meilisearch. Called at startup when Meilisearch is healthy.
func (s *Service) ReindexAllFromPG(ctx context.Context) {
	if s.meili == nil || !s.meili.Healthy() || s.pgfts == nil {
		return
	}

	canvases, backlogs, err := s.pgfts.LoadAllRecords(ctx)
	if err != nil {
		log.Printf("search: reindex load failed: %v", err)
		return
	}

	if err := s.meili.IndexCanvases(canvases); err != nil {
		log.Printf("search: reindex canvases: %v", err)
	}
	if err := s.meili.IndexBacklogs(backlogs); err != nil {
		log.Printf("search: reindex backlogs: %v", err)
	}
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
