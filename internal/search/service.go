package search

import (
	"context"
	"log"
)

// Service is the facade that tries Meilisearch first and falls back to
// PG FTS.
type Service struct {
	meili *Meili
	pgfts *PgFTS
}

// NewService creates a search service. meili may be nil when
// Meilisearch is not configured.
func NewService(meili *Meili, pgfts *PgFTS) *Service {
	return &Service{meili: meili, pgfts: pgfts}
}

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

// IndexEntry pushes an entry into Meilisearch, fire-and-forget.
func (s *Service) IndexEntry(record EntryRecord) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.IndexEntry(record); err != nil {
			log.Printf("search: index entry %s: %v", record.ID, err)
		}
	}()
}

// DeleteEntry removes an entry from Meilisearch, fire-and-forget.
func (s *Service) DeleteEntry(id string) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.DeleteEntry(id); err != nil {
			log.Printf("search: delete entry %s: %v", id, err)
		}
	}()
}

// ReindexAllFromPG reloads every live entry from Postgres into
// Meilisearch. Called at startup when Meilisearch is reachable.
func (s *Service) ReindexAllFromPG(ctx context.Context) {
	if s.meili == nil || !s.meili.Healthy() || s.pgfts == nil {
		return
	}
	records, err := s.pgfts.LoadAllRecords(ctx)
	if err != nil {
		log.Printf("search: reindex load failed: %v", err)
		return
	}
	if err := s.meili.IndexEntries(records); err != nil {
		log.Printf("search: reindex entries: %v", err)
	}
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
