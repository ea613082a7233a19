// Package store persists grading outcomes as a single JSON document.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/avalos-dev/assignment-reviewer/internal/models"
)

// documentVersion is the current persisted-document schema version.
const documentVersion = 1

const cacheKey = "reviewer:results:all"

type document struct {
	Version int                   `json:"version"`
	Results []models.StoredResult `json:"results"`
}

// ResultStore owns the on-disk result collection. Records are append-only:
// every append reloads the document, adds one record and rewrites the whole
// collection atomically. The mutex spans the entire read-modify-write so
// concurrent appends from the upload path and the mail poller cannot lose
// records.
type ResultStore struct {
	path     string
	mu       sync.Mutex
	cache    *redis.Client
	cacheTTL time.Duration
	logger   zerolog.Logger
}

// NewResultStore constructs a store backed by the JSON document at path.
// A nil redis client disables the read cache.
func NewResultStore(path string, cache *redis.Client, cacheTTL time.Duration, logger zerolog.Logger) *ResultStore {
	return &ResultStore{
		path:     path,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   logger.With().Str("component", "result_store").Logger(),
	}
}

// Append adds one record to the collection. Once started the write runs to
// completion even if ctx is cancelled; cancellation of an upload request
// must not lose a grading that already happened.
func (s *ResultStore) Append(ctx context.Context, result models.StoredResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}

	doc.Results = append(doc.Results, result)
	doc.Version = documentVersion

	if err := s.persist(doc); err != nil {
		return err
	}

	s.invalidateCache()
	s.logger.Info().Str("name", result.Name).Str("file", result.FileName).Int("total", len(doc.Results)).Msg("result appended")

	return nil
}

// ReadAll returns a snapshot of the collection in insertion order.
func (s *ResultStore) ReadAll(ctx context.Context) ([]models.StoredResult, error) {
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			var results []models.StoredResult
			if unmarshalErr := json.Unmarshal([]byte(cached), &results); unmarshalErr == nil {
				s.logger.Debug().Msg("results cache hit")
				return results, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Msg("failed to read results cache")
		}
	}

	// The cache write happens under the same mutex as the load: a snapshot
	// taken outside the lock could land after a concurrent Append's
	// invalidation and pin stale results until the TTL expires.
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if payload, err := json.Marshal(doc.Results); err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store results cache")
			}
		}
	}

	return doc.Results, nil
}

// load reads the persisted document. An absent file is an empty collection.
// A legacy bare-array document is read as version 1 and rewritten in the
// wrapped form on the next append.
func (s *ResultStore) load() (document, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return document{Version: documentVersion, Results: []models.StoredResult{}}, nil
		}
		return document{}, fmt.Errorf("read result store: %w", err)
	}

	if len(data) == 0 {
		return document{Version: documentVersion, Results: []models.StoredResult{}}, nil
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err == nil && doc.Version > 0 {
		if doc.Results == nil {
			doc.Results = []models.StoredResult{}
		}
		return doc, nil
	}

	var legacy []models.StoredResult
	if err := json.Unmarshal(data, &legacy); err != nil {
		return document{}, fmt.Errorf("parse result store: %w", err)
	}

	return document{Version: documentVersion, Results: legacy}, nil
}

// persist rewrites the whole document atomically via a temp file rename.
func (s *ResultStore) persist(doc document) error {
	payload, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result store: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".results-*.json")
	if err != nil {
		return fmt.Errorf("create temp result store: %w", err)
	}

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write result store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close result store: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace result store: %w", err)
	}

	return nil
}

func (s *ResultStore) invalidateCache() {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(context.Background(), cacheKey).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to invalidate results cache")
	}
}
