// Copyright 2025 Jason Sherman
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package services contains the business logic sitting between the API
// handlers and the record store. This file implements semantic search:
// the query text is embedded with the same model the pipeline uses, the
// store answers the nearest-neighbor question, and matches below the
// similarity threshold are discarded.
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/jasonsherman/curioclip-backend/internal/cloud"
	"github.com/jasonsherman/curioclip-backend/internal/core/model"
	"github.com/jasonsherman/curioclip-backend/internal/core/store"
)

// SearchService answers similarity queries over the stored clip
// embeddings.
type SearchService struct {
	Embedder         cloud.TextEmbedder
	Store            store.EmbeddingStore
	Clips            store.ClipStore
	DefaultLimit     int
	DefaultThreshold float64
}

func NewSearchService(embedder cloud.TextEmbedder, recordStore store.RecordStore, cfg cloud.Search) *SearchService {
	limit := cfg.DefaultLimit
	if limit <= 0 {
		limit = 30
	}
	return &SearchService{
		Embedder:         embedder,
		Store:            recordStore,
		Clips:            recordStore,
		DefaultLimit:     limit,
		DefaultThreshold: cfg.DefaultThreshold,
	}
}

// Search embeds the query and returns the matches at or above the
// similarity threshold, best first. Zero limit and negative threshold
// fall back to the configured defaults. An empty result is a valid
// answer, not an error.
func (s *SearchService) Search(ctx context.Context, query string, limit int, threshold float64) ([]*model.SearchMatch, error) {
	if limit <= 0 {
		limit = s.DefaultLimit
	}
	if threshold < 0 {
		threshold = s.DefaultThreshold
	}

	vectors, err := s.Embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embedder returned %d vectors for one query", len(vectors))
	}

	neighbors, err := s.Store.NearestNeighbors(ctx, vectors[0], limit)
	if err != nil {
		return nil, fmt.Errorf("nearest neighbor query failed: %w", err)
	}

	out := make([]*model.SearchMatch, 0, len(neighbors))
	for _, n := range neighbors {
		if n.Similarity < threshold {
			continue
		}
		out = append(out, &model.SearchMatch{
			ClipId:       n.Embedding.ClipId,
			EmbeddingId:  n.Embedding.Id,
			Field:        n.Embedding.Field,
			ChunkIndex:   n.Embedding.ChunkIndex,
			TextChunk:    n.Embedding.TextChunk,
			PercentMatch: model.PercentMatch(n.Similarity),
		})
	}
	return out, nil
}

// FilterByOwner keeps only the matches whose clip belongs to userId.
// Embedding records carry no owner, so this resolves each distinct clip
// once against the clip store.
func (s *SearchService) FilterByOwner(ctx context.Context, matches []*model.SearchMatch, userId string) ([]*model.SearchMatch, error) {
	owned := make(map[string]bool, len(matches))
	out := make([]*model.SearchMatch, 0, len(matches))
	for _, m := range matches {
		keep, seen := owned[m.ClipId]
		if !seen {
			clip, err := s.Clips.GetClip(ctx, m.ClipId)
			if errors.Is(err, store.ErrNotFound) {
				owned[m.ClipId] = false
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("failed to resolve clip %s: %w", m.ClipId, err)
			}
			keep = clip.UserId == userId
			owned[m.ClipId] = keep
		}
		if keep {
			out = append(out, m)
		}
	}
	return out, nil
}

// BestPerClip collapses matches to the highest-scoring one per clip,
// preserving the input's best-first ordering.
func BestPerClip(matches []*model.SearchMatch) []*model.SearchMatch {
	seen := make(map[string]bool, len(matches))
	out := make([]*model.SearchMatch, 0, len(matches))
	for _, m := range matches {
		if seen[m.ClipId] {
			continue
		}
		seen[m.ClipId] = true
		out = append(out, m)
	}
	return out
}
