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

package services_test

import (
	"context"
	"testing"

	"github.com/jasonsherman/curioclip-backend/internal/cloud"
	"github.com/jasonsherman/curioclip-backend/internal/core/model"
	"github.com/jasonsherman/curioclip-backend/internal/core/services"
	"github.com/jasonsherman/curioclip-backend/internal/core/store"
	"github.com/jasonsherman/curioclip-backend/internal/testutil"
	"github.com/stretchr/testify/assert"
)

// fakeEmbedder maps known texts to fixed vectors so similarity ordering
// is deterministic.
type fakeEmbedder struct {
	vectors map[string][]float64
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, text := range texts {
		v, ok := f.vectors[text]
		if !ok {
			v = testutil.NewTestVector(999)
		}
		out[i] = v
	}
	return out, nil
}

func (f *fakeEmbedder) Dimensions() int { return model.EmbeddingDimensions }

func newSearchFixture(t *testing.T) (*services.SearchService, *store.MemoryStore) {
	t.Helper()
	memory := store.NewMemoryStore()

	records := []*model.ClipEmbedding{
		{ClipId: "clip-a", Field: model.FieldSummary, ChunkIndex: 0, TextChunk: "packing tips", Vector: testutil.NewTestVector(0)},
		{ClipId: "clip-a", Field: model.FieldTranscriptChunk, ChunkIndex: 1, TextChunk: "roll your clothes", Vector: testutil.NewTestVector(0)},
		{ClipId: "clip-b", Field: model.FieldTitle, ChunkIndex: 0, TextChunk: "pasta recipe", Vector: testutil.NewTestVector(500)},
	}
	assert.NoError(t, memory.CreateEmbeddings(context.Background(), records))

	embedder := &fakeEmbedder{vectors: map[string][]float64{
		"packing": testutil.NewTestVector(0),
	}}
	svc := services.NewSearchService(embedder, memory, cloud.Search{DefaultLimit: 10, DefaultThreshold: 0.5})
	return svc, memory
}

func TestSearchFiltersByThreshold(t *testing.T) {
	svc, _ := newSearchFixture(t)

	matches, err := svc.Search(context.Background(), "packing", 0, -1)
	assert.NoError(t, err)

	// Only clip-a's records align with the query vector; clip-b is
	// nearly orthogonal and falls below the threshold.
	assert.Len(t, matches, 2)
	for _, m := range matches {
		assert.Equal(t, "clip-a", m.ClipId)
		assert.GreaterOrEqual(t, m.PercentMatch, 50.0)
		assert.LessOrEqual(t, m.PercentMatch, 100.0)
	}
}

func TestSearchZeroThresholdReturnsEverything(t *testing.T) {
	svc, _ := newSearchFixture(t)

	matches, err := svc.Search(context.Background(), "packing", 0, 0)
	assert.NoError(t, err)
	assert.Len(t, matches, 3)

	// Best first, and an identical vector is a perfect match.
	assert.Equal(t, "clip-a", matches[0].ClipId)
	assert.Equal(t, 100.0, matches[0].PercentMatch)
	assert.GreaterOrEqual(t, matches[0].PercentMatch, matches[1].PercentMatch)
}

func TestSearchHonorsLimit(t *testing.T) {
	svc, _ := newSearchFixture(t)

	matches, err := svc.Search(context.Background(), "packing", 1, 0)
	assert.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestSearchHighThresholdReturnsEmpty(t *testing.T) {
	svc, _ := newSearchFixture(t)

	matches, err := svc.Search(context.Background(), "packing", 0, 0.999999)
	assert.NoError(t, err)
	assert.Empty(t, matches)
}

func TestFilterByOwnerKeepsOnlyOwnedClips(t *testing.T) {
	svc, memory := newSearchFixture(t)

	clipA := testutil.NewTestClip("user-1", "https://youtu.be/aaa")
	clipA.Id = "clip-a"
	assert.NoError(t, memory.CreateClip(context.Background(), clipA))
	clipB := testutil.NewTestClip("user-2", "https://youtu.be/bbb")
	clipB.Id = "clip-b"
	assert.NoError(t, memory.CreateClip(context.Background(), clipB))

	matches := []*model.SearchMatch{
		{ClipId: "clip-a", PercentMatch: 90.0},
		{ClipId: "clip-b", PercentMatch: 80.0},
		{ClipId: "clip-a", PercentMatch: 70.0},
		{ClipId: "clip-gone", PercentMatch: 60.0},
	}
	out, err := svc.FilterByOwner(context.Background(), matches, "user-1")
	assert.NoError(t, err)

	// Both clip-a matches survive, in order; the other owner's clip and
	// the deleted clip are dropped.
	assert.Len(t, out, 2)
	assert.Equal(t, 90.0, out[0].PercentMatch)
	assert.Equal(t, 70.0, out[1].PercentMatch)
}

func TestBestPerClipCollapsesDuplicates(t *testing.T) {
	matches := []*model.SearchMatch{
		{ClipId: "clip-a", PercentMatch: 99.0},
		{ClipId: "clip-a", PercentMatch: 88.0},
		{ClipId: "clip-b", PercentMatch: 75.5},
	}
	out := services.BestPerClip(matches)
	assert.Len(t, out, 2)
	assert.Equal(t, "clip-a", out[0].ClipId)
	assert.Equal(t, 99.0, out[0].PercentMatch)
	assert.Equal(t, "clip-b", out[1].ClipId)
}

func TestPercentMatchRounding(t *testing.T) {
	assert.Equal(t, 87.65, model.PercentMatch(0.87654))
	assert.Equal(t, 100.0, model.PercentMatch(1.0))
	assert.Equal(t, 0.0, model.PercentMatch(0.0))
}
