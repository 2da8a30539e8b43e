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

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/jasonsherman/curioclip-backend/internal/core/model"
	"github.com/jasonsherman/curioclip-backend/internal/core/store"
	"github.com/jasonsherman/curioclip-backend/internal/testutil"
	"github.com/stretchr/testify/assert"
)

func TestClipRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()

	clip := testutil.NewTestClip("user-1", "https://youtu.be/abc")
	assert.NoError(t, s.CreateClip(ctx, clip))

	got, err := s.GetClip(ctx, clip.Id)
	assert.NoError(t, err)
	assert.Equal(t, clip.Url, got.Url)

	got.Title = "updated"
	assert.NoError(t, s.UpdateClip(ctx, got))
	again, err := s.GetClip(ctx, clip.Id)
	assert.NoError(t, err)
	assert.Equal(t, "updated", again.Title)

	_, err = s.GetClip(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestFindReusableSourceRequiresFinishedEnrichment(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	url := "https://youtu.be/shared"

	// A clip without transcript and summary is not a donor.
	bare := testutil.NewTestClip("user-1", url)
	assert.NoError(t, s.CreateClip(ctx, bare))

	recipient := testutil.NewTestClip("user-2", url)
	assert.NoError(t, s.CreateClip(ctx, recipient))

	donor, err := s.FindReusableSource(ctx, url, recipient.Id)
	assert.NoError(t, err)
	assert.Nil(t, donor)

	enriched := testutil.NewEnrichedTestClip("user-3", url)
	assert.NoError(t, s.CreateClip(ctx, enriched))

	donor, err = s.FindReusableSource(ctx, url, recipient.Id)
	assert.NoError(t, err)
	assert.NotNil(t, donor)
	assert.Equal(t, enriched.Id, donor.Id)
}

func TestFindReusableSourcePicksNewestAndExcludesSelf(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	url := "https://youtu.be/shared"

	older := testutil.NewEnrichedTestClip("user-1", url)
	older.CreatedAt = time.Now().Add(-time.Hour)
	assert.NoError(t, s.CreateClip(ctx, older))

	newer := testutil.NewEnrichedTestClip("user-2", url)
	assert.NoError(t, s.CreateClip(ctx, newer))

	donor, err := s.FindReusableSource(ctx, url, "some-other-clip")
	assert.NoError(t, err)
	assert.Equal(t, newer.Id, donor.Id)

	// A clip never donates to itself.
	donor, err = s.FindReusableSource(ctx, url, newer.Id)
	assert.NoError(t, err)
	assert.Equal(t, older.Id, donor.Id)
}

func TestGetOrCreateCurioIsOwnerScoped(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()

	first, created, err := s.GetOrCreateCurio(ctx, &model.Curio{UserId: "user-1", Name: "Travel Hacks"})
	assert.NoError(t, err)
	assert.True(t, created)

	same, created, err := s.GetOrCreateCurio(ctx, &model.Curio{UserId: "user-1", Name: "Travel Hacks"})
	assert.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.Id, same.Id)

	// The same name under a different owner is a distinct curio.
	other, created, err := s.GetOrCreateCurio(ctx, &model.Curio{UserId: "user-2", Name: "Travel Hacks"})
	assert.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, first.Id, other.Id)
}

func TestFindCurioByNameIsGlobal(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()

	assert.NoError(t, s.CreateCurio(ctx, &model.Curio{UserId: "user-1", Name: "Cooking"}))

	found, err := s.FindCurioByName(ctx, "Cooking")
	assert.NoError(t, err)
	assert.NotNil(t, found)

	missing, err := s.FindCurioByName(ctx, "Gardening")
	assert.NoError(t, err)
	assert.Nil(t, missing)
}

func TestAttachTagIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()

	tag, err := s.GetOrCreateTag(ctx, "travel")
	assert.NoError(t, err)
	dup, err := s.GetOrCreateTag(ctx, "travel")
	assert.NoError(t, err)
	assert.Equal(t, tag.Id, dup.Id)

	assert.NoError(t, s.AttachTag(ctx, "clip-1", tag.Id))
	assert.NoError(t, s.AttachTag(ctx, "clip-1", tag.Id))

	tags, err := s.ListTagsForClip(ctx, "clip-1")
	assert.NoError(t, err)
	assert.Len(t, tags, 1)
}

func TestNearestNeighborsOrderingAndLimit(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()

	records := []*model.ClipEmbedding{
		{ClipId: "clip-a", Field: model.FieldSummary, TextChunk: "a", Vector: testutil.NewTestVector(0)},
		{ClipId: "clip-b", Field: model.FieldSummary, TextChunk: "b", Vector: testutil.NewTestVector(1)},
		{ClipId: "clip-c", Field: model.FieldSummary, TextChunk: "c", Vector: testutil.NewTestVector(2)},
	}
	assert.NoError(t, s.CreateEmbeddings(ctx, records))

	neighbors, err := s.NearestNeighbors(ctx, testutil.NewTestVector(1), 2)
	assert.NoError(t, err)
	assert.Len(t, neighbors, 2)
	assert.Equal(t, "clip-b", neighbors[0].Embedding.ClipId)
	assert.True(t, neighbors[0].Similarity > neighbors[1].Similarity)
}

func TestSetTaskStatusRecordsErrorText(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()

	task := testutil.NewTestTask("clip-1")
	assert.NoError(t, s.CreateTask(ctx, task))

	assert.NoError(t, s.SetTaskStatus(ctx, task.Id, model.TaskStatusFailed, "extraction failed"))
	got, err := s.GetTask(ctx, task.Id)
	assert.NoError(t, err)
	assert.Equal(t, model.TaskStatusFailed, got.Status)
	assert.Equal(t, "extraction failed", got.Error)

	byClip, err := s.GetTaskForClip(ctx, "clip-1")
	assert.NoError(t, err)
	assert.Equal(t, task.Id, byClip.Id)
}
