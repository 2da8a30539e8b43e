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

// Package store defines the record store contract the pipeline persists
// through, plus its BigQuery and in-memory implementations. The pipeline
// only ever sees these interfaces, so tests and local runs swap the
// backing store without touching the commands.
package store

import (
	"context"
	"errors"

	"github.com/jasonsherman/curioclip-backend/internal/core/model"
)

// ErrNotFound is returned by point lookups when no record matches.
var ErrNotFound = errors.New("record not found")

// EmbeddingDistance pairs a stored embedding record with its similarity
// to a query vector. Higher similarity means a closer match.
type EmbeddingDistance struct {
	Embedding  *model.ClipEmbedding
	Similarity float64
}

// ClipStore persists clips and answers the dedup donor query.
type ClipStore interface {
	CreateClip(ctx context.Context, clip *model.Clip) error
	GetClip(ctx context.Context, id string) (*model.Clip, error)
	UpdateClip(ctx context.Context, clip *model.Clip) error
	ListClipsByUser(ctx context.Context, userId string) ([]*model.Clip, error)

	// FindReusableSource returns the most recently created clip other
	// than excludeId sharing the same URL that already has a non-empty
	// transcript and summary, or nil when no such donor exists.
	FindReusableSource(ctx context.Context, url string, excludeId string) (*model.Clip, error)
}

// CurioStore persists categories. Name lookups support both the
// owner-scoped get-or-create path and the global exact-name assignment
// path.
type CurioStore interface {
	CreateCurio(ctx context.Context, curio *model.Curio) error
	GetCurio(ctx context.Context, id string) (*model.Curio, error)
	ListCurioNames(ctx context.Context, userId string) ([]string, error)

	// FindCurioByName returns the first curio with the exact name,
	// regardless of owner, or nil when none exists.
	FindCurioByName(ctx context.Context, name string) (*model.Curio, error)

	// GetOrCreateCurio returns the owner's curio with the given name,
	// creating it from the template when absent. The boolean reports
	// whether a create happened.
	GetOrCreateCurio(ctx context.Context, template *model.Curio) (*model.Curio, bool, error)
}

// TagStore persists globally-named tags and the idempotent clip
// associations.
type TagStore interface {
	GetOrCreateTag(ctx context.Context, name string) (*model.Tag, error)

	// AttachTag associates a tag with a clip. Re-attaching an existing
	// pair is a no-op, so copies under races stay safe.
	AttachTag(ctx context.Context, clipId string, tagId string) error
	ListTagsForClip(ctx context.Context, clipId string) ([]*model.Tag, error)
}

// EmbeddingStore persists embedding records and serves the raw
// nearest-neighbor query. No owner scoping happens here; callers filter
// afterward.
type EmbeddingStore interface {
	CreateEmbeddings(ctx context.Context, embeddings []*model.ClipEmbedding) error
	ListEmbeddingsForClip(ctx context.Context, clipId string) ([]*model.ClipEmbedding, error)

	// NearestNeighbors returns up to limit embedding records ordered by
	// descending cosine similarity to the query vector.
	NearestNeighbors(ctx context.Context, vector []float64, limit int) ([]*EmbeddingDistance, error)
}

// TaskStore persists processing tasks. Every state transition is written
// through so a polling client can observe progress.
type TaskStore interface {
	CreateTask(ctx context.Context, task *model.ClipProcessingTask) error
	GetTask(ctx context.Context, id string) (*model.ClipProcessingTask, error)
	GetTaskForClip(ctx context.Context, clipId string) (*model.ClipProcessingTask, error)

	// SetTaskStatus transitions a task and records the failure text when
	// the status is failed.
	SetTaskStatus(ctx context.Context, id string, status model.TaskStatus, errText string) error
}

// RecordStore aggregates every persistence contract the pipeline needs.
type RecordStore interface {
	ClipStore
	CurioStore
	TagStore
	EmbeddingStore
	TaskStore
}
