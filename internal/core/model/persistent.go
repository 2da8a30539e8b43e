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

// Package model defines the data structures for the application. This file
// holds the persistent entities: the clip, its categories and tags, the
// per-field embedding records, and the processing task that tracks one
// asynchronous enrichment run.
package model

import "time"

// Platform identifies the video platform a clip was saved from. Detection
// is by URL substring; anything unrecognized still gets processed under
// PlatformUnknown.
type Platform string

const (
	PlatformYouTube   Platform = "youtube"
	PlatformTikTok    Platform = "tiktok"
	PlatformInstagram Platform = "instagram"
	PlatformUnknown   Platform = "unknown"
)

// EmbeddingField names the clip text field an embedding record was
// generated from. Transcripts are chunked, the other fields embed whole.
type EmbeddingField string

const (
	FieldTitle           EmbeddingField = "title"
	FieldSummary         EmbeddingField = "summary"
	FieldDescription     EmbeddingField = "description"
	FieldTranscriptChunk EmbeddingField = "transcript_chunk"
)

// TaskStatus is the processing task state machine:
// pending -> processing -> {completed | failed}. Failed is terminal and
// carries the error text; there is no automatic re-queue.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// EmbeddingDimensions is the fixed width of every stored vector. A vector
// of any other length is rejected, never truncated or padded.
const EmbeddingDimensions = 1536

// Clip is a saved reference to a source video plus the text and media
// artifacts derived from it. The enrichment pipeline mutates a clip
// incrementally across stages; each field write commits independently.
// The source URL is not unique across owners, but dedup keys off it.
type Clip struct {
	Id              string    `json:"id" bigquery:"id"`
	UserId          string    `json:"user_id" bigquery:"user_id"`
	CurioId         string    `json:"curio_id,omitempty" bigquery:"curio_id"`
	Url             string    `json:"url" bigquery:"url"`
	Platform        Platform  `json:"platform" bigquery:"platform"`
	PlatformVideoId string    `json:"platform_video_id" bigquery:"platform_video_id"`
	Title           string    `json:"title" bigquery:"title"`
	Description     string    `json:"description" bigquery:"description"`
	Summary         string    `json:"summary" bigquery:"summary"`
	Transcript      string    `json:"transcript" bigquery:"transcript"`
	ThumbnailUrl    string    `json:"thumbnail_url" bigquery:"thumbnail_url"`
	IsFavorite      bool      `json:"is_favorite" bigquery:"is_favorite"`
	CreatedAt       time.Time `json:"created_at" bigquery:"created_at"`
}

// Curio is an owner-defined or AI-suggested grouping of clips. Names are
// unique per get-or-create call within an owner, not globally.
type Curio struct {
	Id          string    `json:"id" bigquery:"id"`
	UserId      string    `json:"user_id" bigquery:"user_id"`
	Name        string    `json:"name" bigquery:"name"`
	Description string    `json:"description" bigquery:"description"`
	IsPublic    bool      `json:"is_public" bigquery:"is_public"`
	CreatedAt   time.Time `json:"created_at" bigquery:"created_at"`
}

// Tag is a short free-text label, globally deduplicated by name.
type Tag struct {
	Id   string `json:"id" bigquery:"id"`
	Name string `json:"name" bigquery:"name"`
}

// ClipTag associates a clip with a tag. The pair is unique; association
// is idempotent so re-running a stage never duplicates it.
type ClipTag struct {
	ClipId string `json:"clip_id" bigquery:"clip_id"`
	TagId  string `json:"tag_id" bigquery:"tag_id"`
}

// ClipEmbedding is one vector representation of one text slice belonging
// to one clip field. For chunked fields the chunk indices are contiguous
// from zero in generation order; whole-field embeddings use index zero.
type ClipEmbedding struct {
	Id         string         `json:"id" bigquery:"id"`
	ClipId     string         `json:"clip_id" bigquery:"clip_id"`
	Field      EmbeddingField `json:"field" bigquery:"field"`
	ChunkIndex int            `json:"chunk_index" bigquery:"chunk_index"`
	TextChunk  string         `json:"text_chunk" bigquery:"text_chunk"`
	Vector     []float64      `json:"vector" bigquery:"vector"`
}

// ClipProcessingTask tracks the lifecycle of one enrichment run for one
// clip. Status is the only progress signal a polling client sees, so all
// four states are persisted.
type ClipProcessingTask struct {
	Id             string     `json:"id" bigquery:"id"`
	ClipId         string     `json:"clip_id" bigquery:"clip_id"`
	QueueMessageId string     `json:"queue_message_id" bigquery:"queue_message_id"`
	Status         TaskStatus `json:"status" bigquery:"status"`
	Error          string     `json:"error,omitempty" bigquery:"error"`
	CreatedAt      time.Time  `json:"created_at" bigquery:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" bigquery:"updated_at"`
}
