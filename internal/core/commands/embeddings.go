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

package commands

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jasonsherman/curioclip-backend/internal/cloud"
	"github.com/jasonsherman/curioclip-backend/internal/core/cor"
	"github.com/jasonsherman/curioclip-backend/internal/core/model"
	"github.com/jasonsherman/curioclip-backend/internal/core/store"
	"github.com/jasonsherman/curioclip-backend/internal/core/text"
)

// BuildClipEmbeddings generates the full embedding set for a clip: one
// vector each for the non-empty title, summary, and description, plus
// one per transcript chunk. The single batched embed call keeps the
// input order, so record fields line up with their vectors by index.
// Shared between the pipeline stage and the dedup backfill.
func BuildClipEmbeddings(
	ctx context.Context,
	clip *model.Clip,
	embedder cloud.TextEmbedder,
	chunkSize int,
	overlapRatio float64,
) ([]*model.ClipEmbedding, error) {
	type pending struct {
		field model.EmbeddingField
		index int
		chunk string
	}
	inputs := make([]pending, 0)
	if clip.Title != "" {
		inputs = append(inputs, pending{field: model.FieldTitle, chunk: clip.Title})
	}
	if clip.Summary != "" {
		inputs = append(inputs, pending{field: model.FieldSummary, chunk: clip.Summary})
	}
	if clip.Description != "" {
		inputs = append(inputs, pending{field: model.FieldDescription, chunk: clip.Description})
	}
	if clip.Transcript != "" {
		chunks, err := text.CollectChunks(clip.Transcript, chunkSize, overlapRatio)
		if err != nil {
			return nil, err
		}
		for i, chunk := range chunks {
			inputs = append(inputs, pending{field: model.FieldTranscriptChunk, index: i, chunk: chunk})
		}
	}
	if len(inputs) == 0 {
		return nil, nil
	}

	texts := make([]string, len(inputs))
	for i, in := range inputs {
		texts[i] = in.chunk
	}
	vectors, err := embedder.Embed(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(inputs) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d inputs", len(vectors), len(inputs))
	}

	records := make([]*model.ClipEmbedding, len(inputs))
	for i, in := range inputs {
		records[i] = &model.ClipEmbedding{
			Id:         uuid.NewString(),
			ClipId:     clip.Id,
			Field:      in.field,
			ChunkIndex: in.index,
			TextChunk:  in.chunk,
			Vector:     vectors[i],
		}
	}
	return records, nil
}

// EmbeddingGenerator is the final enrichment stage: it embeds the clip's
// text fields and persists the records that power similarity search.
type EmbeddingGenerator struct {
	cor.BaseCommand
	embedder     cloud.TextEmbedder
	recordStore  store.RecordStore
	chunkSize    int
	overlapRatio float64
}

func NewEmbeddingGenerator(
	name string,
	embedder cloud.TextEmbedder,
	recordStore store.RecordStore,
	chunkSize int,
	overlapRatio float64,
) *EmbeddingGenerator {
	if chunkSize <= 0 {
		chunkSize = text.DefaultChunkSize
	}
	if overlapRatio <= 0 {
		overlapRatio = text.DefaultOverlapRatio
	}
	return &EmbeddingGenerator{
		BaseCommand:  *cor.NewBaseCommand(name),
		embedder:     embedder,
		recordStore:  recordStore,
		chunkSize:    chunkSize,
		overlapRatio: overlapRatio,
	}
}

// IsExecutable skips the stage when the dedup engine already copied the
// donor's embeddings.
func (e *EmbeddingGenerator) IsExecutable(context cor.Context) bool {
	return e.BaseCommand.IsExecutable(context) && !IsReused(context)
}

func (e *EmbeddingGenerator) Execute(context cor.Context) {
	ctx := context.GetContext()
	clip, ok := context.Get(e.GetInputParam()).(*model.Clip)
	if !ok {
		context.AddError(e.GetName(), fmt.Errorf("input is not a clip"))
		e.GetErrorCounter().Add(ctx, 1)
		return
	}

	records, err := BuildClipEmbeddings(ctx, clip, e.embedder, e.chunkSize, e.overlapRatio)
	if err != nil {
		context.AddError(e.GetName(), err)
		e.GetErrorCounter().Add(ctx, 1)
		return
	}
	if len(records) > 0 {
		if err := e.recordStore.CreateEmbeddings(ctx, records); err != nil {
			context.AddError(e.GetName(), err)
			e.GetErrorCounter().Add(ctx, 1)
			return
		}
	}

	context.Add(e.GetOutputParam(), clip)
	e.GetSuccessCounter().Add(ctx, 1)
}
