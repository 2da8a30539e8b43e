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

// Package workflow defines the high-level business logic orchestrations,
// combining commands into coherent pipelines. This file implements the
// clip enrichment workflow that runs once per queue submission.
package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jasonsherman/curioclip-backend/internal/cloud"
	"github.com/jasonsherman/curioclip-backend/internal/core/commands"
	"github.com/jasonsherman/curioclip-backend/internal/core/cor"
	"github.com/jasonsherman/curioclip-backend/internal/core/media"
	"github.com/jasonsherman/curioclip-backend/internal/core/model"
	"github.com/jasonsherman/curioclip-backend/internal/core/store"
)

// ClipEnrichmentWorkflow orchestrates one enrichment run: load the clip
// and task, mark the task processing, try to reuse a finished clip with
// the same URL, and otherwise fetch, transcribe, summarize, categorize,
// host the thumbnail, and embed. The workflow, not the chain, owns the
// terminal task transition so completed or failed is recorded on every
// exit path, including mid-chain errors.
type ClipEnrichmentWorkflow struct {
	cor.BaseCommand
	config      *cloud.Config
	recordStore store.RecordStore
	fetcher     media.Fetcher
	transcriber cloud.SpeechTranscriber
	embedder    cloud.TextEmbedder
	blobStore   cloud.BlobStore
	agents      []cloud.CompletionModel
	chain       cor.Chain
}

// Execute runs the enrichment chain and then writes the terminal task
// status. Failed runs are terminal: the error text lands on the task and
// the message is never re-queued.
func (w *ClipEnrichmentWorkflow) Execute(context cor.Context) {
	w.chain.Execute(context)

	task := commands.GetTask(context)
	if task == nil {
		// The trigger reader failed before the task could be loaded.
		// There is nothing to transition; the submission is logged lost.
		slog.Error("enrichment run finished without a task",
			"workflow", w.GetName(), "error", context.FirstError())
		return
	}

	ctx := context.GetContext()
	if context.HasErrors() {
		errText := context.FirstError().Error()
		if err := w.recordStore.SetTaskStatus(ctx, task.Id, model.TaskStatusFailed, errText); err != nil {
			slog.Error("failed to mark task failed",
				"workflow", w.GetName(), "task", task.Id, "error", err)
		}
		return
	}
	if err := w.recordStore.SetTaskStatus(ctx, task.Id, model.TaskStatusCompleted, ""); err != nil {
		slog.Error("failed to mark task completed",
			"workflow", w.GetName(), "task", task.Id, "error", err)
	}
}

// Process runs one enrichment synchronously for the given clip and
// task, outside the queue path. It builds the same trigger payload the
// listener would deliver and returns the first chain error, if any. The
// terminal task transition still happens inside Execute.
func (w *ClipEnrichmentWorkflow) Process(ctx context.Context, clipId string, taskId string) error {
	payload, err := json.Marshal(model.ClipSubmission{ClipId: clipId, TaskId: taskId})
	if err != nil {
		return fmt.Errorf("failed to encode submission: %w", err)
	}

	runContext := cor.NewBaseContext()
	defer runContext.Close()
	runContext.SetContext(ctx)
	runContext.Add(cor.CtxIn, string(payload))

	w.Execute(runContext)
	return runContext.FirstError()
}

// initializeChain builds the command sequence. The reuse check runs
// before any expensive stage; when it clones a donor, the remaining
// stages skip themselves and the run completes immediately.
func (w *ClipEnrichmentWorkflow) initializeChain() error {
	out := cor.NewBaseChain(w.GetName())

	out.AddCommand(commands.NewClipTriggerReader("read-clip-trigger", w.recordStore))
	out.AddCommand(commands.NewTaskStatusSetter("mark-task-processing", w.recordStore, model.TaskStatusProcessing))
	out.AddCommand(commands.NewReuseCheck(
		"reuse-existing-enrichment",
		w.recordStore,
		w.blobStore,
		w.config.Storage.ThumbnailBucket,
		w.embedder,
		w.fetcher,
		w.config.Chunking.ChunkSize,
		w.config.Chunking.OverlapRatio,
	))
	out.AddCommand(commands.NewMediaFetch("fetch-media", w.fetcher, w.recordStore))
	out.AddCommand(commands.NewTranscribe("transcribe-audio", w.transcriber, w.recordStore))

	summaryCreator, err := commands.NewSummaryCreator(
		"generate-clip-summary",
		w.agents,
		w.config.PromptTemplates.SummaryPrompt,
		w.recordStore,
	)
	if err != nil {
		return fmt.Errorf("failed to build summary creator: %w", err)
	}
	out.AddCommand(summaryCreator)

	out.AddCommand(commands.NewCategorize("apply-tags-and-curio", w.recordStore))
	out.AddCommand(commands.NewThumbnailHost(
		"host-thumbnail",
		w.blobStore,
		w.config.Storage.ThumbnailBucket,
		w.recordStore,
	))
	out.AddCommand(commands.NewEmbeddingGenerator(
		"generate-embeddings",
		w.embedder,
		w.recordStore,
		w.config.Chunking.ChunkSize,
		w.config.Chunking.OverlapRatio,
	))

	w.chain = out
	return nil
}

// NewClipEnrichmentWorkflow constructs the workflow from the shared
// service clients and record store. The ranked agent list becomes the
// summarizer's fallback order; embeddingModelName selects the configured
// embedding model.
func NewClipEnrichmentWorkflow(
	config *cloud.Config,
	serviceClients *cloud.ServiceClients,
	recordStore store.RecordStore,
	fetcher media.Fetcher,
	transcriber cloud.SpeechTranscriber,
	embeddingModelName string,
) (*ClipEnrichmentWorkflow, error) {
	embedder, ok := serviceClients.EmbeddingModels[embeddingModelName]
	if !ok {
		return nil, fmt.Errorf("embedding model %q is not configured", embeddingModelName)
	}

	agents := make([]cloud.CompletionModel, 0, len(serviceClients.RankedAgents))
	for _, agent := range serviceClients.RankedAgents {
		agents = append(agents, agent)
	}
	return NewClipEnrichmentWorkflowFromParts(
		config, recordStore, fetcher, transcriber, embedder, serviceClients.BlobStore, agents)
}

// NewClipEnrichmentWorkflowFromParts wires the workflow from its
// individual collaborators. Tests substitute fakes here; the server path
// goes through NewClipEnrichmentWorkflow.
func NewClipEnrichmentWorkflowFromParts(
	config *cloud.Config,
	recordStore store.RecordStore,
	fetcher media.Fetcher,
	transcriber cloud.SpeechTranscriber,
	embedder cloud.TextEmbedder,
	blobStore cloud.BlobStore,
	agents []cloud.CompletionModel,
) (*ClipEnrichmentWorkflow, error) {
	if len(agents) == 0 {
		return nil, fmt.Errorf("no agent models configured")
	}

	w := &ClipEnrichmentWorkflow{
		BaseCommand: *cor.NewBaseCommand("clip-enrichment-pipeline"),
		config:      config,
		recordStore: recordStore,
		fetcher:     fetcher,
		transcriber: transcriber,
		embedder:    embedder,
		blobStore:   blobStore,
		agents:      agents,
	}
	if err := w.initializeChain(); err != nil {
		return nil, err
	}
	return w, nil
}
