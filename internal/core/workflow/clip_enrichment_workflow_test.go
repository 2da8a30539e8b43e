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

// Package workflow_test runs the enrichment pipeline end to end against
// an in-memory store and deterministic fakes for every cloud
// collaborator, covering the happy path, mid-chain failure, and the
// dedup short-circuit.
package workflow_test

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/jasonsherman/curioclip-backend/internal/cloud"
	"github.com/jasonsherman/curioclip-backend/internal/core/cor"
	"github.com/jasonsherman/curioclip-backend/internal/core/model"
	"github.com/jasonsherman/curioclip-backend/internal/core/store"
	"github.com/jasonsherman/curioclip-backend/internal/core/workflow"
	"github.com/jasonsherman/curioclip-backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/contrib/bridges/otelslog"
)

const tName = "github.com/jasonsherman/curioclip-backend/internal/core/workflow"

var logger = otelslog.NewLogger(tName)

func TestMain(m *testing.M) {
	logger.Info("starting enrichment workflow test suite")
	os.Exit(m.Run())
}

const summaryResponse = `{
  "one_line_summary": "A traveler shows five tricks for packing a carry-on.",
  "main_tip_or_product": "roll clothes instead of folding",
  "tags": ["travel", "packing"],
  "assigned_curio": "Other",
  "suggested_curio": "Travel Hacks",
  "description": "The video demonstrates rolling techniques and compression cubes."
}`

// writeJPEG emits a small real JPEG so the compression stage has
// something decodable to work on.
func writeJPEG(w io.Writer) error {
	img := image.NewRGBA(image.Rect(0, 0, 64, 48))
	for x := 0; x < 64; x++ {
		for y := 0; y < 48; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 4), G: uint8(y * 5), B: 200, A: 255})
		}
	}
	return jpeg.Encode(w, img, nil)
}

// fakeFetcher writes real temp files so the cleanup contract can be
// verified, and counts calls so the dedup path can prove it never ran.
type fakeFetcher struct {
	t       *testing.T
	calls   int
	created []string
	err     error
}

func (f *fakeFetcher) Fetch(_ context.Context, _ string) (*model.FetchResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}

	audio, err := os.CreateTemp("", "fake-audio-*.mp3")
	assert.NoError(f.t, err)
	_, err = audio.WriteString("not really audio")
	assert.NoError(f.t, err)
	assert.NoError(f.t, audio.Close())

	thumb, err := os.CreateTemp("", "fake-thumb-*.jpg")
	assert.NoError(f.t, err)
	assert.NoError(f.t, writeJPEG(thumb))
	assert.NoError(f.t, thumb.Close())

	f.created = append(f.created, audio.Name(), thumb.Name())
	return &model.FetchResult{
		AudioPath:     audio.Name(),
		ThumbnailPath: thumb.Name(),
		ThumbnailUrl:  "https://i.ytimg.com/vi/abc123/hqdefault.jpg",
		Title:         "Five Packing Tricks",
		Platform:      model.PlatformYouTube,
		VideoId:       "abc123",
	}, nil
}

type fakeTranscriber struct {
	text string
	err  error
}

func (f *fakeTranscriber) Transcribe(_ context.Context, _ string) (string, error) {
	return f.text, f.err
}

type fakeEmbedder struct{}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i := range texts {
		out[i] = testutil.NewTestVector(i)
	}
	return out, nil
}

func (f *fakeEmbedder) Dimensions() int { return model.EmbeddingDimensions }

type fakeBlobStore struct {
	uploads map[string]string
}

func (f *fakeBlobStore) Upload(_ context.Context, localPath string, objectName string, bucket string) (string, error) {
	if f.uploads == nil {
		f.uploads = make(map[string]string)
	}
	f.uploads[objectName] = localPath
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", bucket, objectName), nil
}

func (f *fakeBlobStore) Download(_ context.Context, _ string, _ string) ([]byte, error) {
	return nil, errors.New("download not supported")
}

type fakeAgent struct {
	response string
}

func (f *fakeAgent) Name() string { return "fake-agent" }

func (f *fakeAgent) Complete(_ context.Context, _ string) (string, error) {
	return f.response, nil
}

func testConfig() *cloud.Config {
	cfg := cloud.NewConfig()
	cfg.Storage.ThumbnailBucket = "test-thumbnails"
	cfg.Chunking = cloud.Chunking{ChunkSize: 40, OverlapRatio: 0.2}
	return cfg
}

func newWorkflow(t *testing.T, memory *store.MemoryStore, fetcher *fakeFetcher, transcriber *fakeTranscriber) (*workflow.ClipEnrichmentWorkflow, *fakeBlobStore) {
	t.Helper()
	blob := &fakeBlobStore{}
	w, err := workflow.NewClipEnrichmentWorkflowFromParts(
		testConfig(), memory, fetcher, transcriber, &fakeEmbedder{}, blob,
		[]cloud.CompletionModel{&fakeAgent{response: summaryResponse}})
	assert.NoError(t, err)
	return w, blob
}

func newSubmission(t *testing.T, memory *store.MemoryStore, userId string, url string) (*model.Clip, *model.ClipProcessingTask, cor.Context) {
	t.Helper()
	clip := testutil.NewTestClip(userId, url)
	assert.NoError(t, memory.CreateClip(context.Background(), clip))
	task := testutil.NewTestTask(clip.Id)
	assert.NoError(t, memory.CreateTask(context.Background(), task))

	ctx := cor.NewBaseContext()
	ctx.SetContext(context.Background())
	ctx.Add(cor.CtxIn, testutil.GetTestSubmissionText(clip.Id, task.Id))
	return clip, task, ctx
}

func TestEnrichmentRunCompletes(t *testing.T) {
	memory := store.NewMemoryStore()
	clip, task, ctx := newSubmission(t, memory, "user-1", "https://youtu.be/abc123")
	fetcher := &fakeFetcher{t: t}
	w, _ := newWorkflow(t, memory, fetcher, &fakeTranscriber{text: "roll your clothes to save space in your bag"})

	w.Execute(ctx)

	assert.False(t, ctx.HasErrors())
	assert.Equal(t, 1, fetcher.calls)

	gotTask, err := memory.GetTask(context.Background(), task.Id)
	assert.NoError(t, err)
	assert.Equal(t, model.TaskStatusCompleted, gotTask.Status)
	assert.Empty(t, gotTask.Error)

	stored, err := memory.GetClip(context.Background(), clip.Id)
	assert.NoError(t, err)
	assert.Equal(t, "Five Packing Tricks", stored.Title)
	assert.Equal(t, "abc123", stored.PlatformVideoId)
	assert.Equal(t, "roll your clothes to save space in your bag", stored.Transcript)
	assert.Equal(t, "A traveler shows five tricks for packing a carry-on.", stored.Summary)
	assert.NotEmpty(t, stored.Description)
	assert.Equal(t,
		fmt.Sprintf("https://storage.googleapis.com/test-thumbnails/thumbnails/%s.jpg", clip.Id),
		stored.ThumbnailUrl)

	// The suggested curio was created for the owner and assigned.
	assert.NotEmpty(t, stored.CurioId)
	curio, err := memory.GetCurio(context.Background(), stored.CurioId)
	assert.NoError(t, err)
	assert.Equal(t, "Travel Hacks", curio.Name)

	tags, err := memory.ListTagsForClip(context.Background(), clip.Id)
	assert.NoError(t, err)
	assert.Len(t, tags, 2)

	// Title, summary, description, plus at least one transcript chunk.
	embeddings, err := memory.ListEmbeddingsForClip(context.Background(), clip.Id)
	assert.NoError(t, err)
	assert.GreaterOrEqual(t, len(embeddings), 4)

	ctx.Close()
	for _, file := range fetcher.created {
		_, statErr := os.Stat(file)
		assert.True(t, os.IsNotExist(statErr), "temp file %s should be removed", file)
	}
}

func TestEnrichmentFailureMarksTaskFailed(t *testing.T) {
	memory := store.NewMemoryStore()
	clip, task, ctx := newSubmission(t, memory, "user-1", "https://youtu.be/abc123")
	fetcher := &fakeFetcher{t: t}
	w, _ := newWorkflow(t, memory, fetcher, &fakeTranscriber{err: errors.New("audio unreadable")})

	w.Execute(ctx)

	assert.True(t, ctx.HasErrors())

	gotTask, err := memory.GetTask(context.Background(), task.Id)
	assert.NoError(t, err)
	assert.Equal(t, model.TaskStatusFailed, gotTask.Status)
	assert.Contains(t, gotTask.Error, "audio unreadable")

	// The clip keeps whatever the earlier stages persisted; no summary.
	stored, err := memory.GetClip(context.Background(), clip.Id)
	assert.NoError(t, err)
	assert.Empty(t, stored.Summary)

	// Cleanup still runs after a failed run.
	ctx.Close()
	for _, file := range fetcher.created {
		_, statErr := os.Stat(file)
		assert.True(t, os.IsNotExist(statErr))
	}
}

func TestEnrichmentReusesDonorClip(t *testing.T) {
	memory := store.NewMemoryStore()
	url := "https://youtu.be/dQw4w9WgXcQ"

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		assert.NoError(t, writeJPEG(w))
	}))
	defer server.Close()

	donor := testutil.NewEnrichedTestClip("user-1", url)
	donor.ThumbnailUrl = server.URL + "/donor.jpg"
	donorCurio, _, err := memory.GetOrCreateCurio(context.Background(), &model.Curio{
		UserId:      "user-1",
		Name:        "Travel",
		Description: "Packing and trip planning clips",
	})
	assert.NoError(t, err)
	donor.CurioId = donorCurio.Id
	assert.NoError(t, memory.CreateClip(context.Background(), donor))

	tag, err := memory.GetOrCreateTag(context.Background(), "travel")
	assert.NoError(t, err)
	assert.NoError(t, memory.AttachTag(context.Background(), donor.Id, tag.Id))
	donorEmbeddings := []*model.ClipEmbedding{
		{Id: "emb-1", ClipId: donor.Id, Field: model.FieldSummary, TextChunk: donor.Summary, Vector: testutil.NewTestVector(0)},
		{Id: "emb-2", ClipId: donor.Id, Field: model.FieldTranscriptChunk, ChunkIndex: 0, TextChunk: donor.Transcript, Vector: testutil.NewTestVector(1)},
	}
	assert.NoError(t, memory.CreateEmbeddings(context.Background(), donorEmbeddings))

	recipient, task, ctx := newSubmission(t, memory, "user-2", url)
	fetcher := &fakeFetcher{t: t}
	w, _ := newWorkflow(t, memory, fetcher, &fakeTranscriber{text: "should never run"})

	w.Execute(ctx)
	defer ctx.Close()

	assert.False(t, ctx.HasErrors())
	assert.Equal(t, 0, fetcher.calls)

	gotTask, err := memory.GetTask(context.Background(), task.Id)
	assert.NoError(t, err)
	assert.Equal(t, model.TaskStatusCompleted, gotTask.Status)

	stored, err := memory.GetClip(context.Background(), recipient.Id)
	assert.NoError(t, err)
	assert.Equal(t, donor.Title, stored.Title)
	assert.Equal(t, donor.Summary, stored.Summary)
	assert.Equal(t, donor.Transcript, stored.Transcript)
	assert.Equal(t, donor.PlatformVideoId, stored.PlatformVideoId)
	assert.Equal(t,
		fmt.Sprintf("https://storage.googleapis.com/test-thumbnails/thumbnails/%s.jpg", recipient.Id),
		stored.ThumbnailUrl)

	// The category is re-created under the recipient's ownership, not
	// shared across owners.
	assert.NotEmpty(t, stored.CurioId)
	assert.NotEqual(t, donorCurio.Id, stored.CurioId)
	copiedCurio, err := memory.GetCurio(context.Background(), stored.CurioId)
	assert.NoError(t, err)
	assert.Equal(t, "user-2", copiedCurio.UserId)
	assert.Equal(t, "Travel", copiedCurio.Name)
	assert.False(t, copiedCurio.IsPublic)

	tags, err := memory.ListTagsForClip(context.Background(), recipient.Id)
	assert.NoError(t, err)
	assert.Len(t, tags, 1)

	copies, err := memory.ListEmbeddingsForClip(context.Background(), recipient.Id)
	assert.NoError(t, err)
	assert.Len(t, copies, 2)
	for _, c := range copies {
		assert.Equal(t, recipient.Id, c.ClipId)
		assert.NotEqual(t, "emb-1", c.Id)
		assert.NotEqual(t, "emb-2", c.Id)
	}
}

func TestEnrichmentBackfillsDonorEmbeddings(t *testing.T) {
	memory := store.NewMemoryStore()
	url := "https://youtu.be/dQw4w9WgXcQ"

	// Donor finished enrichment before embeddings existed.
	donor := testutil.NewEnrichedTestClip("user-1", url)
	donor.ThumbnailUrl = ""
	assert.NoError(t, memory.CreateClip(context.Background(), donor))

	recipient, _, ctx := newSubmission(t, memory, "user-2", url)
	fetcher := &fakeFetcher{t: t}
	w, _ := newWorkflow(t, memory, fetcher, &fakeTranscriber{text: "should never run"})

	w.Execute(ctx)
	defer ctx.Close()
	assert.False(t, ctx.HasErrors())

	backfilled, err := memory.ListEmbeddingsForClip(context.Background(), donor.Id)
	assert.NoError(t, err)
	assert.NotEmpty(t, backfilled)

	copies, err := memory.ListEmbeddingsForClip(context.Background(), recipient.Id)
	assert.NoError(t, err)
	assert.Len(t, copies, len(backfilled))

	// With no donor thumbnail to re-host, acquisition ran once purely for
	// a thumbnail source.
	assert.Equal(t, 1, fetcher.calls)
	stored, err := memory.GetClip(context.Background(), recipient.Id)
	assert.NoError(t, err)
	assert.Equal(t,
		fmt.Sprintf("https://storage.googleapis.com/test-thumbnails/thumbnails/%s.jpg", recipient.Id),
		stored.ThumbnailUrl)
}

func TestProcessRunsSynchronously(t *testing.T) {
	memory := store.NewMemoryStore()
	clip, task, _ := newSubmission(t, memory, "user-1", "https://youtu.be/abc123")
	fetcher := &fakeFetcher{t: t}
	w, _ := newWorkflow(t, memory, fetcher, &fakeTranscriber{text: "roll your clothes to save space"})

	assert.NoError(t, w.Process(context.Background(), clip.Id, task.Id))

	gotTask, err := memory.GetTask(context.Background(), task.Id)
	assert.NoError(t, err)
	assert.Equal(t, model.TaskStatusCompleted, gotTask.Status)

	// The run context was closed on the way out, so the fetched media is
	// already gone.
	for _, path := range fetcher.created {
		_, statErr := os.Stat(path)
		assert.True(t, os.IsNotExist(statErr))
	}
}

func TestProcessReturnsChainError(t *testing.T) {
	memory := store.NewMemoryStore()
	clip, task, _ := newSubmission(t, memory, "user-1", "https://youtu.be/abc123")
	w, _ := newWorkflow(t, memory, &fakeFetcher{t: t}, &fakeTranscriber{err: fmt.Errorf("audio unreadable")})

	err := w.Process(context.Background(), clip.Id, task.Id)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "audio unreadable")

	gotTask, getErr := memory.GetTask(context.Background(), task.Id)
	assert.NoError(t, getErr)
	assert.Equal(t, model.TaskStatusFailed, gotTask.Status)
}

func TestEnrichmentBadTriggerRecordsNoTask(t *testing.T) {
	memory := store.NewMemoryStore()
	w, _ := newWorkflow(t, memory, &fakeFetcher{t: t}, &fakeTranscriber{text: "unused"})

	ctx := cor.NewBaseContext()
	ctx.SetContext(context.Background())
	ctx.Add(cor.CtxIn, "this is not a submission payload")
	defer ctx.Close()

	w.Execute(ctx)

	assert.True(t, ctx.HasErrors())
}
