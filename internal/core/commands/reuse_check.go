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
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/jasonsherman/curioclip-backend/internal/cloud"
	"github.com/jasonsherman/curioclip-backend/internal/core/cor"
	"github.com/jasonsherman/curioclip-backend/internal/core/media"
	"github.com/jasonsherman/curioclip-backend/internal/core/model"
	"github.com/jasonsherman/curioclip-backend/internal/core/store"
)

// ReuseCheck is the dedup engine. When another clip with the same URL
// already finished enrichment, the expensive stages are skipped entirely:
// the donor's text fields, tags, curio, and embedding vectors are copied
// onto this clip, its thumbnail is re-hosted under this clip's name, and
// the reused flag short-circuits the rest of the chain. A donor whose
// embeddings were never generated gets them backfilled first so both
// clips stay searchable.
type ReuseCheck struct {
	cor.BaseCommand
	recordStore  store.RecordStore
	blobStore    cloud.BlobStore
	bucket       string
	embedder     cloud.TextEmbedder
	fetcher      media.Fetcher
	chunkSize    int
	overlapRatio float64
	httpClient   *http.Client
}

func NewReuseCheck(
	name string,
	recordStore store.RecordStore,
	blobStore cloud.BlobStore,
	bucket string,
	embedder cloud.TextEmbedder,
	fetcher media.Fetcher,
	chunkSize int,
	overlapRatio float64,
) *ReuseCheck {
	return &ReuseCheck{
		BaseCommand:  *cor.NewBaseCommand(name),
		recordStore:  recordStore,
		blobStore:    blobStore,
		bucket:       bucket,
		embedder:     embedder,
		fetcher:      fetcher,
		chunkSize:    chunkSize,
		overlapRatio: overlapRatio,
		httpClient:   http.DefaultClient,
	}
}

func (r *ReuseCheck) Execute(context cor.Context) {
	ctx := context.GetContext()
	clip, ok := context.Get(r.GetInputParam()).(*model.Clip)
	if !ok {
		context.AddError(r.GetName(), fmt.Errorf("input is not a clip"))
		r.GetErrorCounter().Add(ctx, 1)
		return
	}

	donor, err := r.recordStore.FindReusableSource(ctx, clip.Url, clip.Id)
	if err != nil {
		context.AddError(r.GetName(), fmt.Errorf("failed to query for reusable source: %w", err))
		r.GetErrorCounter().Add(ctx, 1)
		return
	}
	if donor == nil {
		context.Add(r.GetOutputParam(), clip)
		r.GetSuccessCounter().Add(ctx, 1)
		return
	}
	slog.Info("reusing enrichment from existing clip",
		"command", r.GetName(), "clip", clip.Id, "donor", donor.Id)

	donorEmbeddings, err := r.recordStore.ListEmbeddingsForClip(ctx, donor.Id)
	if err != nil {
		context.AddError(r.GetName(), fmt.Errorf("failed to load donor embeddings: %w", err))
		r.GetErrorCounter().Add(ctx, 1)
		return
	}
	if len(donorEmbeddings) == 0 {
		donorEmbeddings, err = r.backfillDonorEmbeddings(context, donor)
		if err != nil {
			context.AddError(r.GetName(), err)
			r.GetErrorCounter().Add(ctx, 1)
			return
		}
	}

	clip.Title = donor.Title
	clip.Description = donor.Description
	clip.Summary = donor.Summary
	clip.Transcript = donor.Transcript
	clip.Platform = donor.Platform
	clip.PlatformVideoId = donor.PlatformVideoId
	if err := r.copyCurio(context, clip, donor); err != nil {
		context.AddError(r.GetName(), err)
		r.GetErrorCounter().Add(ctx, 1)
		return
	}
	clip.ThumbnailUrl = r.rehostThumbnail(context, clip, donor)

	if err := r.recordStore.UpdateClip(ctx, clip); err != nil {
		context.AddError(r.GetName(), fmt.Errorf("failed to persist reused clip: %w", err))
		r.GetErrorCounter().Add(ctx, 1)
		return
	}

	if err := r.copyTags(context, clip, donor); err != nil {
		context.AddError(r.GetName(), err)
		r.GetErrorCounter().Add(ctx, 1)
		return
	}
	if err := r.copyEmbeddings(context, clip, donorEmbeddings); err != nil {
		context.AddError(r.GetName(), err)
		r.GetErrorCounter().Add(ctx, 1)
		return
	}

	context.Add(GetReusedParamName(), true)
	context.Add(r.GetOutputParam(), clip)
	r.GetSuccessCounter().Add(ctx, 1)
}

// backfillDonorEmbeddings generates and persists the donor's missing
// embedding set, returning the new records for the copy step.
func (r *ReuseCheck) backfillDonorEmbeddings(context cor.Context, donor *model.Clip) ([]*model.ClipEmbedding, error) {
	ctx := context.GetContext()
	records, err := BuildClipEmbeddings(ctx, donor, r.embedder, r.chunkSize, r.overlapRatio)
	if err != nil {
		return nil, fmt.Errorf("failed to backfill donor embeddings: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	if err := r.recordStore.CreateEmbeddings(ctx, records); err != nil {
		return nil, fmt.Errorf("failed to persist donor embeddings: %w", err)
	}
	return records, nil
}

// rehostThumbnail gives the recipient its own hosted copy of the donor's
// thumbnail: download, compress, upload under the new clip's name. When
// the donor's thumbnail is missing or unusable, acquisition runs again on
// the clip's own URL purely for a thumbnail source. Every failure ends at
// "no thumbnail"; thumbnails never fail a reuse.
func (r *ReuseCheck) rehostThumbnail(context cor.Context, clip *model.Clip, donor *model.Clip) string {
	if donor.ThumbnailUrl != "" {
		localPath, err := r.downloadToTemp(context, donor.ThumbnailUrl)
		if err == nil {
			url, hostErr := r.hostLocalThumbnail(context, clip, localPath)
			if hostErr == nil {
				return url
			}
			err = hostErr
		}
		slog.Warn("donor thumbnail re-host failed, re-acquiring source",
			"command", r.GetName(), "clip", clip.Id, "error", err)
	}
	return r.reacquireThumbnail(context, clip)
}

// hostLocalThumbnail compresses a local image and uploads it under the
// clip's object name.
func (r *ReuseCheck) hostLocalThumbnail(context cor.Context, clip *model.Clip, localPath string) (string, error) {
	compressed := filepath.Join(os.TempDir(), fmt.Sprintf("clip-thumb-%s.jpg", clip.Id))
	context.AddTempFile(compressed)
	if err := media.CompressImage(localPath, compressed); err != nil {
		return "", fmt.Errorf("thumbnail compression failed: %w", err)
	}
	objectName := fmt.Sprintf("thumbnails/%s.jpg", clip.Id)
	return r.blobStore.Upload(context.GetContext(), compressed, objectName, r.bucket)
}

// reacquireThumbnail runs media acquisition on the clip's own URL just to
// obtain a thumbnail source. The downloaded audio is discarded.
func (r *ReuseCheck) reacquireThumbnail(context cor.Context, clip *model.Clip) string {
	result, err := r.fetcher.Fetch(context.GetContext(), clip.Url)
	if err != nil {
		slog.Warn("thumbnail re-acquisition failed, clip proceeds without one",
			"command", r.GetName(), "clip", clip.Id, "error", err)
		return ""
	}
	if result.AudioPath != "" {
		context.AddTempFile(result.AudioPath)
	}
	localPath := result.ThumbnailPath
	if localPath != "" {
		context.AddTempFile(localPath)
	} else if result.ThumbnailUrl != "" {
		localPath, err = r.downloadToTemp(context, result.ThumbnailUrl)
		if err != nil {
			slog.Warn("re-acquired thumbnail download failed, clip proceeds without one",
				"command", r.GetName(), "clip", clip.Id, "error", err)
			return ""
		}
	}
	if localPath == "" {
		return ""
	}
	url, err := r.hostLocalThumbnail(context, clip, localPath)
	if err != nil {
		slog.Warn("re-acquired thumbnail re-host failed, clip proceeds without one",
			"command", r.GetName(), "clip", clip.Id, "error", err)
		return ""
	}
	return url
}

// copyCurio mirrors the donor's category into the recipient's own
// namespace. Curios are owner-scoped, so the recipient gets (or keeps)
// a private curio with the donor's name rather than a reference into
// another owner's collection. A recipient that is already categorized
// keeps its curio.
func (r *ReuseCheck) copyCurio(context cor.Context, clip *model.Clip, donor *model.Clip) error {
	if clip.CurioId != "" || donor.CurioId == "" {
		return nil
	}
	ctx := context.GetContext()
	donorCurio, err := r.recordStore.GetCurio(ctx, donor.CurioId)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load donor curio: %w", err)
	}
	curio, _, err := r.recordStore.GetOrCreateCurio(ctx, &model.Curio{
		UserId:      clip.UserId,
		Name:        donorCurio.Name,
		Description: donorCurio.Description,
		IsPublic:    false,
	})
	if err != nil {
		return fmt.Errorf("failed to copy donor curio %q: %w", donorCurio.Name, err)
	}
	clip.CurioId = curio.Id
	return nil
}

func (r *ReuseCheck) copyTags(context cor.Context, clip *model.Clip, donor *model.Clip) error {
	ctx := context.GetContext()
	tags, err := r.recordStore.ListTagsForClip(ctx, donor.Id)
	if err != nil {
		return fmt.Errorf("failed to list donor tags: %w", err)
	}
	for _, tag := range tags {
		if err := r.recordStore.AttachTag(ctx, clip.Id, tag.Id); err != nil {
			return fmt.Errorf("failed to copy tag %q: %w", tag.Name, err)
		}
	}
	return nil
}

// copyEmbeddings duplicates the donor's embedding records for the new
// clip. Vectors are copied verbatim; no model call happens here.
func (r *ReuseCheck) copyEmbeddings(context cor.Context, clip *model.Clip, donorEmbeddings []*model.ClipEmbedding) error {
	if len(donorEmbeddings) == 0 {
		return nil
	}
	copies := make([]*model.ClipEmbedding, len(donorEmbeddings))
	for i, src := range donorEmbeddings {
		copies[i] = &model.ClipEmbedding{
			Id:         uuid.NewString(),
			ClipId:     clip.Id,
			Field:      src.Field,
			ChunkIndex: src.ChunkIndex,
			TextChunk:  src.TextChunk,
			Vector:     src.Vector,
		}
	}
	if err := r.recordStore.CreateEmbeddings(context.GetContext(), copies); err != nil {
		return fmt.Errorf("failed to copy donor embeddings: %w", err)
	}
	return nil
}

// downloadToTemp fetches a URL into a temp file registered for cleanup.
func (r *ReuseCheck) downloadToTemp(context cor.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(context.GetContext(), http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("thumbnail fetch returned status %d", resp.StatusCode)
	}

	tmp, err := os.CreateTemp("", "clip-thumb-src-*")
	if err != nil {
		return "", err
	}
	defer func() { _ = tmp.Close() }()
	context.AddTempFile(tmp.Name())
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		return "", err
	}
	return tmp.Name(), nil
}
