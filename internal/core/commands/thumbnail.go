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
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/jasonsherman/curioclip-backend/internal/cloud"
	"github.com/jasonsherman/curioclip-backend/internal/core/cor"
	"github.com/jasonsherman/curioclip-backend/internal/core/media"
	"github.com/jasonsherman/curioclip-backend/internal/core/model"
	"github.com/jasonsherman/curioclip-backend/internal/core/store"
)

// ThumbnailHost compresses the fetched thumbnail and uploads it to the
// public bucket, committing the hosted URL onto the clip. Every failure
// here degrades instead of failing the stage: worst case the clip keeps
// the platform's original thumbnail URL, or none at all.
type ThumbnailHost struct {
	cor.BaseCommand
	blobStore   cloud.BlobStore
	bucket      string
	recordStore store.RecordStore
	httpClient  *http.Client
}

func NewThumbnailHost(
	name string,
	blobStore cloud.BlobStore,
	bucket string,
	recordStore store.RecordStore,
) *ThumbnailHost {
	return &ThumbnailHost{
		BaseCommand: *cor.NewBaseCommand(name),
		blobStore:   blobStore,
		bucket:      bucket,
		recordStore: recordStore,
		httpClient:  http.DefaultClient,
	}
}

func (t *ThumbnailHost) IsExecutable(context cor.Context) bool {
	return t.BaseCommand.IsExecutable(context) && !IsReused(context)
}

func (t *ThumbnailHost) Execute(context cor.Context) {
	ctx := context.GetContext()
	clip, ok := context.Get(t.GetInputParam()).(*model.Clip)
	if !ok {
		context.AddError(t.GetName(), fmt.Errorf("input is not a clip"))
		t.GetErrorCounter().Add(ctx, 1)
		return
	}
	fetch, ok := context.Get(GetFetchResultParamName()).(*model.FetchResult)
	if !ok {
		context.AddError(t.GetName(), fmt.Errorf("no fetch result on context"))
		t.GetErrorCounter().Add(ctx, 1)
		return
	}

	hosted := t.hostThumbnail(context, clip, fetch.ThumbnailPath, fetch.ThumbnailUrl)
	switch {
	case hosted != "":
		clip.ThumbnailUrl = hosted
	case fetch.ThumbnailUrl != "":
		// Hosting failed; the platform's own URL is better than nothing.
		clip.ThumbnailUrl = fetch.ThumbnailUrl
	}
	if clip.ThumbnailUrl != "" {
		if err := t.recordStore.UpdateClip(context.GetContext(), clip); err != nil {
			slog.Warn("failed to persist thumbnail url", "command", t.GetName(), "clip", clip.Id, "error", err)
		}
	}

	context.Add(t.GetOutputParam(), clip)
	t.GetSuccessCounter().Add(ctx, 1)
}

// hostThumbnail compresses the local thumbnail file (re-fetching it from
// sourceUrl when the extractor's download was lost) and uploads it,
// returning the hosted URL or "" when any step fails.
func (t *ThumbnailHost) hostThumbnail(context cor.Context, clip *model.Clip, localPath string, sourceUrl string) string {
	if localPath == "" && sourceUrl != "" {
		fetched, err := t.downloadToTemp(context, sourceUrl)
		if err != nil {
			slog.Warn("thumbnail re-fetch failed", "command", t.GetName(), "clip", clip.Id, "error", err)
			return ""
		}
		localPath = fetched
	}
	if localPath == "" {
		return ""
	}

	compressed := filepath.Join(os.TempDir(), fmt.Sprintf("clip-thumb-%s.jpg", clip.Id))
	context.AddTempFile(compressed)
	if err := media.CompressImage(localPath, compressed); err != nil {
		slog.Warn("thumbnail compression failed", "command", t.GetName(), "clip", clip.Id, "error", err)
		return ""
	}

	objectName := fmt.Sprintf("thumbnails/%s.jpg", clip.Id)
	url, err := t.blobStore.Upload(context.GetContext(), compressed, objectName, t.bucket)
	if err != nil {
		slog.Warn("thumbnail upload failed", "command", t.GetName(), "clip", clip.Id, "error", err)
		return ""
	}
	return url
}

// downloadToTemp fetches a URL into a temp file registered for cleanup.
func (t *ThumbnailHost) downloadToTemp(context cor.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(context.GetContext(), http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := t.httpClient.Do(req)
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
