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

	"github.com/jasonsherman/curioclip-backend/internal/core/cor"
	"github.com/jasonsherman/curioclip-backend/internal/core/media"
	"github.com/jasonsherman/curioclip-backend/internal/core/model"
	"github.com/jasonsherman/curioclip-backend/internal/core/store"
)

// MediaFetch downloads the clip's audio track and metadata through the
// extractor and persists the platform identity onto the clip. The local
// files it produces are registered as temp files on the chain context,
// so they are removed when the task finishes in any state.
type MediaFetch struct {
	cor.BaseCommand
	fetcher     media.Fetcher
	recordStore store.RecordStore
}

func NewMediaFetch(name string, fetcher media.Fetcher, recordStore store.RecordStore) *MediaFetch {
	return &MediaFetch{
		BaseCommand: *cor.NewBaseCommand(name),
		fetcher:     fetcher,
		recordStore: recordStore,
	}
}

// IsExecutable skips the download when the dedup engine already cloned a
// donor clip.
func (m *MediaFetch) IsExecutable(context cor.Context) bool {
	return m.BaseCommand.IsExecutable(context) && !IsReused(context)
}

func (m *MediaFetch) Execute(context cor.Context) {
	ctx := context.GetContext()
	clip, ok := context.Get(m.GetInputParam()).(*model.Clip)
	if !ok {
		context.AddError(m.GetName(), fmt.Errorf("input is not a clip"))
		m.GetErrorCounter().Add(ctx, 1)
		return
	}

	result, err := m.fetcher.Fetch(ctx, clip.Url)
	if err != nil {
		context.AddError(m.GetName(), err)
		m.GetErrorCounter().Add(ctx, 1)
		return
	}
	context.AddTempFile(result.AudioPath)
	if result.ThumbnailPath != "" {
		context.AddTempFile(result.ThumbnailPath)
	}

	if result.Title != "" {
		clip.Title = result.Title
	}
	clip.Platform = result.Platform
	clip.PlatformVideoId = result.VideoId
	if err := m.recordStore.UpdateClip(ctx, clip); err != nil {
		context.AddError(m.GetName(), fmt.Errorf("failed to persist clip metadata: %w", err))
		m.GetErrorCounter().Add(ctx, 1)
		return
	}

	context.Add(GetFetchResultParamName(), result)
	context.Add(m.GetOutputParam(), clip)
	m.GetSuccessCounter().Add(ctx, 1)
}
