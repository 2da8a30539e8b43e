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

	"github.com/jasonsherman/curioclip-backend/internal/cloud"
	"github.com/jasonsherman/curioclip-backend/internal/core/cor"
	"github.com/jasonsherman/curioclip-backend/internal/core/model"
	"github.com/jasonsherman/curioclip-backend/internal/core/store"
)

// Transcribe converts the fetched audio file into plain text and commits
// it onto the clip. An empty transcript is a valid result for videos
// with no speech; only transport and recognition errors fail the stage.
type Transcribe struct {
	cor.BaseCommand
	transcriber cloud.SpeechTranscriber
	recordStore store.RecordStore
}

func NewTranscribe(name string, transcriber cloud.SpeechTranscriber, recordStore store.RecordStore) *Transcribe {
	return &Transcribe{
		BaseCommand: *cor.NewBaseCommand(name),
		transcriber: transcriber,
		recordStore: recordStore,
	}
}

func (t *Transcribe) IsExecutable(context cor.Context) bool {
	return t.BaseCommand.IsExecutable(context) && !IsReused(context)
}

func (t *Transcribe) Execute(context cor.Context) {
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

	transcript, err := t.transcriber.Transcribe(ctx, fetch.AudioPath)
	if err != nil {
		context.AddError(t.GetName(), err)
		t.GetErrorCounter().Add(ctx, 1)
		return
	}

	clip.Transcript = transcript
	if err := t.recordStore.UpdateClip(ctx, clip); err != nil {
		context.AddError(t.GetName(), fmt.Errorf("failed to persist transcript: %w", err))
		t.GetErrorCounter().Add(ctx, 1)
		return
	}

	context.Add(t.GetOutputParam(), clip)
	t.GetSuccessCounter().Add(ctx, 1)
}
