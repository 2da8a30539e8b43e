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
	"encoding/json"
	"fmt"

	"github.com/jasonsherman/curioclip-backend/internal/core/cor"
	"github.com/jasonsherman/curioclip-backend/internal/core/model"
	"github.com/jasonsherman/curioclip-backend/internal/core/store"
)

// ClipTriggerReader is the first command on the enrichment chain. It
// decodes the queue message into a submission, loads the clip and its
// processing task, parks the task under its own context key for the
// rest of the chain, and emits the clip.
type ClipTriggerReader struct {
	cor.BaseCommand
	recordStore store.RecordStore
}

func NewClipTriggerReader(name string, recordStore store.RecordStore) *ClipTriggerReader {
	return &ClipTriggerReader{
		BaseCommand: *cor.NewBaseCommand(name),
		recordStore: recordStore,
	}
}

func (c *ClipTriggerReader) Execute(context cor.Context) {
	ctx := context.GetContext()
	payload, ok := context.Get(c.GetInputParam()).(string)
	if !ok {
		context.AddError(c.GetName(), fmt.Errorf("input is not a message payload"))
		c.GetErrorCounter().Add(ctx, 1)
		return
	}

	submission := &model.ClipSubmission{}
	if err := json.Unmarshal([]byte(payload), submission); err != nil {
		context.AddError(c.GetName(), fmt.Errorf("failed to decode submission: %w", err))
		c.GetErrorCounter().Add(ctx, 1)
		return
	}
	if submission.ClipId == "" || submission.TaskId == "" {
		context.AddError(c.GetName(), fmt.Errorf("submission missing clip_id or task_id: %s", payload))
		c.GetErrorCounter().Add(ctx, 1)
		return
	}

	task, err := c.recordStore.GetTask(ctx, submission.TaskId)
	if err != nil {
		context.AddError(c.GetName(), fmt.Errorf("failed to load task %s: %w", submission.TaskId, err))
		c.GetErrorCounter().Add(ctx, 1)
		return
	}
	clip, err := c.recordStore.GetClip(ctx, submission.ClipId)
	if err != nil {
		context.AddError(c.GetName(), fmt.Errorf("failed to load clip %s: %w", submission.ClipId, err))
		c.GetErrorCounter().Add(ctx, 1)
		return
	}

	context.Add(GetTaskParamName(), task)
	context.Add(c.GetOutputParam(), clip)
	c.GetSuccessCounter().Add(ctx, 1)
}
