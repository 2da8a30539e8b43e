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
	"github.com/jasonsherman/curioclip-backend/internal/core/model"
	"github.com/jasonsherman/curioclip-backend/internal/core/store"
)

// TaskStatusSetter transitions the run's processing task to a fixed
// status. The chain uses one instance to mark the task processing right
// after the trigger reader; the terminal states are written by the
// workflow because they must be recorded even when the chain errors out.
type TaskStatusSetter struct {
	cor.BaseCommand
	recordStore store.RecordStore
	status      model.TaskStatus
}

func NewTaskStatusSetter(name string, recordStore store.RecordStore, status model.TaskStatus) *TaskStatusSetter {
	return &TaskStatusSetter{
		BaseCommand: *cor.NewBaseCommand(name),
		recordStore: recordStore,
		status:      status,
	}
}

func (t *TaskStatusSetter) Execute(context cor.Context) {
	ctx := context.GetContext()
	clip, ok := context.Get(t.GetInputParam()).(*model.Clip)
	if !ok {
		context.AddError(t.GetName(), fmt.Errorf("input is not a clip"))
		t.GetErrorCounter().Add(ctx, 1)
		return
	}
	task := GetTask(context)
	if task == nil {
		context.AddError(t.GetName(), fmt.Errorf("no task on context"))
		t.GetErrorCounter().Add(ctx, 1)
		return
	}

	if err := t.recordStore.SetTaskStatus(ctx, task.Id, t.status, ""); err != nil {
		context.AddError(t.GetName(), fmt.Errorf("failed to set task %s to %s: %w", task.Id, t.status, err))
		t.GetErrorCounter().Add(ctx, 1)
		return
	}
	task.Status = t.status

	context.Add(t.GetOutputParam(), clip)
	t.GetSuccessCounter().Add(ctx, 1)
}
