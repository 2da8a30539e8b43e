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

// Package commands provides the Chain of Responsibility command
// implementations for the clip enrichment pipeline. This file holds the
// shared context parameter names so every command reads and writes the
// same keys.
package commands

import (
	"github.com/jasonsherman/curioclip-backend/internal/core/cor"
	"github.com/jasonsherman/curioclip-backend/internal/core/model"
)

// GetTaskParamName returns the context key holding the processing task
// for the current run.
func GetTaskParamName() string {
	return "__TASK__"
}

// GetFetchResultParamName returns the context key holding the media
// acquisition result.
func GetFetchResultParamName() string {
	return "__FETCH_RESULT__"
}

// GetSummaryParamName returns the context key holding the parsed
// summarizer output.
func GetSummaryParamName() string {
	return "__SUMMARY__"
}

// GetReusedParamName returns the context key flagging that the dedup
// engine cloned a donor clip, which short-circuits the rest of the
// pipeline.
func GetReusedParamName() string {
	return "__REUSED__"
}

// IsReused reports whether the dedup engine already satisfied this run.
func IsReused(context cor.Context) bool {
	reused, ok := context.Get(GetReusedParamName()).(bool)
	return ok && reused
}

// GetTask pulls the processing task from the context, or nil before the
// trigger reader has run.
func GetTask(context cor.Context) *model.ClipProcessingTask {
	task, ok := context.Get(GetTaskParamName()).(*model.ClipProcessingTask)
	if !ok {
		return nil
	}
	return task
}
