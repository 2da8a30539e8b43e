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
	"log/slog"
	"strings"
	"text/template"

	"github.com/jasonsherman/curioclip-backend/internal/cloud"
	"github.com/jasonsherman/curioclip-backend/internal/core/cor"
	"github.com/jasonsherman/curioclip-backend/internal/core/model"
	"github.com/jasonsherman/curioclip-backend/internal/core/store"
)

// DefaultSummaryPromptTemplate is the prompt used when the configuration
// does not override it. The placeholders are filled per run with the
// owner's curio names, a few-shot example response, and the transcript.
const DefaultSummaryPromptTemplate = `You are an assistant that summarizes short-form videos from their transcripts.

Respond with a single JSON object and nothing else, using exactly these keys:
  "one_line_summary": one sentence capturing what the video is about (required)
  "main_tip_or_product": the main tip, trick, or product featured, or "" if none
  "tags": an array of 3 to 5 short lowercase topic tags (required)
  "assigned_curio": the best matching collection from the list below, or "Other" if none fit
  "suggested_curio": a short name for a new collection that would fit this video, or ""
  "description": two to three sentences describing the video in more detail

The viewer's existing collections: {{.CURIO_NAMES}}

Example response:
{{.EXAMPLE_JSON}}

Video title: {{.TITLE}}

Transcript:
{{.TRANSCRIPT}}`

// SummaryCreator runs the transcript through the ranked model list until
// one returns a response that parses and validates. A model whose output
// cannot be parsed is logged and skipped; when every model fails, the
// stage fails with the last error.
type SummaryCreator struct {
	cor.BaseCommand
	models      []cloud.CompletionModel
	recordStore store.RecordStore
	template    *template.Template
}

func NewSummaryCreator(
	name string,
	models []cloud.CompletionModel,
	promptTemplate string,
	recordStore store.RecordStore,
) (*SummaryCreator, error) {
	if promptTemplate == "" {
		promptTemplate = DefaultSummaryPromptTemplate
	}
	tmpl, err := template.New(name).Parse(promptTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse summary prompt template: %w", err)
	}
	return &SummaryCreator{
		BaseCommand: *cor.NewBaseCommand(name),
		models:      models,
		recordStore: recordStore,
		template:    tmpl,
	}, nil
}

func (s *SummaryCreator) IsExecutable(context cor.Context) bool {
	return s.BaseCommand.IsExecutable(context) && !IsReused(context)
}

func (s *SummaryCreator) Execute(context cor.Context) {
	ctx := context.GetContext()
	clip, ok := context.Get(s.GetInputParam()).(*model.Clip)
	if !ok {
		context.AddError(s.GetName(), fmt.Errorf("input is not a clip"))
		s.GetErrorCounter().Add(ctx, 1)
		return
	}

	prompt, err := s.renderPrompt(context, clip)
	if err != nil {
		context.AddError(s.GetName(), err)
		s.GetErrorCounter().Add(ctx, 1)
		return
	}

	var summary *model.ClipSummary
	var lastErr error
	for _, candidate := range s.models {
		response, err := candidate.Complete(ctx, prompt)
		if err != nil {
			slog.Warn("summary model failed, trying next",
				"command", s.GetName(), "model", candidate.Name(), "error", err)
			lastErr = err
			continue
		}
		parsed, err := ParseClipSummary(response)
		if err != nil {
			slog.Warn("summary response rejected, trying next",
				"command", s.GetName(), "model", candidate.Name(), "error", err)
			lastErr = err
			continue
		}
		summary = parsed
		break
	}
	if summary == nil {
		if lastErr == nil {
			lastErr = fmt.Errorf("no summary models configured")
		}
		context.AddError(s.GetName(), fmt.Errorf("all summary models failed: %w", lastErr))
		s.GetErrorCounter().Add(ctx, 1)
		return
	}

	clip.Summary = summary.OneLineSummary
	clip.Description = summary.Description
	if err := s.recordStore.UpdateClip(ctx, clip); err != nil {
		context.AddError(s.GetName(), fmt.Errorf("failed to persist summary: %w", err))
		s.GetErrorCounter().Add(ctx, 1)
		return
	}

	context.Add(GetSummaryParamName(), summary)
	context.Add(s.GetOutputParam(), clip)
	s.GetSuccessCounter().Add(ctx, 1)
}

// renderPrompt fills the template with this run's curio names, example
// response, title, and transcript.
func (s *SummaryCreator) renderPrompt(context cor.Context, clip *model.Clip) (string, error) {
	ctx := context.GetContext()
	names, err := s.recordStore.ListCurioNames(ctx, clip.UserId)
	if err != nil {
		return "", fmt.Errorf("failed to list curios for prompt: %w", err)
	}

	example, err := json.MarshalIndent(model.GetExampleClipSummary(), "", "  ")
	if err != nil {
		return "", err
	}

	params := map[string]string{
		"CURIO_NAMES":  strings.Join(names, ", "),
		"EXAMPLE_JSON": string(example),
		"TITLE":        clip.Title,
		"TRANSCRIPT":   clip.Transcript,
	}
	var sb strings.Builder
	if err := s.template.Execute(&sb, params); err != nil {
		return "", fmt.Errorf("failed to render summary prompt: %w", err)
	}
	return sb.String(), nil
}
