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
	"strings"

	"github.com/jasonsherman/curioclip-backend/internal/core/cor"
	"github.com/jasonsherman/curioclip-backend/internal/core/model"
	"github.com/jasonsherman/curioclip-backend/internal/core/store"
)

// CurioSuggestedDescription is stamped onto curios the summarizer
// invents, so AI-created collections stay distinguishable from
// user-created ones.
const CurioSuggestedDescription = "Suggested by AI based on your saved clips."

// Categorize applies the summarizer's tags and curio decision to the
// clip. A suggested curio is created privately for the owner when it
// does not exist yet; an assigned curio is only ever looked up, never
// created, and the Other sentinel leaves the clip uncategorized.
type Categorize struct {
	cor.BaseCommand
	recordStore store.RecordStore
}

func NewCategorize(name string, recordStore store.RecordStore) *Categorize {
	return &Categorize{
		BaseCommand: *cor.NewBaseCommand(name),
		recordStore: recordStore,
	}
}

func (c *Categorize) IsExecutable(context cor.Context) bool {
	return c.BaseCommand.IsExecutable(context) && !IsReused(context)
}

func (c *Categorize) Execute(context cor.Context) {
	ctx := context.GetContext()
	clip, ok := context.Get(c.GetInputParam()).(*model.Clip)
	if !ok {
		context.AddError(c.GetName(), fmt.Errorf("input is not a clip"))
		c.GetErrorCounter().Add(ctx, 1)
		return
	}
	summary, ok := context.Get(GetSummaryParamName()).(*model.ClipSummary)
	if !ok {
		context.AddError(c.GetName(), fmt.Errorf("no summary on context"))
		c.GetErrorCounter().Add(ctx, 1)
		return
	}

	for _, tagName := range summary.Tags {
		tagName = strings.TrimSpace(tagName)
		if tagName == "" {
			continue
		}
		tag, err := c.recordStore.GetOrCreateTag(ctx, tagName)
		if err != nil {
			context.AddError(c.GetName(), fmt.Errorf("failed to resolve tag %q: %w", tagName, err))
			c.GetErrorCounter().Add(ctx, 1)
			return
		}
		if err := c.recordStore.AttachTag(ctx, clip.Id, tag.Id); err != nil {
			context.AddError(c.GetName(), fmt.Errorf("failed to attach tag %q: %w", tagName, err))
			c.GetErrorCounter().Add(ctx, 1)
			return
		}
	}

	if err := c.resolveCurio(context, clip, summary); err != nil {
		context.AddError(c.GetName(), err)
		c.GetErrorCounter().Add(ctx, 1)
		return
	}

	context.Add(c.GetOutputParam(), clip)
	c.GetSuccessCounter().Add(ctx, 1)
}

// resolveCurio implements the curio assignment policy. The suggestion
// takes precedence over the assignment because it carries the model's
// stronger signal that no existing collection fit well.
func (c *Categorize) resolveCurio(context cor.Context, clip *model.Clip, summary *model.ClipSummary) error {
	ctx := context.GetContext()
	suggested := strings.TrimSpace(summary.SuggestedCurio)
	assigned := strings.TrimSpace(summary.AssignedCurio)

	switch {
	case suggested != "":
		curio, _, err := c.recordStore.GetOrCreateCurio(ctx, &model.Curio{
			UserId:      clip.UserId,
			Name:        suggested,
			Description: CurioSuggestedDescription,
			IsPublic:    false,
		})
		if err != nil {
			return fmt.Errorf("failed to resolve suggested curio %q: %w", suggested, err)
		}
		clip.CurioId = curio.Id
	case assigned != "" && assigned != model.CurioOtherSentinel:
		curio, err := c.recordStore.FindCurioByName(ctx, assigned)
		if err != nil {
			return fmt.Errorf("failed to look up curio %q: %w", assigned, err)
		}
		// An assignment that matches nothing leaves the clip
		// uncategorized rather than inventing a collection.
		if curio != nil {
			clip.CurioId = curio.Id
		}
	}

	if clip.CurioId == "" {
		return nil
	}
	if err := c.recordStore.UpdateClip(ctx, clip); err != nil {
		return fmt.Errorf("failed to persist curio assignment: %w", err)
	}
	return nil
}
