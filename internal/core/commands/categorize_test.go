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

package commands_test

import (
	"context"
	"testing"

	"github.com/jasonsherman/curioclip-backend/internal/core/commands"
	"github.com/jasonsherman/curioclip-backend/internal/core/cor"
	"github.com/jasonsherman/curioclip-backend/internal/core/model"
	"github.com/jasonsherman/curioclip-backend/internal/core/store"
	"github.com/stretchr/testify/assert"
)

func runCategorize(t *testing.T, memory *store.MemoryStore, ctx cor.Context) {
	t.Helper()
	cmd := commands.NewCategorize("apply-tags-and-curio", memory)
	cmd.Execute(ctx)
	assert.False(t, ctx.HasErrors())
}

func TestCategorizeAttachesTags(t *testing.T) {
	memory := store.NewMemoryStore()
	ctx, clip := newClipContext(t, memory)
	ctx.Add(commands.GetSummaryParamName(), &model.ClipSummary{
		OneLineSummary: "s",
		Tags:           []string{"travel", " packing ", ""},
	})

	runCategorize(t, memory, ctx)

	tags, err := memory.ListTagsForClip(context.Background(), clip.Id)
	assert.NoError(t, err)
	assert.Len(t, tags, 2)
}

func TestCategorizeSuggestedCurioWinsAndIsPrivate(t *testing.T) {
	memory := store.NewMemoryStore()
	ctx, clip := newClipContext(t, memory)

	existing, _, err := memory.GetOrCreateCurio(context.Background(), &model.Curio{UserId: "someone-else", Name: "Travel"})
	assert.NoError(t, err)

	ctx.Add(commands.GetSummaryParamName(), &model.ClipSummary{
		OneLineSummary: "s",
		Tags:           []string{"a"},
		AssignedCurio:  "Travel",
		SuggestedCurio: "Minimalist Packing",
	})
	runCategorize(t, memory, ctx)

	stored, err := memory.GetClip(context.Background(), clip.Id)
	assert.NoError(t, err)
	assert.NotEmpty(t, stored.CurioId)
	assert.NotEqual(t, existing.Id, stored.CurioId)

	curio, err := memory.GetCurio(context.Background(), stored.CurioId)
	assert.NoError(t, err)
	assert.Equal(t, "Minimalist Packing", curio.Name)
	assert.Equal(t, clip.UserId, curio.UserId)
	assert.False(t, curio.IsPublic)
	assert.Equal(t, commands.CurioSuggestedDescription, curio.Description)
}

func TestCategorizeAssignedCurioIsLookupOnly(t *testing.T) {
	memory := store.NewMemoryStore()
	ctx, clip := newClipContext(t, memory)

	travel, _, err := memory.GetOrCreateCurio(context.Background(), &model.Curio{UserId: "user-9", Name: "Travel"})
	assert.NoError(t, err)

	ctx.Add(commands.GetSummaryParamName(), &model.ClipSummary{
		OneLineSummary: "s",
		Tags:           []string{"a"},
		AssignedCurio:  "Travel",
	})
	runCategorize(t, memory, ctx)

	stored, err := memory.GetClip(context.Background(), clip.Id)
	assert.NoError(t, err)
	assert.Equal(t, travel.Id, stored.CurioId)
}

func TestCategorizeUnknownAssignmentLeavesUncategorized(t *testing.T) {
	memory := store.NewMemoryStore()
	ctx, clip := newClipContext(t, memory)

	ctx.Add(commands.GetSummaryParamName(), &model.ClipSummary{
		OneLineSummary: "s",
		Tags:           []string{"a"},
		AssignedCurio:  "No Such Collection",
	})
	runCategorize(t, memory, ctx)

	stored, err := memory.GetClip(context.Background(), clip.Id)
	assert.NoError(t, err)
	assert.Empty(t, stored.CurioId)

	// The lookup must not have invented the collection.
	missing, err := memory.FindCurioByName(context.Background(), "No Such Collection")
	assert.NoError(t, err)
	assert.Nil(t, missing)
}

func TestCategorizeOtherSentinelLeavesUncategorized(t *testing.T) {
	memory := store.NewMemoryStore()
	ctx, clip := newClipContext(t, memory)

	ctx.Add(commands.GetSummaryParamName(), &model.ClipSummary{
		OneLineSummary: "s",
		Tags:           []string{"a"},
		AssignedCurio:  model.CurioOtherSentinel,
	})
	runCategorize(t, memory, ctx)

	stored, err := memory.GetClip(context.Background(), clip.Id)
	assert.NoError(t, err)
	assert.Empty(t, stored.CurioId)
}
