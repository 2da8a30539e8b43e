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
	"errors"
	"strings"
	"testing"

	"github.com/jasonsherman/curioclip-backend/internal/core/commands"
	"github.com/stretchr/testify/assert"
)

func TestParseClipSummaryCleanJSON(t *testing.T) {
	raw := `{"one_line_summary": "A packing tips video.", "tags": ["travel", "packing"], "assigned_curio": "Travel"}`
	summary, err := commands.ParseClipSummary(raw)
	assert.NoError(t, err)
	assert.Equal(t, "A packing tips video.", summary.OneLineSummary)
	assert.Equal(t, []string{"travel", "packing"}, summary.Tags)
	assert.Equal(t, "Travel", summary.AssignedCurio)
}

func TestParseClipSummaryStripsCodeFences(t *testing.T) {
	raw := "```json\n{\"one_line_summary\": \"Fenced.\", \"tags\": [\"a\"]}\n```"
	summary, err := commands.ParseClipSummary(raw)
	assert.NoError(t, err)
	assert.Equal(t, "Fenced.", summary.OneLineSummary)
}

func TestParseClipSummaryIgnoresSurroundingProse(t *testing.T) {
	raw := "Sure! Here is the JSON you asked for:\n{\"one_line_summary\": \"Prose wrapped.\", \"tags\": [\"a\"]}\nLet me know if you need anything else."
	summary, err := commands.ParseClipSummary(raw)
	assert.NoError(t, err)
	assert.Equal(t, "Prose wrapped.", summary.OneLineSummary)
}

func TestParseClipSummaryEscapesRawNewlines(t *testing.T) {
	raw := "{\"one_line_summary\": \"Line one\nline two.\", \"tags\": [\"a\"]}"
	summary, err := commands.ParseClipSummary(raw)
	assert.NoError(t, err)
	assert.Equal(t, "Line one\nline two.", summary.OneLineSummary)
}

func TestParseClipSummaryRepairsTrailingComma(t *testing.T) {
	raw := `{"one_line_summary": "Repaired.", "tags": ["a", "b",],}`
	summary, err := commands.ParseClipSummary(raw)
	assert.NoError(t, err)
	assert.Equal(t, "Repaired.", summary.OneLineSummary)
	assert.Equal(t, []string{"a", "b"}, summary.Tags)
}

func TestParseClipSummaryRejectsMissingRequiredKeys(t *testing.T) {
	_, err := commands.ParseClipSummary(`{"tags": ["a"]}`)
	assert.Error(t, err)

	_, err = commands.ParseClipSummary(`{"one_line_summary": "No tags."}`)
	assert.Error(t, err)
}

func TestParseClipSummaryErrorCarriesRawPayload(t *testing.T) {
	raw := "the model refused to answer"
	_, err := commands.ParseClipSummary(raw)
	assert.Error(t, err)

	var parseErr *commands.ParseError
	assert.True(t, errors.As(err, &parseErr))
	assert.Equal(t, raw, parseErr.Raw)
	assert.True(t, strings.Contains(err.Error(), raw))
}
