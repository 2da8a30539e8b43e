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
	"strings"

	"github.com/jasonsherman/curioclip-backend/internal/core/model"
	"github.com/kaptinlin/jsonrepair"
)

// ParseError reports an unrecoverable model response and keeps the raw
// payload so the caller can log what the model actually said.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse summary response: %v (raw: %s)", e.Err, e.Raw)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ParseClipSummary turns a raw model response into a validated summary.
// Models wrap JSON in markdown fences, prepend prose, and emit raw
// newlines inside string values, so parsing runs through a recovery
// ladder: strip fences, isolate the outermost object, re-escape bare
// newlines, and finally hand the text to a lenient repairer. A response
// that survives none of that fails with the raw payload attached.
func ParseClipSummary(raw string) (*model.ClipSummary, error) {
	candidate := stripCodeFences(raw)
	candidate = outermostObject(candidate)
	if candidate == "" {
		return nil, &ParseError{Raw: raw, Err: fmt.Errorf("no JSON object found in response")}
	}

	summary := &model.ClipSummary{}
	if err := json.Unmarshal([]byte(candidate), summary); err != nil {
		escaped := escapeRawNewlines(candidate)
		if err2 := json.Unmarshal([]byte(escaped), summary); err2 != nil {
			repaired, repairErr := jsonrepair.JSONRepair(escaped)
			if repairErr != nil {
				return nil, &ParseError{Raw: raw, Err: err}
			}
			if err3 := json.Unmarshal([]byte(repaired), summary); err3 != nil {
				return nil, &ParseError{Raw: raw, Err: err3}
			}
		}
	}

	if err := summary.Validate(); err != nil {
		return nil, &ParseError{Raw: raw, Err: err}
	}
	return summary, nil
}

// stripCodeFences removes a leading ```json (or bare ```) fence and the
// matching trailing fence.
func stripCodeFences(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

// outermostObject slices from the first '{' to the last '}' so prose
// around the object is discarded. Returns "" when no object brackets
// exist.
func outermostObject(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}

// escapeRawNewlines replaces literal newline and carriage return bytes
// that appear inside quoted JSON strings with their escape sequences.
// Newlines between tokens stay untouched.
func escapeRawNewlines(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	inString := false
	escaped := false
	for _, r := range s {
		if inString {
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == '"':
				inString = false
			case r == '\n':
				sb.WriteString(`\n`)
				continue
			case r == '\r':
				sb.WriteString(`\r`)
				continue
			}
		} else if r == '"' {
			inString = true
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
