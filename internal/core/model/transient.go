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

// Package model defines the data structures for the application. This
// file holds the transient structs: in-memory containers that carry data
// between pipeline commands but are never persisted in this form.
package model

import (
	"errors"
	"math"
)

// CurioOtherSentinel is the value a model returns for the assigned curio
// when none of the owner's existing curios fit.
const CurioOtherSentinel = "Other"

// ClipSubmission is the queue message payload that starts one enrichment
// run. One message per clip-submission attempt.
type ClipSubmission struct {
	ClipId string `json:"clip_id"`
	TaskId string `json:"task_id"`
}

// FetchResult holds what media acquisition produced: the local audio
// file, the best-effort thumbnail, and the canonical metadata reported by
// the extractor. The paths point at temp files owned by the workflow
// context, not by this struct.
type FetchResult struct {
	AudioPath     string
	ThumbnailPath string
	ThumbnailUrl  string
	Title         string
	Platform      Platform
	VideoId       string
}

// ClipSummary is the validated shape of the summarizer's JSON output.
// Missing required keys reject the response rather than defaulting, so
// malformed categories and tags never propagate downstream.
type ClipSummary struct {
	OneLineSummary   string   `json:"one_line_summary"`
	MainTipOrProduct string   `json:"main_tip_or_product,omitempty"`
	Tags             []string `json:"tags"`
	AssignedCurio    string   `json:"assigned_curio,omitempty"`
	SuggestedCurio   string   `json:"suggested_curio,omitempty"`
	Description      string   `json:"description,omitempty"`
}

// Validate enforces the required keys: a non-empty one-line summary and
// at least one tag.
func (s *ClipSummary) Validate() error {
	if len(s.OneLineSummary) == 0 {
		return errors.New("summary response missing one_line_summary")
	}
	if len(s.Tags) == 0 {
		return errors.New("summary response missing tags")
	}
	return nil
}

// SearchMatch is one surviving row from a similarity search. Several
// matches can share a clip; callers collapse to the best score per clip
// when presenting results.
type SearchMatch struct {
	ClipId       string         `json:"clip_id"`
	EmbeddingId  string         `json:"embedding_id"`
	Field        EmbeddingField `json:"field"`
	ChunkIndex   int            `json:"chunk_index"`
	TextChunk    string         `json:"text_chunk"`
	PercentMatch float64        `json:"percent_match"`
}

// PercentMatch scales a cosine similarity to a 0-100 score rounded to two
// decimals.
func PercentMatch(similarity float64) float64 {
	return math.Round(similarity*100*100) / 100
}
