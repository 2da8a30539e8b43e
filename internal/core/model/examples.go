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
// file provides factory functions for hardcoded example instances used
// for few-shot prompting: embedding a concrete example of the desired
// JSON output in the prompt keeps the model's responses consistent and
// parsable.
package model

// GetExampleClipSummary creates a sample ClipSummary used as the few-shot
// example in the summarization prompt. It shows the model the exact keys
// expected, including the "Other" sentinel interplay between assigned and
// suggested curios.
//
// Outputs:
//   - *ClipSummary: A pointer to a hardcoded ClipSummary object.
func GetExampleClipSummary() *ClipSummary {
	return &ClipSummary{
		OneLineSummary:   "A budget airline hack for booking multi-city flights at single-leg prices.",
		MainTipOrProduct: "Use the airline's multi-city search with hidden-city ticketing to cut fares.",
		Tags:             []string{"travel", "flights", "budget", "airlines"},
		AssignedCurio:    CurioOtherSentinel,
		SuggestedCurio:   "Travel Hacks",
		Description: "The creator walks through booking a three-city trip using fare " +
			"comparison tools and explains when hidden-city ticketing saves money. " +
			"They close with the risks: checked bags and frequent-flyer penalties.",
	}
}
