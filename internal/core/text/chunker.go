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

// Package text provides the word-window chunker that prepares long
// transcripts for embedding.
package text

import (
	"fmt"
	"iter"
	"strings"
)

const (
	// DefaultChunkSize is the target chunk length in words.
	DefaultChunkSize = 300
	// DefaultOverlapRatio is the fraction of each chunk repeated at the
	// start of the next one.
	DefaultOverlapRatio = 0.2
)

// Stride computes the window step for a chunk size and overlap ratio.
// The result must be positive for the configuration to be usable.
func Stride(chunkSize int, overlapRatio float64) int {
	return int(float64(chunkSize) * (1.0 - overlapRatio))
}

// Chunks splits text into overlapping word windows of up to chunkSize
// words, stepping by Stride(chunkSize, overlapRatio) each time. The final
// partial window is emitted only when non-empty. The returned sequence is
// lazy and restartable; Chunks is a pure function of its arguments.
//
// Inputs:
//   - text: The source text, tokenized on whitespace.
//   - chunkSize: Target window length in words.
//   - overlapRatio: Fraction of a window repeated in the next (0 <= r < 1).
//
// Outputs:
//   - iter.Seq[string]: The chunk sequence.
//   - error: A configuration error when the resulting stride is not positive.
func Chunks(text string, chunkSize int, overlapRatio float64) (iter.Seq[string], error) {
	stride := Stride(chunkSize, overlapRatio)
	if stride <= 0 {
		return nil, fmt.Errorf("invalid chunk configuration: chunk_size=%d overlap_ratio=%v yields stride %d, must be > 0", chunkSize, overlapRatio, stride)
	}

	words := strings.Fields(text)
	seq := func(yield func(string) bool) {
		for start := 0; start < len(words); start += stride {
			end := start + chunkSize
			if end > len(words) {
				end = len(words)
			}
			if !yield(strings.Join(words[start:end], " ")) {
				return
			}
			// The last full window already covered the tail; a further
			// step would only emit a suffix of it.
			if end == len(words) {
				return
			}
		}
	}
	return seq, nil
}

// CollectChunks materializes the chunk sequence into a slice. Convenience
// wrapper for callers that need random access or a count.
func CollectChunks(text string, chunkSize int, overlapRatio float64) ([]string, error) {
	seq, err := Chunks(text, chunkSize, overlapRatio)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0)
	for chunk := range seq {
		out = append(out, chunk)
	}
	return out, nil
}
