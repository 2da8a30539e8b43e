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

package text_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/jasonsherman/curioclip-backend/internal/core/text"
	"github.com/zeebo/assert"
)

func words(n int) string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("w%d", i)
	}
	return strings.Join(out, " ")
}

func TestChunksShortTextIsSingleChunk(t *testing.T) {
	chunks, err := text.CollectChunks(words(10), 300, 0.2)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(chunks))
	assert.Equal(t, words(10), chunks[0])
}

func TestChunksEmptyTextYieldsNothing(t *testing.T) {
	chunks, err := text.CollectChunks("   ", 300, 0.2)
	assert.NoError(t, err)
	assert.Equal(t, 0, len(chunks))
}

func TestChunksOverlapWindows(t *testing.T) {
	// 10 words, window 4, stride 3: [0:4] [3:7] [6:10].
	chunks, err := text.CollectChunks(words(10), 4, 0.25)
	assert.NoError(t, err)
	assert.Equal(t, 3, len(chunks))
	assert.Equal(t, "w0 w1 w2 w3", chunks[0])
	assert.Equal(t, "w3 w4 w5 w6", chunks[1])
	assert.Equal(t, "w6 w7 w8 w9", chunks[2])
}

func TestChunksCountMatchesFormula(t *testing.T) {
	// 100 words, window 30, stride 24: ceil((100-30)/24)+1 = 4 windows.
	chunks, err := text.CollectChunks(words(100), 30, 0.2)
	assert.NoError(t, err)
	assert.Equal(t, 4, len(chunks))
}

func TestChunksExactWindowIsSingleChunk(t *testing.T) {
	// The first window already covers the tail; no suffix chunk follows.
	chunks, err := text.CollectChunks(words(4), 4, 0.25)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(chunks))
}

func TestChunksRejectsZeroStride(t *testing.T) {
	_, err := text.Chunks(words(10), 2, 0.9)
	assert.Error(t, err)
}

func TestStride(t *testing.T) {
	assert.Equal(t, 240, text.Stride(300, 0.2))
	assert.Equal(t, 3, text.Stride(4, 0.25))
	assert.Equal(t, 0, text.Stride(2, 0.9))
}
