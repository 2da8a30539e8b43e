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

// Package testutil provides helpers and sample data shared by the test
// suite: a cached test configuration, canned queue messages, and clip
// fixtures in various enrichment states.
package testutil

import (
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jasonsherman/curioclip-backend/internal/cloud"
	"github.com/jasonsherman/curioclip-backend/internal/core/model"
)

// StateManager caches the loaded test configuration so the TOML files
// are parsed once per test run.
type StateManager struct {
	config *cloud.Config
}

var state = &StateManager{}

// HandleErr fails the test when err is non-nil. Reduces boilerplate in
// setup-heavy tests.
func HandleErr(err error, t *testing.T) {
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

// GetTestSubmissionText returns the queue payload for a submission with
// the given clip and task ids.
func GetTestSubmissionText(clipId string, taskId string) string {
	return fmt.Sprintf(`{"clip_id": %q, "task_id": %q}`, clipId, taskId)
}

// NewTestClip returns a freshly submitted clip with nothing enriched
// yet.
func NewTestClip(userId string, url string) *model.Clip {
	return &model.Clip{
		Id:        uuid.NewString(),
		UserId:    userId,
		Url:       url,
		Platform:  model.PlatformYouTube,
		CreatedAt: time.Now().UTC(),
	}
}

// NewEnrichedTestClip returns a clip that already finished enrichment,
// suitable as a dedup donor.
func NewEnrichedTestClip(userId string, url string) *model.Clip {
	clip := NewTestClip(userId, url)
	clip.PlatformVideoId = "dQw4w9WgXcQ"
	clip.Title = "Five Packing Tricks for Carry-On Only Travel"
	clip.Summary = "A traveler shows five compression tricks that fit two weeks of clothes in a carry-on."
	clip.Description = "The video walks through rolling techniques, compression cubes, and wearing bulky items on the plane."
	clip.Transcript = "okay so the first trick is rolling everything instead of folding it saves about thirty percent of the space"
	clip.ThumbnailUrl = "https://storage.googleapis.com/test-thumbnails/thumbnails/donor.jpg"
	return clip
}

// NewTestTask returns a pending task for the clip.
func NewTestTask(clipId string) *model.ClipProcessingTask {
	now := time.Now().UTC()
	return &model.ClipProcessingTask{
		Id:        uuid.NewString(),
		ClipId:    clipId,
		Status:    model.TaskStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewTestVector returns a deterministic vector of the store's expected
// width with a single dominant axis, so cosine comparisons between
// fixtures behave predictably.
func NewTestVector(axis int) []float64 {
	v := make([]float64, model.EmbeddingDimensions)
	for i := range v {
		v[i] = 0.001
	}
	v[axis%model.EmbeddingDimensions] = 1.0
	return v
}

// SetupOS points the configuration loader at the test TOML files.
func SetupOS() (err error) {
	err = os.Setenv(cloud.EnvConfigFilePrefix, "configs")
	if err != nil {
		return err
	}
	err = os.Setenv(cloud.EnvConfigRuntime, "test")
	return err
}

// GetConfig is the singleton accessor for the test configuration.
func GetConfig() *cloud.Config {
	if state.config == nil {
		if err := SetupOS(); err != nil {
			log.Fatalf("failed to setup environment for test: %v\n", err)
		}
		config := cloud.NewConfig()
		cloud.LoadConfig(config)
		state.config = config
	}
	return state.config
}
