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

package media_test

import (
	"testing"

	"github.com/jasonsherman/curioclip-backend/internal/core/media"
	"github.com/jasonsherman/curioclip-backend/internal/core/model"
	"github.com/zeebo/assert"
)

func TestDetectPlatform(t *testing.T) {
	cases := []struct {
		url  string
		want model.Platform
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", model.PlatformYouTube},
		{"https://youtu.be/dQw4w9WgXcQ", model.PlatformYouTube},
		{"https://www.YouTube.com/shorts/abc123", model.PlatformYouTube},
		{"https://www.tiktok.com/@user/video/7123456789", model.PlatformTikTok},
		{"https://www.instagram.com/reel/Cabc123/", model.PlatformInstagram},
		{"https://vimeo.com/123456", model.PlatformUnknown},
		{"not a url at all", model.PlatformUnknown},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, media.DetectPlatform(c.url))
	}
}

func TestDeriveVideoIdPrefersExtractorId(t *testing.T) {
	got := media.DeriveVideoId("https://www.youtube.com/watch?v=ignored", "dQw4w9WgXcQ")
	assert.Equal(t, "dQw4w9WgXcQ", got)
}

func TestDeriveVideoIdFallsBackToPathSegment(t *testing.T) {
	assert.Equal(t, "7123456789", media.DeriveVideoId("https://www.tiktok.com/@user/video/7123456789", ""))
	assert.Equal(t, "Cabc123", media.DeriveVideoId("https://www.instagram.com/reel/Cabc123/", ""))
	assert.Equal(t, "dQw4w9WgXcQ", media.DeriveVideoId("https://youtu.be/dQw4w9WgXcQ?si=tracking", ""))
}

func TestNewYtDlpFetcherDefaults(t *testing.T) {
	f := media.NewYtDlpFetcher("", "", "", "", 0)
	assert.Equal(t, "yt-dlp", f.Binary)
	assert.Equal(t, "mp3", f.AudioFormat)
	assert.Equal(t, "192", f.AudioQuality)
	assert.True(t, f.Timeout > 0)
}
