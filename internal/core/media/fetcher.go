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

// Package media acquires source content for the pipeline: it resolves
// the platform from a URL, shells out to yt-dlp for the best audio
// stream and the canonical metadata, and downloads the thumbnail on a
// best-effort basis. Temp files created here belong to the caller's
// workflow context, which removes them when the task finishes.
package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jasonsherman/curioclip-backend/internal/core/model"
)

// Fetcher is the extraction/download contract. Implementations return
// local file paths plus the metadata the extractor reported; they never
// clean up the files they create.
type Fetcher interface {
	Fetch(ctx context.Context, sourceUrl string) (*model.FetchResult, error)
}

// DetectPlatform classifies a URL by substring matching against the
// known platform domains. Unmatched URLs are still attempted under
// PlatformUnknown.
func DetectPlatform(sourceUrl string) model.Platform {
	lower := strings.ToLower(sourceUrl)
	switch {
	case strings.Contains(lower, "youtube.com"), strings.Contains(lower, "youtu.be"):
		return model.PlatformYouTube
	case strings.Contains(lower, "tiktok.com"):
		return model.PlatformTikTok
	case strings.Contains(lower, "instagram.com"):
		return model.PlatformInstagram
	default:
		return model.PlatformUnknown
	}
}

// DeriveVideoId returns the platform-native video id: the extractor's
// reported id when present, otherwise the URL's trailing path segment
// with any query string stripped.
func DeriveVideoId(sourceUrl string, extractorId string) string {
	if extractorId != "" {
		return extractorId
	}
	parsed, err := url.Parse(sourceUrl)
	if err != nil {
		return ""
	}
	path := strings.TrimSuffix(parsed.Path, "/")
	if idx := strings.LastIndex(path, "/"); idx >= 0 {
		return path[idx+1:]
	}
	return path
}

// extractorInfo is the subset of yt-dlp's JSON metadata the pipeline
// consumes.
type extractorInfo struct {
	Id        string `json:"id"`
	Title     string `json:"title"`
	Thumbnail string `json:"thumbnail"`
}

// YtDlpFetcher implements Fetcher by invoking the yt-dlp binary. The
// invocation selects the best audio-only stream, transcodes it to mp3,
// disables playlist expansion and certificate checks, and emits the
// metadata JSON on stdout.
type YtDlpFetcher struct {
	Binary       string
	AudioFormat  string
	AudioQuality string
	CookiePath   string
	Timeout      time.Duration
	HTTPClient   *http.Client
}

// NewYtDlpFetcher builds a fetcher with defaults for anything the
// configuration left blank.
func NewYtDlpFetcher(binary string, audioFormat string, audioQuality string, cookiePath string, timeout time.Duration) *YtDlpFetcher {
	if binary == "" {
		binary = "yt-dlp"
	}
	if audioFormat == "" {
		audioFormat = "mp3"
	}
	if audioQuality == "" {
		audioQuality = "192"
	}
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &YtDlpFetcher{
		Binary:       binary,
		AudioFormat:  audioFormat,
		AudioQuality: audioQuality,
		CookiePath:   cookiePath,
		Timeout:      timeout,
		HTTPClient:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Fetch downloads the audio track and thumbnail for a URL and returns
// the local paths plus metadata. Extraction that yields no metadata is a
// hard error; a thumbnail failure degrades to an empty thumbnail path.
func (f *YtDlpFetcher) Fetch(ctx context.Context, sourceUrl string) (*model.FetchResult, error) {
	callCtx, cancel := context.WithTimeout(ctx, f.Timeout)
	defer cancel()

	outputBase := filepath.Join(os.TempDir(), "clip-audio-"+uuid.NewString())
	args := []string{
		"-f", "bestaudio/best",
		"-x",
		"--audio-format", f.AudioFormat,
		"--audio-quality", f.AudioQuality,
		"--no-playlist",
		"--no-check-certificates",
		"--restrict-filenames",
		"--no-warnings",
		"--quiet",
		"--print-json",
		"-o", outputBase + ".%(ext)s",
	}
	if f.CookiePath != "" {
		args = append(args, "--cookies", f.CookiePath)
	}
	args = append(args, sourceUrl)

	cmd := exec.CommandContext(callCtx, f.Binary, args...)
	stdout, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return nil, fmt.Errorf("extraction failed for %s: %s", sourceUrl, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return nil, fmt.Errorf("extraction failed for %s: %w", sourceUrl, err)
	}
	if len(strings.TrimSpace(string(stdout))) == 0 {
		return nil, fmt.Errorf("extraction yielded no metadata for %s", sourceUrl)
	}

	info := &extractorInfo{}
	if err := json.Unmarshal(stdout, info); err != nil {
		return nil, fmt.Errorf("failed to parse extractor metadata for %s: %w", sourceUrl, err)
	}

	audioPath := outputBase + "." + f.AudioFormat
	if _, err := os.Stat(audioPath); err != nil {
		return nil, fmt.Errorf("extraction produced no audio file for %s: %w", sourceUrl, err)
	}

	result := &model.FetchResult{
		AudioPath:    audioPath,
		ThumbnailUrl: info.Thumbnail,
		Title:        info.Title,
		Platform:     DetectPlatform(sourceUrl),
		VideoId:      DeriveVideoId(sourceUrl, info.Id),
	}

	// Thumbnail download is best-effort: a miss means no thumbnail, not
	// a failed fetch.
	if info.Thumbnail != "" {
		if path, err := f.downloadThumbnail(callCtx, info.Thumbnail); err == nil {
			result.ThumbnailPath = path
		}
	}
	return result, nil
}

// downloadThumbnail fetches the thumbnail URL into a temp file and
// returns its path.
func (f *YtDlpFetcher) downloadThumbnail(ctx context.Context, thumbnailUrl string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, thumbnailUrl, nil)
	if err != nil {
		return "", err
	}
	resp, err := f.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("thumbnail fetch returned status %d", resp.StatusCode)
	}

	tmp, err := os.CreateTemp("", "clip-thumb-*")
	if err != nil {
		return "", err
	}
	defer func() { _ = tmp.Close() }()
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		_ = os.Remove(tmp.Name())
		return "", err
	}
	return tmp.Name(), nil
}
