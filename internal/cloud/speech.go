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

// Package cloud provides components for interacting with Google Cloud
// services. This file implements the SpeechTranscriber contract over the
// Cloud Speech-to-Text API.
package cloud

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
)

// GoogleSpeechTranscriber implements SpeechTranscriber with a
// synchronous Recognize call. Plain text only; no word timestamps. The
// extractor always transcodes audio to mp3, so the encoding is fixed.
type GoogleSpeechTranscriber struct {
	Client       *speech.Client
	LanguageCode string
	Timeout      time.Duration
}

// NewGoogleSpeechTranscriber builds a transcriber from its
// configuration, defaulting to US English and a two minute timeout.
func NewGoogleSpeechTranscriber(client *speech.Client, cfg Transcriber) *GoogleSpeechTranscriber {
	language := cfg.LanguageCode
	if language == "" {
		language = "en-US"
	}
	timeout := time.Duration(cfg.TimeoutInSeconds) * time.Second
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &GoogleSpeechTranscriber{
		Client:       client,
		LanguageCode: language,
		Timeout:      timeout,
	}
}

// Transcribe reads the audio file and returns the recognized text with
// all result alternatives joined in order. Errors propagate untouched;
// the retry policy lives at the task level, not here.
func (t *GoogleSpeechTranscriber) Transcribe(ctx context.Context, audioPath string) (string, error) {
	data, err := os.ReadFile(audioPath)
	if err != nil {
		return "", fmt.Errorf("failed to read audio file %s: %w", audioPath, err)
	}

	callCtx, cancel := context.WithTimeout(ctx, t.Timeout)
	defer cancel()

	resp, err := t.Client.Recognize(callCtx, &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:     speechpb.RecognitionConfig_MP3,
			LanguageCode: t.LanguageCode,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: data},
		},
	})
	if err != nil {
		return "", fmt.Errorf("speech recognition failed: %w", err)
	}

	var sb strings.Builder
	for _, result := range resp.Results {
		if len(result.Alternatives) == 0 {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString(result.Alternatives[0].Transcript)
	}
	return sb.String(), nil
}
