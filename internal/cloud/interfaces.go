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
// services. This file defines the narrow collaborator contracts the
// pipeline commands depend on, so tests can substitute deterministic
// fakes for the network-backed implementations.
package cloud

import "context"

// CompletionModel is one candidate LLM in the summarizer's ranked
// fallback list.
type CompletionModel interface {
	// Name identifies the model in logs and error messages.
	Name() string

	// Complete sends a prompt and returns the raw text response.
	Complete(ctx context.Context, prompt string) (string, error)
}

// TextEmbedder converts a batch of texts into fixed-dimension vectors in
// one order-preserving call. Output index i corresponds to input index i.
type TextEmbedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)

	// Dimensions returns the fixed vector width every result must have.
	Dimensions() int
}

// SpeechTranscriber converts a local audio file to plain text.
type SpeechTranscriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// BlobStore is the object storage contract: upload a local file and get
// back a public URL, or download an object's bytes.
type BlobStore interface {
	Upload(ctx context.Context, localPath string, objectName string, bucket string) (string, error)
	Download(ctx context.Context, objectName string, bucket string) ([]byte, error)
}
