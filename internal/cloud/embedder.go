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
// services. This file implements the TextEmbedder contract over the
// GenAI embedding models.
package cloud

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// GenAIEmbedder implements TextEmbedder over a Vertex AI embedding
// model. One Embed call embeds the whole batch; the service preserves
// input order in its response.
type GenAIEmbedder struct {
	ModelName   string
	ModelHandle *genai.Models
	VectorDims  int
	Limiter     *rate.Limiter
}

// NewGenAIEmbedder builds an embedder from its model configuration.
func NewGenAIEmbedder(models *genai.Models, cfg VertexAiEmbeddingModel) *GenAIEmbedder {
	rpm := cfg.MaxRequestsPerMinute
	if rpm <= 0 {
		rpm = 60
	}
	return &GenAIEmbedder{
		ModelName:   cfg.Model,
		ModelHandle: models,
		VectorDims:  cfg.Dimensions,
		Limiter:     rate.NewLimiter(rate.Limit(float64(rpm)/60.0), rpm),
	}
}

// Dimensions returns the configured output dimensionality.
func (e *GenAIEmbedder) Dimensions() int {
	return e.VectorDims
}

// Embed batches all texts into one EmbedContent call and returns the
// vectors in input order. A response with the wrong count or a vector of
// the wrong width is a hard error; nothing is truncated or padded.
func (e *GenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return [][]float64{}, nil
	}
	if err := e.Limiter.Wait(ctx); err != nil {
		return nil, err
	}

	contents := make([]*genai.Content, 0, len(texts))
	for _, t := range texts {
		contents = append(contents, genai.NewContentFromText(t, genai.RoleUser))
	}
	config := &genai.EmbedContentConfig{
		OutputDimensionality: genai.Ptr[int32](int32(e.VectorDims)),
	}
	resp, err := e.ModelHandle.EmbedContent(ctx, e.ModelName, contents, config)
	if err != nil {
		return nil, fmt.Errorf("embedding call failed: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: sent %d texts, got %d vectors", len(texts), len(resp.Embeddings))
	}

	out := make([][]float64, 0, len(resp.Embeddings))
	for i, emb := range resp.Embeddings {
		if len(emb.Values) != e.VectorDims {
			return nil, fmt.Errorf("embedding %d has %d dimensions, expected %d", i, len(emb.Values), e.VectorDims)
		}
		vector := make([]float64, len(emb.Values))
		for j, v := range emb.Values {
			vector[j] = float64(v)
		}
		out = append(out, vector)
	}
	return out, nil
}
