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
// services. This file wraps the GenAI model handle with a rate limiter
// and bounded retries so Vertex AI quota limits and transient failures
// never surface as hard errors on the first attempt.
package cloud

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// QuotaAwareGenerativeAIModel decorates a genai model handle with a
// token-bucket rate limiter, bounded retries, and token-usage metrics.
// It implements CompletionModel, so the summarizer treats it the same as
// any test stub.
type QuotaAwareGenerativeAIModel struct {
	GenerateConfig *genai.GenerateContentConfig
	ModelName      string
	ModelHandle    *genai.Models
	Limiter        *rate.Limiter

	inputTokenCounter  metric.Int64Counter
	outputTokenCounter metric.Int64Counter
	retryCounter       metric.Int64Counter
}

// NewQuotaAwareModel wraps a configured model handle. requestsPerSecond
// sets both the refill rate and the burst of the limiter.
func NewQuotaAwareModel(config *genai.GenerateContentConfig, name string, models *genai.Models, requestsPerSecond int) *QuotaAwareGenerativeAIModel {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 1
	}
	meter := otel.Meter("github.com/jasonsherman/curioclip-backend")
	inputTokens, _ := meter.Int64Counter(fmt.Sprintf("%s.tokens.input", name))
	outputTokens, _ := meter.Int64Counter(fmt.Sprintf("%s.tokens.output", name))
	retries, _ := meter.Int64Counter(fmt.Sprintf("%s.counter.retry", name))

	return &QuotaAwareGenerativeAIModel{
		GenerateConfig:     config,
		ModelName:          name,
		ModelHandle:        models,
		Limiter:            rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond),
		inputTokenCounter:  inputTokens,
		outputTokenCounter: outputTokens,
		retryCounter:       retries,
	}
}

// Name returns the underlying model identifier.
func (q *QuotaAwareGenerativeAIModel) Name() string {
	return q.ModelName
}

// GenerateContent waits for rate-limit clearance and then calls the
// model, retrying up to MaxRetries times with a linear backoff before
// giving up with the last error.
func (q *QuotaAwareGenerativeAIModel) GenerateContent(ctx context.Context, content []*genai.Content) (*genai.GenerateContentResponse, error) {
	if err := q.Limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt <= MaxRetries; attempt++ {
		if attempt > 0 {
			q.retryCounter.Add(ctx, 1)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * 5 * time.Second):
			}
		}
		resp, err := q.ModelHandle.GenerateContent(ctx, q.ModelName, content, q.GenerateConfig)
		if err == nil {
			if resp.UsageMetadata != nil {
				q.inputTokenCounter.Add(ctx, int64(resp.UsageMetadata.PromptTokenCount))
				q.outputTokenCounter.Add(ctx, int64(resp.UsageMetadata.CandidatesTokenCount))
			}
			return resp, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("model %s failed after %d retries: %w", q.ModelName, MaxRetries, lastErr)
}

// Complete sends a plain text prompt and concatenates the text parts of
// every candidate into a single response string.
func (q *QuotaAwareGenerativeAIModel) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := q.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", err
	}
	value := ""
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			value += part.Text
		}
	}
	return value, nil
}
