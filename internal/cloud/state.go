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
// services. This file initializes every Google Cloud client the
// application uses and bundles them into one ServiceClients container
// that is passed to the workflows and API handlers at startup.
package cloud

import (
	"context"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/pubsub"
	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/storage"
	"google.golang.org/genai"
)

// ServiceClients holds all the initialized Google Cloud clients and the
// configured service wrappers built on top of them. One instance is
// created at startup and shared across the application.
type ServiceClients struct {
	StorageClient   *storage.Client
	PubsubClient    *pubsub.Client
	GenAIClient     *genai.Client
	BigQueryClient  *bigquery.Client
	SpeechClient    *speech.Client
	BlobStore       *GCSBlobStore
	PubSubListeners map[string]*PubSubListener
	EmbeddingModels map[string]*GenAIEmbedder
	AgentModels     map[string]*QuotaAwareGenerativeAIModel

	// RankedAgents is the summarizer fallback order: every configured
	// agent model sorted by ascending rank.
	RankedAgents []*QuotaAwareGenerativeAIModel
}

// Close shuts down every client connection. Useful in tests and
// controlled shutdowns; in the server the root context teardown handles
// most of it.
func (c *ServiceClients) Close() {
	_ = c.StorageClient.Close()
	_ = c.PubsubClient.Close()
	_ = c.BigQueryClient.Close()
	_ = c.SpeechClient.Close()
}

// NewCloudServiceClients creates and configures all Google Cloud clients
// from the application configuration.
func NewCloudServiceClients(ctx context.Context, config *Config) (*ServiceClients, error) {
	sc, err := storage.NewClient(ctx)
	if err != nil {
		return nil, err
	}

	pc, err := pubsub.NewClient(ctx, config.Application.GoogleProjectId)
	if err != nil {
		return nil, err
	}

	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:  config.Application.GoogleProjectId,
		Location: config.Application.GoogleLocation,
		Backend:  genai.BackendVertexAI,
	})
	if err != nil {
		return nil, err
	}

	bc, err := bigquery.NewClient(ctx, config.Application.GoogleProjectId)
	if err != nil {
		return nil, err
	}

	spc, err := speech.NewClient(ctx)
	if err != nil {
		return nil, err
	}

	// Listeners start without a command; the workflows attach one once
	// the processing chains are assembled.
	subscriptions := make(map[string]*PubSubListener)
	for subKey, values := range config.TopicSubscriptions {
		listener, err := NewPubSubListener(pc, values.Name, nil)
		if err != nil {
			return nil, err
		}
		subscriptions[subKey] = listener
	}

	embeddingModels := make(map[string]*GenAIEmbedder)
	for embKey, values := range config.EmbeddingModels {
		embeddingModels[embKey] = NewGenAIEmbedder(gc.Models, values)
	}

	agentModels := make(map[string]*QuotaAwareGenerativeAIModel)
	byName := make(map[string]*QuotaAwareGenerativeAIModel)
	for amKey, values := range config.AgentModels {
		generateConfig := &genai.GenerateContentConfig{
			Temperature:       genai.Ptr[float32](values.Temperature),
			TopP:              genai.Ptr[float32](values.TopP),
			TopK:              genai.Ptr[float32](values.TopK),
			MaxOutputTokens:   values.MaxTokens,
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: values.SystemInstructions}}},
			SafetySettings:    DefaultSafetySettings,
			ResponseMIMEType:  values.OutputFormat,
		}
		wrapped := NewQuotaAwareModel(generateConfig, values.Model, gc.Models, values.RateLimit)
		agentModels[amKey] = wrapped
		byName[values.Model] = wrapped
	}

	ranked := make([]*QuotaAwareGenerativeAIModel, 0, len(byName))
	for _, m := range config.RankedAgentModels() {
		if wrapped, ok := byName[m.Model]; ok {
			ranked = append(ranked, wrapped)
		}
	}

	return &ServiceClients{
		StorageClient:   sc,
		PubsubClient:    pc,
		GenAIClient:     gc,
		BigQueryClient:  bc,
		SpeechClient:    spc,
		BlobStore:       NewGCSBlobStore(sc),
		PubSubListeners: subscriptions,
		EmbeddingModels: embeddingModels,
		AgentModels:     agentModels,
		RankedAgents:    ranked,
	}, nil
}
