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

// Package main contains the setup and initialization logic for the
// server: loading configuration, building the Google Cloud clients and
// record store, provisioning the extractor cookie file, and starting the
// enrichment listener.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/jasonsherman/curioclip-backend/internal/cloud"
	"github.com/jasonsherman/curioclip-backend/internal/core/media"
	"github.com/jasonsherman/curioclip-backend/internal/core/services"
	"github.com/jasonsherman/curioclip-backend/internal/core/store"
	"github.com/jasonsherman/curioclip-backend/internal/core/workflow"
)

// SubmissionSubscriptionKey is the TopicSubscriptions config key for the
// clip submission queue.
const SubmissionSubscriptionKey = "ClipSubmissions"

// EmbeddingModelKey is the EmbeddingModels config key for the model used
// by both the pipeline and the search read path.
const EmbeddingModelKey = "text-embedding"

// StateManager holds the shared dependencies the route handlers use.
type StateManager struct {
	config        *cloud.Config
	cloud         *cloud.ServiceClients
	recordStore   store.RecordStore
	clipService   *services.ClipService
	searchService *services.SearchService
}

var state = &StateManager{}

// SetupOS points the configuration loader at the local TOML files.
func SetupOS() (err error) {
	err = os.Setenv(cloud.EnvConfigFilePrefix, "configs")
	if err != nil {
		return err
	}
	err = os.Setenv(cloud.EnvConfigRuntime, "local")
	return err
}

// GetConfig loads the application configuration once and caches it.
func GetConfig() *cloud.Config {
	if state.config == nil {
		if err := SetupOS(); err != nil {
			log.Fatalf("failed to setup os: %v\n", err)
		}
		config := cloud.NewConfig()
		cloud.LoadConfig(config)
		state.config = config
	}
	return state.config
}

// InitState builds every shared dependency: cloud clients, the BigQuery
// record store, the API services, and the enrichment worker attached to
// the submission subscription.
func InitState(ctx context.Context) {
	config := GetConfig()

	cloudClients, err := cloud.NewCloudServiceClients(ctx, config)
	if err != nil {
		panic(err)
	}
	state.cloud = cloudClients

	recordStore := store.NewBigQueryStore(
		cloudClients.BigQueryClient,
		config.BigQueryDataSource.DatasetName,
		config.BigQueryDataSource.Tables,
	)
	state.recordStore = recordStore

	subscription, ok := config.TopicSubscriptions[SubmissionSubscriptionKey]
	if !ok {
		log.Fatalf("missing topic subscription config %q", SubmissionSubscriptionKey)
	}
	topic := cloudClients.PubsubClient.Topic(subscription.Topic)
	state.clipService = services.NewClipService(recordStore, topic)

	embedder, ok := cloudClients.EmbeddingModels[EmbeddingModelKey]
	if !ok {
		log.Fatalf("missing embedding model config %q", EmbeddingModelKey)
	}
	state.searchService = services.NewSearchService(embedder, recordStore, config.Search)

	SetupListeners(ctx, config, cloudClients, recordStore)
}

// provisionCookieFile fetches the extractor's cookie file from the
// secrets bucket when one is configured. A missing cookie file degrades
// extraction for age-gated content but never blocks startup.
func provisionCookieFile(ctx context.Context, config *cloud.Config, cloudClients *cloud.ServiceClients) string {
	if config.Storage.CookieObject == "" {
		return ""
	}
	localPath := config.Storage.CookieLocalPath
	if localPath == "" {
		localPath = "cookies.txt"
	}
	err := cloud.EnsureLocalFile(ctx, cloudClients.BlobStore, config.Storage.CookieObject, config.Storage.SecretsBucket, localPath)
	if err != nil {
		slog.Warn("cookie file unavailable, extraction proceeds without it", "error", err)
		return ""
	}
	return localPath
}

// SetupListeners builds the enrichment workflow and starts the
// submission listener. The listener's outstanding message cap is the
// worker pool size.
func SetupListeners(
	ctx context.Context,
	config *cloud.Config,
	cloudClients *cloud.ServiceClients,
	recordStore store.RecordStore,
) {
	cookiePath := provisionCookieFile(ctx, config, cloudClients)
	fetcher := media.NewYtDlpFetcher(
		config.Extractor.Binary,
		config.Extractor.AudioFormat,
		config.Extractor.AudioQuality,
		cookiePath,
		time.Duration(config.Extractor.TimeoutInSeconds)*time.Second,
	)
	transcriber := cloud.NewGoogleSpeechTranscriber(cloudClients.SpeechClient, config.Transcriber)

	enrichment, err := workflow.NewClipEnrichmentWorkflow(
		config,
		cloudClients,
		recordStore,
		fetcher,
		transcriber,
		EmbeddingModelKey,
	)
	if err != nil {
		panic(err)
	}

	listener := cloudClients.PubSubListeners[SubmissionSubscriptionKey]
	listener.SetCommand(enrichment)
	listener.SetMaxOutstanding(config.Application.ThreadPoolSize)
	listener.Listen(ctx)
}
