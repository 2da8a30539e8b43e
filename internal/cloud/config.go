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

// Package cloud defines the application configuration, loaded from TOML
// files, and the Google Cloud service clients built from it. Every
// component receives its settings through the Config struct at
// construction; nothing reads ambient global state.
package cloud

import (
	"sort"

	"google.golang.org/genai"
)

// DefaultSafetySettings holds the non-restrictive content safety
// thresholds applied to GenAI calls. Transcripts are user-saved content
// the owner already chose to keep, so nothing is blocked.
var DefaultSafetySettings = []*genai.SafetySetting{
	{
		Category:  genai.HarmCategoryDangerousContent,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategoryHarassment,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategoryHateSpeech,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategorySexuallyExplicit,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
}

// BigQueryDataSource configures the dataset and table names backing the
// record store. Table keys: clips, curios, tags, clip_tags, embeddings,
// tasks.
type BigQueryDataSource struct {
	DatasetName string            `toml:"dataset"`
	Tables      map[string]string `toml:"tables"`
}

// PromptTemplates holds the text/template sources for GenAI prompts.
type PromptTemplates struct {
	SummaryPrompt string `toml:"summary"`
}

// VertexAiEmbeddingModel configures the embedding model, including the
// fixed output dimensionality the store's vector column expects.
type VertexAiEmbeddingModel struct {
	Model                string `toml:"model"`
	Dimensions           int    `toml:"dimensions"`
	MaxRequestsPerMinute int    `toml:"max_requests_per_minute"`
}

// VertexAiLLMModel configures one candidate LLM. Rank orders the
// summarizer's fallback list; lower ranks are tried first.
type VertexAiLLMModel struct {
	Model              string  `toml:"model"`
	Rank               int     `toml:"rank"`
	SystemInstructions string  `toml:"system_instructions"`
	Temperature        float32 `toml:"temperature"`
	TopP               float32 `toml:"top_p"`
	TopK               float32 `toml:"top_k"`
	MaxTokens          int32   `toml:"max_tokens"`
	OutputFormat       string  `toml:"output_format"`
	RateLimit          int     `toml:"rate_limit"`
}

// TopicSubscription configures one Pub/Sub subscription and the topic
// the API publishes submissions to.
type TopicSubscription struct {
	Name             string `toml:"name"`
	Topic            string `toml:"topic"`
	DeadLetterTopic  string `toml:"dead_letter_topic"`
	TimeoutInSeconds int    `toml:"timeout_in_seconds"`
}

// Storage configures the GCS buckets: a public thumbnails bucket and a
// private secrets bucket holding the extractor cookie file.
type Storage struct {
	ThumbnailBucket string `toml:"thumbnail_bucket"`
	SecretsBucket   string `toml:"secrets_bucket"`
	CookieObject    string `toml:"cookie_object"`
	CookieLocalPath string `toml:"cookie_local_path"`
}

// Extractor configures the yt-dlp invocation used for media acquisition.
type Extractor struct {
	Binary           string `toml:"binary"`
	AudioFormat      string `toml:"audio_format"`
	AudioQuality     string `toml:"audio_quality"`
	TimeoutInSeconds int    `toml:"timeout_in_seconds"`
}

// Transcriber configures the speech-to-text requests.
type Transcriber struct {
	LanguageCode     string `toml:"language_code"`
	TimeoutInSeconds int    `toml:"timeout_in_seconds"`
}

// Chunking configures the transcript chunker.
type Chunking struct {
	ChunkSize    int     `toml:"chunk_size"`
	OverlapRatio float64 `toml:"overlap_ratio"`
}

// Search configures the similarity search read path.
type Search struct {
	DefaultLimit     int     `toml:"default_limit"`
	DefaultThreshold float64 `toml:"default_threshold"`
}

// Config is the root of the application configuration, loaded from
// hierarchical TOML files.
type Config struct {
	Application struct {
		Name            string `toml:"name"`
		GoogleProjectId string `toml:"google_project_id"`
		GoogleLocation  string `toml:"location"`
		ThreadPoolSize  int    `toml:"thread_pool_size"`
	} `toml:"application"`
	Storage            Storage                           `toml:"storage"`
	Extractor          Extractor                         `toml:"extractor"`
	Transcriber        Transcriber                       `toml:"transcriber"`
	Chunking           Chunking                          `toml:"chunking"`
	Search             Search                            `toml:"search"`
	BigQueryDataSource BigQueryDataSource                `toml:"big_query_data_source"`
	PromptTemplates    PromptTemplates                   `toml:"prompt_templates"`
	TopicSubscriptions map[string]TopicSubscription      `toml:"topic_subscriptions"`
	EmbeddingModels    map[string]VertexAiEmbeddingModel `toml:"embedding_models"`
	AgentModels        map[string]VertexAiLLMModel       `toml:"agent_models"`
}

// NewConfig creates a Config with its maps initialized so the TOML
// loader can populate them.
func NewConfig() *Config {
	return &Config{
		TopicSubscriptions: make(map[string]TopicSubscription),
		EmbeddingModels:    make(map[string]VertexAiEmbeddingModel),
		AgentModels:        make(map[string]VertexAiLLMModel),
	}
}

// RankedAgentModels returns the configured LLMs sorted by ascending
// rank. This is the summarizer's fallback order.
func (c *Config) RankedAgentModels() []VertexAiLLMModel {
	out := make([]VertexAiLLMModel, 0, len(c.AgentModels))
	for _, m := range c.AgentModels {
		out = append(out, m)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Rank < out[j].Rank })
	return out
}
