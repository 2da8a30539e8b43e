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

package store

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jasonsherman/curioclip-backend/internal/core/model"
)

// MemoryStore is an in-memory RecordStore used by tests and local runs.
// All methods are safe for concurrent use.
type MemoryStore struct {
	mu         sync.RWMutex
	clips      map[string]*model.Clip
	curios     map[string]*model.Curio
	tags       map[string]*model.Tag // keyed by name
	clipTags   map[string]map[string]bool
	embeddings map[string][]*model.ClipEmbedding // keyed by clip id
	tasks      map[string]*model.ClipProcessingTask
}

// NewMemoryStore returns an empty in-memory record store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		clips:      make(map[string]*model.Clip),
		curios:     make(map[string]*model.Curio),
		tags:       make(map[string]*model.Tag),
		clipTags:   make(map[string]map[string]bool),
		embeddings: make(map[string][]*model.ClipEmbedding),
		tasks:      make(map[string]*model.ClipProcessingTask),
	}
}

func (s *MemoryStore) CreateClip(_ context.Context, clip *model.Clip) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if clip.Id == "" {
		clip.Id = uuid.NewString()
	}
	if clip.CreatedAt.IsZero() {
		clip.CreatedAt = time.Now()
	}
	cp := *clip
	s.clips[clip.Id] = &cp
	return nil
}

func (s *MemoryStore) GetClip(_ context.Context, id string) (*model.Clip, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	clip, ok := s.clips[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *clip
	return &cp, nil
}

func (s *MemoryStore) UpdateClip(_ context.Context, clip *model.Clip) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clips[clip.Id]; !ok {
		return ErrNotFound
	}
	cp := *clip
	s.clips[clip.Id] = &cp
	return nil
}

func (s *MemoryStore) ListClipsByUser(_ context.Context, userId string) ([]*model.Clip, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*model.Clip, 0)
	for _, clip := range s.clips {
		if clip.UserId == userId {
			cp := *clip
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) FindReusableSource(_ context.Context, url string, excludeId string) (*model.Clip, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var donor *model.Clip
	for _, clip := range s.clips {
		if clip.Id == excludeId || clip.Url != url {
			continue
		}
		if clip.Transcript == "" || clip.Summary == "" {
			continue
		}
		if donor == nil || clip.CreatedAt.After(donor.CreatedAt) {
			donor = clip
		}
	}
	if donor == nil {
		return nil, nil
	}
	cp := *donor
	return &cp, nil
}

func (s *MemoryStore) CreateCurio(_ context.Context, curio *model.Curio) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if curio.Id == "" {
		curio.Id = uuid.NewString()
	}
	if curio.CreatedAt.IsZero() {
		curio.CreatedAt = time.Now()
	}
	cp := *curio
	s.curios[curio.Id] = &cp
	return nil
}

func (s *MemoryStore) GetCurio(_ context.Context, id string) (*model.Curio, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	curio, ok := s.curios[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *curio
	return &cp, nil
}

func (s *MemoryStore) ListCurioNames(_ context.Context, userId string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0)
	for _, curio := range s.curios {
		if curio.UserId == userId {
			names = append(names, curio.Name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (s *MemoryStore) FindCurioByName(_ context.Context, name string) (*model.Curio, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, curio := range s.curios {
		if curio.Name == name {
			cp := *curio
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) GetOrCreateCurio(_ context.Context, template *model.Curio) (*model.Curio, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, curio := range s.curios {
		if curio.UserId == template.UserId && curio.Name == template.Name {
			cp := *curio
			return &cp, false, nil
		}
	}
	created := *template
	if created.Id == "" {
		created.Id = uuid.NewString()
	}
	if created.CreatedAt.IsZero() {
		created.CreatedAt = time.Now()
	}
	s.curios[created.Id] = &created
	cp := created
	return &cp, true, nil
}

func (s *MemoryStore) GetOrCreateTag(_ context.Context, name string) (*model.Tag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tag, ok := s.tags[name]; ok {
		cp := *tag
		return &cp, nil
	}
	tag := &model.Tag{Id: uuid.NewString(), Name: name}
	s.tags[name] = tag
	cp := *tag
	return &cp, nil
}

func (s *MemoryStore) AttachTag(_ context.Context, clipId string, tagId string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.clipTags[clipId] == nil {
		s.clipTags[clipId] = make(map[string]bool)
	}
	s.clipTags[clipId][tagId] = true
	return nil
}

func (s *MemoryStore) ListTagsForClip(_ context.Context, clipId string) ([]*model.Tag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*model.Tag, 0)
	for _, tag := range s.tags {
		if s.clipTags[clipId][tag.Id] {
			cp := *tag
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemoryStore) CreateEmbeddings(_ context.Context, embeddings []*model.ClipEmbedding) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range embeddings {
		cp := *e
		if cp.Id == "" {
			cp.Id = uuid.NewString()
		}
		cp.Vector = append([]float64(nil), e.Vector...)
		s.embeddings[cp.ClipId] = append(s.embeddings[cp.ClipId], &cp)
	}
	return nil
}

func (s *MemoryStore) ListEmbeddingsForClip(_ context.Context, clipId string) ([]*model.ClipEmbedding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*model.ClipEmbedding, 0, len(s.embeddings[clipId]))
	for _, e := range s.embeddings[clipId] {
		cp := *e
		cp.Vector = append([]float64(nil), e.Vector...)
		out = append(out, &cp)
	}
	return out, nil
}

func (s *MemoryStore) NearestNeighbors(_ context.Context, vector []float64, limit int) ([]*EmbeddingDistance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*EmbeddingDistance, 0)
	for _, records := range s.embeddings {
		for _, e := range records {
			cp := *e
			cp.Vector = append([]float64(nil), e.Vector...)
			out = append(out, &EmbeddingDistance{Embedding: &cp, Similarity: cosine(vector, e.Vector)})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Similarity > out[j].Similarity })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) CreateTask(_ context.Context, task *model.ClipProcessingTask) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if task.Id == "" {
		task.Id = uuid.NewString()
	}
	now := time.Now()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	task.UpdatedAt = now
	cp := *task
	s.tasks[task.Id] = &cp
	return nil
}

func (s *MemoryStore) GetTask(_ context.Context, id string) (*model.ClipProcessingTask, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	task, ok := s.tasks[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *task
	return &cp, nil
}

func (s *MemoryStore) GetTaskForClip(_ context.Context, clipId string) (*model.ClipProcessingTask, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *model.ClipProcessingTask
	for _, task := range s.tasks {
		if task.ClipId != clipId {
			continue
		}
		if latest == nil || task.CreatedAt.After(latest.CreatedAt) {
			latest = task
		}
	}
	if latest == nil {
		return nil, ErrNotFound
	}
	cp := *latest
	return &cp, nil
}

func (s *MemoryStore) SetTaskStatus(_ context.Context, id string, status model.TaskStatus, errText string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[id]
	if !ok {
		return ErrNotFound
	}
	task.Status = status
	task.Error = errText
	task.UpdatedAt = time.Now()
	return nil
}

// cosine computes cosine similarity between two vectors of equal length.
// A zero vector on either side yields zero.
func cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
