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

// Package services contains the business logic sitting between the API
// handlers and the record store. This file implements clip submission:
// persist the bare clip and its pending task, then hand the work to the
// queue so the HTTP request returns immediately.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/google/uuid"
	"github.com/jasonsherman/curioclip-backend/internal/core/media"
	"github.com/jasonsherman/curioclip-backend/internal/core/model"
	"github.com/jasonsherman/curioclip-backend/internal/core/store"
)

// ClipService owns the submission write path and the status read path.
type ClipService struct {
	Store store.RecordStore
	Topic *pubsub.Topic
}

func NewClipService(recordStore store.RecordStore, topic *pubsub.Topic) *ClipService {
	return &ClipService{Store: recordStore, Topic: topic}
}

// ClipStatus is the polling answer for one submission: the task's state
// plus the clip once enrichment has something to show.
type ClipStatus struct {
	Task *model.ClipProcessingTask `json:"task"`
	Clip *model.Clip               `json:"clip"`
}

// Submit records a new clip with its pending task and publishes the
// submission message. The clip row exists before the publish so a worker
// racing the HTTP response always finds it. Publish failures mark the
// task failed immediately; with no message in flight nothing else would.
func (s *ClipService) Submit(ctx context.Context, userId string, sourceUrl string) (*model.Clip, *model.ClipProcessingTask, error) {
	if sourceUrl == "" {
		return nil, nil, fmt.Errorf("url is required")
	}

	now := time.Now().UTC()
	clip := &model.Clip{
		Id:        uuid.NewString(),
		UserId:    userId,
		Url:       sourceUrl,
		Platform:  media.DetectPlatform(sourceUrl),
		CreatedAt: now,
	}
	if err := s.Store.CreateClip(ctx, clip); err != nil {
		return nil, nil, fmt.Errorf("failed to create clip: %w", err)
	}

	task := &model.ClipProcessingTask{
		Id:        uuid.NewString(),
		ClipId:    clip.Id,
		Status:    model.TaskStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Store.CreateTask(ctx, task); err != nil {
		return nil, nil, fmt.Errorf("failed to create task: %w", err)
	}

	payload, err := json.Marshal(&model.ClipSubmission{ClipId: clip.Id, TaskId: task.Id})
	if err != nil {
		return nil, nil, err
	}
	result := s.Topic.Publish(ctx, &pubsub.Message{Data: payload})
	messageId, err := result.Get(ctx)
	if err != nil {
		_ = s.Store.SetTaskStatus(ctx, task.Id, model.TaskStatusFailed, fmt.Sprintf("failed to enqueue submission: %v", err))
		return nil, nil, fmt.Errorf("failed to publish submission: %w", err)
	}
	task.QueueMessageId = messageId

	return clip, task, nil
}

// Status returns the task and clip for a submission, looked up by clip
// id.
func (s *ClipService) Status(ctx context.Context, clipId string) (*ClipStatus, error) {
	clip, err := s.Store.GetClip(ctx, clipId)
	if err != nil {
		return nil, err
	}
	task, err := s.Store.GetTaskForClip(ctx, clipId)
	if err != nil {
		return nil, err
	}
	return &ClipStatus{Task: task, Clip: clip}, nil
}

// List returns the owner's clips.
func (s *ClipService) List(ctx context.Context, userId string) ([]*model.Clip, error) {
	return s.Store.ListClipsByUser(ctx, userId)
}

// CreateCurio records a user-defined collection.
func (s *ClipService) CreateCurio(ctx context.Context, userId string, name string, description string, isPublic bool) (*model.Curio, error) {
	if name == "" {
		return nil, fmt.Errorf("name is required")
	}
	curio, _, err := s.Store.GetOrCreateCurio(ctx, &model.Curio{
		UserId:      userId,
		Name:        name,
		Description: description,
		IsPublic:    isPublic,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create curio: %w", err)
	}
	return curio, nil
}
