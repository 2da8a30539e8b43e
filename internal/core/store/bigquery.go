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
	"fmt"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/google/uuid"
	"github.com/jasonsherman/curioclip-backend/internal/core/model"
	"google.golang.org/api/iterator"
)

// BigQueryStore is the production RecordStore backed by BigQuery. Writes
// go through streaming inserters; point reads and transitions use the
// parameterized queries in queries.go. Get-or-create operations are
// check-then-insert without a transaction: concurrent creators can race,
// which the idempotent association writes tolerate.
type BigQueryStore struct {
	Client         *bigquery.Client
	DatasetName    string
	ClipTable      string
	CurioTable     string
	TagTable       string
	ClipTagTable   string
	EmbeddingTable string
	TaskTable      string
}

// NewBigQueryStore builds a store over an existing BigQuery client and
// the configured dataset and table names.
func NewBigQueryStore(client *bigquery.Client, dataset string, tables map[string]string) *BigQueryStore {
	return &BigQueryStore{
		Client:         client,
		DatasetName:    dataset,
		ClipTable:      tables["clips"],
		CurioTable:     tables["curios"],
		TagTable:       tables["tags"],
		ClipTagTable:   tables["clip_tags"],
		EmbeddingTable: tables["embeddings"],
		TaskTable:      tables["tasks"],
	}
}

// fqn returns the fully qualified, dot-separated table name usable in
// standard SQL.
func (s *BigQueryStore) fqn(table string) string {
	name := s.Client.Dataset(s.DatasetName).Table(table).FullyQualifiedName()
	return strings.Replace(name, ":", ".", -1)
}

// queryOne runs a parameterized query and scans the single expected row
// into dst. Returns ErrNotFound when the result set is empty.
func (s *BigQueryStore) queryOne(ctx context.Context, queryText string, params []bigquery.QueryParameter, dst interface{}) error {
	q := s.Client.Query(queryText)
	q.Parameters = params
	itr, err := q.Read(ctx)
	if err != nil {
		return fmt.Errorf("failed to read from BigQuery: %w", err)
	}
	err = itr.Next(dst)
	if err == iterator.Done {
		return ErrNotFound
	}
	return err
}

// runDML executes a parameterized DML statement and waits for the job.
func (s *BigQueryStore) runDML(ctx context.Context, queryText string, params []bigquery.QueryParameter) error {
	q := s.Client.Query(queryText)
	q.Parameters = params
	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("failed to start BigQuery job: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("failed to wait for BigQuery job: %w", err)
	}
	return status.Err()
}

func (s *BigQueryStore) CreateClip(ctx context.Context, clip *model.Clip) error {
	if clip.Id == "" {
		clip.Id = uuid.NewString()
	}
	if clip.CreatedAt.IsZero() {
		clip.CreatedAt = time.Now()
	}
	inserter := s.Client.Dataset(s.DatasetName).Table(s.ClipTable).Inserter()
	return inserter.Put(ctx, clip)
}

func (s *BigQueryStore) GetClip(ctx context.Context, id string) (*model.Clip, error) {
	clip := &model.Clip{}
	queryText := fmt.Sprintf(QryFindClipById, s.fqn(s.ClipTable))
	err := s.queryOne(ctx, queryText, []bigquery.QueryParameter{{Name: "id", Value: id}}, clip)
	if err != nil {
		return nil, err
	}
	return clip, nil
}

func (s *BigQueryStore) UpdateClip(ctx context.Context, clip *model.Clip) error {
	queryText := fmt.Sprintf(QryUpdateClip, s.fqn(s.ClipTable))
	return s.runDML(ctx, queryText, []bigquery.QueryParameter{
		{Name: "curio_id", Value: clip.CurioId},
		{Name: "platform", Value: string(clip.Platform)},
		{Name: "platform_video_id", Value: clip.PlatformVideoId},
		{Name: "title", Value: clip.Title},
		{Name: "description", Value: clip.Description},
		{Name: "summary", Value: clip.Summary},
		{Name: "transcript", Value: clip.Transcript},
		{Name: "thumbnail_url", Value: clip.ThumbnailUrl},
		{Name: "is_favorite", Value: clip.IsFavorite},
		{Name: "id", Value: clip.Id},
	})
}

func (s *BigQueryStore) ListClipsByUser(ctx context.Context, userId string) ([]*model.Clip, error) {
	queryText := fmt.Sprintf(QryListClipsByUser, s.fqn(s.ClipTable))
	q := s.Client.Query(queryText)
	q.Parameters = []bigquery.QueryParameter{{Name: "user_id", Value: userId}}
	itr, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read from BigQuery: %w", err)
	}
	out := make([]*model.Clip, 0)
	for {
		clip := &model.Clip{}
		err := itr.Next(clip)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate results: %w", err)
		}
		out = append(out, clip)
	}
	return out, nil
}

func (s *BigQueryStore) FindReusableSource(ctx context.Context, url string, excludeId string) (*model.Clip, error) {
	clip := &model.Clip{}
	queryText := fmt.Sprintf(QryFindReusableSource, s.fqn(s.ClipTable))
	err := s.queryOne(ctx, queryText, []bigquery.QueryParameter{
		{Name: "url", Value: url},
		{Name: "exclude_id", Value: excludeId},
	}, clip)
	if err == ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return clip, nil
}

func (s *BigQueryStore) CreateCurio(ctx context.Context, curio *model.Curio) error {
	if curio.Id == "" {
		curio.Id = uuid.NewString()
	}
	if curio.CreatedAt.IsZero() {
		curio.CreatedAt = time.Now()
	}
	inserter := s.Client.Dataset(s.DatasetName).Table(s.CurioTable).Inserter()
	return inserter.Put(ctx, curio)
}

func (s *BigQueryStore) GetCurio(ctx context.Context, id string) (*model.Curio, error) {
	curio := &model.Curio{}
	queryText := fmt.Sprintf(QryFindCurioById, s.fqn(s.CurioTable))
	err := s.queryOne(ctx, queryText, []bigquery.QueryParameter{{Name: "id", Value: id}}, curio)
	if err != nil {
		return nil, err
	}
	return curio, nil
}

func (s *BigQueryStore) ListCurioNames(ctx context.Context, userId string) ([]string, error) {
	queryText := fmt.Sprintf(QryListCurioNames, s.fqn(s.CurioTable))
	q := s.Client.Query(queryText)
	q.Parameters = []bigquery.QueryParameter{{Name: "user_id", Value: userId}}
	itr, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read from BigQuery: %w", err)
	}
	out := make([]string, 0)
	for {
		var row struct {
			Name string `bigquery:"name"`
		}
		err := itr.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate results: %w", err)
		}
		out = append(out, row.Name)
	}
	return out, nil
}

func (s *BigQueryStore) FindCurioByName(ctx context.Context, name string) (*model.Curio, error) {
	curio := &model.Curio{}
	queryText := fmt.Sprintf(QryFindCurioByName, s.fqn(s.CurioTable))
	err := s.queryOne(ctx, queryText, []bigquery.QueryParameter{{Name: "name", Value: name}}, curio)
	if err == ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return curio, nil
}

func (s *BigQueryStore) GetOrCreateCurio(ctx context.Context, template *model.Curio) (*model.Curio, bool, error) {
	existing := &model.Curio{}
	queryText := fmt.Sprintf(QryFindCurioByOwnerAndName, s.fqn(s.CurioTable))
	err := s.queryOne(ctx, queryText, []bigquery.QueryParameter{
		{Name: "user_id", Value: template.UserId},
		{Name: "name", Value: template.Name},
	}, existing)
	if err == nil {
		return existing, false, nil
	}
	if err != ErrNotFound {
		return nil, false, err
	}
	created := *template
	if err := s.CreateCurio(ctx, &created); err != nil {
		return nil, false, err
	}
	return &created, true, nil
}

func (s *BigQueryStore) GetOrCreateTag(ctx context.Context, name string) (*model.Tag, error) {
	tag := &model.Tag{}
	queryText := fmt.Sprintf(QryFindTagByName, s.fqn(s.TagTable))
	err := s.queryOne(ctx, queryText, []bigquery.QueryParameter{{Name: "name", Value: name}}, tag)
	if err == nil {
		return tag, nil
	}
	if err != ErrNotFound {
		return nil, err
	}
	tag = &model.Tag{Id: uuid.NewString(), Name: name}
	inserter := s.Client.Dataset(s.DatasetName).Table(s.TagTable).Inserter()
	if err := inserter.Put(ctx, tag); err != nil {
		return nil, err
	}
	return tag, nil
}

func (s *BigQueryStore) AttachTag(ctx context.Context, clipId string, tagId string) error {
	existing := &model.ClipTag{}
	queryText := fmt.Sprintf(QryFindClipTag, s.fqn(s.ClipTagTable))
	err := s.queryOne(ctx, queryText, []bigquery.QueryParameter{
		{Name: "clip_id", Value: clipId},
		{Name: "tag_id", Value: tagId},
	}, existing)
	if err == nil {
		return nil // association already present
	}
	if err != ErrNotFound {
		return err
	}
	inserter := s.Client.Dataset(s.DatasetName).Table(s.ClipTagTable).Inserter()
	return inserter.Put(ctx, &model.ClipTag{ClipId: clipId, TagId: tagId})
}

func (s *BigQueryStore) ListTagsForClip(ctx context.Context, clipId string) ([]*model.Tag, error) {
	queryText := fmt.Sprintf(QryListTagsForClip, s.fqn(s.TagTable), s.fqn(s.ClipTagTable))
	q := s.Client.Query(queryText)
	q.Parameters = []bigquery.QueryParameter{{Name: "clip_id", Value: clipId}}
	itr, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read from BigQuery: %w", err)
	}
	out := make([]*model.Tag, 0)
	for {
		tag := &model.Tag{}
		err := itr.Next(tag)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate results: %w", err)
		}
		out = append(out, tag)
	}
	return out, nil
}

func (s *BigQueryStore) CreateEmbeddings(ctx context.Context, embeddings []*model.ClipEmbedding) error {
	for _, e := range embeddings {
		if e.Id == "" {
			e.Id = uuid.NewString()
		}
	}
	inserter := s.Client.Dataset(s.DatasetName).Table(s.EmbeddingTable).Inserter()
	return inserter.Put(ctx, embeddings)
}

func (s *BigQueryStore) ListEmbeddingsForClip(ctx context.Context, clipId string) ([]*model.ClipEmbedding, error) {
	queryText := fmt.Sprintf(QryListEmbeddingsForClip, s.fqn(s.EmbeddingTable))
	q := s.Client.Query(queryText)
	q.Parameters = []bigquery.QueryParameter{{Name: "clip_id", Value: clipId}}
	itr, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read from BigQuery: %w", err)
	}
	out := make([]*model.ClipEmbedding, 0)
	for {
		e := &model.ClipEmbedding{}
		err := itr.Next(e)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate results: %w", err)
		}
		out = append(out, e)
	}
	return out, nil
}

// nearestNeighborRow is the row shape returned by QryNearestEmbeddings:
// the embedding columns plus the cosine distance computed by BigQuery.
type nearestNeighborRow struct {
	Id         string    `bigquery:"id"`
	ClipId     string    `bigquery:"clip_id"`
	Field      string    `bigquery:"field"`
	ChunkIndex int       `bigquery:"chunk_index"`
	TextChunk  string    `bigquery:"text_chunk"`
	Vector     []float64 `bigquery:"vector"`
	Distance   float64   `bigquery:"distance"`
}

func (s *BigQueryStore) NearestNeighbors(ctx context.Context, vector []float64, limit int) ([]*EmbeddingDistance, error) {
	// VECTOR_SEARCH takes the query vector inline as a float list.
	parts := make([]string, 0, len(vector))
	for _, f := range vector {
		parts = append(parts, strconv.FormatFloat(f, 'f', -1, 64))
	}
	queryText := fmt.Sprintf(QryNearestEmbeddings, s.fqn(s.EmbeddingTable), strings.Join(parts, ","), limit)

	q := s.Client.Query(queryText)
	itr, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read from BigQuery: %w", err)
	}
	out := make([]*EmbeddingDistance, 0)
	for {
		row := &nearestNeighborRow{}
		err := itr.Next(row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate results: %w", err)
		}
		out = append(out, &EmbeddingDistance{
			Embedding: &model.ClipEmbedding{
				Id:         row.Id,
				ClipId:     row.ClipId,
				Field:      model.EmbeddingField(row.Field),
				ChunkIndex: row.ChunkIndex,
				TextChunk:  row.TextChunk,
				Vector:     row.Vector,
			},
			Similarity: 1.0 - row.Distance,
		})
	}
	return out, nil
}

func (s *BigQueryStore) CreateTask(ctx context.Context, task *model.ClipProcessingTask) error {
	if task.Id == "" {
		task.Id = uuid.NewString()
	}
	now := time.Now()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	task.UpdatedAt = now
	inserter := s.Client.Dataset(s.DatasetName).Table(s.TaskTable).Inserter()
	return inserter.Put(ctx, task)
}

func (s *BigQueryStore) GetTask(ctx context.Context, id string) (*model.ClipProcessingTask, error) {
	task := &model.ClipProcessingTask{}
	queryText := fmt.Sprintf(QryFindTaskById, s.fqn(s.TaskTable))
	err := s.queryOne(ctx, queryText, []bigquery.QueryParameter{{Name: "id", Value: id}}, task)
	if err != nil {
		return nil, err
	}
	return task, nil
}

func (s *BigQueryStore) GetTaskForClip(ctx context.Context, clipId string) (*model.ClipProcessingTask, error) {
	task := &model.ClipProcessingTask{}
	queryText := fmt.Sprintf(QryFindTaskForClip, s.fqn(s.TaskTable))
	err := s.queryOne(ctx, queryText, []bigquery.QueryParameter{{Name: "clip_id", Value: clipId}}, task)
	if err != nil {
		return nil, err
	}
	return task, nil
}

func (s *BigQueryStore) SetTaskStatus(ctx context.Context, id string, status model.TaskStatus, errText string) error {
	queryText := fmt.Sprintf(QryUpdateTaskStatus, s.fqn(s.TaskTable))
	return s.runDML(ctx, queryText, []bigquery.QueryParameter{
		{Name: "status", Value: string(status)},
		{Name: "error", Value: errText},
		{Name: "id", Value: id},
	})
}
