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

// Package store persists the application's entities. This file
// centralizes the BigQuery SQL strings used by the BigQuery-backed
// implementation. Table names are injected with fmt.Sprintf (`%s` is
// always a fully qualified table name); row values bind through query
// parameters.
package store

const (
	// QryNearestEmbeddings performs the k-nearest-neighbor lookup over
	// the embeddings table with VECTOR_SEARCH. Cosine distance comes
	// back alongside each row; similarity is derived as 1 - distance.
	// Placeholders: embeddings table FQN, query vector as a
	// comma-separated float list, top_k.
	QryNearestEmbeddings = "SELECT base.id, base.clip_id, base.field, base.chunk_index, base.text_chunk, base.vector, distance FROM VECTOR_SEARCH(TABLE `%s`, 'vector', (SELECT [ %s ] as vector), top_k => %d, distance_type => 'COSINE') ORDER BY distance asc"

	// QryFindClipById fetches one clip row by primary key.
	QryFindClipById = "SELECT * FROM `%s` WHERE id = @id"

	// QryListClipsByUser lists an owner's clips, newest first.
	QryListClipsByUser = "SELECT * FROM `%s` WHERE user_id = @user_id ORDER BY created_at DESC"

	// QryFindReusableSource locates the dedup donor: the newest other
	// clip with the same URL whose transcript and summary are both
	// non-empty. Partial or failed prior runs never qualify.
	QryFindReusableSource = "SELECT * FROM `%s` WHERE url = @url AND id != @exclude_id AND transcript != '' AND summary != '' ORDER BY created_at DESC LIMIT 1"

	// QryUpdateClip rewrites the mutable clip fields in place.
	QryUpdateClip = "UPDATE `%s` SET curio_id = @curio_id, platform = @platform, platform_video_id = @platform_video_id, title = @title, description = @description, summary = @summary, transcript = @transcript, thumbnail_url = @thumbnail_url, is_favorite = @is_favorite WHERE id = @id"

	// QryFindCurioById fetches one curio row by primary key.
	QryFindCurioById = "SELECT * FROM `%s` WHERE id = @id"

	// QryFindCurioByName fetches the first curio matching a name across
	// all owners, oldest first so the result is stable.
	QryFindCurioByName = "SELECT * FROM `%s` WHERE name = @name ORDER BY created_at ASC LIMIT 1"

	// QryFindCurioByOwnerAndName fetches an owner's curio by exact name.
	QryFindCurioByOwnerAndName = "SELECT * FROM `%s` WHERE user_id = @user_id AND name = @name LIMIT 1"

	// QryListCurioNames lists an owner's curio names for the prompt.
	QryListCurioNames = "SELECT name FROM `%s` WHERE user_id = @user_id ORDER BY name ASC"

	// QryFindTagByName fetches a tag by its globally unique name.
	QryFindTagByName = "SELECT * FROM `%s` WHERE name = @name LIMIT 1"

	// QryFindClipTag checks for an existing clip-tag association.
	QryFindClipTag = "SELECT clip_id, tag_id FROM `%s` WHERE clip_id = @clip_id AND tag_id = @tag_id LIMIT 1"

	// QryListTagsForClip joins the association table to list a clip's tags.
	QryListTagsForClip = "SELECT t.id, t.name FROM `%s` t JOIN `%s` ct ON ct.tag_id = t.id WHERE ct.clip_id = @clip_id ORDER BY t.name ASC"

	// QryListEmbeddingsForClip lists a clip's embedding records in field
	// and chunk order.
	QryListEmbeddingsForClip = "SELECT * FROM `%s` WHERE clip_id = @clip_id ORDER BY field, chunk_index ASC"

	// QryFindTaskById fetches one processing task by primary key.
	QryFindTaskById = "SELECT * FROM `%s` WHERE id = @id"

	// QryFindTaskForClip fetches a clip's most recent processing task.
	QryFindTaskForClip = "SELECT * FROM `%s` WHERE clip_id = @clip_id ORDER BY created_at DESC LIMIT 1"

	// QryUpdateTaskStatus transitions a task's status and error text.
	QryUpdateTaskStatus = "UPDATE `%s` SET status = @status, error = @error, updated_at = CURRENT_TIMESTAMP() WHERE id = @id"
)
