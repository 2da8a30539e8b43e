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
// services. This file implements the BlobStore contract over Google
// Cloud Storage: thumbnail uploads to the public bucket and secret
// downloads (the extractor cookie file) from the private one.
package cloud

import (
	"context"
	"fmt"
	"io"
	"os"

	"cloud.google.com/go/storage"
	"github.com/h2non/filetype"
)

// GCSPublicURLPrefix is the host serving public bucket objects.
const GCSPublicURLPrefix = "https://storage.googleapis.com"

// GCSBlobStore implements BlobStore over Google Cloud Storage.
type GCSBlobStore struct {
	Client *storage.Client
}

// NewGCSBlobStore wraps an existing storage client.
func NewGCSBlobStore(client *storage.Client) *GCSBlobStore {
	return &GCSBlobStore{Client: client}
}

// PublicURL builds the public URL for an object in a public bucket.
func PublicURL(bucket string, objectName string) string {
	return fmt.Sprintf("%s/%s/%s", GCSPublicURLPrefix, bucket, objectName)
}

// Upload copies a local file into the bucket under objectName and
// returns its public URL. The content type is sniffed from the file
// header so browsers render thumbnails instead of downloading them.
func (s *GCSBlobStore) Upload(ctx context.Context, localPath string, objectName string, bucket string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to open %s for upload: %w", localPath, err)
	}
	defer func() { _ = f.Close() }()

	head := make([]byte, 261)
	n, _ := io.ReadFull(f, head)
	kind, _ := filetype.Match(head[:n])
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", err
	}

	w := s.Client.Bucket(bucket).Object(objectName).NewWriter(ctx)
	if kind != filetype.Unknown {
		w.ContentType = kind.MIME.Value
	}
	if _, err := io.Copy(w, f); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("failed to write object %s to bucket %s: %w", objectName, bucket, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize object %s in bucket %s: %w", objectName, bucket, err)
	}
	return PublicURL(bucket, objectName), nil
}

// Download reads an object's bytes.
func (s *GCSBlobStore) Download(ctx context.Context, objectName string, bucket string) ([]byte, error) {
	r, err := s.Client.Bucket(bucket).Object(objectName).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open object %s in bucket %s: %w", objectName, bucket, err)
	}
	defer func() { _ = r.Close() }()
	return io.ReadAll(r)
}

// EnsureLocalFile downloads an object to localPath unless the file is
// already present. Used for the extractor cookie file, which is fetched
// once per host and cached.
func EnsureLocalFile(ctx context.Context, store BlobStore, objectName string, bucket string, localPath string) error {
	if fileExists(localPath) {
		return nil
	}
	data, err := store.Download(ctx, objectName, bucket)
	if err != nil {
		return fmt.Errorf("failed to fetch %s from bucket %s: %w", objectName, bucket, err)
	}
	if err := os.WriteFile(localPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", localPath, err)
	}
	return nil
}
