package export

import (
	"bytes"
	"context"
	"io"

	"neocore/internal/blob"
)

// BlobObjectStore adapts a blob.Store to the worker's ObjectStore interface.
type BlobObjectStore struct {
	store blob.Store
}

// NewBlobObjectStore wraps a blob store for export artifact persistence.
func NewBlobObjectStore(store blob.Store) *BlobObjectStore {
	return &BlobObjectStore{store: store}
}

func artifactFromInfo(info blob.Info) Artifact {
	return Artifact{
		ID:          info.Key,
		ContentType: info.ContentType,
		SizeBytes:   info.Size,
		URL:         info.URL,
		CreatedAt:   info.LastModified,
	}
}

func (s *BlobObjectStore) Put(ctx context.Context, key string, payload []byte, contentType string) (Artifact, error) {
	info, err := s.store.Put(ctx, key, bytes.NewReader(payload), blob.PutOptions{ContentType: contentType})
	if err != nil {
		return Artifact{}, err
	}
	if info.URL == "" {
		if url, err := s.store.PresignURL(ctx, key, blob.SignedURLOptions{}); err == nil {
			info.URL = url
		}
	}
	return artifactFromInfo(info), nil
}

func (s *BlobObjectStore) Get(ctx context.Context, key string) (Artifact, []byte, error) {
	info, rc, err := s.store.Get(ctx, key)
	if err != nil {
		return Artifact{}, nil, err
	}
	defer func() { _ = rc.Close() }()
	payload, err := io.ReadAll(rc)
	if err != nil {
		return Artifact{}, nil, err
	}
	return artifactFromInfo(info), payload, nil
}

func (s *BlobObjectStore) Delete(ctx context.Context, key string) (bool, error) {
	return s.store.Delete(ctx, key)
}

func (s *BlobObjectStore) List(ctx context.Context, prefix string) ([]Artifact, error) {
	infos, err := s.store.List(ctx, prefix)
	if err != nil {
		return nil, err
	}
	out := make([]Artifact, 0, len(infos))
	for _, info := range infos {
		out = append(out, artifactFromInfo(info))
	}
	return out, nil
}
