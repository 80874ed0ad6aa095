package lineage

import (
	"bytes"
	"context"
	"io"

	"github.com/radome/sequencescape/internal/blob"
)

// ArchiveObjectStore adapts a blob.Store to the exporter's ObjectStore
// interface.
type ArchiveObjectStore struct {
	store blob.Store
}

// NewArchiveObjectStore wraps an archive backend.
func NewArchiveObjectStore(store blob.Store) *ArchiveObjectStore {
	return &ArchiveObjectStore{store: store}
}

func (s *ArchiveObjectStore) Put(ctx context.Context, key string, payload []byte, contentType string, metadata map[string]string) (ExportArtifact, error) {
	info, err := s.store.Put(ctx, key, bytes.NewReader(payload), blob.PutOptions{ContentType: contentType, Metadata: metadata})
	if err != nil {
		return ExportArtifact{}, err
	}
	return artifactFromInfo(info), nil
}

func (s *ArchiveObjectStore) Get(ctx context.Context, key string) (ExportArtifact, []byte, error) {
	info, rc, err := s.store.Get(ctx, key)
	if err != nil {
		return ExportArtifact{}, nil, err
	}
	defer func() { _ = rc.Close() }()
	payload, err := io.ReadAll(rc)
	if err != nil {
		return ExportArtifact{}, nil, err
	}
	return artifactFromInfo(info), payload, nil
}

func (s *ArchiveObjectStore) Delete(ctx context.Context, key string) (bool, error) {
	return s.store.Delete(ctx, key)
}

func (s *ArchiveObjectStore) List(ctx context.Context, prefix string) ([]ExportArtifact, error) {
	infos, err := s.store.List(ctx, prefix)
	if err != nil {
		return nil, err
	}
	out := make([]ExportArtifact, 0, len(infos))
	for _, info := range infos {
		out = append(out, artifactFromInfo(info))
	}
	return out, nil
}

func artifactFromInfo(info blob.Info) ExportArtifact {
	return ExportArtifact{
		Key:         info.Key,
		ContentType: info.ContentType,
		SizeBytes:   info.Size,
		URL:         info.URL,
		CreatedAt:   info.LastModified,
	}
}
