// Package storage is the artifact store boundary: rendered bytes go in, a
// durable reference comes out. The pipeline never assumes a particular
// medium behind the reference.
package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

var ErrWriteFailed = errors.New("artifact write failed")

// ArtifactStore accepts rendered artifact bytes and returns a durable
// reference callers can later resolve outside the queue.
type ArtifactStore interface {
	Put(ctx context.Context, artifactID string, data []byte, contentType string) (string, error)
}

// FileStore writes artifacts under a root directory; the returned reference
// is the file path relative to that root.
type FileStore struct {
	root   string
	logger *zap.Logger
}

func NewFileStore(root string, logger *zap.Logger) (*FileStore, error) {
	if root == "" {
		return nil, fmt.Errorf("artifact root directory is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact root: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileStore{root: root, logger: logger.Named("artifact-store")}, nil
}

func (s *FileStore) Put(ctx context.Context, artifactID string, data []byte, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}

	path := filepath.Join(s.root, artifactID)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}

	s.logger.Info("artifact stored",
		zap.String("artifact_id", artifactID),
		zap.String("content_type", contentType),
		zap.Int("bytes", len(data)))
	return artifactID, nil
}
