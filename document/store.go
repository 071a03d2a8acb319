package document

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tobyhart/deckpress/webutil"
)

// Store persists an assembled document and returns a stable URL for it.
type Store interface {
	Save(ctx context.Context, carouselID string, data []byte) (string, error)
}

// LocalStore writes documents under a base directory and serves them from
// a base URL. File names carry a content-hash suffix so every re-render
// gets a distinct URL and stale copies are never served.
type LocalStore struct {
	baseDir string
	baseURL string
}

func NewLocalStore(baseDir, baseURL string) *LocalStore {
	return &LocalStore{baseDir: baseDir, baseURL: baseURL}
}

func (s *LocalStore) Save(ctx context.Context, carouselID string, data []byte) (string, error) {
	if carouselID == "" {
		return "", fmt.Errorf("carousel ID cannot be empty")
	}

	hash, err := webutil.GenerateHash(string(data))
	if err != nil {
		return "", fmt.Errorf("failed to hash document: %w", err)
	}
	fileName := fmt.Sprintf("%s-%s.pdf", carouselID, hash[:12])

	if err := os.MkdirAll(s.baseDir, os.ModePerm); err != nil {
		return "", fmt.Errorf("failed to create document directory %q: %w", s.baseDir, err)
	}

	fullPath := filepath.Join(s.baseDir, fileName)
	if err := os.WriteFile(fullPath, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write document %q: %w", fullPath, err)
	}

	return s.baseURL + "/" + fileName, nil
}
