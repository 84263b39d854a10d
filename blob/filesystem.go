package blob

import (
	"context"
	"os"
	"path/filepath"
	"strings"
)

// FilesystemStore implements Store on a local directory, one subdirectory
// per tenant.
type FilesystemStore struct {
	baseDir string
}

var _ Store = (*FilesystemStore)(nil)

// NewFilesystemStore creates a store rooted at baseDir, creating the
// directory if needed.
func NewFilesystemStore(baseDir string) (*FilesystemStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, err
	}
	return &FilesystemStore{baseDir: baseDir}, nil
}

// Put writes the content to {baseDir}/{tenant}/{documentId}_{safeName}.
func (s *FilesystemStore) Put(ctx context.Context, tenantId, documentId, filename string, content []byte) (string, error) {
	tenantDir := filepath.Join(s.baseDir, tenantId)
	if err := os.MkdirAll(tenantDir, 0755); err != nil {
		return "", err
	}

	key := filepath.Join(tenantId, documentId+"_"+sanitizeFilename(filename))
	if err := os.WriteFile(filepath.Join(s.baseDir, key), content, 0644); err != nil {
		return "", err
	}
	return key, nil
}

// Get reads the content stored under a key.
func (s *FilesystemStore) Get(ctx context.Context, key string) ([]byte, error) {
	content, err := os.ReadFile(filepath.Join(s.baseDir, key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return content, nil
}

// Delete removes the content stored under a key.
func (s *FilesystemStore) Delete(ctx context.Context, key string) error {
	err := os.Remove(filepath.Join(s.baseDir, key))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// sanitizeFilename strips path separators so uploaded names cannot escape
// the tenant directory.
func sanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "/", "_")
	if name == "" || name == "." || name == ".." {
		return "upload"
	}
	return name
}
