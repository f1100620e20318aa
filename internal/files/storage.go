package files

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// BlobStore stores and retrieves raw attachment bytes
type BlobStore interface {
	Save(ext string, content io.Reader) (string, error)
	Open(path string) (io.ReadCloser, error)
	Remove(path string) error
}

// DiskStorage stores attachment bytes on the local filesystem. Stored names
// are random so an original file name can never traverse the directory.
type DiskStorage struct {
	baseDir string
}

// NewDiskStorage creates a disk-backed blob store rooted at baseDir
func NewDiskStorage(baseDir string) (*DiskStorage, error) {
	if err := os.MkdirAll(baseDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &DiskStorage{baseDir: baseDir}, nil
}

// Save writes the content under a freshly generated name and returns the
// relative storage path.
func (d *DiskStorage) Save(ext string, content io.Reader) (string, error) {
	name := uuid.New().String()
	if ext != "" {
		name = name + "." + ext
	}

	fullPath := filepath.Join(d.baseDir, name)
	f, err := os.OpenFile(fullPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return "", fmt.Errorf("failed to create attachment file: %w", err)
	}

	if _, err := io.Copy(f, content); err != nil {
		f.Close()
		os.Remove(fullPath)
		return "", fmt.Errorf("failed to write attachment: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(fullPath)
		return "", fmt.Errorf("failed to close attachment file: %w", err)
	}

	return name, nil
}

// Open opens a stored attachment for reading
func (d *DiskStorage) Open(path string) (io.ReadCloser, error) {
	return os.Open(filepath.Join(d.baseDir, filepath.Base(path)))
}

// Remove deletes a stored attachment
func (d *DiskStorage) Remove(path string) error {
	return os.Remove(filepath.Join(d.baseDir, filepath.Base(path)))
}
