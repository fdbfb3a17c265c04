// Package storage archives raw RFC 5322 messages on disk. The database holds
// the parsed, queryable form; the archive keeps the original bytes for
// download and reprocessing.
package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrPathTraversal   = errors.New("path traversal detected")
	ErrMessageNotFound = errors.New("archived message not found")
	ErrMessageTooLarge = errors.New("message exceeds size limit")
)

// MaxRawSize is the maximum archived message size (25 MB)
const MaxRawSize = 25 * 1024 * 1024

// RawArchive defines the interface for raw message storage operations
type RawArchive interface {
	Save(r io.Reader) (string, error)
	Get(rawPath string) (io.ReadCloser, error)
	Delete(rawPath string) error
}

// localArchive implements RawArchive using the local filesystem
type localArchive struct {
	basePath string
}

// NewLocalArchive creates a local archive rooted at basePath
func NewLocalArchive(basePath string) (RawArchive, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}
	return &localArchive{basePath: basePath}, nil
}

// validatePath ensures path is within basePath (prevents traversal)
func (s *localArchive) validatePath(rawPath string) (string, error) {
	cleanPath := filepath.Clean(rawPath)

	if filepath.IsAbs(cleanPath) {
		return "", ErrPathTraversal
	}
	if strings.Contains(cleanPath, "..") {
		return "", ErrPathTraversal
	}

	fullPath := filepath.Join(s.basePath, cleanPath)

	absPath, err := filepath.Abs(fullPath)
	if err != nil {
		return "", fmt.Errorf("invalid archive path: %w", err)
	}
	absBase, err := filepath.Abs(s.basePath)
	if err != nil {
		return "", fmt.Errorf("invalid base path: %w", err)
	}

	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) &&
		absPath != absBase {
		return "", ErrPathTraversal
	}

	return absPath, nil
}

// Save archives a raw message and returns its relative path. Messages larger
// than MaxRawSize are rejected and nothing is left on disk.
func (s *localArchive) Save(r io.Reader) (string, error) {
	name := uuid.New().String() + ".eml"

	// Shard by the first 2 chars of the UUID for better distribution
	subDir := name[:2]
	dirPath := filepath.Join(s.basePath, subDir)

	if err := os.MkdirAll(dirPath, 0755); err != nil {
		return "", fmt.Errorf("failed to create archive subdirectory: %w", err)
	}

	rawPath := filepath.Join(subDir, name)
	fullPath := filepath.Join(s.basePath, rawPath)

	file, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to create archive file: %w", err)
	}
	defer file.Close()

	written, err := io.Copy(file, io.LimitReader(r, MaxRawSize+1))
	if err != nil {
		os.Remove(fullPath)
		return "", fmt.Errorf("failed to write archive file: %w", err)
	}
	if written > MaxRawSize {
		os.Remove(fullPath)
		return "", ErrMessageTooLarge
	}

	return rawPath, nil
}

// Get opens an archived message by its relative path
func (s *localArchive) Get(rawPath string) (io.ReadCloser, error) {
	fullPath, err := s.validatePath(rawPath)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrMessageNotFound
		}
		return nil, fmt.Errorf("failed to open archive file: %w", err)
	}

	return file, nil
}

// Delete removes an archived message; deleting a missing file is not an error
func (s *localArchive) Delete(rawPath string) error {
	fullPath, err := s.validatePath(rawPath)
	if err != nil {
		return err
	}

	if err := os.Remove(fullPath); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to delete archive file: %w", err)
	}

	return nil
}
