package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"volunteerhub/pkg/platform/sentinel"
)

// FilesystemStore writes proof files under a base directory. Each object is a
// data file plus a small sidecar carrying the content type.
type FilesystemStore struct {
	baseDir string
}

func NewFilesystemStore(baseDir string) (*FilesystemStore, error) {
	if err := os.MkdirAll(baseDir, 0o750); err != nil {
		return nil, fmt.Errorf("create proof dir: %w", err)
	}
	return &FilesystemStore{baseDir: baseDir}, nil
}

type sidecar struct {
	ContentType string `json:"content_type"`
}

func (s *FilesystemStore) Save(_ context.Context, key, contentType string, r io.Reader) (string, error) {
	path, err := s.path(key)
	if err != nil {
		return "", err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return "", sentinel.ErrConflict
		}
		return "", fmt.Errorf("create proof file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("write proof file: %w", err)
	}
	meta, err := json.Marshal(sidecar{ContentType: contentType})
	if err != nil {
		os.Remove(path)
		return "", fmt.Errorf("encode proof metadata: %w", err)
	}
	if err := os.WriteFile(path+".meta", meta, 0o640); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("write proof metadata: %w", err)
	}
	return key, nil
}

func (s *FilesystemStore) Open(_ context.Context, key string) (io.ReadCloser, string, error) {
	path, err := s.path(key)
	if err != nil {
		return nil, "", err
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, "", sentinel.ErrNotFound
		}
		return nil, "", fmt.Errorf("open proof file: %w", err)
	}

	contentType := "application/octet-stream"
	if meta, err := os.ReadFile(path + ".meta"); err == nil {
		var sc sidecar
		if json.Unmarshal(meta, &sc) == nil && sc.ContentType != "" {
			contentType = sc.ContentType
		}
	}
	return f, contentType, nil
}

func (s *FilesystemStore) Remove(_ context.Context, key string) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove proof file: %w", err)
	}
	os.Remove(path + ".meta")
	return nil
}

// path rejects keys that would escape the base directory.
func (s *FilesystemStore) path(key string) (string, error) {
	if key == "" || strings.Contains(key, "..") || strings.ContainsAny(key, `/\`) {
		return "", fmt.Errorf("invalid proof key %q", key)
	}
	return filepath.Join(s.baseDir, key), nil
}
