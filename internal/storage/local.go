package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sibya/sibya/internal/config"
	"github.com/sibya/sibya/internal/logging"
)

// diskFile is the part of *os.File that Put writes through
type diskFile interface {
	io.Writer
	Sync() error
	Close() error
}

// LocalStorage writes files below a root directory on disk
type LocalStorage struct {
	basePath string
	maxSize  int64
	create   func(name string) (diskFile, error)
}

func createFile(name string) (diskFile, error) {
	return os.Create(name)
}

// NewLocalStorage creates a new local storage instance
func NewLocalStorage(cfg *config.StorageConfig) (*LocalStorage, error) {
	if err := os.MkdirAll(cfg.Local.BasePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	return &LocalStorage{
		basePath: cfg.Local.BasePath,
		maxSize:  cfg.MaxFileSize,
		create:   createFile,
	}, nil
}

// Put writes the upload to <basePath>/<folder>/<name>
func (ls *LocalStorage) Put(ctx context.Context, folder, name string, upload *Upload) error {
	dirPath := filepath.Join(ls.basePath, folder)
	filePath := filepath.Join(dirPath, name)

	if err := os.MkdirAll(dirPath, 0755); err != nil {
		return &WriteError{Path: filePath, Err: err}
	}

	file, err := ls.create(filePath)
	if err != nil {
		return &WriteError{Path: filePath, Err: err}
	}

	limitReader := &limitedReader{
		reader:  upload.Reader,
		maxSize: ls.maxSize,
	}

	size, err := io.Copy(file, limitReader)
	if err != nil {
		file.Close()
		os.Remove(filePath)
		if errors.Is(err, errFileTooLarge) {
			return FileTooLargeError{Size: limitReader.bytesRead, MaxSize: ls.maxSize}
		}
		return &WriteError{Path: filePath, Err: err}
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(filePath)
		return &WriteError{Path: filePath, Err: err}
	}
	// some filesystems only report write-back failures at close
	if err := file.Close(); err != nil {
		os.Remove(filePath)
		return &WriteError{Path: filePath, Err: err}
	}

	logging.InfoCtx(ctx, "File saved", "storage", map[string]interface{}{
		"path": filePath,
		"size": size,
	})

	return nil
}

// Delete removes a file from local storage
func (ls *LocalStorage) Delete(ctx context.Context, folder, name string) error {
	filePath := filepath.Join(ls.basePath, folder, name)
	if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// Root is the directory served as the public uploads tree
func (ls *LocalStorage) Root() string {
	return ls.basePath
}
