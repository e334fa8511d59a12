package storage

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/sibya/sibya/internal/config"
	"github.com/sibya/sibya/internal/logging"
)

// Manager validates uploads and hands them to the configured backend
type Manager struct {
	storage StorageInterface
	config  *config.StorageConfig
	now     func() time.Time
}

// NewManager creates a new storage manager based on configuration
func NewManager(ctx context.Context, cfg *config.StorageConfig) (*Manager, error) {
	var storage StorageInterface

	switch {
	case cfg.IsLocal():
		local, err := NewLocalStorage(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create local storage: %w", err)
		}
		storage = local
		logging.Info("Initialized local file storage", "storage", map[string]interface{}{
			"basePath":  cfg.Local.BasePath,
			"urlPrefix": cfg.URLPrefix,
		})

	case cfg.IsS3Compatible():
		s3s, err := NewS3Storage(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create S3/MinIO storage: %w", err)
		}
		storage = s3s
		logging.Info("Initialized S3/MinIO file storage", "storage", map[string]interface{}{
			"type":     cfg.Type,
			"bucket":   cfg.S3.Bucket,
			"endpoint": cfg.S3.Endpoint,
		})

	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}

	return NewManagerWithStorage(storage, cfg), nil
}

// NewManagerWithStorage wraps an already constructed backend
func NewManagerWithStorage(storage StorageInterface, cfg *config.StorageConfig) *Manager {
	return &Manager{storage: storage, config: cfg, now: time.Now}
}

// GetStorage returns the underlying storage interface
func (m *Manager) GetStorage() StorageInterface {
	return m.storage
}

// GetConfig returns the storage configuration
func (m *Manager) GetConfig() *config.StorageConfig {
	return m.config
}

// ValidateFile checks the declared type and size against the configured limits
func (m *Manager) ValidateFile(upload *Upload) error {
	if !m.isContentTypeAllowed(upload.ContentType) {
		return UnsupportedMediaTypeError{ContentType: upload.ContentType}
	}
	if upload.Size > m.config.MaxFileSize {
		return FileTooLargeError{Size: upload.Size, MaxSize: m.config.MaxFileSize}
	}
	return nil
}

func (m *Manager) isContentTypeAllowed(contentType string) bool {
	for _, allowed := range m.config.AllowedContentTypes {
		if strings.EqualFold(allowed, contentType) {
			return true
		}
	}
	return false
}

// Save validates upload, stores it under folder and returns its public path,
// "<urlPrefix>/<folder>/<unix-millis>-<name>". A nil upload stores nothing
// and returns nil.
func (m *Manager) Save(ctx context.Context, upload *Upload, folder string) (*string, error) {
	if upload == nil {
		return nil, nil
	}

	if err := m.ValidateFile(upload); err != nil {
		logging.WarnCtx(ctx, "Rejected upload", "storage", map[string]interface{}{
			"filename":    upload.Filename,
			"contentType": upload.ContentType,
			"size":        upload.Size,
			"error":       err.Error(),
		})
		return nil, err
	}

	name := fmt.Sprintf("%d-%s", m.now().UnixMilli(), sanitizeFilename(upload.Filename))
	if err := m.storage.Put(ctx, folder, name, upload); err != nil {
		return nil, err
	}

	publicPath := strings.TrimRight(m.config.URLPrefix, "/") + "/" + folder + "/" + name
	return &publicPath, nil
}

// Delete removes a file previously returned by Save
func (m *Manager) Delete(ctx context.Context, publicPath string) error {
	rel := strings.TrimPrefix(publicPath, strings.TrimRight(m.config.URLPrefix, "/")+"/")
	folder, name := path.Split(rel)
	return m.storage.Delete(ctx, strings.TrimSuffix(folder, "/"), name)
}

// sanitizeFilename keeps the base name and replaces characters that are
// awkward in paths and URLs
func sanitizeFilename(filename string) string {
	filename = path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if filename == "." || filename == "/" || filename == "" {
		return "upload"
	}

	var safe strings.Builder
	for _, r := range filename {
		switch {
		case r == '/' || r == '\\' || r == ':' || r == '*' || r == '?' || r == '"' || r == '<' || r == '>' || r == '|':
			safe.WriteRune('_')
		case r < 0x20:
			// drop control characters
		default:
			safe.WriteRune(r)
		}
	}
	if safe.Len() == 0 {
		return "upload"
	}
	return safe.String()
}
