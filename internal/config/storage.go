package config

// StorageConfig defines where uploaded images go and what is accepted
type StorageConfig struct {
	// Type can be "local", "s3", or "minio"
	Type string `json:"type"`

	// Local storage configuration
	Local LocalStorageConfig `json:"local,omitempty"`

	// S3/MinIO configuration (S3-compatible)
	S3 S3StorageConfig `json:"s3,omitempty"`

	// URLPrefix is prepended to "<folder>/<file>" to form the public path
	URLPrefix           string   `json:"urlPrefix"`
	MaxFileSize         int64    `json:"maxFileSize"`         // Max file size in bytes (default: 5MiB)
	AllowedContentTypes []string `json:"allowedContentTypes"` // Declared MIME types accepted for images
}

// LocalStorageConfig for local file storage
type LocalStorageConfig struct {
	BasePath string `json:"basePath"` // Root directory, served under URLPrefix
}

// S3StorageConfig for S3 and MinIO storage
type S3StorageConfig struct {
	Endpoint        string `json:"endpoint"`        // S3/MinIO endpoint (empty for AWS S3)
	Region          string `json:"region"`          // AWS region
	Bucket          string `json:"bucket"`          // Bucket name
	AccessKeyID     string `json:"accessKeyId"`     // Access key
	SecretAccessKey string `json:"secretAccessKey"` // Secret key
	UseSSL          bool   `json:"useSSL"`          // Use SSL for MinIO
	PathStyle       bool   `json:"pathStyle"`       // Use path-style URLs (for MinIO)
}

const defaultMaxFileSize = 5 * 1024 * 1024

// DefaultStorageConfig returns the default storage configuration
func DefaultStorageConfig() *StorageConfig {
	return &StorageConfig{
		Type: "local",
		Local: LocalStorageConfig{
			BasePath: "public/uploads",
		},
		URLPrefix:           "/uploads",
		MaxFileSize:         defaultMaxFileSize,
		AllowedContentTypes: []string{"image/jpeg", "image/png", "image/gif"},
	}
}

func (c *StorageConfig) applyDefaults() {
	def := DefaultStorageConfig()
	if c.Type == "" {
		c.Type = def.Type
	}
	if c.Local.BasePath == "" {
		c.Local.BasePath = def.Local.BasePath
	}
	if c.URLPrefix == "" {
		c.URLPrefix = def.URLPrefix
	}
	if c.MaxFileSize == 0 {
		c.MaxFileSize = def.MaxFileSize
	}
	if len(c.AllowedContentTypes) == 0 {
		c.AllowedContentTypes = def.AllowedContentTypes
	}
}

// IsS3Compatible returns true if the storage type is S3 or MinIO
func (c *StorageConfig) IsS3Compatible() bool {
	return c.Type == "s3" || c.Type == "minio"
}

// IsLocal returns true if using local storage
func (c *StorageConfig) IsLocal() bool {
	return c.Type == "local"
}
