package testutil

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sibya/sibya/internal/auth"
	"github.com/sibya/sibya/internal/config"
	"github.com/sibya/sibya/internal/database"
	"github.com/sibya/sibya/internal/models"
	"github.com/sibya/sibya/internal/storage"
)

// TestJWTSecret signs the tokens produced by NewToken
const TestJWTSecret = "test-secret-key-for-jwt-testing"

func GenerateRandomName(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, uuid.New().String()[:8])
}

// CreateTestProvider returns a provider for a fresh database. TEST_DB selects
// the backend: sqlite (default) or mongodb (TEST_MONGO_URL).
func CreateTestProvider(t *testing.T) *database.Provider {
	t.Helper()

	dbType := os.Getenv("TEST_DB")
	if dbType == "" {
		dbType = "sqlite"
	}

	var cfg *database.Config
	switch dbType {
	case "sqlite":
		cfg = &database.Config{
			Type: database.DatabaseTypeSQLite,
			URI:  filepath.Join(t.TempDir(), "test.db"),
		}
	case "mongodb":
		mongoURL := os.Getenv("TEST_MONGO_URL")
		if mongoURL == "" {
			mongoURL = "mongodb://localhost:27017"
		}
		cfg = &database.Config{
			Type: database.DatabaseTypeMongoDB,
			URI:  mongoURL,
			Name: GenerateRandomName("test_sibya"),
		}
	default:
		t.Fatalf("unsupported database type: %s", dbType)
	}

	provider := database.NewProvider(cfg)
	t.Cleanup(func() { provider.Close(context.Background()) })
	return provider
}

// CreateTestPage inserts an empty page and returns it
func CreateTestPage(t *testing.T, provider *database.Provider) *models.Page {
	t.Helper()

	db, err := provider.Get(context.Background())
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	page := &models.Page{Name: GenerateRandomName("page")}
	if err := db.Pages().Insert(context.Background(), page); err != nil {
		t.Fatalf("failed to create test page: %v", err)
	}
	return page
}

// CreateTestStorage returns a local storage manager rooted in a temp dir
func CreateTestStorage(t *testing.T) (*storage.Manager, string) {
	t.Helper()

	cfg := config.DefaultStorageConfig()
	cfg.Local.BasePath = filepath.Join(t.TempDir(), "uploads")
	m, err := storage.NewManager(context.Background(), cfg)
	if err != nil {
		t.Fatalf("failed to create test storage: %v", err)
	}
	return m, cfg.Local.BasePath
}

// NewJWTManager returns the manager matching TestJWTSecret
func NewJWTManager() *auth.JWTManager {
	return auth.NewJWTManager(TestJWTSecret, time.Hour, "")
}

// NewToken signs a session token for the given provider user id
func NewToken(t *testing.T, userID string) string {
	t.Helper()

	token, err := NewJWTManager().GenerateToken(userID)
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}
	return token
}

// FilePart is a file attached to a multipart form
type FilePart struct {
	Field       string
	Filename    string
	ContentType string
	Content     []byte
}

// NewMultipartRequest builds a multipart/form-data request from fields and
// optional files.
func NewMultipartRequest(t *testing.T, method, target string, fields map[string]string, files ...FilePart) *http.Request {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			t.Fatalf("failed to write field %s: %v", name, err)
		}
	}
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, f.Field, f.Filename))
		h.Set("Content-Type", f.ContentType)
		part, err := writer.CreatePart(h)
		if err != nil {
			t.Fatalf("failed to create part %s: %v", f.Field, err)
		}
		if _, err := io.Copy(part, bytes.NewReader(f.Content)); err != nil {
			t.Fatalf("failed to write part %s: %v", f.Field, err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}

	req, err := http.NewRequest(method, target, &body)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}
