package database

import (
	"context"
	"errors"

	"github.com/sibya/sibya/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DatabaseType represents the type of database backend
type DatabaseType string

const (
	DatabaseTypeMongoDB DatabaseType = "mongodb"
	DatabaseTypeSQLite  DatabaseType = "sqlite"
)

var (
	// ErrNotFound is returned by updates whose target document does not exist.
	ErrNotFound = errors.New("document not found")
	// ErrConfigMissing is returned when no connection string is configured.
	ErrConfigMissing = errors.New("MONGODB_URI is missing")
)

// Config represents database connection configuration
type Config struct {
	Type DatabaseType
	URI  string // MongoDB connection string, or SQLite file path
	Name string // database name (MongoDB only)
}

// Database is an open connection to a document store
type Database interface {
	Pages() PageStore
	Events() EventStore
	Users() UserStore
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
	GetType() DatabaseType
}

// PageStore reads pages and appends event references to them.
// FindByID returns nil, nil when no page has the id.
type PageStore interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Page, error)
	Insert(ctx context.Context, page *models.Page) error
	PushEvent(ctx context.Context, pageID, eventID primitive.ObjectID) error
}

// EventStore persists events. Insert assigns ID when it is zero.
type EventStore interface {
	Insert(ctx context.Context, event *models.Event) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Event, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// UserStore keeps users keyed by their identity-provider id.
//
// Upsert sets every profile field of user on the document matching
// user.ClerkID, creating it with user.ID when absent, and returns the stored
// document. DeleteByExternalID returns nil, nil when nothing matched.
type UserStore interface {
	Upsert(ctx context.Context, user *models.User) (*models.User, error)
	FindByExternalID(ctx context.Context, externalID string) (*models.User, error)
	DeleteByExternalID(ctx context.Context, externalID string) (*models.User, error)
}

// Factory function type for creating database instances
type DatabaseFactory func(ctx context.Context, config *Config) (Database, error)

// Registry for database factories
var databaseFactories = make(map[DatabaseType]DatabaseFactory)

// RegisterDatabaseFactory registers a new database factory
func RegisterDatabaseFactory(dbType DatabaseType, factory DatabaseFactory) {
	databaseFactories[dbType] = factory
}

// NewDatabase opens a database of the configured type
func NewDatabase(ctx context.Context, config *Config) (Database, error) {
	factory, exists := databaseFactories[config.Type]
	if !exists {
		return nil, &UnsupportedDatabaseError{Type: config.Type}
	}
	return factory(ctx, config)
}

// UnsupportedDatabaseError is returned when an unsupported database type is requested
type UnsupportedDatabaseError struct {
	Type DatabaseType
}

func (e *UnsupportedDatabaseError) Error() string {
	return "unsupported database type: " + string(e.Type)
}
