package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sibya/sibya/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SQLiteDatabase implements Database with one table per collection. Each row
// keeps the document as JSON next to the columns it is looked up by.
type SQLiteDatabase struct {
	db     *sql.DB
	config *Config
}

type sqlitePageStore struct{ db *sql.DB }
type sqliteEventStore struct{ db *sql.DB }
type sqliteUserStore struct{ db *sql.DB }

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS pages (
	id   TEXT PRIMARY KEY,
	data TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS events (
	id      TEXT PRIMARY KEY,
	page_id TEXT NOT NULL,
	data    TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS users (
	id       TEXT PRIMARY KEY,
	clerk_id TEXT NOT NULL UNIQUE,
	data     TEXT NOT NULL
);`

// NewSQLiteDatabase opens (creating if needed) the SQLite file named by config.URI
func NewSQLiteDatabase(ctx context.Context, config *Config) (Database, error) {
	dbPath := config.URI

	// Ensure the directory exists
	dir := filepath.Dir(dbPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// _txlock=immediate takes the write lock at BEGIN so read-modify-write
	// transactions on the same page serialize instead of losing updates.
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create SQLite schema: %w", err)
	}

	return &SQLiteDatabase{db: db, config: config}, nil
}

func (d *SQLiteDatabase) Pages() PageStore   { return &sqlitePageStore{db: d.db} }
func (d *SQLiteDatabase) Events() EventStore { return &sqliteEventStore{db: d.db} }
func (d *SQLiteDatabase) Users() UserStore   { return &sqliteUserStore{db: d.db} }

func (d *SQLiteDatabase) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

func (d *SQLiteDatabase) Close(ctx context.Context) error {
	return d.db.Close()
}

func (d *SQLiteDatabase) GetType() DatabaseType {
	return DatabaseTypeSQLite
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// loadJSON scans the single data column of query into dest. It reports
// false when no row matched.
func loadJSON(ctx context.Context, q queryer, dest interface{}, query string, args ...interface{}) (bool, error) {
	var data string
	err := q.QueryRowContext(ctx, query, args...).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(data), dest); err != nil {
		return false, fmt.Errorf("failed to decode document: %w", err)
	}
	return true, nil
}

// Pages

func (s *sqlitePageStore) FindByID(ctx context.Context, id primitive.ObjectID) (page *models.Page, err error) {
	defer track("pages.findById", &err)()

	var result models.Page
	found, err := loadJSON(ctx, s.db, &result, "SELECT data FROM pages WHERE id = ?", id.Hex())
	if err != nil {
		return nil, fmt.Errorf("failed to find page: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &result, nil
}

func (s *sqlitePageStore) Insert(ctx context.Context, page *models.Page) (err error) {
	defer track("pages.insert", &err)()

	if page.ID.IsZero() {
		page.ID = primitive.NewObjectID()
	}
	if page.Events == nil {
		page.Events = []primitive.ObjectID{}
	}
	data, err := json.Marshal(page)
	if err != nil {
		return fmt.Errorf("failed to encode page: %w", err)
	}
	if _, err = s.db.ExecContext(ctx, "INSERT INTO pages (id, data) VALUES (?, ?)", page.ID.Hex(), string(data)); err != nil {
		return fmt.Errorf("failed to insert page: %w", err)
	}
	return nil
}

func (s *sqlitePageStore) PushEvent(ctx context.Context, pageID, eventID primitive.ObjectID) (err error) {
	defer track("pages.pushEvent", &err)()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var page models.Page
	found, err := loadJSON(ctx, tx, &page, "SELECT data FROM pages WHERE id = ?", pageID.Hex())
	if err != nil {
		return fmt.Errorf("failed to load page: %w", err)
	}
	if !found {
		return ErrNotFound
	}

	page.Events = append(page.Events, eventID)
	data, err := json.Marshal(page)
	if err != nil {
		return fmt.Errorf("failed to encode page: %w", err)
	}
	if _, err = tx.ExecContext(ctx, "UPDATE pages SET data = ? WHERE id = ?", string(data), pageID.Hex()); err != nil {
		return fmt.Errorf("failed to append event to page: %w", err)
	}
	return tx.Commit()
}

// Events

func (s *sqliteEventStore) Insert(ctx context.Context, event *models.Event) (err error) {
	defer track("events.insert", &err)()

	if event.ID.IsZero() {
		event.ID = primitive.NewObjectID()
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	_, err = s.db.ExecContext(ctx, "INSERT INTO events (id, page_id, data) VALUES (?, ?, ?)",
		event.ID.Hex(), event.Page.Hex(), string(data))
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

func (s *sqliteEventStore) FindByID(ctx context.Context, id primitive.ObjectID) (event *models.Event, err error) {
	defer track("events.findById", &err)()

	var result models.Event
	found, err := loadJSON(ctx, s.db, &result, "SELECT data FROM events WHERE id = ?", id.Hex())
	if err != nil {
		return nil, fmt.Errorf("failed to find event: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &result, nil
}

func (s *sqliteEventStore) Delete(ctx context.Context, id primitive.ObjectID) (err error) {
	defer track("events.delete", &err)()

	if _, err = s.db.ExecContext(ctx, "DELETE FROM events WHERE id = ?", id.Hex()); err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	return nil
}

// Users

func (s *sqliteUserStore) Upsert(ctx context.Context, user *models.User) (result *models.User, err error) {
	defer track("users.upsert", &err)()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	var stored models.User
	found, err := loadJSON(ctx, tx, &stored, "SELECT data FROM users WHERE clerk_id = ?", user.ClerkID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if !found {
		stored = models.User{ID: user.ID, ClerkID: user.ClerkID, CreatedAt: now}
		if stored.ID.IsZero() {
			stored.ID = primitive.NewObjectID()
		}
	}
	stored.FirstName = user.FirstName
	stored.LastName = user.LastName
	stored.ProfilePhoto = user.ProfilePhoto
	stored.Email = user.Email
	stored.Role = user.Role
	stored.UpdatedAt = now

	data, err := json.Marshal(stored)
	if err != nil {
		return nil, fmt.Errorf("failed to encode user: %w", err)
	}
	if found {
		_, err = tx.ExecContext(ctx, "UPDATE users SET data = ? WHERE clerk_id = ?", string(data), stored.ClerkID)
	} else {
		_, err = tx.ExecContext(ctx, "INSERT INTO users (id, clerk_id, data) VALUES (?, ?, ?)",
			stored.ID.Hex(), stored.ClerkID, string(data))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit user: %w", err)
	}
	return &stored, nil
}

func (s *sqliteUserStore) FindByExternalID(ctx context.Context, externalID string) (user *models.User, err error) {
	defer track("users.findByExternalId", &err)()

	var result models.User
	found, err := loadJSON(ctx, s.db, &result, "SELECT data FROM users WHERE clerk_id = ?", externalID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &result, nil
}

func (s *sqliteUserStore) DeleteByExternalID(ctx context.Context, externalID string) (user *models.User, err error) {
	defer track("users.delete", &err)()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var deleted models.User
	found, err := loadJSON(ctx, tx, &deleted, "SELECT data FROM users WHERE clerk_id = ?", externalID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if !found {
		return nil, nil
	}
	if _, err = tx.ExecContext(ctx, "DELETE FROM users WHERE clerk_id = ?", externalID); err != nil {
		return nil, fmt.Errorf("failed to delete user: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit delete: %w", err)
	}
	return &deleted, nil
}

// Register SQLite database factory
func init() {
	RegisterDatabaseFactory(DatabaseTypeSQLite, NewSQLiteDatabase)
}
