package actions

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sibya/sibya/internal/apperror"
	"github.com/sibya/sibya/internal/config"
	"github.com/sibya/sibya/internal/database"
	"github.com/sibya/sibya/internal/models"
	"github.com/sibya/sibya/internal/objectid"
	"github.com/sibya/sibya/internal/storage"
	"github.com/sibya/sibya/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func validInput(pageID string) EventInput {
	return EventInput{
		PageID:            pageID,
		CreatorExternalID: "user_2abc",
		Title:             "Meeting",
		Description:       "Staff sync",
		Date:              "2024-05-01",
		Time:              "09:00",
	}
}

func loadPage(t *testing.T, provider *database.Provider, id primitive.ObjectID) *models.Page {
	t.Helper()
	db, err := provider.Get(context.Background())
	require.NoError(t, err)
	page, err := db.Pages().FindByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, page)
	return page
}

func TestEvents_CreateWithoutImage(t *testing.T) {
	provider := testutil.CreateTestProvider(t)
	store, _ := testutil.CreateTestStorage(t)
	page := testutil.CreateTestPage(t, provider)
	svc := NewEvents(provider, store, time.UTC)

	event, err := svc.Create(context.Background(), validInput(page.ID.Hex()))
	require.NoError(t, err)

	assert.False(t, event.ID.IsZero())
	assert.Equal(t, page.ID, event.Page)
	assert.Equal(t, objectid.FromExternalID("user_2abc"), event.Creator)
	assert.Equal(t, "Meeting", event.Title)
	assert.Equal(t, "Staff sync", event.Description)
	assert.Nil(t, event.Image)
	assert.True(t, time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC).Equal(event.Date))

	stored := loadPage(t, provider, page.ID)
	assert.Equal(t, []primitive.ObjectID{event.ID}, stored.Events)
}

func TestEvents_CreateWithImage(t *testing.T) {
	provider := testutil.CreateTestProvider(t)
	store, root := testutil.CreateTestStorage(t)
	page := testutil.CreateTestPage(t, provider)
	svc := NewEvents(provider, store, time.UTC)

	in := validInput(page.ID.Hex())
	in.Department = "Engineering"
	in.Image = &storage.Upload{
		Filename:    "poster.png",
		ContentType: "image/png",
		Size:        4,
		Reader:      bytes.NewReader([]byte("\x89PNG")),
	}

	event, err := svc.Create(context.Background(), in)
	require.NoError(t, err)
	require.NotNil(t, event.Image)
	assert.Regexp(t, `^/uploads/postImages/\d+-poster\.png$`, *event.Image)
	assert.Equal(t, "Engineering", event.Department)

	_, err = os.Stat(filepath.Join(root, ImageFolder, filepath.Base(*event.Image)))
	assert.NoError(t, err)
}

func TestEvents_MissingFields(t *testing.T) {
	svc := NewEvents(database.NewProvider(&database.Config{}), nil, time.UTC)

	for _, clear := range []func(*EventInput){
		func(in *EventInput) { in.Title = "" },
		func(in *EventInput) { in.Description = "" },
		func(in *EventInput) { in.Date = "" },
		func(in *EventInput) { in.Time = "" },
	} {
		in := validInput(primitive.NewObjectID().Hex())
		clear(&in)

		_, err := svc.Create(context.Background(), in)
		require.Error(t, err)
		assert.Equal(t, apperror.Invalid, apperror.KindOf(err))
		assert.Equal(t, "Title, Description, Date, and Time are required", apperror.PublicMessage(err))
	}
}

func TestEvents_Unauthenticated(t *testing.T) {
	svc := NewEvents(database.NewProvider(&database.Config{}), nil, time.UTC)

	in := validInput(primitive.NewObjectID().Hex())
	in.CreatorExternalID = ""
	_, err := svc.Create(context.Background(), in)
	assert.Equal(t, apperror.Unauthorized, apperror.KindOf(err))
}

func TestEvents_PageNotFound(t *testing.T) {
	provider := testutil.CreateTestProvider(t)
	store, _ := testutil.CreateTestStorage(t)
	svc := NewEvents(provider, store, time.UTC)

	for _, pageID := range []string{primitive.NewObjectID().Hex(), "p1"} {
		_, err := svc.Create(context.Background(), validInput(pageID))
		require.Error(t, err)
		assert.Equal(t, apperror.NotFound, apperror.KindOf(err))
		assert.Equal(t, "Page not found", apperror.PublicMessage(err))
	}
}

func TestEvents_ConfigMissing(t *testing.T) {
	svc := NewEvents(database.NewProvider(&database.Config{Type: database.DatabaseTypeMongoDB}), nil, time.UTC)

	_, err := svc.Create(context.Background(), validInput(primitive.NewObjectID().Hex()))
	assert.Equal(t, apperror.Internal, apperror.KindOf(err))
	assert.ErrorIs(t, err, database.ErrConfigMissing)
}

func TestEvents_BadDateIsInternal(t *testing.T) {
	provider := testutil.CreateTestProvider(t)
	store, _ := testutil.CreateTestStorage(t)
	page := testutil.CreateTestPage(t, provider)
	svc := NewEvents(provider, store, time.UTC)

	in := validInput(page.ID.Hex())
	in.Date = "01/05/2024"
	_, err := svc.Create(context.Background(), in)
	assert.Equal(t, apperror.Internal, apperror.KindOf(err))
	assert.Empty(t, loadPage(t, provider, page.ID).Events)
}

func TestEvents_InvalidImageCreatesNothing(t *testing.T) {
	provider := testutil.CreateTestProvider(t)
	store, root := testutil.CreateTestStorage(t)
	page := testutil.CreateTestPage(t, provider)
	svc := NewEvents(provider, store, time.UTC)

	tests := []struct {
		name  string
		image *storage.Upload
	}{
		{
			name:  "unsupported type",
			image: &storage.Upload{Filename: "notes.txt", ContentType: "text/plain", Size: 5, Reader: bytes.NewReader([]byte("hello"))},
		},
		{
			name:  "too large",
			image: &storage.Upload{Filename: "big.jpg", ContentType: "image/jpeg", Size: 5*1024*1024 + 1, Reader: bytes.NewReader(nil)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput(page.ID.Hex())
			in.Image = tt.image

			_, err := svc.Create(context.Background(), in)
			require.Error(t, err)
			assert.Equal(t, apperror.Invalid, apperror.KindOf(err))
			assert.Empty(t, loadPage(t, provider, page.ID).Events)
			_, statErr := os.Stat(filepath.Join(root, ImageFolder))
			assert.True(t, os.IsNotExist(statErr), "nothing should be written")
		})
	}
}

type failingStorage struct{}

func (failingStorage) Put(ctx context.Context, folder, name string, upload *storage.Upload) error {
	return &storage.WriteError{Path: folder + "/" + name, Err: errors.New("disk full")}
}

func (failingStorage) Delete(ctx context.Context, folder, name string) error { return nil }

func TestEvents_StorageFailureIsInternal(t *testing.T) {
	provider := testutil.CreateTestProvider(t)
	page := testutil.CreateTestPage(t, provider)
	store := storage.NewManagerWithStorage(failingStorage{}, config.DefaultStorageConfig())
	svc := NewEvents(provider, store, time.UTC)

	in := validInput(page.ID.Hex())
	in.Image = &storage.Upload{Filename: "a.gif", ContentType: "image/gif", Size: 3, Reader: bytes.NewReader([]byte("GIF"))}

	_, err := svc.Create(context.Background(), in)
	assert.Equal(t, apperror.Internal, apperror.KindOf(err))
	var writeErr *storage.WriteError
	assert.ErrorAs(t, err, &writeErr)
	assert.Empty(t, loadPage(t, provider, page.ID).Events)
}

// faultyDB wraps a real database and fails the page append and, optionally,
// the compensating event delete.
type faultyDB struct {
	database.Database
	deleteErr error
	deleted   []primitive.ObjectID
}

type faultyPages struct{ database.PageStore }
type faultyEvents struct {
	database.EventStore
	db *faultyDB
}

func (d *faultyDB) Pages() database.PageStore   { return faultyPages{d.Database.Pages()} }
func (d *faultyDB) Events() database.EventStore { return faultyEvents{d.Database.Events(), d} }

func (faultyPages) PushEvent(ctx context.Context, pageID, eventID primitive.ObjectID) error {
	return errors.New("write conflict")
}

func (e faultyEvents) Delete(ctx context.Context, id primitive.ObjectID) error {
	if e.db.deleteErr != nil {
		return e.db.deleteErr
	}
	e.db.deleted = append(e.db.deleted, id)
	return e.EventStore.Delete(ctx, id)
}

func newFaultyProvider(t *testing.T, deleteErr error) (*database.Provider, *faultyDB) {
	t.Helper()
	faulty := &faultyDB{deleteErr: deleteErr}
	cfg := &database.Config{Type: database.DatabaseTypeSQLite, URI: filepath.Join(t.TempDir(), "faulty.db")}
	provider := database.NewProviderWithFactory(cfg, func(ctx context.Context, c *database.Config) (database.Database, error) {
		db, err := database.NewDatabase(ctx, c)
		if err != nil {
			return nil, err
		}
		faulty.Database = db
		return faulty, nil
	})
	t.Cleanup(func() { provider.Close(context.Background()) })
	return provider, faulty
}

func TestEvents_FailedAppendRemovesEvent(t *testing.T) {
	provider, faulty := newFaultyProvider(t, nil)
	store, root := testutil.CreateTestStorage(t)
	page := testutil.CreateTestPage(t, provider)
	svc := NewEvents(provider, store, time.UTC)

	in := validInput(page.ID.Hex())
	in.Image = &storage.Upload{Filename: "a.gif", ContentType: "image/gif", Size: 3, Reader: bytes.NewReader([]byte("GIF"))}

	_, err := svc.Create(context.Background(), in)
	assert.Equal(t, apperror.Internal, apperror.KindOf(err))

	require.Len(t, faulty.deleted, 1)
	event, err := faulty.Database.Events().FindByID(context.Background(), faulty.deleted[0])
	require.NoError(t, err)
	assert.Nil(t, event, "event should have been rolled back")

	entries, err := os.ReadDir(filepath.Join(root, ImageFolder))
	require.NoError(t, err)
	assert.Empty(t, entries, "stored image should have been removed")
}

func TestEvents_FailedRollbackKeepsError(t *testing.T) {
	provider, faulty := newFaultyProvider(t, errors.New("connection reset"))
	store, _ := testutil.CreateTestStorage(t)
	page := testutil.CreateTestPage(t, provider)
	svc := NewEvents(provider, store, time.UTC)

	_, err := svc.Create(context.Background(), validInput(page.ID.Hex()))
	assert.Equal(t, apperror.Internal, apperror.KindOf(err))
	assert.Empty(t, faulty.deleted)
}
