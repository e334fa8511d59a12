package actions

import (
	"context"
	"errors"
	"time"

	"github.com/sibya/sibya/internal/apperror"
	"github.com/sibya/sibya/internal/database"
	"github.com/sibya/sibya/internal/logging"
	"github.com/sibya/sibya/internal/metrics"
	"github.com/sibya/sibya/internal/models"
	"github.com/sibya/sibya/internal/objectid"
	"github.com/sibya/sibya/internal/storage"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ImageFolder is the storage folder event images are saved under
const ImageFolder = "postImages"

const eventDateLayout = "2006-01-02T15:04:05"

// EventInput is a parsed create-event request. Date is YYYY-MM-DD and Time is
// HH:MM.
type EventInput struct {
	PageID            string
	CreatorExternalID string
	Title             string
	Description       string
	Department        string
	Date              string
	Time              string
	Image             *storage.Upload
}

// Events creates events on pages
type Events struct {
	provider *database.Provider
	storage  *storage.Manager
	location *time.Location
	now      func() time.Time
}

// NewEvents returns the event service. Dates are interpreted in loc; nil
// means time.Local.
func NewEvents(provider *database.Provider, storage *storage.Manager, loc *time.Location) *Events {
	if loc == nil {
		loc = time.Local
	}
	return &Events{
		provider: provider,
		storage:  storage,
		location: loc,
		now:      time.Now,
	}
}

// Create validates in, stores the optional image, inserts the event and
// appends it to its page. If the append fails the event is removed again.
func (s *Events) Create(ctx context.Context, in EventInput) (*models.Event, error) {
	if in.CreatorExternalID == "" {
		return nil, apperror.NewUnauthorized()
	}
	if in.Title == "" || in.Description == "" || in.Date == "" || in.Time == "" {
		return nil, apperror.NewInvalid("Title, Description, Date, and Time are required")
	}

	db, err := s.provider.Get(ctx)
	if err != nil {
		return nil, apperror.NewInternal("failed to connect to database", err)
	}

	creator := objectid.FromExternalID(in.CreatorExternalID)

	date, err := time.ParseInLocation(eventDateLayout, in.Date+"T"+in.Time+":00", s.location)
	if err != nil {
		return nil, apperror.NewInternal("failed to parse event date", err)
	}

	pageID, err := primitive.ObjectIDFromHex(in.PageID)
	if err != nil {
		return nil, apperror.NewNotFound("Page not found")
	}
	page, err := db.Pages().FindByID(ctx, pageID)
	if err != nil {
		return nil, apperror.NewInternal("failed to load page", err)
	}
	if page == nil {
		return nil, apperror.NewNotFound("Page not found")
	}

	image, err := s.storage.Save(ctx, in.Image, ImageFolder)
	if err != nil {
		if storage.IsValidationError(err) {
			return nil, apperror.Wrap(apperror.Invalid, err.Error(), err)
		}
		return nil, apperror.NewInternal("failed to store image", err)
	}

	event := &models.Event{
		Creator:     creator,
		Page:        page.ID,
		Title:       in.Title,
		Description: in.Description,
		Department:  in.Department,
		Image:       image,
		Date:        date,
		CreatedAt:   s.now().UTC(),
	}
	if err := db.Events().Insert(ctx, event); err != nil {
		s.discardImage(ctx, image)
		return nil, apperror.NewInternal("failed to insert event", err)
	}

	if err := db.Pages().PushEvent(ctx, page.ID, event.ID); err != nil {
		s.compensate(ctx, db, event, err)
		return nil, apperror.NewInternal("failed to append event to page", err)
	}

	logging.InfoCtx(ctx, "Event created", "actions", map[string]interface{}{
		"eventId": event.ID.Hex(),
		"pageId":  page.ID.Hex(),
		"creator": creator.Hex(),
	})
	return event, nil
}

// compensate undoes the event insert after a failed page append. A failed
// undo leaves an orphaned event that is logged for reconciliation.
func (s *Events) compensate(ctx context.Context, db database.Database, event *models.Event, cause error) {
	// the request context may be what failed the append
	ctx = context.WithoutCancel(ctx)

	if err := db.Events().Delete(ctx, event.ID); err != nil {
		logging.ErrorCtx(ctx, "Orphaned event: page append and rollback both failed", "actions", map[string]interface{}{
			"eventId":     event.ID.Hex(),
			"pageId":      event.Page.Hex(),
			"appendError": cause.Error(),
			"deleteError": err.Error(),
			"pageMissing": errors.Is(cause, database.ErrNotFound),
		})
		metrics.RecordError("orphaned_event", event.ID.Hex())
		return
	}
	s.discardImage(ctx, event.Image)

	logging.WarnCtx(ctx, "Rolled back event after failed page append", "actions", map[string]interface{}{
		"eventId": event.ID.Hex(),
		"pageId":  event.Page.Hex(),
		"error":   cause.Error(),
	})
}

func (s *Events) discardImage(ctx context.Context, image *string) {
	if image == nil {
		return
	}
	if err := s.storage.Delete(ctx, *image); err != nil {
		logging.WarnCtx(ctx, "Failed to remove stored image", "actions", map[string]interface{}{
			"path":  *image,
			"error": err.Error(),
		})
	}
}
