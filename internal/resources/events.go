package resources

import (
	"errors"
	"mime"
	"mime/multipart"
	"net/http"

	"github.com/sibya/sibya/internal/actions"
	"github.com/sibya/sibya/internal/apperror"
	appcontext "github.com/sibya/sibya/internal/context"
	"github.com/sibya/sibya/internal/storage"
)

const multipartMemory = 8 << 20

// EventsResource handles POST /pages/{pageId}/create-event
type EventsResource struct {
	*BaseResource
	events  *actions.Events
	maxBody int64
}

// NewEventsResource creates the create-event route. Request bodies larger
// than four times maxImageSize are rejected.
func NewEventsResource(events *actions.Events, maxImageSize int64) *EventsResource {
	return &EventsResource{
		BaseResource: NewBaseResource("create-event", "/pages/{pageId}/create-event", http.MethodPost),
		events:       events,
		maxBody:      4 * maxImageSize,
	}
}

func (r *EventsResource) Handle(ctx *appcontext.Context) error {
	pageID := ctx.Param("pageId")

	// nothing is read before the caller is known
	if !ctx.IsAuthenticated {
		return apperror.NewUnauthorized()
	}

	req := ctx.Request
	req.Body = http.MaxBytesReader(ctx.Response, req.Body, r.maxBody)
	if err := req.ParseMultipartForm(multipartMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperror.Wrap(apperror.Invalid, "Request body too large", err)
		}
		return apperror.Wrap(apperror.Invalid, "Invalid form data", err)
	}
	if req.MultipartForm != nil {
		defer req.MultipartForm.RemoveAll()
	}

	input := actions.EventInput{
		PageID:            pageID,
		CreatorExternalID: ctx.UserID,
		Title:             req.FormValue("title"),
		Description:       req.FormValue("description"),
		Department:        req.FormValue("department"),
		Date:              req.FormValue("date"),
		Time:              req.FormValue("time"),
	}

	file, header, err := req.FormFile("image")
	switch {
	case errors.Is(err, http.ErrMissingFile):
	case err != nil:
		return apperror.Wrap(apperror.Invalid, "Invalid image upload", err)
	default:
		defer file.Close()
		if header.Filename != "" || header.Size > 0 {
			input.Image = uploadFromPart(file, header)
		}
	}

	event, err := r.events.Create(ctx.Context(), input)
	if err != nil {
		return err
	}
	return ctx.WriteJSON(http.StatusCreated, event)
}

// uploadFromPart trusts only the declared part type. A missing or
// application/octet-stream type is passed through and rejected by storage.
func uploadFromPart(file multipart.File, header *multipart.FileHeader) *storage.Upload {
	contentType := header.Header.Get("Content-Type")
	if parsed, _, err := mime.ParseMediaType(contentType); err == nil {
		contentType = parsed
	}

	return &storage.Upload{
		Filename:    header.Filename,
		ContentType: contentType,
		Size:        header.Size,
		Reader:      file,
	}
}
