package resources

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/sibya/sibya/internal/actions"
	"github.com/sibya/sibya/internal/apperror"
	"github.com/sibya/sibya/internal/auth"
	appcontext "github.com/sibya/sibya/internal/context"
	"github.com/sibya/sibya/internal/logging"
	"github.com/sibya/sibya/internal/models"
)

const maxWebhookBody = 1 << 20

type webhookEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type webhookUser struct {
	ID             string                 `json:"id"`
	FirstName      string                 `json:"first_name"`
	LastName       string                 `json:"last_name"`
	ImageURL       string                 `json:"image_url"`
	EmailAddresses []actions.EmailAddress `json:"email_addresses"`
	PublicMetadata struct {
		Role string `json:"role"`
	} `json:"public_metadata"`
}

// WebhooksResource receives identity-provider user lifecycle webhooks and
// applies them through the user sync actions.
type WebhooksResource struct {
	*BaseResource
	users    *actions.Users
	verifier *auth.WebhookVerifier
}

// NewWebhooksResource creates the webhook route. A nil verifier rejects every
// delivery with 500 since nothing can be authenticated.
func NewWebhooksResource(users *actions.Users, verifier *auth.WebhookVerifier) *WebhooksResource {
	return &WebhooksResource{
		BaseResource: NewBaseResource("identity-webhooks", "/api/webhooks/identity", http.MethodPost),
		users:        users,
		verifier:     verifier,
	}
}

func (r *WebhooksResource) Handle(ctx *appcontext.Context) error {
	if r.verifier == nil {
		return apperror.NewInternal("webhook secret is not configured", nil)
	}

	body, err := io.ReadAll(http.MaxBytesReader(ctx.Response, ctx.Request.Body, maxWebhookBody))
	if err != nil {
		return apperror.Wrap(apperror.Invalid, "Invalid webhook payload", err)
	}

	if err := r.verifier.Verify(ctx.Request.Header, body); err != nil {
		logging.WarnCtx(ctx.Context(), "Rejected webhook delivery", "webhooks", map[string]interface{}{
			"id":    ctx.Request.Header.Get(auth.WebhookIDHeader),
			"error": err.Error(),
		})
		return apperror.Wrap(apperror.Unauthorized, "Unauthorized", err)
	}

	var event webhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return apperror.Wrap(apperror.Invalid, "Invalid webhook payload", err)
	}

	switch event.Type {
	case "user.created", "user.updated":
		var data webhookUser
		if err := json.Unmarshal(event.Data, &data); err != nil || data.ID == "" {
			return apperror.NewInvalid("Invalid webhook payload")
		}
		role := data.PublicMetadata.Role
		if role == "" {
			role = string(models.RoleStudent)
		}

		user, err := r.users.CreateOrUpdateUser(ctx.Context(), actions.UserProfile{
			ExternalID:     data.ID,
			FirstName:      data.FirstName,
			LastName:       data.LastName,
			ImageURL:       data.ImageURL,
			EmailAddresses: data.EmailAddresses,
			Role:           role,
		})
		if err != nil {
			return err
		}
		return ctx.WriteJSON(http.StatusOK, map[string]interface{}{"success": true, "user": user})

	case "user.deleted":
		var data struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(event.Data, &data); err != nil || data.ID == "" {
			return apperror.NewInvalid("Invalid webhook payload")
		}

		user, err := r.users.DeleteUser(ctx.Context(), data.ID)
		if err != nil {
			return err
		}
		return ctx.WriteJSON(http.StatusOK, map[string]interface{}{"success": true, "user": user})

	default:
		logging.InfoCtx(ctx.Context(), "Ignoring webhook event", "webhooks", map[string]interface{}{
			"type": event.Type,
		})
		return ctx.WriteJSON(http.StatusOK, map[string]interface{}{"success": true, "ignored": true})
	}
}
