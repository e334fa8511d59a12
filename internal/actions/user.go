package actions

import (
	"context"
	"errors"

	"github.com/sibya/sibya/internal/apperror"
	"github.com/sibya/sibya/internal/database"
	"github.com/sibya/sibya/internal/logging"
	"github.com/sibya/sibya/internal/models"
	"github.com/sibya/sibya/internal/objectid"
)

var ErrInvalidRole = errors.New("invalid role")

type EmailAddress struct {
	EmailAddress string `json:"email_address"`
}

// UserProfile is the identity-provider view of a user
type UserProfile struct {
	ExternalID     string
	FirstName      string
	LastName       string
	ImageURL       string
	EmailAddresses []EmailAddress
	Role           string
}

// Users keeps user documents in sync with the identity provider
type Users struct {
	provider *database.Provider
}

func NewUsers(provider *database.Provider) *Users {
	return &Users{provider: provider}
}

// CreateOrUpdateUser upserts the user keyed by its external id. The role is
// checked before anything touches the database.
func (s *Users) CreateOrUpdateUser(ctx context.Context, p UserProfile) (*models.User, error) {
	role, err := models.ParseRole(p.Role)
	if err != nil {
		return nil, apperror.Wrap(apperror.Invalid, err.Error(), ErrInvalidRole)
	}
	if p.ExternalID == "" {
		return nil, apperror.NewInvalid("user id is required")
	}

	db, err := s.provider.Get(ctx)
	if err != nil {
		return nil, apperror.NewInternal("error creating or updating user", err)
	}

	email := ""
	if len(p.EmailAddresses) > 0 {
		email = p.EmailAddresses[0].EmailAddress
	}

	user, err := db.Users().Upsert(ctx, &models.User{
		ID:           objectid.FromExternalID(p.ExternalID),
		ClerkID:      p.ExternalID,
		FirstName:    p.FirstName,
		LastName:     p.LastName,
		ProfilePhoto: p.ImageURL,
		Email:        email,
		Role:         role,
	})
	if err != nil {
		return nil, apperror.NewInternal("error creating or updating user", err)
	}

	logging.InfoCtx(ctx, "User synced", "actions", map[string]interface{}{
		"clerkId": user.ClerkID,
		"role":    string(user.Role),
	})
	return user, nil
}

// DeleteUser removes the user with the given external id. It returns the
// deleted document, or nil when there was none.
func (s *Users) DeleteUser(ctx context.Context, externalID string) (*models.User, error) {
	db, err := s.provider.Get(ctx)
	if err != nil {
		return nil, apperror.NewInternal("error deleting user", err)
	}

	user, err := db.Users().DeleteByExternalID(ctx, externalID)
	if err != nil {
		return nil, apperror.NewInternal("error deleting user", err)
	}
	if user == nil {
		logging.InfoCtx(ctx, "No user to delete", "actions", map[string]interface{}{
			"clerkId": externalID,
		})
		return nil, nil
	}

	logging.InfoCtx(ctx, "User deleted", "actions", map[string]interface{}{
		"clerkId": externalID,
	})
	return user, nil
}
