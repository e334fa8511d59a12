package models

import (
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Role string

const (
	RoleAdmin   Role = "Admin"
	RoleStudent Role = "Student"
	RoleFaculty Role = "Faculty"
)

// AllowedRoles lists every role a User may hold, in display order.
var AllowedRoles = []Role{RoleAdmin, RoleStudent, RoleFaculty}

// ParseRole returns the Role named by s. Matching is exact.
func ParseRole(s string) (Role, error) {
	for _, r := range AllowedRoles {
		if string(r) == s {
			return r, nil
		}
	}
	names := make([]string, len(AllowedRoles))
	for i, r := range AllowedRoles {
		names[i] = string(r)
	}
	return "", fmt.Errorf("invalid role: %s. Allowed roles: %s", s, strings.Join(names, ", "))
}

// User mirrors an identity-provider account. ClerkID is the unique key.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ClerkID      string             `bson:"clerkId" json:"clerkId"`
	FirstName    string             `bson:"firstName" json:"firstName"`
	LastName     string             `bson:"lastName" json:"lastName"`
	ProfilePhoto string             `bson:"profilePhoto" json:"profilePhoto"`
	Email        string             `bson:"email" json:"email"`
	Role         Role               `bson:"role" json:"role"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
}
