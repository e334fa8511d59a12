package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Event struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Creator     primitive.ObjectID `bson:"creator" json:"creator"`
	Page        primitive.ObjectID `bson:"page" json:"page"`
	Title       string             `bson:"title" json:"title"`
	Description string             `bson:"description" json:"description"`
	Department  string             `bson:"department,omitempty" json:"department,omitempty"`
	Image       *string            `bson:"image" json:"image"`
	Date        time.Time          `bson:"date" json:"date"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
}
