package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Page aggregates the events posted to it. Events is append-only.
type Page struct {
	ID     primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Name   string               `bson:"name,omitempty" json:"name,omitempty"`
	Events []primitive.ObjectID `bson:"events" json:"events"`
}
