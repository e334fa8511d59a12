package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sibya/sibya/internal/metrics"
	"github.com/sibya/sibya/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	pagesCollection  = "pages"
	eventsCollection = "events"
	usersCollection  = "users"
)

// MongoDatabase implements Database on top of the official driver
type MongoDatabase struct {
	client *mongo.Client
	db     *mongo.Database
	config *Config
}

type mongoPageStore struct{ collection *mongo.Collection }
type mongoEventStore struct{ collection *mongo.Collection }
type mongoUserStore struct{ collection *mongo.Collection }

// NewMongoDatabase connects, pings and ensures indexes
func NewMongoDatabase(ctx context.Context, config *Config) (Database, error) {
	clientOptions := options.Client().ApplyURI(config.URI)

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(connectCtx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	d := &MongoDatabase{
		client: client,
		db:     client.Database(config.Name),
		config: config,
	}

	if err := d.ensureIndexes(connectCtx); err != nil {
		client.Disconnect(context.Background())
		return nil, err
	}

	return d, nil
}

func (d *MongoDatabase) ensureIndexes(ctx context.Context) error {
	_, err := d.db.Collection(usersCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "clerkId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create users.clerkId index: %w", err)
	}
	return nil
}

func (d *MongoDatabase) Pages() PageStore {
	return &mongoPageStore{collection: d.db.Collection(pagesCollection)}
}

func (d *MongoDatabase) Events() EventStore {
	return &mongoEventStore{collection: d.db.Collection(eventsCollection)}
}

func (d *MongoDatabase) Users() UserStore {
	return &mongoUserStore{collection: d.db.Collection(usersCollection)}
}

func (d *MongoDatabase) Ping(ctx context.Context) error {
	return d.client.Ping(ctx, nil)
}

func (d *MongoDatabase) Close(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return d.client.Disconnect(ctx)
}

func (d *MongoDatabase) GetType() DatabaseType {
	return DatabaseTypeMongoDB
}

// track times a store call; the returned func reads *err when deferred.
func track(operation string, err *error) func() {
	start := time.Now()
	return func() {
		metrics.RecordDatabaseOperation(operation, time.Since(start), *err)
	}
}

// Pages

func (s *mongoPageStore) FindByID(ctx context.Context, id primitive.ObjectID) (page *models.Page, err error) {
	defer track("pages.findById", &err)()

	var result models.Page
	err = s.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&result)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find page: %w", err)
	}
	return &result, nil
}

func (s *mongoPageStore) Insert(ctx context.Context, page *models.Page) (err error) {
	defer track("pages.insert", &err)()

	if page.ID.IsZero() {
		page.ID = primitive.NewObjectID()
	}
	if page.Events == nil {
		page.Events = []primitive.ObjectID{}
	}
	if _, err = s.collection.InsertOne(ctx, page); err != nil {
		return fmt.Errorf("failed to insert page: %w", err)
	}
	return nil
}

func (s *mongoPageStore) PushEvent(ctx context.Context, pageID, eventID primitive.ObjectID) (err error) {
	defer track("pages.pushEvent", &err)()

	result, err := s.collection.UpdateByID(ctx, pageID, bson.M{"$push": bson.M{"events": eventID}})
	if err != nil {
		return fmt.Errorf("failed to append event to page: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Events

func (s *mongoEventStore) Insert(ctx context.Context, event *models.Event) (err error) {
	defer track("events.insert", &err)()

	if event.ID.IsZero() {
		event.ID = primitive.NewObjectID()
	}
	if _, err = s.collection.InsertOne(ctx, event); err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

func (s *mongoEventStore) FindByID(ctx context.Context, id primitive.ObjectID) (event *models.Event, err error) {
	defer track("events.findById", &err)()

	var result models.Event
	err = s.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&result)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find event: %w", err)
	}
	return &result, nil
}

func (s *mongoEventStore) Delete(ctx context.Context, id primitive.ObjectID) (err error) {
	defer track("events.delete", &err)()

	if _, err = s.collection.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	return nil
}

// Users

func (s *mongoUserStore) Upsert(ctx context.Context, user *models.User) (result *models.User, err error) {
	defer track("users.upsert", &err)()

	now := time.Now().UTC()
	setOnInsert := bson.M{"createdAt": now}
	if !user.ID.IsZero() {
		setOnInsert["_id"] = user.ID
	}
	update := bson.M{
		"$set": bson.M{
			"firstName":    user.FirstName,
			"lastName":     user.LastName,
			"profilePhoto": user.ProfilePhoto,
			"email":        user.Email,
			"role":         user.Role,
			"updatedAt":    now,
		},
		"$setOnInsert": setOnInsert,
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var stored models.User
	err = s.collection.FindOneAndUpdate(ctx, bson.M{"clerkId": user.ClerkID}, update, opts).Decode(&stored)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}
	return &stored, nil
}

func (s *mongoUserStore) FindByExternalID(ctx context.Context, externalID string) (user *models.User, err error) {
	defer track("users.findByExternalId", &err)()

	var result models.User
	err = s.collection.FindOne(ctx, bson.M{"clerkId": externalID}).Decode(&result)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &result, nil
}

func (s *mongoUserStore) DeleteByExternalID(ctx context.Context, externalID string) (user *models.User, err error) {
	defer track("users.delete", &err)()

	var deleted models.User
	err = s.collection.FindOneAndDelete(ctx, bson.M{"clerkId": externalID}).Decode(&deleted)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to delete user: %w", err)
	}
	return &deleted, nil
}

// Register MongoDB database factory
func init() {
	RegisterDatabaseFactory(DatabaseTypeMongoDB, NewMongoDatabase)
}
