package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/elvisOC/P10/internal/models"
)

// MongoStore handles activity event writes and reads in MongoDB.
type MongoStore struct {
	col *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{col: db.Collection("events")}
}

func (s *MongoStore) Insert(ctx context.Context, ev *models.Event) error {
	ev.CreatedTime = time.Now()
	if _, err := s.col.InsertOne(ctx, ev); err != nil {
		return fmt.Errorf("mongo insert event: %w", err)
	}
	return nil
}

// ListByProject returns a project's events, newest first.
func (s *MongoStore) ListByProject(ctx context.Context, projectID int64) ([]models.Event, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_time", Value: -1}})
	cur, err := s.col.Find(ctx, bson.M{"project_id": projectID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var events []models.Event
	if err := cur.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}
