package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Event is a single activity feed entry stored in MongoDB. One event is
// recorded per successful mutation on a project's objects.
type Event struct {
	ID          primitive.ObjectID `json:"id"           bson:"_id,omitempty"`
	ProjectID   int64              `json:"project_id"   bson:"project_id"`
	ActorID     int64              `json:"actor_id"     bson:"actor_id"`
	Actor       string             `json:"actor"        bson:"actor"`
	Action      string             `json:"action"       bson:"action"`
	ObjectType  string             `json:"object_type"  bson:"object_type"`
	ObjectID    int64              `json:"object_id"    bson:"object_id"`
	Detail      string             `json:"detail"       bson:"detail"`
	CreatedTime time.Time          `json:"created_time" bson:"created_time"`
}
