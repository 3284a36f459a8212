package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AuditEntry records an administrative action (block/unblock/delete user,
// role change, access-code creation) for later review by officials.
type AuditEntry struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ActorID  primitive.ObjectID `bson:"actorId" json:"actorId"`
	Action   string             `bson:"action" json:"action"`
	TargetID string             `bson:"targetId,omitempty" json:"targetId,omitempty"`
	Detail   string             `bson:"detail,omitempty" json:"detail,omitempty"`
	At       time.Time          `bson:"at" json:"at"`
}
