package store

import (
	"context"

	"github.com/studyhive/backend/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// InsertAudit records an administrative action.
func (db *DB) InsertAudit(ctx context.Context, entry *models.AuditEntry) error {
	_, err := db.Audit().InsertOne(ctx, entry, options.InsertOne())
	return err
}

func (db *DB) ListAudit(ctx context.Context) ([]models.AuditEntry, error) {
	cur, err := db.Audit().Find(ctx, bson.M{}, options.Find().SetSort(bson.M{"at": -1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var entries []models.AuditEntry
	if err := cur.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}
