package store

import (
	"context"

	"github.com/studyhive/backend/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (db *DB) CodeByID(ctx context.Context, code string) (*models.AccessCode, error) {
	var c models.AccessCode
	err := db.AccessCodes().FindOne(ctx, bson.M{"_id": code}).Decode(&c)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ConsumeSingleUseCode flips used from false to true with a conditional
// update, so of N concurrent redeemers exactly one sees ok. A blind
// write-after-read would let two racers both succeed.
func (db *DB) ConsumeSingleUseCode(ctx context.Context, code string) (bool, error) {
	res, err := db.AccessCodes().UpdateOne(ctx,
		bson.M{"_id": code, "used": false},
		bson.M{"$set": bson.M{"used": true}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

func (db *DB) CreateCode(ctx context.Context, c *models.AccessCode) error {
	_, err := db.AccessCodes().InsertOne(ctx, c, options.InsertOne())
	return err
}

func (db *DB) ListCodes(ctx context.Context) ([]models.AccessCode, error) {
	cur, err := db.AccessCodes().Find(ctx, bson.M{}, options.Find().SetSort(bson.M{"createdAt": -1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var codes []models.AccessCode
	if err := cur.All(ctx, &codes); err != nil {
		return nil, err
	}
	return codes, nil
}
