package store

import (
	"context"
	"strings"
	"time"

	"github.com/studyhive/backend/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (db *DB) InsertContent(ctx context.Context, c *models.Content) (primitive.ObjectID, error) {
	res, err := db.Content().InsertOne(ctx, c, options.InsertOne())
	if err != nil {
		return primitive.NilObjectID, err
	}
	return res.InsertedID.(primitive.ObjectID), nil
}

func (db *DB) ContentByID(ctx context.Context, id primitive.ObjectID) (*models.Content, error) {
	var c models.Content
	err := db.Content().FindOne(ctx, bson.M{"_id": id}).Decode(&c)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (db *DB) ListContent(ctx context.Context) ([]models.Content, error) {
	cur, err := db.Content().Find(ctx, bson.M{}, options.Find().SetSort(bson.M{"createdAt": -1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var items []models.Content
	if err := cur.All(ctx, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// SearchContent filters the full content list by case-insensitive substring
// over title and subject. The collection is small enough that this stays an
// in-memory scan rather than a text index.
func (db *DB) SearchContent(ctx context.Context, query string) ([]models.Content, error) {
	items, err := db.ListContent(ctx)
	if err != nil {
		return nil, err
	}
	return filterContent(items, query), nil
}

// filterContent keeps the items whose title or subject contains the query,
// ignoring case. An empty or whitespace-only query matches everything.
func filterContent(items []models.Content, query string) []models.Content {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return items
	}
	matched := make([]models.Content, 0, len(items))
	for _, c := range items {
		if strings.Contains(strings.ToLower(c.Title), q) || strings.Contains(strings.ToLower(c.Subject), q) {
			matched = append(matched, c)
		}
	}
	return matched
}

// UpdateContentMeta rewrites the textual fields of an existing item in one
// document operation. AuthorID and authorName are never touched. When
// clearAttachment is set (a new file was chosen for this edit) the attachment
// fields are emptied in the same write; the new upload's completion patches
// them back in later.
func (db *DB) UpdateContentMeta(ctx context.Context, id primitive.ObjectID, c *models.Content, clearAttachment bool) error {
	set := bson.M{
		"title":     c.Title,
		"subject":   c.Subject,
		"type":      c.Type,
		"body":      c.Body,
		"stream":    c.Stream,
		"year":      c.Year,
		"updatedAt": time.Now(),
	}
	update := bson.M{"$set": set}
	if clearAttachment {
		update["$unset"] = bson.M{"fileUrl": "", "fileType": ""}
	}
	_, err := db.Content().UpdateOne(ctx, bson.M{"_id": id}, update)
	return err
}

// SetContentAttachment patches fileUrl/fileType after a background upload
// completes. Both fields are written together so they are never half set.
func (db *DB) SetContentAttachment(ctx context.Context, id primitive.ObjectID, fileURL, fileType string) error {
	_, err := db.Content().UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"fileUrl":   fileURL,
		"fileType":  fileType,
		"updatedAt": time.Now(),
	}})
	return err
}

// DeleteContent removes the metadata document only. Any attachment blob is
// left behind in the blob store; cleanup is owned elsewhere.
func (db *DB) DeleteContent(ctx context.Context, id primitive.ObjectID) error {
	_, err := db.Content().DeleteOne(ctx, bson.M{"_id": id})
	return err
}
