package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Content types.
const (
	TypeClassNotes        = "Class Notes"
	TypePYQ               = "PYQ"
	TypeImportantQuestion = "Important Question"
)

var ValidContentTypes = []string{TypeClassNotes, TypePYQ, TypeImportantQuestion}

// Content is a unit of shared study material. AuthorID is immutable after
// creation. FileURL and FileType are either both empty or both set; they may
// lag the textual fields while a background upload is in flight.
type Content struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title      string             `bson:"title" json:"title"`
	Subject    string             `bson:"subject" json:"subject"`
	Type       string             `bson:"type" json:"type"` // Class Notes, PYQ, Important Question
	Body       string             `bson:"body" json:"body"`
	AuthorID   primitive.ObjectID `bson:"authorId" json:"authorId"`
	AuthorName string             `bson:"authorName" json:"authorName"` // snapshot at creation
	FileURL    string             `bson:"fileUrl,omitempty" json:"fileUrl,omitempty"`
	FileType   string             `bson:"fileType,omitempty" json:"fileType,omitempty"`
	Stream     string             `bson:"stream,omitempty" json:"stream,omitempty"`
	Year       string             `bson:"year,omitempty" json:"year,omitempty"`
	CreatedAt  time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time          `bson:"updatedAt" json:"updatedAt"`
}

func ContentTypeValid(t string) bool {
	for _, v := range ValidContentTypes {
		if v == t {
			return true
		}
	}
	return false
}
