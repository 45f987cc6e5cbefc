package notification

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const stateDocumentID = "state"

// MongoStore keeps the snapshot as one document, so a save is a single
// atomic document replacement.
type MongoStore struct {
	collection *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{collection: db.Collection("notification_state")}
}

type stateDocument struct {
	ID       string `bson:"_id"`
	Snapshot `bson:",inline"`
}

func (s *MongoStore) Load(ctx context.Context) (*Snapshot, error) {
	doc := stateDocument{Snapshot: *NewSnapshot()}
	err := s.collection.FindOne(ctx, bson.M{"_id": stateDocumentID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return NewSnapshot(), nil
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	snap := doc.Snapshot
	snap.normalize()
	return &snap, nil
}

func (s *MongoStore) Save(ctx context.Context, snap *Snapshot) error {
	doc := stateDocument{ID: stateDocumentID, Snapshot: *snap}
	_, err := s.collection.ReplaceOne(ctx, bson.M{"_id": stateDocumentID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}
