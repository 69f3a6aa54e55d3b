package entitlement

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// MongoStore implements Store on a MongoDB collection, one document per user
// keyed by _id. The event-ordering guard lives in the update filter, so the
// compare and the write are a single atomic document operation and no global
// lock is needed across handler instances.
type MongoStore struct {
	col *mongo.Collection
}

// NewMongoStore creates a store backed by the given collection.
func NewMongoStore(col *mongo.Collection) *MongoStore {
	if col == nil {
		panic("entitlement: mongo collection is required")
	}
	return &MongoStore{col: col}
}

func (s *MongoStore) Get(ctx context.Context, userID string) (Entitlement, error) {
	var ent Entitlement
	err := s.col.FindOne(ctx, bson.M{"_id": userID}).Decode(&ent)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Entitlement{}, ErrEntitlementNotFound
		}
		return Entitlement{}, errors.Join(ErrStoreUnavailable, err)
	}
	return ent, nil
}

// Apply performs the conditional write. The filter admits the update only
// when the stored event identity is strictly older than the incoming one,
// mirroring Supersedes: earlier timestamp, or equal timestamp with a
// lexicographically smaller event ID.
func (s *MongoStore) Apply(ctx context.Context, ent Entitlement) (bool, error) {
	filter := bson.M{
		"_id": ent.UserID,
		"$or": bson.A{
			bson.M{"last_event_at": bson.M{"$lt": ent.LastEventAt}},
			bson.M{
				"last_event_at": ent.LastEventAt,
				"last_event_id": bson.M{"$lt": ent.LastEventID},
			},
		},
	}

	res, err := s.col.UpdateOne(ctx, filter, bson.M{"$set": ent})
	if err != nil {
		return false, errors.Join(ErrStoreUnavailable, err)
	}
	if res.MatchedCount == 1 {
		return true, nil
	}

	// No match: either the record does not exist yet or the event is stale.
	// Try to create it; a duplicate-key error means a record exists and the
	// conditional update above already judged the event stale or lost a race
	// to a concurrent Apply, so re-check once.
	if _, err := s.col.InsertOne(ctx, ent); err == nil {
		return true, nil
	} else if !mongo.IsDuplicateKeyError(err) {
		return false, errors.Join(ErrStoreUnavailable, err)
	}

	res, err = s.col.UpdateOne(ctx, filter, bson.M{"$set": ent})
	if err != nil {
		return false, errors.Join(ErrStoreUnavailable, err)
	}
	return res.MatchedCount == 1, nil
}
