package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DefaultCollectionName holds one document per (scope, key)
const DefaultCollectionName = "idempotency_keys"

// MongoStore implements Store on a MongoDB collection
type MongoStore struct {
	collection *mongo.Collection
}

// NewMongoStore creates a store on db's idempotency collection
func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{collection: db.Collection(DefaultCollectionName)}
}

// Claim implements Store. The unique (scope, key) index turns a racing
// insert into a duplicate key error, which is resolved by reading the
// winner's record.
func (s *MongoStore) Claim(ctx context.Context, rec *Record, lockTimeout time.Duration) (*Record, bool, error) {
	now := time.Now().UTC()
	staleBefore := now.Add(-lockTimeout)

	// Matches only records the caller may take over: expired ones, or
	// unfinished ones whose lock has gone stale.
	filter := bson.M{
		"scope": rec.Scope,
		"key":   rec.Key,
		"$or": bson.A{
			bson.M{"expiresAt": bson.M{"$lt": now}},
			bson.M{
				"completedAt": bson.M{"$exists": false},
				"lockedAt":    bson.M{"$lt": staleBefore},
			},
		},
	}

	claimed := *rec
	claimed.LockedAt = &now
	claimed.CompletedAt = nil

	opts := options.Replace().SetUpsert(true)
	_, err := s.collection.ReplaceOne(ctx, filter, &claimed, opts)
	if err == nil {
		return &claimed, true, nil
	}
	if !mongo.IsDuplicateKeyError(err) {
		return nil, false, fmt.Errorf("failed to claim idempotency key: %w", err)
	}

	var existing Record
	err = s.collection.FindOne(ctx, bson.M{"scope": rec.Scope, "key": rec.Key}).Decode(&existing)
	if errors.Is(err, mongo.ErrNoDocuments) {
		// Released between the upsert and the read
		return s.Claim(ctx, rec, lockTimeout)
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to load idempotency key: %w", err)
	}
	return &existing, false, nil
}

// Complete implements Store
func (s *MongoStore) Complete(ctx context.Context, scope, key string, resp *Response) error {
	update := bson.M{
		"$set": bson.M{
			"statusCode":  resp.StatusCode,
			"contentType": resp.ContentType,
			"body":        resp.Body,
			"headers":     resp.Headers,
			"completedAt": time.Now().UTC(),
		},
		"$unset": bson.M{"lockedAt": ""},
	}

	result, err := s.collection.UpdateOne(ctx, bson.M{"scope": scope, "key": key}, update)
	if err != nil {
		return fmt.Errorf("failed to store idempotent response: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Release implements Store
func (s *MongoStore) Release(ctx context.Context, scope, key string) error {
	filter := bson.M{
		"scope":       scope,
		"key":         key,
		"completedAt": bson.M{"$exists": false},
	}
	if _, err := s.collection.DeleteOne(ctx, filter); err != nil {
		return fmt.Errorf("failed to release idempotency key: %w", err)
	}
	return nil
}

// EnsureIndexes creates the unique key index and the retention TTL index
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "scope", Value: 1},
				{Key: "key", Value: 1},
			},
			Options: options.Index().SetUnique(true).SetName("idx_scope_key"),
		},
		{
			Keys:    bson.D{{Key: "expiresAt", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0).SetName("idx_expiresAt_ttl"),
		},
	}

	if _, err := s.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create idempotency indexes: %w", err)
	}
	return nil
}
