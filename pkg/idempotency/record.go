// Package idempotency lets clients retry run-creating requests safely. A
// request carrying an Idempotency-Key header is executed once; retries with
// the same key and body replay the stored response.
package idempotency

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrKeyInvalid is returned for keys outside [A-Za-z0-9_-] or too long
	ErrKeyInvalid = errors.New("invalid idempotency key")

	// ErrNotFound is returned when no record exists for a key
	ErrNotFound = errors.New("idempotency record not found")
)

// Record is the stored state of one keyed request
type Record struct {
	Scope       string `bson:"scope"`
	Key         string `bson:"key"`
	Method      string `bson:"method"`
	Path        string `bson:"path"`
	Fingerprint string `bson:"fingerprint"`

	LockedAt    *time.Time `bson:"lockedAt,omitempty"`
	CompletedAt *time.Time `bson:"completedAt,omitempty"`

	StatusCode  int               `bson:"statusCode,omitempty"`
	ContentType string            `bson:"contentType,omitempty"`
	Body        []byte            `bson:"body,omitempty"`
	Headers     map[string]string `bson:"headers,omitempty"`

	CreatedAt time.Time `bson:"createdAt"`
	ExpiresAt time.Time `bson:"expiresAt"`
}

// Completed reports whether a response has been stored
func (r *Record) Completed() bool {
	return r.CompletedAt != nil
}

// Locked reports whether a request holds the key and the lock is younger
// than timeout
func (r *Record) Locked(now time.Time, timeout time.Duration) bool {
	return r.LockedAt != nil && now.Sub(*r.LockedAt) < timeout
}

// Store persists idempotency records
type Store interface {
	// Claim inserts rec unless a record for (rec.Scope, rec.Key) exists.
	// It returns the stored record and whether the caller now owns it.
	// An unfinished record whose lock is older than lockTimeout is taken
	// over.
	Claim(ctx context.Context, rec *Record, lockTimeout time.Duration) (*Record, bool, error)

	// Complete stores the response and clears the lock
	Complete(ctx context.Context, scope, key string, resp *Response) error

	// Release drops an unfinished record so the key can be retried
	Release(ctx context.Context, scope, key string) error
}

// Response is the captured outcome of a keyed request
type Response struct {
	StatusCode  int
	ContentType string
	Body        []byte
	Headers     map[string]string
}
