package idempotency

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/pick-ticket-service/pkg/logging"
)

type countingRecorder struct {
	outcomes []string
}

func (r *countingRecorder) RecordIdempotency(outcome string) {
	r.outcomes = append(r.outcomes, outcome)
}

type failingStore struct{}

func (failingStore) Claim(context.Context, *Record, time.Duration) (*Record, bool, error) {
	return nil, false, assert.AnError
}

func (failingStore) Complete(context.Context, string, string, *Response) error { return nil }

func (failingStore) Release(context.Context, string, string) error { return nil }

func newRouter(store Store, rec Recorder, status *int, calls *int32) *gin.Engine {
	gin.SetMode(gin.TestMode)

	cfg := DefaultConfig("pick-ticket-service", store, logging.NewNop())
	cfg.Metrics = rec

	router := gin.New()
	router.POST("/runs", Middleware(cfg), func(c *gin.Context) {
		n := atomic.AddInt32(calls, 1)
		c.Header("Content-Disposition", "inline")
		c.JSON(*status, gin.H{"call": n})
	})
	return router
}

func post(router *gin.Engine, key, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/runs", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set(HeaderIdempotencyKey, key)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestMiddleware_ReplaysCompletedRequest(t *testing.T) {
	var calls int32
	status := http.StatusCreated
	recorder := &countingRecorder{}
	router := newRouter(NewMemoryStore(), recorder, &status, &calls)

	first := post(router, "run-1", `{"lines":[]}`)
	second := post(router, "run-1", `{"lines":[]}`)

	assert.Equal(t, int32(1), calls)
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.JSONEq(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "true", second.Header().Get(HeaderReplayed))
	assert.Equal(t, "inline", second.Header().Get("Content-Disposition"))
	assert.Empty(t, first.Header().Get(HeaderReplayed))
	assert.Equal(t, []string{OutcomeStored, OutcomeReplayed}, recorder.outcomes)
}

func TestMiddleware_WithoutKeyPassesThrough(t *testing.T) {
	var calls int32
	status := http.StatusCreated
	router := newRouter(NewMemoryStore(), nil, &status, &calls)

	post(router, "", `{}`)
	post(router, "", `{}`)

	assert.Equal(t, int32(2), calls)
}

func TestMiddleware_DifferentBodyConflicts(t *testing.T) {
	var calls int32
	status := http.StatusCreated
	recorder := &countingRecorder{}
	router := newRouter(NewMemoryStore(), recorder, &status, &calls)

	post(router, "run-1", `{"a":1}`)
	rec := post(router, "run-1", `{"a":2}`)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "CONFLICT")
	assert.Equal(t, int32(1), calls)
	assert.Equal(t, OutcomeMismatch, recorder.outcomes[len(recorder.outcomes)-1])
}

func TestMiddleware_ServerErrorsAreNotStored(t *testing.T) {
	var calls int32
	status := http.StatusInternalServerError
	recorder := &countingRecorder{}
	router := newRouter(NewMemoryStore(), recorder, &status, &calls)

	first := post(router, "run-1", `{}`)
	require.Equal(t, http.StatusInternalServerError, first.Code)

	status = http.StatusCreated
	second := post(router, "run-1", `{}`)

	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, int32(2), calls)
	assert.Equal(t, []string{OutcomeReleased, OutcomeStored}, recorder.outcomes)
}

func TestMiddleware_InvalidKey(t *testing.T) {
	var calls int32
	status := http.StatusCreated
	router := newRouter(NewMemoryStore(), nil, &status, &calls)

	for _, key := range []string{"has space", "semi;colon", strings.Repeat("k", 256)} {
		rec := post(router, key, `{}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code, key)
		assert.Contains(t, rec.Body.String(), "VALIDATION_ERROR")
	}
	assert.Zero(t, calls)
}

func TestMiddleware_StoreUnavailable(t *testing.T) {
	var calls int32
	status := http.StatusCreated
	recorder := &countingRecorder{}
	router := newRouter(failingStore{}, recorder, &status, &calls)

	rec := post(router, "run-1", `{}`)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Zero(t, calls)
	assert.Equal(t, []string{OutcomeStoreError}, recorder.outcomes)
}

func TestMiddleware_InProgress(t *testing.T) {
	var calls int32
	status := http.StatusCreated
	store := NewMemoryStore()
	router := newRouter(store, nil, &status, &calls)

	now := time.Now().UTC()
	_, owned, err := store.Claim(context.Background(), &Record{
		Scope:       "pick-ticket-service",
		Key:         "run-1",
		Method:      http.MethodPost,
		Path:        "/runs",
		Fingerprint: Fingerprint(http.MethodPost, "/runs", []byte(`{}`)),
		CreatedAt:   now,
		ExpiresAt:   now.Add(time.Hour),
	}, time.Minute)
	require.NoError(t, err)
	require.True(t, owned)

	rec := post(router, "run-1", `{}`)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "still being processed")
	assert.Zero(t, calls)
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint(http.MethodPost, "/runs", []byte(`{}`))
	assert.Equal(t, a, Fingerprint(http.MethodPost, "/runs", []byte(`{}`)))
	assert.NotEqual(t, a, Fingerprint(http.MethodPost, "/runs/upload", []byte(`{}`)))
	assert.NotEqual(t, a, Fingerprint(http.MethodPost, "/runs", []byte(`{ }`)))
}
