package idempotency

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wms-platform/pick-ticket-service/pkg/errors"
	"github.com/wms-platform/pick-ticket-service/pkg/logging"
	"github.com/wms-platform/pick-ticket-service/pkg/middleware"
)

const (
	// HeaderIdempotencyKey carries the client-chosen key
	HeaderIdempotencyKey = "Idempotency-Key"

	// HeaderReplayed is set on responses served from a stored record
	HeaderReplayed = "Idempotent-Replayed"
)

// Outcomes reported to the Recorder
const (
	OutcomeStored     = "stored"
	OutcomeReplayed   = "replayed"
	OutcomeMismatch   = "mismatch"
	OutcomeInProgress = "in_progress"
	OutcomeReleased   = "released"
	OutcomeStoreError = "store_error"
)

var keyPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Per-request headers are regenerated on replay
var volatileHeaders = headerSet(
	middleware.HeaderRequestID,
	middleware.HeaderCorrelationID,
	"Content-Length",
	"Content-Type",
	"Date",
)

func headerSet(names ...string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, name := range names {
		set[http.CanonicalHeaderKey(name)] = true
	}
	return set
}

// Recorder receives one outcome per keyed request
type Recorder interface {
	RecordIdempotency(outcome string)
}

// Config configures the middleware
type Config struct {
	// Scope namespaces keys, usually the service name
	Scope           string
	Store           Store
	MaxKeyLength    int
	LockTimeout     time.Duration
	RetentionPeriod time.Duration
	MaxResponseSize int
	Logger          *logging.Logger
	Metrics         Recorder
}

// DefaultConfig returns a config with a 24h retention window
func DefaultConfig(scope string, store Store, logger *logging.Logger) *Config {
	return &Config{
		Scope:           scope,
		Store:           store,
		MaxKeyLength:    255,
		LockTimeout:     5 * time.Minute,
		RetentionPeriod: 24 * time.Hour,
		MaxResponseSize: 4 << 20,
		Logger:          logger,
	}
}

// ValidateKey checks a trimmed key against the allowed alphabet and length
func ValidateKey(key string, maxLength int) error {
	if key == "" || len(key) > maxLength || !keyPattern.MatchString(key) {
		return ErrKeyInvalid
	}
	return nil
}

// Fingerprint identifies a request by method, path and body
func Fingerprint(method, path string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(method))
	h.Write([]byte{0})
	h.Write([]byte(path))
	h.Write([]byte{0})
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

type captureWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *captureWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *captureWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Middleware executes a keyed request once and replays its response for
// retries. Requests without the header pass through untouched. 5xx
// responses are not stored, so the client may retry with the same key.
func Middleware(config *Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := strings.TrimSpace(c.GetHeader(HeaderIdempotencyKey))
		if key == "" {
			c.Next()
			return
		}

		if err := ValidateKey(key, config.MaxKeyLength); err != nil {
			middleware.AbortWithAppError(c, errors.ErrValidationWithFields(
				"invalid idempotency key",
				map[string]string{HeaderIdempotencyKey: fmt.Sprintf("must match [A-Za-z0-9_-] and be at most %d characters", config.MaxKeyLength)},
			))
			return
		}

		var body []byte
		if c.Request.Body != nil {
			var err error
			body, err = io.ReadAll(c.Request.Body)
			if err != nil {
				middleware.AbortWithAppError(c, errors.ErrBadRequest("failed to read request body"))
				return
			}
			c.Request.Body = io.NopCloser(bytes.NewReader(body))
		}

		now := time.Now().UTC()
		rec := &Record{
			Scope:       config.Scope,
			Key:         key,
			Method:      c.Request.Method,
			Path:        c.Request.URL.Path,
			Fingerprint: Fingerprint(c.Request.Method, c.Request.URL.Path, body),
			CreatedAt:   now,
			ExpiresAt:   now.Add(config.RetentionPeriod),
		}

		ctx := c.Request.Context()
		logger := config.Logger.WithContext(ctx).WithFields(map[string]any{
			"idempotencyKey": key,
			"path":           rec.Path,
		})

		stored, owned, err := config.Store.Claim(ctx, rec, config.LockTimeout)
		if err != nil {
			logger.WithError(err).Error("Failed to claim idempotency key")
			config.record(OutcomeStoreError)
			middleware.AbortWithAppError(c, errors.ErrServiceUnavailable("idempotency store"))
			return
		}

		if !owned {
			replay(c, config, logger, rec, stored)
			return
		}

		writer := &captureWriter{ResponseWriter: c.Writer, body: &bytes.Buffer{}}
		c.Writer = writer
		c.Next()

		// Stored even when the client has disconnected
		storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()

		status := writer.Status()
		if status >= http.StatusInternalServerError || writer.body.Len() > config.MaxResponseSize {
			if err := config.Store.Release(storeCtx, config.Scope, key); err != nil {
				logger.WithError(err).Warn("Failed to release idempotency key")
			}
			config.record(OutcomeReleased)
			return
		}

		resp := &Response{
			StatusCode:  status,
			ContentType: writer.Header().Get("Content-Type"),
			Body:        writer.body.Bytes(),
			Headers:     stableHeaders(writer.Header()),
		}
		if err := config.Store.Complete(storeCtx, config.Scope, key, resp); err != nil {
			logger.WithError(err).Error("Failed to store idempotent response")
			config.record(OutcomeStoreError)
			return
		}
		config.record(OutcomeStored)
	}
}

func replay(c *gin.Context, config *Config, logger *logging.Logger, rec, stored *Record) {
	if stored.Fingerprint != rec.Fingerprint || stored.Path != rec.Path {
		logger.Warn("Idempotency key reused with a different request")
		config.record(OutcomeMismatch)
		middleware.AbortWithAppError(c, errors.ErrConflict("idempotency key was used for a different request").
			WithDetail("key", rec.Key))
		return
	}

	if !stored.Completed() {
		config.record(OutcomeInProgress)
		middleware.AbortWithAppError(c, errors.ErrConflict("a request with this idempotency key is still being processed").
			WithDetail("key", rec.Key))
		return
	}

	logger.Debug("Replaying stored response", "status", stored.StatusCode)
	config.record(OutcomeReplayed)

	for k, v := range stored.Headers {
		c.Header(k, v)
	}
	c.Header(HeaderReplayed, "true")
	c.Data(stored.StatusCode, stored.ContentType, stored.Body)
	c.Abort()
}

func stableHeaders(h http.Header) map[string]string {
	out := make(map[string]string)
	for k, v := range h {
		if len(v) == 0 || volatileHeaders[http.CanonicalHeaderKey(k)] {
			continue
		}
		out[k] = v[0]
	}
	return out
}

func (c *Config) record(outcome string) {
	if c.Metrics != nil {
		c.Metrics.RecordIdempotency(outcome)
	}
}
