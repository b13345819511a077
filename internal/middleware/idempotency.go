package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const (
	idempotencyHeader       = "Idempotency-Key"
	idempotencyReplayHeader = "Idempotent-Replayed"
	idempotencyTTL          = 24 * time.Hour
	// idempotencyInFlightTTL bounds how long a crashed request blocks its key.
	idempotencyInFlightTTL = 30 * time.Second
	maxIdempotentBodyBytes = 1 << 20
)

// storedResponse is the first response to a keyed POST, kept for replay.
type storedResponse struct {
	StatusCode  int    `json:"status_code"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
	// RequestHash fingerprints the request body the key was first used with.
	RequestHash string `json:"request_hash"`
}

// captureWriter tees the response body so it can be stored.
type captureWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *captureWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// IdempotencyMiddleware makes keyed POSTs safe to retry. A repeat of the
// same key on the same route with the same body gets the stored response
// for 24h, so a retried create-order never opens a second checkout. While
// the first request runs, repeats get 409. Reusing a key with a different
// body gets 422. Server errors are not stored and stay retryable.
// A nil client disables the middleware.
func IdempotencyMiddleware(client redis.Cmdable) gin.HandlerFunc {
	return func(c *gin.Context) {
		if client == nil || c.Request.Method != http.MethodPost {
			c.Next()
			return
		}
		key := c.GetHeader(idempotencyHeader)
		if key == "" {
			c.Next()
			return
		}

		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxIdempotentBodyBytes))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unreadable request body"})
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		ctx := c.Request.Context()
		storeKey := idempotencyKey(c.Request.Method, c.Request.URL.Path, key)
		requestHash := hashBody(body)

		stored, err := loadResponse(ctx, client, storeKey)
		switch {
		case err != nil:
			log.Printf("[IDEMPOTENCY] lookup failed for %s, serving without replay: %v", c.Request.URL.Path, err)
			c.Next()
			return
		case stored != nil && stored.RequestHash != requestHash:
			c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{
				"error": "Idempotency-Key was already used with a different request",
			})
			return
		case stored != nil:
			c.Header(idempotencyReplayHeader, "true")
			c.Data(stored.StatusCode, stored.ContentType, stored.Body)
			c.Abort()
			return
		}

		lockKey := storeKey + ":inflight"
		acquired, err := client.SetNX(ctx, lockKey, requestHash, idempotencyInFlightTTL).Result()
		if err != nil {
			log.Printf("[IDEMPOTENCY] in-flight mark failed for %s: %v", c.Request.URL.Path, err)
		} else if !acquired {
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{
				"error": "a request with this Idempotency-Key is in progress",
			})
			return
		} else {
			defer client.Del(context.WithoutCancel(ctx), lockKey)
		}

		w := &captureWriter{ResponseWriter: c.Writer, body: &bytes.Buffer{}}
		c.Writer = w
		c.Next()

		status := w.Status()
		if status < http.StatusOK || status >= http.StatusInternalServerError {
			return
		}
		response := storedResponse{
			StatusCode:  status,
			ContentType: w.Header().Get("Content-Type"),
			Body:        w.body.Bytes(),
			RequestHash: requestHash,
		}
		if err := storeResponse(context.WithoutCancel(ctx), client, storeKey, &response); err != nil {
			log.Printf("[IDEMPOTENCY] store failed for %s: %v", c.Request.URL.Path, err)
		}
	}
}

// idempotencyKey scopes a client key to one route.
func idempotencyKey(method, path, key string) string {
	return "idempotency:" + method + ":" + path + ":" + key
}

func hashBody(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

// loadResponse returns nil, nil when nothing is stored under key.
func loadResponse(ctx context.Context, client redis.Cmdable, key string) (*storedResponse, error) {
	data, err := client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var stored storedResponse
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, err
	}
	return &stored, nil
}

func storeResponse(ctx context.Context, client redis.Cmdable, key string, response *storedResponse) error {
	data, err := json.Marshal(response)
	if err != nil {
		return err
	}
	return client.Set(ctx, key, data, idempotencyTTL).Err()
}
