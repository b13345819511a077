package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter_AllowsBurstThenRejects(t *testing.T) {
	limiter := NewRateLimiter(1, 3)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		assert.True(t, limiter.Allow("10.0.0.1"), "request %d within burst", i+1)
	}
	assert.False(t, limiter.Allow("10.0.0.1"))

	// Other clients have their own bucket.
	assert.True(t, limiter.Allow("10.0.0.2"))

	// One token refills per second.
	now = now.Add(time.Second)
	assert.True(t, limiter.Allow("10.0.0.1"))
	assert.False(t, limiter.Allow("10.0.0.1"))
}

func TestRateLimiter_CleanupDropsIdleClients(t *testing.T) {
	limiter := NewRateLimiter(1, 1)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	limiter.Allow("10.0.0.1")
	now = now.Add(10 * time.Minute)
	limiter.Allow("10.0.0.2")

	now = now.Add(limiterIdleTTL - time.Minute)
	limiter.Cleanup()

	assert.Len(t, limiter.limiters, 1)
	assert.Contains(t, limiter.limiters, "10.0.0.2")
}

func TestRateLimiter_Middleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	limiter := NewRateLimiter(0.001, 1)

	r := gin.New()
	r.POST("/payments/donation/create-order", limiter.Middleware(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	send := func() int {
		req := httptest.NewRequest(http.MethodPost, "/payments/donation/create-order", nil)
		req.RemoteAddr = "192.0.2.10:5000"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, send())
	assert.Equal(t, http.StatusTooManyRequests, send())
}

func TestCORSMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(CORSMiddleware())
	r.GET("/donors", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/donors", nil)
	req.Header.Set("Origin", "https://devalayaum.in")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.NotEmpty(t, w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "Idempotency-Key")
}

func TestIdempotencyMiddleware_NilClientPassesThrough(t *testing.T) {
	gin.SetMode(gin.TestMode)

	calls := 0
	r := gin.New()
	r.Use(IdempotencyMiddleware(nil))
	r.POST("/bookings", func(c *gin.Context) {
		calls++
		c.Status(http.StatusCreated)
	})

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/bookings", nil)
		req.Header.Set(idempotencyHeader, "same-key")
		r.ServeHTTP(httptest.NewRecorder(), req)
	}
	assert.Equal(t, 2, calls)
}

func TestIdempotencyKey_ScopedPerRoute(t *testing.T) {
	a := idempotencyKey(http.MethodPost, "/payments/donation/create-order", "k1")
	b := idempotencyKey(http.MethodPost, "/payments/product/create-order", "k1")
	assert.NotEqual(t, a, b)
	assert.Equal(t, "idempotency:POST:/payments/donation/create-order:k1", a)
}

// memoryRedis implements the redis commands the idempotency middleware uses.
type memoryRedis struct {
	redis.Cmdable

	mu     sync.Mutex
	values map[string]string
	ttls   map[string]time.Duration
	getErr error
}

func newMemoryRedis() *memoryRedis {
	return &memoryRedis{values: make(map[string]string), ttls: make(map[string]time.Duration)}
}

func toString(value interface{}) string {
	switch v := value.(type) {
	case []byte:
		return string(v)
	case string:
		return v
	}
	return ""
}

func (m *memoryRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return redis.NewStringResult("", m.getErr)
	}
	v, ok := m.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *memoryRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = toString(value)
	m.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (m *memoryRedis) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.values[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	m.values[key] = toString(value)
	m.ttls[key] = expiration
	return redis.NewBoolResult(true, nil)
}

func (m *memoryRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, k := range keys {
		if _, ok := m.values[k]; ok {
			delete(m.values, k)
			delete(m.ttls, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func (m *memoryRedis) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.values[key]
	return ok
}

// checkoutRouter counts how many checkouts were actually opened.
func checkoutRouter(store redis.Cmdable, status *int) (*gin.Engine, *int) {
	gin.SetMode(gin.TestMode)
	opened := 0
	r := gin.New()
	r.Use(IdempotencyMiddleware(store))
	handler := func(c *gin.Context) {
		opened++
		if *status >= http.StatusInternalServerError {
			c.JSON(*status, gin.H{"error": "internal error"})
			return
		}
		c.JSON(*status, gin.H{"orderId": "DN" + strings.Repeat("1", opened)})
	}
	r.POST("/payments/donation/create-order", handler)
	r.POST("/payments/product/create-order", handler)
	return r, &opened
}

func postKeyed(r *gin.Engine, path, key, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(idempotencyHeader, key)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestIdempotencyMiddleware_ReplaysStoredResponse(t *testing.T) {
	store := newMemoryRedis()
	status := http.StatusCreated
	r, opened := checkoutRouter(store, &status)
	const path = "/payments/donation/create-order"
	body := `{"entityId":"cause-annadanam","amount":501}`

	first := postKeyed(r, path, "retry-1", body)
	require.Equal(t, http.StatusCreated, first.Code)
	assert.Empty(t, first.Header().Get(idempotencyReplayHeader))

	second := postKeyed(r, path, "retry-1", body)
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "true", second.Header().Get(idempotencyReplayHeader))
	assert.Contains(t, second.Header().Get("Content-Type"), "application/json")
	assert.Equal(t, 1, *opened, "a replayed request must not open a second checkout")

	storeKey := idempotencyKey(http.MethodPost, path, "retry-1")
	assert.Equal(t, idempotencyTTL, store.ttls[storeKey])
	assert.False(t, store.has(storeKey+":inflight"), "in-flight mark must be released")
}

func TestIdempotencyMiddleware_ClientErrorsAreReplayed(t *testing.T) {
	store := newMemoryRedis()
	status := http.StatusBadRequest
	r, opened := checkoutRouter(store, &status)

	postKeyed(r, "/payments/donation/create-order", "bad-1", `{}`)
	status = http.StatusCreated
	w := postKeyed(r, "/payments/donation/create-order", "bad-1", `{}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 1, *opened)
}

func TestIdempotencyMiddleware_ServerErrorsStayRetryable(t *testing.T) {
	store := newMemoryRedis()
	status := http.StatusServiceUnavailable
	r, opened := checkoutRouter(store, &status)
	const path = "/payments/donation/create-order"

	w := postKeyed(r, path, "flaky-1", `{}`)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.False(t, store.has(idempotencyKey(http.MethodPost, path, "flaky-1")))

	status = http.StatusCreated
	w = postKeyed(r, path, "flaky-1", `{}`)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Empty(t, w.Header().Get(idempotencyReplayHeader))
	assert.Equal(t, 2, *opened)
}

func TestIdempotencyMiddleware_KeyScopedPerRoute(t *testing.T) {
	store := newMemoryRedis()
	status := http.StatusCreated
	r, opened := checkoutRouter(store, &status)

	a := postKeyed(r, "/payments/donation/create-order", "shared", `{}`)
	b := postKeyed(r, "/payments/product/create-order", "shared", `{}`)

	assert.Equal(t, 2, *opened)
	assert.NotEqual(t, a.Body.String(), b.Body.String())
	assert.Empty(t, b.Header().Get(idempotencyReplayHeader))
}

func TestIdempotencyMiddleware_KeyReusedWithDifferentBody(t *testing.T) {
	store := newMemoryRedis()
	status := http.StatusCreated
	r, opened := checkoutRouter(store, &status)
	const path = "/payments/donation/create-order"

	postKeyed(r, path, "k-1", `{"amount":501}`)
	w := postKeyed(r, path, "k-1", `{"amount":5001}`)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, 1, *opened)
}

func TestIdempotencyMiddleware_InFlightRequestConflicts(t *testing.T) {
	store := newMemoryRedis()
	status := http.StatusCreated
	r, opened := checkoutRouter(store, &status)
	const path = "/payments/donation/create-order"

	lockKey := idempotencyKey(http.MethodPost, path, "busy") + ":inflight"
	store.SetNX(context.Background(), lockKey, "other", idempotencyInFlightTTL)

	w := postKeyed(r, path, "busy", `{}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, 0, *opened)
	assert.True(t, store.has(lockKey), "another request's mark must be left alone")
}

func TestIdempotencyMiddleware_StoreErrorServesWithoutReplay(t *testing.T) {
	store := newMemoryRedis()
	store.getErr = errors.New("redis down")
	status := http.StatusCreated
	r, opened := checkoutRouter(store, &status)

	for i := 0; i < 2; i++ {
		w := postKeyed(r, "/payments/donation/create-order", "k-2", `{}`)
		assert.Equal(t, http.StatusCreated, w.Code)
	}
	assert.Equal(t, 2, *opened)
}

func TestIdempotencyMiddleware_HandlerReadsFullBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(IdempotencyMiddleware(newMemoryRedis()))
	var got string
	r.POST("/bookings", func(c *gin.Context) {
		var req struct {
			PujaID string `json:"pujaId"`
		}
		_ = c.ShouldBindJSON(&req)
		got = req.PujaID
		c.Status(http.StatusCreated)
	})

	postKeyed(r, "/bookings", "b-1", `{"pujaId":"puja-abhishekam"}`)
	assert.Equal(t, "puja-abhishekam", got)
}
