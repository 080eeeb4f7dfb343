package middleware

import (
    "bytes"
    "context"
    "crypto/sha1"
    "encoding/json"
    "fmt"
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"
    "go.uber.org/zap"

    "github.com/iliyamo/swimmeet-console/internal/config"
)

// TouchedEventsKey is the echo context key under which a write handler
// lists the extra event ids it changed (a move into another event).
const TouchedEventsKey = "touched_events"

// captureWriter captures response body/status while forwarding to the client.
type captureWriter struct {
    http.ResponseWriter
    status int
    buf    bytes.Buffer
    size   int64
    limit  int64
}

func (cw *captureWriter) WriteHeader(code int) { cw.status = code; cw.ResponseWriter.WriteHeader(code) }

func (cw *captureWriter) Write(b []byte) (int, error) {
    if cw.limit <= 0 || cw.size+int64(len(b)) <= cw.limit {
        cw.buf.Write(b)
    }
    cw.size += int64(len(b))
    return cw.ResponseWriter.Write(b)
}

func (cw *captureWriter) overflow() bool { return cw.limit > 0 && cw.size > cw.limit }

// cachedResponse is the value stored under a cache key.
type cachedResponse struct {
    Status      int    `json:"status"`
    ContentType string `json:"content_type"`
    Body        []byte `json:"body"`
}

// eventScope returns the key namespace for a request: per event when the
// route carries an :id, otherwise the meet-wide namespace.
func eventScope(prefix string, c echo.Context) string {
    if id := c.Param("id"); id != "" {
        return prefix + ":event:" + id
    }
    return prefix + ":meet"
}

func cacheKeyFrom(cfg config.CacheConfig, c echo.Context) string {
    r := c.Request()
    sum := sha1.Sum([]byte(r.URL.Path + "?" + r.URL.RawQuery))
    return fmt.Sprintf("%s:%x", eventScope(cfg.Prefix, c), sum[:])
}

func passThrough(next echo.HandlerFunc) echo.HandlerFunc { return next }

// NewRedisCache serves GET responses from Redis.  Only 200 responses that
// fit in MaxBodyBytes are stored.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client, log *zap.Logger) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return passThrough
    }
    if log == nil {
        log = zap.NewNop()
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if c.Request().Method != http.MethodGet {
                return next(c)
            }
            ctx := c.Request().Context()
            key := cacheKeyFrom(cfg, c)

            if bs, err := rdb.Get(ctx, key).Bytes(); err == nil {
                var hit cachedResponse
                if json.Unmarshal(bs, &hit) == nil {
                    c.Response().Header().Set("X-Cache", "HIT")
                    return c.Blob(hit.Status, hit.ContentType, hit.Body)
                }
            } else if err != redis.Nil {
                log.Warn("cache read failed", zap.String("key", key), zap.Error(err))
            }

            cw := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: int64(cfg.MaxBodyBytes)}
            c.Response().Writer = cw
            c.Response().Header().Set("X-Cache", "MISS")

            if err := next(c); err != nil {
                return err
            }
            if cw.status != http.StatusOK || cw.overflow() {
                return nil
            }
            payload, err := json.Marshal(cachedResponse{
                Status:      cw.status,
                ContentType: c.Response().Header().Get(echo.HeaderContentType),
                Body:        cw.buf.Bytes(),
            })
            if err != nil {
                return nil
            }
            if err := rdb.Set(context.WithoutCancel(ctx), key, payload, cfg.TTL).Err(); err != nil {
                log.Warn("cache write failed", zap.String("key", key), zap.Error(err))
            }
            return nil
        }
    }
}

// InvalidateEvent drops cached views after a successful write: the
// event named in the route, any event listed under TouchedEventsKey and
// the meet-wide day listings.
func InvalidateEvent(cfg config.CacheConfig, rdb *redis.Client, log *zap.Logger) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return passThrough
    }
    if log == nil {
        log = zap.NewNop()
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            err := next(c)
            if err != nil || c.Response().Status >= http.StatusBadRequest {
                return err
            }
            scopes := []string{eventScope(cfg.Prefix, c), cfg.Prefix + ":meet"}
            if ids, ok := c.Get(TouchedEventsKey).([]string); ok {
                for _, id := range ids {
                    scopes = append(scopes, cfg.Prefix+":event:"+id)
                }
            }
            dropScopes(c.Request().Context(), rdb, log, scopes)
            return nil
        }
    }
}

// EventInvalidator returns a function that drops the cached views of the
// given events and the day listings.  It is meant for writes that land
// after the request returned; a view read in between is cached again from
// the old data and must be dropped once more.  It is a no-op when caching
// is off.
func EventInvalidator(cfg config.CacheConfig, rdb *redis.Client, log *zap.Logger) func(ctx context.Context, eventIDs ...uint64) {
    if !cfg.Enabled || rdb == nil {
        return func(context.Context, ...uint64) {}
    }
    if log == nil {
        log = zap.NewNop()
    }
    return func(ctx context.Context, eventIDs ...uint64) {
        scopes := []string{cfg.Prefix + ":meet"}
        for _, id := range eventIDs {
            scopes = append(scopes, cfg.Prefix+":event:"+strconv.FormatUint(id, 10))
        }
        dropScopes(ctx, rdb, log, scopes)
    }
}

func dropScopes(parent context.Context, rdb *redis.Client, log *zap.Logger, scopes []string) {
    ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), 2*time.Second)
    defer cancel()
    for _, scope := range scopes {
        if n, err := deleteScope(ctx, rdb, scope); err != nil {
            log.Warn("cache invalidation failed", zap.String("scope", scope), zap.Error(err))
        } else if n > 0 {
            log.Debug("cache invalidated", zap.String("scope", scope), zap.Int("keys", n))
        }
    }
}

// deleteScope removes every key under scope with SCAN so large caches do
// not block Redis.
func deleteScope(ctx context.Context, rdb *redis.Client, scope string) (int, error) {
    var (
        cursor  uint64
        deleted int
    )
    for {
        keys, next, err := rdb.Scan(ctx, cursor, scope+":*", 100).Result()
        if err != nil {
            return deleted, err
        }
        if len(keys) > 0 {
            if err := rdb.Del(ctx, keys...).Err(); err != nil {
                return deleted, err
            }
            deleted += len(keys)
        }
        cursor = next
        if cursor == 0 {
            return deleted, nil
        }
    }
}
