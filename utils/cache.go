package utils

import (
	"context"
	"encoding/json"
	"time"
)

// Hot read endpoints keep their rendered JSON in Redis for up to an hour;
// writers invalidate by key prefix so stale entries never outlive a change.
const defaultCacheTTL = time.Hour

func cacheContext(d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), d)
}

// CacheGetBytes looks up a cached response body. A miss and a Redis error
// look the same to callers: build the response from the database.
func CacheGetBytes(key string) ([]byte, bool) {
	ctx, cancel := cacheContext(2 * time.Second)
	defer cancel()
	b, err := GetRedis().Get(ctx, key).Bytes()
	if err != nil {
		if Sugar != nil {
			Sugar.Debugf("cache miss key=%s err=%v", key, err)
		}
		return nil, false
	}
	return b, true
}

// CacheSetBytes stores a response body under key. Failures are logged and
// swallowed; caching is never allowed to fail a request.
func CacheSetBytes(key string, b []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	ctx, cancel := cacheContext(2 * time.Second)
	defer cancel()
	if err := GetRedis().Set(ctx, key, b, ttl).Err(); err != nil {
		if Sugar != nil {
			Sugar.Warnf("cache set failed key=%s err=%v", key, err)
		}
	}
}

// CacheSetJSON marshals v and stores the JSON bytes under key.
func CacheSetJSON(key string, v interface{}, ttl time.Duration) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	CacheSetBytes(key, b, ttl)
}

// InvalidateByPrefix unlinks every key starting with prefix. SCAN keeps
// Redis responsive on large keyspaces; UNLINK frees memory off-thread.
func InvalidateByPrefix(prefix string) {
	rc := GetRedis()
	ctx, cancel := cacheContext(3 * time.Second)
	defer cancel()

	batch := make([]string, 0, 100)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := rc.Unlink(ctx, batch...).Err(); err != nil && Sugar != nil {
			Sugar.Warnf("cache invalidate failed prefix=%s err=%v", prefix, err)
		}
		batch = batch[:0]
	}

	iter := rc.Scan(ctx, 0, prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == cap(batch) {
			flush()
		}
	}
	flush()
	if err := iter.Err(); err != nil && Sugar != nil {
		Sugar.Debugf("cache scan stopped prefix=%s err=%v", prefix, err)
	}
}
