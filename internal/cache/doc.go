// Package cache provides the response cache used by the proxy.
//
// Two backends are available: an in-memory LRU and Redis. The Redis
// backend is guarded by a breaker so that an unreachable Redis turns into
// fast cache misses instead of slow failing calls on every request.
//
// # Example Usage
//
//	c, err := cache.New(&cfg.Cache, cfg.Redis, logger)
//	if err != nil {
//	    return err
//	}
//	defer c.Close()
//
//	key := cache.ProxyKey("/api/v1/challenges", r.URL.Query())
//	if err := c.Set(ctx, key, payload, 5*time.Minute); err != nil {
//	    logger.Warn("cache set failed", observability.Error(err))
//	}
//
// # Thread Safety
//
// All cache implementations are safe for concurrent use.
package cache
