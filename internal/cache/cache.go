// Package cache keeps the latest reading per monitored attribute in
// Redis so the apartment-sensor listing avoids a history scan per
// attribute. The cache is advisory: every accessor must fall back to
// the value repository on a miss.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aptsense/hub/internal/config"
	"github.com/aptsense/hub/internal/models"
	"github.com/redis/go-redis/v9"
	nuts "github.com/vaudience/go-nuts"
)

const latestValueTTL = 24 * time.Hour

// LatestValueCache caches the newest Value per monitored attribute. A
// nil *LatestValueCache is valid and behaves as a permanent miss, so
// wiring without Redis stays a one-liner.
type LatestValueCache struct {
	rdb *redis.Client
}

func New(cfg config.RedisConfig) *LatestValueCache {
	if !cfg.Enabled {
		return nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &LatestValueCache{rdb: rdb}
}

func key(monitoredAttributeID string) string {
	return "aptsense:latest:" + monitoredAttributeID
}

// Set records v as the latest reading of its monitored attribute.
// Failures are logged and swallowed; the cache never fails an ingest.
func (c *LatestValueCache) Set(ctx context.Context, v *models.Value) {
	if c == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, key(v.MonitoredAttributeID), data, latestValueTTL).Err(); err != nil {
		nuts.L.Warnf("[LatestValueCache] Failed to cache value for %s: %v", v.MonitoredAttributeID, err)
	}
}

// Get returns the cached latest reading, or ok=false on any miss or
// error.
func (c *LatestValueCache) Get(ctx context.Context, monitoredAttributeID string) (*models.Value, bool) {
	if c == nil {
		return nil, false
	}
	data, err := c.rdb.Get(ctx, key(monitoredAttributeID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			nuts.L.Warnf("[LatestValueCache] Lookup failed for %s: %v", monitoredAttributeID, err)
		}
		return nil, false
	}
	v := &models.Value{}
	if err := json.Unmarshal(data, v); err != nil {
		return nil, false
	}
	return v, true
}
