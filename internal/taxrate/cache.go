package taxrate

import (
	"context"
	"errors"
	"log"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// CachedLookup keeps successful lookups in Redis for TTL.  Misses and
// Redis errors fall through to the wrapped Lookup; only found rates are
// cached.
type CachedLookup struct {
	next   Lookup
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
	logger *log.Logger
}

// NewCachedLookup wraps next.  A nil client disables caching.
func NewCachedLookup(next Lookup, rdb *redis.Client, ttl time.Duration, logger *log.Logger) *CachedLookup {
	if logger == nil {
		logger = log.Default()
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &CachedLookup{next: next, rdb: rdb, ttl: ttl, prefix: "taxrate", logger: logger}
}

func (c *CachedLookup) key(zip string) string { return c.prefix + ":" + zip }

// Rate answers from Redis when possible.
func (c *CachedLookup) Rate(ctx context.Context, zip string) (float64, error) {
	zip, err := NormalizeZip(zip)
	if err != nil {
		return 0, err
	}
	if c.rdb != nil {
		s, err := c.rdb.Get(ctx, c.key(zip)).Result()
		switch {
		case err == nil:
			if rate, perr := strconv.ParseFloat(s, 64); perr == nil {
				return rate, nil
			}
		case !errors.Is(err, redis.Nil):
			c.logger.Printf("taxrate: cache read failed for %s: %v", zip, err)
		}
	}
	rate, err := c.next.Rate(ctx, zip)
	if err != nil {
		return 0, err
	}
	if c.rdb != nil {
		val := strconv.FormatFloat(rate, 'f', -1, 64)
		if err := c.rdb.Set(ctx, c.key(zip), val, c.ttl).Err(); err != nil {
			c.logger.Printf("taxrate: cache write failed for %s: %v", zip, err)
		}
	}
	return rate, nil
}
