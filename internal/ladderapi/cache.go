package ladderapi

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/park285/Showdown-LadderTracker-bot/internal/ident"
	"github.com/park285/Showdown-LadderTracker-bot/internal/ladder"
	"github.com/park285/Showdown-LadderTracker-bot/internal/obslog"
)

// Source is anything that can pull a ladder, usually a *Client.
type Source interface {
	Ladder(ctx context.Context, format ident.ID) ([]ladder.RawEntry, error)
}

// Cache keeps the last pull of each format in Redis for a short TTL, so rooms tracking
// the same format share one upstream request. Redis failures fall through to the source.
type Cache struct {
	rdb *redis.Client
	src Source
	ttl time.Duration
}

type cachedEntry struct {
	Name   string  `json:"n"`
	Elo    float64 `json:"e"`
	GXE    float64 `json:"g"`
	Rating float64 `json:"r"`
	Dev    float64 `json:"d"`
}

func NewCache(rdb *redis.Client, src Source, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = time.Second
	}
	return &Cache{rdb: rdb, src: src, ttl: ttl}
}

func keyLadder(format ident.ID) string { return "ladder:pull:" + format.String() }

func (c *Cache) Ladder(ctx context.Context, format ident.ID) ([]ladder.RawEntry, error) {
	if raw, ok := c.load(ctx, format); ok {
		return raw, nil
	}
	raw, err := c.src.Ladder(ctx, format)
	if err != nil {
		return nil, err
	}
	c.save(ctx, format, raw)
	return raw, nil
}

func (c *Cache) load(ctx context.Context, format ident.ID) ([]ladder.RawEntry, bool) {
	b, err := c.rdb.Get(ctx, keyLadder(format)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		obslog.L().Warn("ladder_cache_get_error", zap.String("format", format.String()), zap.Error(err))
		return nil, false
	}
	var cached []cachedEntry
	if err := json.Unmarshal(b, &cached); err != nil {
		obslog.L().Warn("ladder_cache_decode_error", zap.String("format", format.String()), zap.Error(err))
		return nil, false
	}
	out := make([]ladder.RawEntry, len(cached))
	for i, e := range cached {
		out[i] = ladder.RawEntry{Name: e.Name, Elo: e.Elo, GXE: e.GXE, GlickoRating: e.Rating, GlickoDeviation: e.Dev}
	}
	return out, true
}

func (c *Cache) save(ctx context.Context, format ident.ID, raw []ladder.RawEntry) {
	cached := make([]cachedEntry, len(raw))
	for i, e := range raw {
		cached[i] = cachedEntry{Name: e.Name, Elo: e.Elo, GXE: e.GXE, Rating: e.GlickoRating, Dev: e.GlickoDeviation}
	}
	b, err := json.Marshal(cached)
	if err != nil {
		// NaN elo cannot be encoded; the tracker skips such rows anyway
		obslog.L().Debug("ladder_cache_encode_error", zap.Error(err))
		return
	}
	if err := c.rdb.Set(ctx, keyLadder(format), b, c.ttl).Err(); err != nil {
		obslog.L().Warn("ladder_cache_set_error", zap.String("format", format.String()), zap.Error(err))
	}
}
