package marketdata

import (
	"context"
	"encoding/json"
	"math"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/riskbook/internal/timeseries"
)

// FrameCache stores fetched history frames in Redis so repeated report runs
// within the TTL skip the provider entirely. The cache is strictly an
// optimization: every failure path falls through to a miss.
type FrameCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewFrameCache connects a frame cache to addr with the given entry TTL.
func NewFrameCache(addr string, ttl time.Duration) *FrameCache {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &FrameCache{
		rdb: redis.NewClient(&redis.Options{Addr: addr}),
		ttl: ttl,
	}
}

// newFrameCacheWithClient wires an existing client, used by tests.
func newFrameCacheWithClient(rdb *redis.Client, ttl time.Duration) *FrameCache {
	return &FrameCache{rdb: rdb, ttl: ttl}
}

// Ping verifies the Redis connection.
func (c *FrameCache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close releases the underlying connection pool.
func (c *FrameCache) Close() error {
	return c.rdb.Close()
}

// frameDTO is the wire form of a Frame. NaN cannot survive JSON, so cells are
// pointers with nil standing in for a missing observation.
type frameDTO struct {
	Dates   []time.Time  `json:"dates"`
	Tickers []string     `json:"tickers"`
	Data    [][]*float64 `json:"data"`
}

// historyEntry bundles the price and volume frames of one fetch.
type historyEntry struct {
	Prices  *frameDTO `json:"prices"`
	Volumes *frameDTO `json:"volumes"`
}

func encodeFrame(f *timeseries.Frame) *frameDTO {
	if f == nil {
		return nil
	}
	dto := &frameDTO{
		Dates:   f.Dates,
		Tickers: f.Tickers,
		Data:    make([][]*float64, len(f.Data)),
	}
	for i, row := range f.Data {
		cells := make([]*float64, len(row))
		for j, v := range row {
			if !math.IsNaN(v) {
				v := v
				cells[j] = &v
			}
		}
		dto.Data[i] = cells
	}
	return dto
}

func decodeFrame(dto *frameDTO) *timeseries.Frame {
	if dto == nil {
		return nil
	}
	f := timeseries.NewFrame(dto.Dates, dto.Tickers)
	for i, row := range dto.Data {
		for j, cell := range row {
			if cell != nil {
				f.Data[i][j] = *cell
			}
		}
	}
	return f
}

// GetHistory returns the cached frames for key, reporting a miss on any
// error.
func (c *FrameCache) GetHistory(ctx context.Context, key string) (*timeseries.Frame, *timeseries.Frame, bool) {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Warn().Err(err).Str("key", key).Msg("frame cache read failed")
		}
		return nil, nil, false
	}
	var entry historyEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("frame cache entry corrupt, ignoring")
		return nil, nil, false
	}
	return decodeFrame(entry.Prices), decodeFrame(entry.Volumes), true
}

// SetHistory stores the frames under key for the cache TTL. Failures are
// logged and swallowed.
func (c *FrameCache) SetHistory(ctx context.Context, key string, prices, volumes *timeseries.Frame) {
	raw, err := json.Marshal(historyEntry{
		Prices:  encodeFrame(prices),
		Volumes: encodeFrame(volumes),
	})
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("frame cache encode failed")
		return
	}
	if err := c.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("frame cache write failed")
	}
}
