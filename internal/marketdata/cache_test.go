package marketdata

import (
	"context"
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameCacheRoundTrip(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := newFrameCacheWithClient(db, time.Minute)
	ctx := context.Background()

	dates := []time.Time{d(2024, 1, 2), d(2024, 1, 3)}
	prices := buildFrame(dates, []string{"AAA"}, [][]float64{{100}, {math.NaN()}})
	volumes := buildFrame(dates, []string{"AAA"}, [][]float64{{1000}, {1100}})

	raw, err := json.Marshal(historyEntry{
		Prices:  encodeFrame(prices),
		Volumes: encodeFrame(volumes),
	})
	require.NoError(t, err)

	const key = "riskbook:eq:2024-01-01:AAA"
	mock.ExpectSet(key, raw, time.Minute).SetVal("OK")
	cache.SetHistory(ctx, key, prices, volumes)

	mock.ExpectGet(key).SetVal(string(raw))
	gotPrices, gotVolumes, ok := cache.GetHistory(ctx, key)
	require.True(t, ok)

	assert.Equal(t, 100.0, gotPrices.At(0, "AAA"))
	assert.True(t, math.IsNaN(gotPrices.At(1, "AAA")), "NaN survives the null round trip")
	assert.Equal(t, 1100.0, gotVolumes.At(1, "AAA"))
	assert.True(t, gotPrices.Dates[0].Equal(dates[0]))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFrameCacheMisses(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := newFrameCacheWithClient(db, time.Minute)
	ctx := context.Background()

	t.Run("absent key", func(t *testing.T) {
		mock.ExpectGet("nope").RedisNil()
		_, _, ok := cache.GetHistory(ctx, "nope")
		assert.False(t, ok)
	})

	t.Run("corrupt entry", func(t *testing.T) {
		mock.ExpectGet("bad").SetVal("{not json")
		_, _, ok := cache.GetHistory(ctx, "bad")
		assert.False(t, ok)
	})

	t.Run("redis error", func(t *testing.T) {
		mock.ExpectGet("boom").SetErr(assert.AnError)
		_, _, ok := cache.GetHistory(ctx, "boom")
		assert.False(t, ok)
	})

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHistoryKeyIsOrderInsensitive(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	a := historyKey("eq", []string{"BBB", "AAA"}, start)
	b := historyKey("eq", []string{"AAA", "BBB"}, start)
	assert.Equal(t, a, b)
	assert.Contains(t, a, "2024-01-01")
}
