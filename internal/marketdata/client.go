package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/sawpanic/riskbook/internal/telemetry"
	"github.com/sawpanic/riskbook/internal/timeseries"
)

// Provider supplies daily history to the engine's caller. The risk engine
// itself never fetches anything; all network access lives behind this
// interface.
type Provider interface {
	// DailyHistory returns close-price and share-volume frames for the
	// symbols, one row per trading day from start.
	DailyHistory(ctx context.Context, symbols []string, start time.Time) (prices, volumes *timeseries.Frame, err error)
	// FXHistory returns daily close rates for currency pairs.
	FXHistory(ctx context.Context, pairs []string, start time.Time) (*timeseries.Frame, error)
	// LatestClose returns the most recent close for one symbol.
	LatestClose(ctx context.Context, symbol string) (float64, error)
}

// Options tunes the HTTP chart client.
type Options struct {
	BaseURL string
	RPS     int
	Burst   int
	Timeout time.Duration
	Cache   *FrameCache // optional
}

// Client fetches daily candles from a chart-style HTTP API, one symbol per
// request, behind a shared rate limiter and circuit breaker.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	cache   *FrameCache
}

// NewClient builds a chart client. The breaker opens after repeated
// consecutive failures so a dead provider fails fast instead of burning the
// request budget.
func NewClient(opts Options) *Client {
	if opts.RPS <= 0 {
		opts.RPS = 2
	}
	if opts.Burst < opts.RPS {
		opts.Burst = opts.RPS
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	settings := gobreaker.Settings{Name: "marketdata"}
	settings.Interval = 60 * time.Second
	settings.Timeout = 60 * time.Second
	settings.ReadyToTrip = func(counts gobreaker.Counts) bool {
		return counts.ConsecutiveFailures >= 5
	}
	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		http:    &http.Client{Timeout: opts.Timeout},
		limiter: rate.NewLimiter(rate.Limit(opts.RPS), opts.Burst),
		breaker: gobreaker.NewCircuitBreaker(settings),
		cache:   opts.Cache,
	}
}

// chartResponse mirrors the provider's JSON envelope.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// candle is one daily observation for a single symbol.
type candle struct {
	date   time.Time
	close  float64
	volume float64
}

func (c *Client) fetchChart(ctx context.Context, symbol string, start time.Time) ([]candle, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/v8/finance/chart/%s?period1=%d&period2=%d&interval=1d",
		c.baseURL, symbol, start.Unix(), time.Now().Unix())

	body, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		resp, err := c.http.Do(req)
		if err != nil {
			telemetry.FetchErrors.WithLabelValues("transport").Inc()
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			telemetry.FetchErrors.WithLabelValues(fmt.Sprintf("http_%d", resp.StatusCode)).Inc()
			return nil, fmt.Errorf("chart request for %s: status %d", symbol, resp.StatusCode)
		}
		var decoded chartResponse
		if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
			telemetry.FetchErrors.WithLabelValues("decode").Inc()
			return nil, fmt.Errorf("decode chart response for %s: %w", symbol, err)
		}
		return &decoded, nil
	})
	if err != nil {
		return nil, err
	}
	decoded := body.(*chartResponse)
	telemetry.FetchRequests.Inc()

	if decoded.Chart.Error != nil {
		return nil, fmt.Errorf("chart error for %s: %s", symbol, decoded.Chart.Error.Description)
	}
	if len(decoded.Chart.Result) == 0 || len(decoded.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("empty chart result for %s", symbol)
	}

	result := decoded.Chart.Result[0]
	quote := result.Indicators.Quote[0]
	candles := make([]candle, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		cd := candle{date: dateOnly(time.Unix(ts, 0).UTC()), close: math.NaN()}
		if i < len(quote.Close) && quote.Close[i] != nil {
			cd.close = *quote.Close[i]
		}
		if i < len(quote.Volume) && quote.Volume[i] != nil {
			cd.volume = *quote.Volume[i]
		}
		candles = append(candles, cd)
	}
	return candles, nil
}

// dateOnly strips intraday time and timezone, keeping the trading date.
func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DailyHistory fetches every symbol and merges the results on a union date
// index. Symbols that fail to fetch are skipped with a warning; only a total
// failure is an error. Results are served from the frame cache when one is
// configured.
func (c *Client) DailyHistory(ctx context.Context, symbols []string, start time.Time) (*timeseries.Frame, *timeseries.Frame, error) {
	key := historyKey("eq", symbols, start)
	if c.cache != nil {
		if prices, volumes, ok := c.cache.GetHistory(ctx, key); ok {
			telemetry.CacheHits.Inc()
			return prices, volumes, nil
		}
		telemetry.CacheMisses.Inc()
	}

	bySymbol := make(map[string][]candle, len(symbols))
	var fetched []string
	for _, symbol := range symbols {
		candles, err := c.fetchChart(ctx, symbol, start)
		if err != nil {
			log.Warn().Err(err).Str("symbol", symbol).Msg("history fetch failed, skipping symbol")
			continue
		}
		bySymbol[symbol] = candles
		fetched = append(fetched, symbol)
	}
	if len(fetched) == 0 {
		return nil, nil, fmt.Errorf("no history could be fetched for any of %d symbols", len(symbols))
	}

	prices, volumes := mergeCandles(fetched, bySymbol)
	if c.cache != nil {
		c.cache.SetHistory(ctx, key, prices, volumes)
	}
	return prices, volumes, nil
}

// FXHistory fetches currency pairs; volumes are meaningless for FX and
// discarded.
func (c *Client) FXHistory(ctx context.Context, pairs []string, start time.Time) (*timeseries.Frame, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	prices, _, err := c.DailyHistory(ctx, pairs, start)
	return prices, err
}

// LatestClose returns the last close over a short trailing window.
func (c *Client) LatestClose(ctx context.Context, symbol string) (float64, error) {
	candles, err := c.fetchChart(ctx, symbol, time.Now().AddDate(0, 0, -10))
	if err != nil {
		return 0, err
	}
	for i := len(candles) - 1; i >= 0; i-- {
		if !math.IsNaN(candles[i].close) {
			return candles[i].close, nil
		}
	}
	return 0, fmt.Errorf("no close observations for %s", symbol)
}

func historyKey(kind string, symbols []string, start time.Time) string {
	sorted := append([]string(nil), symbols...)
	sort.Strings(sorted)
	return fmt.Sprintf("riskbook:%s:%s:%s", kind, start.Format("2006-01-02"), strings.Join(sorted, ","))
}

// mergeCandles aligns per-symbol candles onto a union date index.
func mergeCandles(symbols []string, bySymbol map[string][]candle) (*timeseries.Frame, *timeseries.Frame) {
	dateSet := map[time.Time]bool{}
	for _, candles := range bySymbol {
		for _, cd := range candles {
			dateSet[cd.date] = true
		}
	}
	dates := make([]time.Time, 0, len(dateSet))
	for d := range dateSet {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	rowOf := make(map[time.Time]int, len(dates))
	for i, d := range dates {
		rowOf[d] = i
	}

	prices := timeseries.NewFrame(dates, symbols)
	volumes := timeseries.NewFrame(append([]time.Time(nil), dates...), symbols)
	for _, symbol := range symbols {
		for _, cd := range bySymbol[symbol] {
			row := rowOf[cd.date]
			prices.Set(row, symbol, cd.close)
			volumes.Set(row, symbol, cd.volume)
		}
	}
	return prices, volumes
}
