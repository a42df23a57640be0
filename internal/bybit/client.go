// Package bybit fetches the linear-futures universe and candles from the Bybit v5 public market API.
package bybit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rewired-gh/pumpsentry/internal/logger"
	"github.com/rewired-gh/pumpsentry/internal/models"
)

const (
	CategoryLinear = "linear"

	errCodeRateLimit = 10006
)

// ErrEmptyUniverse is returned when the exchange lists no instruments at all.
var ErrEmptyUniverse = errors.New("exchange returned no instruments")

var intervals = map[string]string{
	"1m":  "1",
	"5m":  "5",
	"15m": "15",
	"1h":  "60",
}

// Interval maps a timeframe to the kline interval parameter. Unknown timeframes fall back to one minute.
func Interval(timeframe string) string {
	if v, ok := intervals[timeframe]; ok {
		return v
	}
	return "1"
}

// APIError is a non-zero retCode in an otherwise successful HTTP response.
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("bybit error %d: %s", e.Code, e.Message)
}

type Config struct {
	BaseURL     string
	Category    string
	QuoteSuffix string
	KlineLimit  int
	Timeout     time.Duration
	MaxRetries  int
	RetryDelay  time.Duration
}

func DefaultConfig() Config {
	return Config{
		BaseURL:     "https://api.bybit.com",
		Category:    CategoryLinear,
		QuoteSuffix: "USDT",
		KlineLimit:  200,
		Timeout:     10 * time.Second,
		MaxRetries:  3,
		RetryDelay:  time.Second,
	}
}

// Client provides access to the Bybit market endpoints
type Client struct {
	baseURL     string
	category    string
	quoteSuffix string
	klineLimit  int
	maxRetries  int
	retryDelay  time.Duration
	httpClient  *http.Client
}

func NewClient(cfg Config) *Client {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 1
	}
	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		category:    cfg.Category,
		quoteSuffix: cfg.QuoteSuffix,
		klineLimit:  cfg.KlineLimit,
		maxRetries:  cfg.MaxRetries,
		retryDelay:  cfg.RetryDelay,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

type envelope struct {
	RetCode int             `json:"retCode"`
	RetMsg  string          `json:"retMsg"`
	Result  json.RawMessage `json:"result"`
}

type tickersResult struct {
	Category string `json:"category"`
	List     []struct {
		Symbol      string `json:"symbol"`
		LastPrice   string `json:"lastPrice"`
		Turnover24h string `json:"turnover24h"`
	} `json:"list"`
}

// Rows are [startTime, open, high, low, close, volume, turnover], newest first.
type klineResult struct {
	Category string     `json:"category"`
	Symbol   string     `json:"symbol"`
	List     [][]string `json:"list"`
}

// FetchTickers returns every instrument quoted in the configured suffix with its 24h turnover.
func (c *Client) FetchTickers(ctx context.Context) ([]models.Ticker, error) {
	params := url.Values{}
	params.Set("category", c.category)

	var result tickersResult
	err := c.withRetry(ctx, "tickers", func() error {
		return c.get(ctx, "/v5/market/tickers", params, &result)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tickers: %w", err)
	}
	if len(result.List) == 0 {
		return nil, ErrEmptyUniverse
	}

	var (
		tickers     []models.Ticker
		wrongQuote  int
		badTurnover int
	)
	for _, item := range result.List {
		if !strings.HasSuffix(item.Symbol, c.quoteSuffix) {
			wrongQuote++
			continue
		}
		turnover, err := strconv.ParseFloat(item.Turnover24h, 64)
		if err != nil {
			badTurnover++
			continue
		}
		last, _ := strconv.ParseFloat(item.LastPrice, 64)
		tickers = append(tickers, models.Ticker{
			Symbol:      item.Symbol,
			LastPrice:   last,
			Turnover24h: turnover,
		})
	}

	logger.Debug("Fetched %d tickers: %d kept, %d wrong quote, %d unparsable turnover",
		len(result.List), len(tickers), wrongQuote, badTurnover)

	return tickers, nil
}

// FetchCandles returns up to the configured number of candles in ascending time order.
// After the last failed attempt it returns an empty series and no error; only a
// cancelled context is reported as an error.
func (c *Client) FetchCandles(ctx context.Context, symbol, timeframe string) (models.CandleSeries, error) {
	params := url.Values{}
	params.Set("category", c.category)
	params.Set("symbol", symbol)
	params.Set("interval", Interval(timeframe))
	params.Set("limit", strconv.Itoa(c.klineLimit))

	var series models.CandleSeries
	err := c.withRetry(ctx, symbol+" candles", func() error {
		var result klineResult
		if err := c.get(ctx, "/v5/market/kline", params, &result); err != nil {
			return err
		}
		parsed, err := parseKlines(result.List)
		if err != nil {
			return err
		}
		series = parsed
		return nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return models.CandleSeries{}, ctxErr
		}
		logger.Error("Giving up on %s candles: %v", symbol, err)
		return models.CandleSeries{}, nil
	}
	if len(series) == 0 {
		logger.Warn("%s: no candle data returned", symbol)
		return models.CandleSeries{}, nil
	}
	return series, nil
}

// parseKlines converts raw rows into an ascending series without duplicate timestamps.
func parseKlines(rows [][]string) (models.CandleSeries, error) {
	series := make(models.CandleSeries, 0, len(rows))
	for i, row := range rows {
		if len(row) < 6 {
			return nil, fmt.Errorf("kline row %d has %d fields", i, len(row))
		}
		var values [6]float64
		for j := 0; j < 6; j++ {
			v, err := strconv.ParseFloat(row[j], 64)
			if err != nil {
				return nil, fmt.Errorf("kline row %d field %d: %w", i, j, err)
			}
			values[j] = v
		}
		series = append(series, models.Candle{
			Time:   time.UnixMilli(int64(values[0])).UTC(),
			Open:   values[1],
			High:   values[2],
			Low:    values[3],
			Close:  values[4],
			Volume: values[5],
		})
	}

	sort.SliceStable(series, func(i, j int) bool {
		return series[i].Time.Before(series[j].Time)
	})

	out := series[:0]
	for i, candle := range series {
		if i > 0 && candle.Time.Equal(out[len(out)-1].Time) {
			continue
		}
		out = append(out, candle)
	}
	return out, nil
}

// withRetry runs fn up to maxRetries times with a fixed delay between attempts.
// API errors other than rate limiting are not retried.
func (c *Client) withRetry(ctx context.Context, what string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		var apiErr *APIError
		if errors.As(lastErr, &apiErr) && apiErr.Code != errCodeRateLimit {
			return lastErr
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		logger.Warn("Attempt %d/%d for %s failed: %v", attempt, c.maxRetries, what, lastErr)
		if attempt == c.maxRetries {
			break
		}

		timer := time.NewTimer(c.retryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// get performs one GET request and decodes the result field into out.
func (c *Client) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if env.RetCode != 0 {
		return &APIError{Code: env.RetCode, Message: env.RetMsg}
	}
	if len(env.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return fmt.Errorf("failed to decode result: %w", err)
	}
	return nil
}
