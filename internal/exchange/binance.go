package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"funding-rate-lab/internal/domain"
)

// Binance REST API parameters.
const (
	BinanceBaseURL   = "https://fapi.binance.com"
	binancePageLimit = 1000
	binanceQuote     = "USDT"
)

// BinanceClient fetches funding history from Binance USD-M futures.
type BinanceClient struct {
	baseURL string
	core    httpCore
}

// NewBinanceClient creates a Binance funding source.
func NewBinanceClient(baseURL string, opts ...ClientOption) *BinanceClient {
	if baseURL == "" {
		baseURL = BinanceBaseURL
	}
	c := &BinanceClient{
		baseURL: baseURL,
		core:    newHTTPCore(),
	}
	for _, opt := range opts {
		opt(&c.core)
	}
	return c
}

// Compile-time interface check.
var _ FundingSource = (*BinanceClient)(nil)

// Venue identifies this source.
func (c *BinanceClient) Venue() domain.Venue {
	return domain.VenueBinance
}

// binanceFundingEntry is one row of the /fapi/v1/fundingRate response.
// Rates come back as decimal strings.
type binanceFundingEntry struct {
	Symbol      string `json:"symbol"`
	FundingTime int64  `json:"fundingTime"` // ms epoch
	FundingRate string `json:"fundingRate"`
}

// FundingHistory retrieves funding records for an instrument within
// [start, end], paginating in fundingTime order. Instruments are bare coin
// names; the USDT-margined symbol is derived.
func (c *BinanceClient) FundingHistory(ctx context.Context, instrument string, start, end time.Time) ([]*domain.FundingRecord, error) {
	symbol := instrument + binanceQuote

	var records []*domain.FundingRecord
	cursor := start.UnixMilli()
	endMs := end.UnixMilli()

	for cursor <= endMs {
		page, err := c.fetchPage(ctx, symbol, cursor, endMs)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}

		for _, entry := range page {
			rate, err := strconv.ParseFloat(entry.FundingRate, 64)
			if err != nil {
				return nil, fmt.Errorf("parse funding rate %q for %s: %w", entry.FundingRate, symbol, err)
			}
			records = append(records, &domain.FundingRecord{
				Timestamp:  time.UnixMilli(entry.FundingTime).UTC(),
				Venue:      domain.VenueBinance,
				Instrument: instrument,
				Rate:       rate,
			})
		}

		if len(page) < binancePageLimit {
			break
		}
		// Next page starts just past the last settlement seen.
		cursor = page[len(page)-1].FundingTime + 1
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].Timestamp.Before(records[j].Timestamp)
	})

	return records, nil
}

func (c *BinanceClient) fetchPage(ctx context.Context, symbol string, startMs, endMs int64) ([]binanceFundingEntry, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("startTime", strconv.FormatInt(startMs, 10))
	q.Set("endTime", strconv.FormatInt(endMs, 10))
	q.Set("limit", strconv.Itoa(binancePageLimit))

	endpoint := c.baseURL + "/fapi/v1/fundingRate?" + q.Encode()

	body, err := c.core.do(ctx, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	})
	if err != nil {
		return nil, fmt.Errorf("fetch binance funding page: %w", err)
	}

	var page []binanceFundingEntry
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("unmarshal binance funding page: %w", err)
	}
	return page, nil
}
