package exchange

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"time"

	"funding-rate-lab/internal/domain"
)

// Hyperliquid info API parameters.
const (
	HyperliquidBaseURL   = "https://api.hyperliquid.xyz"
	hyperliquidPageLimit = 500 // server caps fundingHistory responses
)

// HyperliquidClient fetches funding history from the Hyperliquid info endpoint.
type HyperliquidClient struct {
	baseURL string
	core    httpCore
}

// NewHyperliquidClient creates a Hyperliquid funding source.
func NewHyperliquidClient(baseURL string, opts ...ClientOption) *HyperliquidClient {
	if baseURL == "" {
		baseURL = HyperliquidBaseURL
	}
	c := &HyperliquidClient{
		baseURL: baseURL,
		core:    newHTTPCore(),
	}
	for _, opt := range opts {
		opt(&c.core)
	}
	return c
}

// Compile-time interface check.
var _ FundingSource = (*HyperliquidClient)(nil)

// Venue identifies this source.
func (c *HyperliquidClient) Venue() domain.Venue {
	return domain.VenueHyperliquid
}

// fundingHistoryRequest is the POST /info payload.
type fundingHistoryRequest struct {
	Type      string `json:"type"`
	Coin      string `json:"coin"`
	StartTime int64  `json:"startTime"`
	EndTime   int64  `json:"endTime,omitempty"`
}

// hyperliquidFundingEntry is one row of the fundingHistory response.
type hyperliquidFundingEntry struct {
	Coin        string `json:"coin"`
	FundingRate string `json:"fundingRate"`
	Time        int64  `json:"time"` // ms epoch
}

// FundingHistory retrieves funding records for a coin within [start, end],
// paginating past the server's response cap.
func (c *HyperliquidClient) FundingHistory(ctx context.Context, instrument string, start, end time.Time) ([]*domain.FundingRecord, error) {
	var records []*domain.FundingRecord
	cursor := start.UnixMilli()
	endMs := end.UnixMilli()

	for cursor <= endMs {
		page, err := c.fetchPage(ctx, instrument, cursor, endMs)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}

		for _, entry := range page {
			rate, err := strconv.ParseFloat(entry.FundingRate, 64)
			if err != nil {
				return nil, fmt.Errorf("parse funding rate %q for %s: %w", entry.FundingRate, instrument, err)
			}
			records = append(records, &domain.FundingRecord{
				Timestamp:  time.UnixMilli(entry.Time).UTC(),
				Venue:      domain.VenueHyperliquid,
				Instrument: instrument,
				Rate:       rate,
			})
		}

		if len(page) < hyperliquidPageLimit {
			break
		}
		cursor = page[len(page)-1].Time + 1
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].Timestamp.Before(records[j].Timestamp)
	})

	return records, nil
}

func (c *HyperliquidClient) fetchPage(ctx context.Context, coin string, startMs, endMs int64) ([]hyperliquidFundingEntry, error) {
	payload, err := json.Marshal(fundingHistoryRequest{
		Type:      "fundingHistory",
		Coin:      coin,
		StartTime: startMs,
		EndTime:   endMs,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal funding history request: %w", err)
	}

	endpoint := c.baseURL + "/info"

	body, err := c.core.do(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		return nil, fmt.Errorf("fetch hyperliquid funding page: %w", err)
	}

	var page []hyperliquidFundingEntry
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("unmarshal hyperliquid funding page: %w", err)
	}
	return page, nil
}
