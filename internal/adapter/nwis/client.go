package nwis

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/riverspeak/nwis-ingest/internal/domain"
)

// Client issues requests against the NWIS water services API.
type Client struct {
	baseURL        string
	parameterCodes string
	httpClient     *http.Client
	logger         *slog.Logger
}

// NewClient creates an NWIS client. The timeout bounds each individual
// request attempt.
func NewClient(baseURL, parameterCodes string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL:        baseURL,
		parameterCodes: parameterCodes,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// FetchSeries performs one instantaneous-values request for a site over the
// date window and returns the nested per-parameter series. A non-2xx
// status, transport error, timeout, or undecodable body is returned as an
// error; the retry policy lives in RetryingFetcher, not here.
func (c *Client) FetchSeries(ctx context.Context, siteNo string, window domain.TimeWindow) ([]domain.TimeSeries, error) {
	params := url.Values{
		"format":      {"json"},
		"sites":       {siteNo},
		"startDT":     {window.StartDT()},
		"endDT":       {window.EndDT()},
		"parameterCd": {c.parameterCodes},
	}
	fullURL := c.baseURL + "/nwis/iv/?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("iv request for site %s: %w", siteNo, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("nwis API error: status %d: %s", resp.StatusCode, body)
	}

	var payload ivResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode iv response: %w", err)
	}

	return payload.Value.TimeSeries, nil
}

// ivResponse is the envelope of the IV endpoint; the series list lives
// under value.timeSeries.
type ivResponse struct {
	Value struct {
		TimeSeries []domain.TimeSeries `json:"timeSeries"`
	} `json:"value"`
}
