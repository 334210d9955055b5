package nwis

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/riverspeak/nwis-ingest/internal/domain"
)

// FetchSiteListing retrieves every monitoring site in a state from the RDB
// site endpoint and tags each with its source state. Used by the site-index
// builder, not the ingestion pipeline.
func (c *Client) FetchSiteListing(ctx context.Context, stateCd string) ([]domain.Site, error) {
	params := url.Values{
		"format":  {"rdb"},
		"stateCd": {stateCd},
	}
	fullURL := c.baseURL + "/nwis/site/?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("site listing for %s: %w", stateCd, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("nwis API error: status %d", resp.StatusCode)
	}

	sites, err := ParseRDB(resp.Body, stateCd)
	if err != nil {
		return nil, fmt.Errorf("parse site listing for %s: %w", stateCd, err)
	}
	return sites, nil
}

// formatFieldPattern matches RDB format-description fields such as "5s",
// "15s", "50s" (a column width plus a type letter).
var formatFieldPattern = regexp.MustCompile(`^[0-9]+[a-z]$`)

// ParseRDB parses an NWIS RDB document into sites. Comment lines ('#') are
// skipped, the first surviving line is the tab-separated header, and the
// embedded format-description row is discarded. Columns this system does
// not model are ignored; missing columns yield empty strings.
func ParseRDB(r io.Reader, sourceState string) ([]domain.Site, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var col map[string]int
	var sites []domain.Site

	for sc.Scan() {
		line := sc.Text()
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Split(line, "\t")
		if col == nil {
			col = make(map[string]int, len(fields))
			for i, name := range fields {
				col[strings.TrimSpace(name)] = i
			}
			continue
		}
		if len(fields) > 0 && formatFieldPattern.MatchString(fields[0]) {
			continue
		}

		get := func(name string) string {
			i, ok := col[name]
			if !ok || i >= len(fields) {
				return ""
			}
			return fields[i]
		}

		sites = append(sites, domain.Site{
			AgencyCd:    get("agency_cd"),
			SiteNo:      get("site_no"),
			StationNm:   get("station_nm"),
			SiteTpCd:    get("site_tp_cd"),
			DecLatVa:    get("dec_lat_va"),
			DecLongVa:   get("dec_long_va"),
			AltVa:       get("alt_va"),
			HUCCd:       get("huc_cd"),
			SourceState: sourceState,
		})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan rdb: %w", err)
	}
	if col == nil {
		return nil, errors.New("rdb document has no header line")
	}

	return sites, nil
}
