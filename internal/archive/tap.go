package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

const starColumns = "pl_name, hostname, pl_rade, pl_masse, pl_orbper, " +
	"disc_facility, discoverymethod, disc_year, ra, dec, " +
	"sy_snum, sy_pnum, pl_tranflag, default_flag"

// buildQuery selects the most recently discovered default-parameter row
// whose planet or host name contains clean.
func buildQuery(clean string) string {
	pattern := strings.ToUpper(clean)
	return "SELECT TOP 1 " + starColumns + " FROM ps" +
		" WHERE (UPPER(pl_name) LIKE '%" + pattern + "%'" +
		" OR UPPER(hostname) LIKE '%" + pattern + "%')" +
		" AND default_flag = 1 AND pl_name IS NOT NULL" +
		" ORDER BY disc_year DESC"
}

// queryStar returns the first matching row, or nil when there is none.
func (c *Client) queryStar(ctx context.Context, clean string) (map[string]any, error) {
	resp, err := c.rest.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"query":  buildQuery(clean),
			"format": "json",
		}).
		Get(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("archive error: status %d", resp.StatusCode())
	}
	return parseRows(resp.Body())
}

// tabular is the columns/data layout some TAP services emit for JSON.
type tabular struct {
	Columns []struct {
		Name string `json:"name"`
	} `json:"columns"`
	Data [][]any `json:"data"`
}

// parseRows accepts either an array of row objects or the columns/data
// layout and returns the first row.
func parseRows(body []byte) (map[string]any, error) {
	trimmed := strings.TrimSpace(string(body))
	if strings.HasPrefix(trimmed, "[") {
		var rows []map[string]any
		if err := json.Unmarshal(body, &rows); err != nil {
			return nil, fmt.Errorf("decode rows: %w", err)
		}
		if len(rows) == 0 {
			return nil, nil
		}
		return rows[0], nil
	}

	var tab tabular
	if err := json.Unmarshal(body, &tab); err != nil {
		return nil, fmt.Errorf("decode table: %w", err)
	}
	if len(tab.Data) == 0 {
		return nil, nil
	}
	row := tab.Data[0]
	info := make(map[string]any, len(tab.Columns))
	for i, col := range tab.Columns {
		if i < len(row) {
			info[col.Name] = row[i]
		}
	}
	return info, nil
}

func floatField(info map[string]any, name string) float64 {
	switch v := info[name].(type) {
	case float64:
		return v
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err == nil {
			return f
		}
	}
	return 0
}

func intField(info map[string]any, name string) int {
	return int(floatField(info, name))
}
