package sheets

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrBadTable is returned when the gviz payload lacks the expected table
// structure.
var ErrBadTable = errors.New("gviz response has no table")

// The gviz endpoint wraps its JSON in a JS call:
//
//	/*O_o*/
//	google.visualization.Query.setResponse({...});
type gvizResponse struct {
	Status string     `json:"status"`
	Table  *gvizTable `json:"table"`
}

type gvizTable struct {
	Cols []gvizCol `json:"cols"`
	Rows []gvizRow `json:"rows"`
}

type gvizCol struct {
	Label string `json:"label"`
}

type gvizRow struct {
	C []*gvizCell `json:"c"`
}

// gvizCell carries the raw value and optionally a formatted rendering.
type gvizCell struct {
	V any     `json:"v"`
	F *string `json:"f"`
}

// record is one sheet row keyed by normalized column label.
type record map[string]any

// parseGviz strips the setResponse wrapper and decodes rows into records.
func parseGviz(body []byte) ([]record, error) {
	start := bytes.IndexByte(body, '{')
	end := bytes.LastIndexByte(body, '}')
	if start < 0 || end < start {
		return nil, fmt.Errorf("%w: no JSON object in payload", ErrBadTable)
	}

	var resp gvizResponse
	if err := json.Unmarshal(body[start:end+1], &resp); err != nil {
		return nil, fmt.Errorf("decode gviz payload: %w", err)
	}
	if resp.Table == nil || len(resp.Table.Cols) == 0 {
		return nil, ErrBadTable
	}

	headers := make([]string, len(resp.Table.Cols))
	for i, col := range resp.Table.Cols {
		headers[i] = normalizeHeader(col.Label)
	}

	records := make([]record, 0, len(resp.Table.Rows))
	for _, row := range resp.Table.Rows {
		rec := record{}
		for i, header := range headers {
			if header == "" || i >= len(row.C) {
				continue
			}
			rec[header] = cellValue(row.C[i])
		}
		records = append(records, rec)
	}
	return records, nil
}

// normalizeHeader lowercases a column label and joins its words with
// underscores, so "Level Overall" becomes "level_overall".
func normalizeHeader(label string) string {
	return strings.Join(strings.Fields(strings.ToLower(label)), "_")
}

// cellValue prefers the raw value and falls back to the formatted one.
// Absent cells decode to an empty string.
func cellValue(c *gvizCell) any {
	if c == nil {
		return ""
	}
	if c.V != nil {
		return c.V
	}
	if c.F != nil {
		return *c.F
	}
	return ""
}

func (r record) str(key string) string {
	switch v := r[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

func (r record) float(key string) float64 {
	switch v := r[key].(type) {
	case float64:
		return v
	case string:
		f, _ := strconv.ParseFloat(v, 64)
		return f
	default:
		return 0
	}
}

func (r record) integer(key string) int {
	return int(r.float(key))
}
