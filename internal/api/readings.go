package api

import (
	"context"
	"net/http"

	"htnadmin/internal/types"
)

// ReadingList is one page of GET /admin/readings.
type ReadingList struct {
	Readings   []types.Reading `json:"readings"`
	TotalCount int             `json:"total_count"`
}

// ListReadings pages through readings matching q.
func (c *Client) ListReadings(ctx context.Context, q ReadingsQuery) (*ReadingList, error) {
	var out ReadingList
	if err := c.do(ctx, http.MethodGet, "/admin/readings", q.Values(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
