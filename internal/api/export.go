package api

import (
	"context"
	"fmt"
	"io"
	"net/url"
)

// ExportKind selects one of the CSV export endpoints.
type ExportKind string

const (
	ExportUsers       ExportKind = "users"
	ExportReadings    ExportKind = "readings"
	ExportCallReports ExportKind = "call-reports"
)

// ParseExportKind validates s.
func ParseExportKind(s string) (ExportKind, error) {
	switch k := ExportKind(s); k {
	case ExportUsers, ExportReadings, ExportCallReports:
		return k, nil
	}
	return "", fmt.Errorf("unknown export %q (valid: users, readings, call-reports)", s)
}

// Export streams the CSV for kind into w. The bearer header authenticates
// the download the same way as JSON requests.
func (c *Client) Export(ctx context.Context, kind ExportKind, query url.Values, w io.Writer) (string, int64, error) {
	return c.Download(ctx, "/admin/export/"+string(kind), query, w)
}
