// Package export downloads the server's CSV exports to disk and optionally
// archives them to object storage.
package export

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"htnadmin/internal/api"
	"htnadmin/internal/journal"
	"htnadmin/internal/logging"
)

// Downloader is the slice of the API client the exporter uses.
type Downloader interface {
	Export(ctx context.Context, kind api.ExportKind, query url.Values, w io.Writer) (string, int64, error)
}

// Archiver copies a finished export somewhere durable and returns its location.
type Archiver interface {
	Archive(ctx context.Context, path string) (string, error)
}

// ErrEmptyExport is returned when the server's CSV has no header row.
var ErrEmptyExport = errors.New("export returned no data")

// Result describes one completed export.
type Result struct {
	Kind         api.ExportKind
	Path         string
	Bytes        int64
	Columns      []string
	Rows         int
	ArchivedTo   string
	ArchiveError error
}

// Exporter writes exports into a directory.
type Exporter struct {
	client   Downloader
	dir      string
	archiver Archiver
	recorder journal.Recorder
	now      func() time.Time
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithArchiver archives every successful export.
func WithArchiver(a Archiver) Option {
	return func(e *Exporter) { e.archiver = a }
}

// WithRecorder journals every successful export.
func WithRecorder(r journal.Recorder) Option {
	return func(e *Exporter) { e.recorder = r }
}

// WithClock overrides the date used in file names.
func WithClock(now func() time.Time) Option {
	return func(e *Exporter) { e.now = now }
}

// New creates an exporter writing into dir.
func New(client Downloader, dir string, opts ...Option) *Exporter {
	e := &Exporter{client: client, dir: dir, recorder: journal.Nop{}, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// FileName is the local name for an export of kind taken on day.
func FileName(kind api.ExportKind, day time.Time) string {
	return fmt.Sprintf("%s_export_%s.csv", strings.ReplaceAll(string(kind), "-", "_"), day.Format("2006-01-02"))
}

// Export downloads kind (filtered by query) and returns where it landed.
// A partially written file is never left at the final path.
func (e *Exporter) Export(ctx context.Context, kind api.ExportKind, query url.Values) (*Result, error) {
	timer := logging.StartTimer(logging.CategoryExport, "Export "+string(kind))
	defer timer.Stop()

	if err := os.MkdirAll(e.dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create export directory: %w", err)
	}

	tmp, err := os.CreateTemp(e.dir, ".export-*.csv")
	if err != nil {
		return nil, fmt.Errorf("failed to create export file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	serverName, n, err := e.client.Export(ctx, kind, query, tmp)
	if cerr := tmp.Close(); err == nil && cerr != nil {
		err = cerr
	}
	if err != nil {
		return nil, err
	}

	cols, rows, err := inspect(tmpName)
	if err != nil {
		return nil, err
	}

	final := filepath.Join(e.dir, FileName(kind, e.now()))
	if err := os.Rename(tmpName, final); err != nil {
		return nil, fmt.Errorf("failed to move export into place: %w", err)
	}
	logging.Export("Exported %s: %d rows, %d bytes -> %s (server name %q)", kind, rows, n, final, serverName)

	res := &Result{Kind: kind, Path: final, Bytes: n, Columns: cols, Rows: rows}
	if e.archiver != nil {
		loc, aerr := e.archiver.Archive(ctx, final)
		if aerr != nil {
			logging.Get(logging.CategoryExport).Warn("Archive of %s failed: %v", final, aerr)
			res.ArchiveError = aerr
		} else {
			res.ArchivedTo = loc
		}
	}

	a := journal.New(journal.KindExport, "", 0, fmt.Sprintf("Exported %d %s rows", rows, kind)).
		With("kind", string(kind)).
		With("path", final)
	if res.ArchivedTo != "" {
		a = a.With("archived_to", res.ArchivedTo)
	}
	if err := e.recorder.Record(ctx, a); err != nil {
		logging.Get(logging.CategoryExport).Warn("Failed to journal export: %v", err)
	}
	return res, nil
}

// inspect reads the CSV header and counts data rows.
func inspect(path string) ([]string, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err == io.EOF {
		return nil, 0, ErrEmptyExport
	}
	if err != nil {
		return nil, 0, fmt.Errorf("export is not valid CSV: %w", err)
	}

	rows := 0
	for {
		_, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("export is not valid CSV at row %d: %w", rows+2, err)
		}
		rows++
	}
	return header, rows, nil
}
