// Package export encodes query results for download: CSV, JSON with a
// metadata envelope, or Parquet.
package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/querydesk/querydesk/internal/executor"
)

type Format string

const (
	FormatCSV     Format = "csv"
	FormatJSON    Format = "json"
	FormatParquet Format = "parquet"
)

func ParseFormat(raw string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(raw))) {
	case FormatCSV:
		return FormatCSV, nil
	case FormatJSON:
		return FormatJSON, nil
	case FormatParquet:
		return FormatParquet, nil
	default:
		return "", fmt.Errorf("unsupported export format %q, supported: csv, json, parquet", raw)
	}
}

func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv"
	case FormatJSON:
		return "application/json"
	case FormatParquet:
		return "application/vnd.apache.parquet"
	default:
		return "application/octet-stream"
	}
}

func (f Format) Extension() string {
	return string(f)
}

// Metadata describes the query a result came from.
type Metadata struct {
	SessionID   string
	SQL         string
	GeneratedAt time.Time
}

func Encode(w io.Writer, format Format, result executor.Result, meta Metadata) error {
	switch format {
	case FormatCSV:
		return EncodeCSV(w, result)
	case FormatJSON:
		return EncodeJSON(w, result, meta)
	case FormatParquet:
		return EncodeParquet(w, result)
	default:
		return fmt.Errorf("unsupported export format %q", format)
	}
}

// ObjectKey is the archive location for one export:
// exports/{session}/{timestamp}.{ext}.
func ObjectKey(meta Metadata, format Format) string {
	return fmt.Sprintf("exports/%s/%s.%s", meta.SessionID, meta.GeneratedAt.UTC().Format("20060102T150405Z"), format.Extension())
}
