package export

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/querydesk/querydesk/internal/executor"
)

type jsonEnvelope struct {
	GeneratedAt time.Time `json:"generated_at"`
	SQL         string    `json:"sql"`
	RowCount    int       `json:"row_count"`
	Columns     []string  `json:"columns"`
	Rows        [][]any   `json:"rows"`
}

func EncodeJSON(w io.Writer, result executor.Result, meta Metadata) error {
	envelope := jsonEnvelope{
		GeneratedAt: meta.GeneratedAt.UTC(),
		SQL:         meta.SQL,
		RowCount:    len(result.Rows),
		Columns:     result.Columns,
		Rows:        result.Rows,
	}
	if envelope.Rows == nil {
		envelope.Rows = [][]any{}
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(envelope); err != nil {
		return fmt.Errorf("encode json export: %w", err)
	}
	return nil
}
