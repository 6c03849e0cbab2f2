package export

import (
	"fmt"
	"io"

	"github.com/parquet-go/parquet-go"

	"github.com/querydesk/querydesk/internal/executor"
)

// EncodeParquet writes the result with every column as an optional
// UTF8 string. Result columns are dynamic, so the schema is built per
// export instead of from a struct.
func EncodeParquet(w io.Writer, result executor.Result) error {
	if len(result.Columns) == 0 {
		return fmt.Errorf("result has no columns")
	}

	names := make([]string, len(result.Columns))
	group := parquet.Group{}
	for i, column := range result.Columns {
		name := column
		if name == "" {
			name = fmt.Sprintf("column_%d", i+1)
		}
		names[i] = name
		group[name] = parquet.Optional(parquet.String())
	}
	schema := parquet.NewSchema("export", group)

	writer := parquet.NewGenericWriter[map[string]any](w, schema)
	for _, row := range result.Rows {
		record := map[string]any{}
		for i, name := range names {
			if i >= len(row) || row[i] == nil {
				continue
			}
			record[name] = formatCell(row[i])
		}
		if _, err := writer.Write([]map[string]any{record}); err != nil {
			return fmt.Errorf("write parquet row: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close parquet writer: %w", err)
	}
	return nil
}
