package api

import (
	"net/http"
)

type schemaColumn struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type schemaTable struct {
	Name    string         `json:"name"`
	Columns []schemaColumn `json:"columns"`
}

func handleSchema(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Schema == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "SCHEMA_NOT_CONFIGURED", "schema source is not configured", false, nil)
		return
	}

	snapshot := deps.Schema.Current()
	tables := make([]schemaTable, 0, len(snapshot.Tables()))
	for _, table := range snapshot.Tables() {
		columns := make([]schemaColumn, 0, len(table.Columns))
		for _, column := range table.Columns {
			columns = append(columns, schemaColumn{Name: column.Name, Type: column.Type})
		}
		tables = append(tables, schemaTable{Name: table.Name, Columns: columns})
	}

	writeJSON(w, http.StatusOK, map[string]any{"tables": tables})
}
