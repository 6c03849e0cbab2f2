package engine

import (
	"strings"

	"github.com/querydesk/querydesk/internal/schema"
)

// Verdict is the binary outcome of validating a SQL candidate.
// Warnings never block execution.
type Verdict struct {
	Valid    bool
	Reason   string
	Detail   string
	Warnings []string
}

// Rejection reason codes.
const (
	ReasonMutatingKeyword = "mutating_keyword"
	ReasonNotASelect      = "not_a_select"
	ReasonUnknownTable    = "unknown_table"
	ReasonEmptyStatement  = "empty_statement"
)

var mutatingKeywords = map[string]struct{}{
	"INSERT": {}, "UPDATE": {}, "DELETE": {}, "DROP": {}, "ALTER": {},
	"TRUNCATE": {}, "CREATE": {}, "GRANT": {}, "EXEC": {},
}

// sqlKeywords are skipped when resolving identifiers. The scan is
// lexical only; it does not parse SQL.
var sqlKeywords = map[string]struct{}{
	"SELECT": {}, "FROM": {}, "WHERE": {}, "JOIN": {}, "INNER": {}, "LEFT": {},
	"RIGHT": {}, "FULL": {}, "OUTER": {}, "CROSS": {}, "ON": {}, "AND": {},
	"OR": {}, "NOT": {}, "AS": {}, "GROUP": {}, "ORDER": {}, "BY": {},
	"HAVING": {}, "LIMIT": {}, "OFFSET": {}, "WITH": {}, "UNION": {}, "ALL": {},
	"DISTINCT": {}, "CASE": {}, "WHEN": {}, "THEN": {}, "ELSE": {}, "END": {},
	"IN": {}, "EXISTS": {}, "BETWEEN": {}, "LIKE": {}, "ILIKE": {}, "IS": {},
	"NULL": {}, "TRUE": {}, "FALSE": {}, "ASC": {}, "DESC": {}, "COUNT": {},
	"SUM": {}, "AVG": {}, "MIN": {}, "MAX": {}, "CAST": {}, "COALESCE": {},
	"NULLIF": {}, "EXTRACT": {}, "INTERVAL": {}, "OVER": {}, "PARTITION": {},
	"USING": {}, "VALUES": {}, "RECURSIVE": {},
}

// SQLValidator gates generated SQL before execution: mutating keywords
// reject, unknown table references reject, everything less certain is
// at most a warning.
type SQLValidator struct{}

func (SQLValidator) Validate(sqlText string, snapshot schema.Snapshot) Verdict {
	tokens := tokenizeIdentifiers(sqlText)
	if len(tokens) == 0 {
		return Verdict{Reason: ReasonEmptyStatement}
	}

	for _, token := range tokens {
		if _, ok := mutatingKeywords[strings.ToUpper(token.text)]; ok {
			return Verdict{Reason: ReasonMutatingKeyword, Detail: strings.ToUpper(token.text)}
		}
	}

	first := strings.ToUpper(tokens[0].text)
	if first != "SELECT" && first != "WITH" {
		return Verdict{Reason: ReasonNotASelect, Detail: first}
	}

	if snapshot.Empty() {
		return Verdict{Valid: true}
	}

	cteNames := collectCTENames(tokens)
	verdict := Verdict{Valid: true}
	for i, token := range tokens {
		if !isTableRefPosition(tokens, i) {
			continue
		}
		name := strings.ToLower(token.text)
		qualified := false
		// schema.table references resolve to the part after the dot.
		if i+1 < len(tokens) && tokens[i+1].qualified && token.start+len(token.text) == tokens[i+1].start-1 {
			name = strings.ToLower(tokens[i+1].text)
			qualified = true
		}
		if _, ok := cteNames[name]; ok {
			continue
		}
		if snapshot.HasTable(name) {
			continue
		}
		if qualified {
			// A schema prefix outside the snapshot's scope cannot be
			// resolved lexically with confidence.
			verdict.Warnings = append(verdict.Warnings, "unresolved table reference: "+name)
			continue
		}
		return Verdict{Reason: ReasonUnknownTable, Detail: name}
	}

	for _, warning := range columnWarnings(sqlText, snapshot) {
		verdict.Warnings = append(verdict.Warnings, warning)
	}
	return verdict
}

type sqlToken struct {
	text      string
	start     int
	qualified bool
}

// tokenizeIdentifiers yields word tokens with byte offsets. Quoted
// string literals are skipped so 'DELETE ME' in a literal never trips
// the keyword scan.
func tokenizeIdentifiers(sqlText string) []sqlToken {
	var tokens []sqlToken
	inString := false
	start := -1
	flush := func(end int) {
		if start >= 0 {
			text := sqlText[start:end]
			qualified := start > 0 && sqlText[start-1] == '.'
			tokens = append(tokens, sqlToken{text: text, start: start, qualified: qualified})
			start = -1
		}
	}
	for i := 0; i < len(sqlText); i++ {
		c := sqlText[i]
		if inString {
			if c == '\'' {
				inString = false
			}
			continue
		}
		if c == '\'' {
			flush(i)
			inString = true
			continue
		}
		if isWordByte(c) {
			if start < 0 {
				start = i
			}
			continue
		}
		flush(i)
	}
	flush(len(sqlText))
	return tokens
}

func isWordByte(c byte) bool {
	return c == '_' || (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// isTableRefPosition reports whether token i directly follows FROM or
// JOIN, which is where lexical scanning can name tables with
// confidence.
func isTableRefPosition(tokens []sqlToken, i int) bool {
	if i == 0 {
		return false
	}
	prev := strings.ToUpper(tokens[i-1].text)
	if prev != "FROM" && prev != "JOIN" {
		return false
	}
	if _, ok := sqlKeywords[strings.ToUpper(tokens[i].text)]; ok {
		return false
	}
	return true
}

// collectCTENames picks up names in "WITH name AS" and ", name AS"
// positions so CTE references are not flagged as unknown tables.
func collectCTENames(tokens []sqlToken) map[string]struct{} {
	names := map[string]struct{}{}
	for i := 0; i+1 < len(tokens); i++ {
		if strings.ToUpper(tokens[i+1].text) != "AS" {
			continue
		}
		if _, ok := sqlKeywords[strings.ToUpper(tokens[i].text)]; ok {
			continue
		}
		names[strings.ToLower(tokens[i].text)] = struct{}{}
	}
	return names
}

// columnWarnings flags dotted references whose qualifier is a known
// table but whose column is not in it. Alias-qualified references are
// left alone.
func columnWarnings(sqlText string, snapshot schema.Snapshot) []string {
	var warnings []string
	tokens := tokenizeIdentifiers(sqlText)
	for i := 0; i+1 < len(tokens); i++ {
		qualifier := tokens[i]
		column := tokens[i+1]
		if !column.qualified {
			continue
		}
		if qualifier.start+len(qualifier.text) != column.start-1 {
			continue
		}
		table, ok := snapshot.Table(qualifier.text)
		if !ok {
			continue
		}
		found := false
		for _, candidate := range table.Columns {
			if strings.EqualFold(candidate.Name, column.text) {
				found = true
				break
			}
		}
		if !found {
			warnings = append(warnings, "unknown column "+strings.ToLower(column.text)+" on table "+strings.ToLower(qualifier.text))
		}
	}
	return warnings
}
