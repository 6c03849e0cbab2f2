package engine

import (
	"strings"
	"unicode"

	"github.com/querydesk/querydesk/internal/schema"
)

// ExtractEntities returns the schema terms mentioned in text,
// lowercased. A token matches a term exactly or modulo a trailing "s",
// so "employee" still hits the employees table.
func ExtractEntities(text string, snapshot schema.Snapshot) []string {
	if snapshot.Empty() {
		return nil
	}
	vocabulary := map[string]struct{}{}
	for _, word := range snapshot.Vocabulary() {
		vocabulary[word] = struct{}{}
	}

	found := map[string]struct{}{}
	for _, token := range tokenizeWords(text) {
		if match, ok := matchVocabulary(token, vocabulary); ok {
			found[match] = struct{}{}
		}
	}
	return sortedEntitySet(found)
}

func matchVocabulary(token string, vocabulary map[string]struct{}) (string, bool) {
	if _, ok := vocabulary[token]; ok {
		return token, true
	}
	if plural := token + "s"; len(token) > 2 {
		if _, ok := vocabulary[plural]; ok {
			return plural, true
		}
	}
	if singular := strings.TrimSuffix(token, "s"); len(singular) > 2 && singular != token {
		if _, ok := vocabulary[singular]; ok {
			return singular, true
		}
	}
	return "", false
}

func tokenizeWords(text string) []string {
	var tokens []string
	var current strings.Builder
	flush := func() {
		if current.Len() > 0 {
			tokens = append(tokens, strings.ToLower(current.String()))
			current.Reset()
		}
	}
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			current.WriteRune(r)
			continue
		}
		flush()
	}
	flush()
	return tokens
}
