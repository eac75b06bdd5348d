package aggregate

import (
	"strings"
	"unicode"

	"financehub/internal/core"
	"financehub/internal/ledger"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// fold lowercases s and strips diacritics, so "Farmácia" matches "farmacia".
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}

// SearchTransactions returns the live transactions whose description or
// notes contain every word of query, newest first. An empty query matches
// everything.
func SearchTransactions(s *ledger.Snapshot, query string) []core.Transaction {
	words := strings.Fields(fold(query))
	var out []core.Transaction
	for _, t := range s.ActiveTransactions() {
		text := fold(t.Description + " " + t.Notes)
		match := true
		for _, w := range words {
			if !strings.Contains(text, w) {
				match = false
				break
			}
		}
		if match {
			out = append(out, t)
		}
	}
	return out
}
