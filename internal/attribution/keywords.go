package attribution

import "strings"

// English stopwords plus a small Nepali-romanized list; message text from the
// home market freely mixes both.
var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "can": {}, "do": {}, "for": {},
	"from": {}, "have": {}, "how": {}, "i": {}, "in": {}, "is": {}, "it": {},
	"me": {}, "my": {}, "of": {}, "on": {}, "please": {}, "that": {},
	"the": {}, "this": {}, "to": {}, "want": {}, "what": {}, "where": {},
	"will": {}, "with": {}, "you": {}, "your": {},

	// Nepali romanized
	"cha": {}, "chha": {}, "ho": {}, "hola": {}, "kasto": {}, "kati": {},
	"ko": {}, "kun": {}, "lai": {}, "ma": {}, "malai": {}, "ra": {},
	"tapai": {}, "yo": {},
}

// ExtractKeywords returns the stopword-filtered terms of a message, lowered,
// for the ILIKE fallback search. Terms shorter than three runes are dropped.
func ExtractKeywords(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !isWordRune(r)
	})

	seen := make(map[string]struct{}, len(fields))
	keywords := make([]string, 0, len(fields))
	for _, field := range fields {
		if len(field) < 3 {
			continue
		}
		if _, stop := stopwords[field]; stop {
			continue
		}
		if _, dup := seen[field]; dup {
			continue
		}
		seen[field] = struct{}{}
		keywords = append(keywords, field)
	}

	return keywords
}

func isWordRune(r rune) bool {
	return r == '\'' ||
		(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9') || r > 127
}
