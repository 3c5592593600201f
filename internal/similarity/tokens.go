// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package similarity

import (
	"sort"
	"strings"
	"unicode"

	"github.com/mozillazg/go-unidecode"
	"golang.org/x/text/unicode/norm"
)

// stopwords are common English words excluded from title tokens. Titles
// like "Do some research on X" should compare on "research" and "x" only.
var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "is": true, "are": true,
	"was": true, "were": true, "do": true, "does": true, "did": true,
	"have": true, "has": true, "had": true, "be": true, "been": true,
	"will": true, "would": true, "could": true, "should": true, "can": true,
	"not": true, "no": true, "and": true, "or": true, "but": true,
	"if": true, "then": true, "so": true, "as": true, "at": true,
	"by": true, "for": true, "from": true, "in": true, "into": true,
	"of": true, "on": true, "to": true, "with": true, "about": true,
	"it": true, "its": true, "this": true, "that": true, "what": true,
	"which": true, "who": true, "how": true, "when": true, "where": true,
	"why": true, "you": true, "me": true, "i": true, "my": true,
	"your": true, "we": true, "our": true, "some": true,
}

// Tokenize turns a title into its sorted set of normalized words. The
// title is NFKC-normalized, transliterated to ASCII, lowercased and split
// on anything that is not a letter or digit. Stopwords and one-character
// tokens are dropped.
func Tokenize(title string) []string {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil
	}

	s := norm.NFKC.String(title)
	s = unidecode.Unidecode(s)
	s = strings.ToLower(s)

	fields := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	seen := make(map[string]struct{}, len(fields))
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) < 2 || stopwords[f] {
			continue
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		tokens = append(tokens, f)
	}
	if len(tokens) == 0 {
		return nil
	}
	sort.Strings(tokens)
	return tokens
}
