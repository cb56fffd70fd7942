package index

import "unicode"

// stopwords is a short, deliberately small English stopword list; the
// spec asks for a "well-documented analyzer" without mandating
// stemming, and no stemming library appears anywhere in the pack.
var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "by": true, "for": true, "from": true, "has": true, "he": true,
	"in": true, "is": true, "it": true, "its": true, "of": true, "on": true,
	"that": true, "the": true, "to": true, "was": true, "were": true, "will": true,
	"with": true,
}

// tokenize lowercases and splits on any rune that is not a letter or
// digit, dropping empty tokens and stopwords.
func tokenize(text string) []string {
	var tokens []string
	var cur []rune
	flush := func() {
		if len(cur) == 0 {
			return
		}
		tok := string(cur)
		if !stopwords[tok] {
			tokens = append(tokens, tok)
		}
		cur = cur[:0]
	}
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			cur = append(cur, unicode.ToLower(r))
		} else {
			flush()
		}
	}
	flush()
	return tokens
}
