package search

import (
	"strings"
	"unicode"
)

// Normalize case-folds the text, strips punctuation and symbols, and
// collapses runs of whitespace to single spaces. Queries and stored
// questions go through the same normalization so exact wording matches
// score 1.0 regardless of punctuation or casing.
func Normalize(s string) string {
	mapped := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			return ' '
		case unicode.IsSpace(r):
			return ' '
		default:
			return unicode.ToLower(r)
		}
	}, s)
	return strings.Join(strings.Fields(mapped), " ")
}

// Tokenize splits a normalized string into comparison tokens. Runs of
// Latin letters and digits become word tokens; runs of CJK characters,
// which carry no word boundaries, become character bigrams so that
// partial phrase overlap still registers.
func Tokenize(normalized string) []string {
	var tokens []string
	var word []rune
	var cjk []rune

	flushWord := func() {
		if len(word) > 0 {
			tokens = append(tokens, string(word))
			word = word[:0]
		}
	}
	flushCJK := func() {
		if len(cjk) == 1 {
			tokens = append(tokens, string(cjk))
		}
		for i := 0; i+1 < len(cjk); i++ {
			tokens = append(tokens, string(cjk[i:i+2]))
		}
		cjk = cjk[:0]
	}

	for _, r := range normalized {
		switch {
		case isCJK(r):
			flushWord()
			cjk = append(cjk, r)
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			flushCJK()
			word = append(word, r)
		default:
			flushWord()
			flushCJK()
		}
	}
	flushWord()
	flushCJK()
	return tokens
}

func isCJK(r rune) bool {
	return unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana)
}

// tokenSet deduplicates tokens preserving nothing but membership.
func tokenSet(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}
