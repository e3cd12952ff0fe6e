package index

import (
	"strings"
	"unicode"
)

// MaxPhraseWords bounds the length of the word runs stored in a word map.
// Longer contains queries intersect overlapping windows, then check the
// candidates' values for the full run.
const MaxPhraseWords = 6

// Tokenize splits s into lower-cased words, breaking on anything that is
// not a letter or digit.
func Tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Phrases returns every contiguous run of up to MaxPhraseWords words of s,
// each joined by a single space.
func Phrases(s string) []string {
	words := Tokenize(s)
	var out []string
	for i := range words {
		for n := 1; n <= MaxPhraseWords && i+n <= len(words); n++ {
			out = append(out, strings.Join(words[i:i+n], " "))
		}
	}
	return out
}

// queryPhrases turns a contains query into the phrases that must all be
// present. Queries of at most MaxPhraseWords words map to a single phrase.
func queryPhrases(text string) []string {
	words := Tokenize(text)
	if len(words) == 0 {
		return nil
	}
	if len(words) <= MaxPhraseWords {
		return []string{strings.Join(words, " ")}
	}
	var out []string
	for i := 0; i+MaxPhraseWords <= len(words); i++ {
		out = append(out, strings.Join(words[i:i+MaxPhraseWords], " "))
	}
	return out
}
