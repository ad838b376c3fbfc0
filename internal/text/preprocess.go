// Package text turns free-text transaction descriptions into relevance features.
package text

import (
	"regexp"
	"strings"
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9\s]`)

// Preprocess lower-cases s, replaces everything except ASCII letters, digits
// and whitespace with a space, and collapses runs of whitespace.
// The same normalization is applied at fit and transform time.
func Preprocess(s string) string {
	s = strings.ToLower(s)
	s = nonAlnum.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(s), " ")
}

// Tokenize splits a preprocessed description into tokens of at least two
// characters, dropping stop words.
func Tokenize(s string) []string {
	fields := strings.Fields(s)
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) < 2 {
			continue
		}
		if _, stop := stopWords[f]; stop {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

// Terms returns the unigrams followed by the bigrams of a description.
func Terms(description string) []string {
	tokens := Tokenize(Preprocess(description))
	terms := make([]string, 0, 2*len(tokens))
	terms = append(terms, tokens...)
	for i := 0; i+1 < len(tokens); i++ {
		terms = append(terms, tokens[i]+" "+tokens[i+1])
	}
	return terms
}
