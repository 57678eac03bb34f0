// Package wordlist provides word list filtering helpers.
package wordlist

import "unicode/utf8"

// FilterFunc returns true when a word should be kept.
type FilterFunc func(string) bool

// MaxLength keeps words of at most n characters. n <= 0 keeps everything.
func MaxLength(n int) FilterFunc {
	if n <= 0 {
		return func(string) bool { return true }
	}
	return func(word string) bool {
		return utf8.RuneCountInString(word) <= n
	}
}

// SingleWord drops entries that contain whitespace.
func SingleWord(word string) bool {
	for _, r := range word {
		if r == ' ' || r == '\t' {
			return false
		}
	}
	return word != ""
}

// Filter returns the words accepted by every filter, in order.
func Filter(words []string, filters ...FilterFunc) []string {
	out := make([]string, 0, len(words))
next:
	for _, w := range words {
		for _, f := range filters {
			if !f(w) {
				continue next
			}
		}
		out = append(out, w)
	}
	return out
}
