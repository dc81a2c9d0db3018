package splitter

import (
	"iter"
	"slices"
	"strings"
)

// Sentences splits text into sentence-like fragments at boundaries where
// sentence-ending punctuation (. ! ?) is followed by whitespace. The
// punctuation stays attached to the fragment it ends, fragments are
// trimmed, and empty fragments are dropped. The sequence is lazy and can
// be ranged over more than once.
//
// Sentences never yields nothing: if the text contains no boundary, or
// trimming leaves no fragments at all, the original text is yielded
// unchanged as a single element.
func Sentences(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		yielded := false
		start := 0
		for i := 0; i < len(text)-1; i++ {
			if !isEnder(text[i]) || !isSpace(text[i+1]) {
				continue
			}
			if frag := strings.TrimSpace(text[start : i+1]); frag != "" {
				yielded = true
				if !yield(frag) {
					return
				}
			}
			start = i + 1
		}
		if frag := strings.TrimSpace(text[start:]); frag != "" {
			yielded = true
			if !yield(frag) {
				return
			}
		}
		if !yielded {
			yield(text)
		}
	}
}

// Split collects Sentences into a slice.
func Split(text string) []string {
	return slices.Collect(Sentences(text))
}

func isEnder(b byte) bool {
	return b == '.' || b == '!' || b == '?'
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
