package quality

import (
	"strings"
	"unicode"
)

// words lowercases s, replaces punctuation with spaces and singularizes each
// word, so "Tomatoes," and "tomato" compare equal.
func words(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for i, f := range fields {
		fields[i] = singular(f)
	}
	return fields
}

func singular(w string) string {
	if len(w) <= 3 {
		return w
	}
	switch {
	case strings.HasSuffix(w, "ies"):
		return w[:len(w)-3] + "y"
	case strings.HasSuffix(w, "oes"), strings.HasSuffix(w, "ches"),
		strings.HasSuffix(w, "shes"), strings.HasSuffix(w, "xes"), strings.HasSuffix(w, "sses"):
		return w[:len(w)-2]
	case strings.HasSuffix(w, "ss"):
		return w
	case strings.HasSuffix(w, "s"):
		return w[:len(w)-1]
	}
	return w
}

// descriptors are words that do not identify an ingredient on their own.
var descriptors = map[string]bool{
	"and": true, "the": true, "with": true, "fresh": true, "extra": true,
	"virgin": true, "large": true, "small": true, "medium": true,
	"chopped": true, "minced": true, "diced": true, "sliced": true,
	"boneless": true, "skinless": true, "raw": true,
}

// significant returns the words of a phrase that identify the ingredient.
func significant(pw []string) []string {
	var out []string
	for _, w := range pw {
		if len(w) >= 3 && !descriptors[w] {
			out = append(out, w)
		}
	}
	return out
}

// mentions reports whether the ingredient phrase occurs in text. The whole
// phrase matches as a word sequence; otherwise every significant word of the
// phrase must match a text word, with one edit allowed for words of five or
// more letters.
func mentions(text []string, phrase string) bool {
	pw := words(phrase)
	if len(pw) == 0 {
		return false
	}
	if containsSeq(text, pw) {
		return true
	}
	sig := significant(pw)
	if len(sig) == 0 {
		return false
	}
	for _, w := range sig {
		if !hasWord(text, w) {
			return false
		}
	}
	return true
}

func hasWord(text []string, w string) bool {
	for _, t := range text {
		if t == w {
			return true
		}
		if len(w) >= 5 && abs(len(t)-len(w)) <= 1 && levenshteinDistance(t, w) <= 1 {
			return true
		}
	}
	return false
}

func containsSeq(text, seq []string) bool {
	for i := 0; i+len(seq) <= len(text); i++ {
		match := true
		for j := range seq {
			if text[i+j] != seq[j] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func levenshteinDistance(a, b string) int {
	if a == b {
		return 0
	}
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
