package usda

import (
	"strings"
	"unicode"
)

// dataTypeRank orders FoodData Central data types from most to least
// preferred for generic ingredients.
var dataTypeRank = map[string]int{
	"Foundation":     0,
	"SR Legacy":      1,
	"Survey (FNDDS)": 2,
	"Branded":        4,
	"Experimental":   4,
}

func rank(dataType string) int {
	if r, ok := dataTypeRank[dataType]; ok {
		return r
	}
	return 3
}

// BestMatch picks the food for query. Among results whose description holds
// every query word it takes the best data type, keeping API order on ties.
// When no result holds every word the first result wins.
func BestMatch(query string, foods []Food) (Food, bool) {
	if len(foods) == 0 {
		return Food{}, false
	}
	qw := strings.FieldsFunc(strings.ToLower(query), notAlnum)

	best := -1
	for i, f := range foods {
		if !containsAll(strings.ToLower(f.Description), qw) {
			continue
		}
		if best == -1 || rank(f.DataType) < rank(foods[best].DataType) {
			best = i
		}
	}
	if best == -1 {
		return foods[0], true
	}
	return foods[best], true
}

func containsAll(s string, words []string) bool {
	for _, w := range words {
		if !strings.Contains(s, w) {
			return false
		}
	}
	return true
}

func notAlnum(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}
