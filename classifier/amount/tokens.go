package amount

import (
	"github.com/viant/parsly"
	"github.com/viant/parsly/matcher"
)

// Token codes
const (
	whitespaceCode = iota
	currencyCode
	numberCode
	magnitudeCode
	numberWordCode
	fillerCode
)

// Token definitions
var (
	whitespaceToken = parsly.NewToken(whitespaceCode, "Whitespace", matcher.NewWhiteSpace())
	currencyToken   = parsly.NewToken(currencyCode, "Currency", newCurrencyMatcher())
	numberToken     = parsly.NewToken(numberCode, "Number", newNumberMatcher())
	magnitudeToken  = parsly.NewToken(magnitudeCode, "Magnitude", newWordSetMatcher(magnitudes()))
	numberWordToken = parsly.NewToken(numberWordCode, "NumberWord", newWordSetMatcher(numberWords()))
	fillerToken     = parsly.NewToken(fillerCode, "Filler", newWordSetMatcher(fillers()))
)

func magnitudes() []string {
	return []string{"hundred", "thousand", "million", "billion", "k", "m", "bn", "b"}
}

func numberWords() []string {
	words := make([]string, 0, len(unitValues)+len(tenValues))
	for word := range unitValues {
		words = append(words, word)
	}
	for word := range tenValues {
		words = append(words, word)
	}
	return words
}

func fillers() []string {
	return []string{"dollars", "dollar", "bucks", "and", "-"}
}

// currencyMatcher matches a currency symbol or a three-letter currency code.
type currencyMatcher struct{}

func (m *currencyMatcher) Match(cursor *parsly.Cursor) int {
	input := cursor.Input
	pos := cursor.Pos
	size := cursor.InputSize
	if pos >= size {
		return 0
	}
	if input[pos] == '$' {
		return 1
	}
	codes := []string{"usd", "eur", "gbp"}
	for _, code := range codes {
		if pos+len(code) > size {
			continue
		}
		if foldEqual(input[pos:pos+len(code)], code) && isWordBoundary(input, pos+len(code)) {
			return len(code)
		}
	}
	return 0
}

func newCurrencyMatcher() parsly.Matcher { return &currencyMatcher{} }

// numberMatcher matches digits with optional thousands separators and an
// optional decimal part, e.g. "75", "1,500", "1500.25".
type numberMatcher struct{}

func (m *numberMatcher) Match(cursor *parsly.Cursor) int {
	input := cursor.Input
	pos := cursor.Pos
	size := cursor.InputSize
	if pos >= size || !isDigit(input[pos]) {
		return 0
	}
	matched := 0
	seenDot := false
	for i := pos; i < size; i++ {
		c := input[i]
		if isDigit(c) || c == ',' {
			matched++
			continue
		}
		if c == '.' && !seenDot && i+1 < size && isDigit(input[i+1]) {
			seenDot = true
			matched++
			continue
		}
		break
	}
	return matched
}

func newNumberMatcher() parsly.Matcher { return &numberMatcher{} }

// wordSetMatcher matches any word from a fixed, case-insensitive vocabulary.
type wordSetMatcher struct {
	words []string
}

func (m *wordSetMatcher) Match(cursor *parsly.Cursor) int {
	input := cursor.Input
	pos := cursor.Pos
	size := cursor.InputSize
	if pos >= size {
		return 0
	}
	best := 0
	for _, word := range m.words {
		if len(word) <= best || pos+len(word) > size {
			continue
		}
		if !foldEqual(input[pos:pos+len(word)], word) {
			continue
		}
		// Words ending in a letter must not run into another letter.
		if isLetter(word[len(word)-1]) && !isWordBoundary(input, pos+len(word)) {
			continue
		}
		best = len(word)
	}
	return best
}

func newWordSetMatcher(words []string) parsly.Matcher { return &wordSetMatcher{words: words} }

// Helper functions
func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isWordBoundary(input []byte, pos int) bool {
	return pos >= len(input) || !isLetter(input[pos])
}

func foldEqual(input []byte, lower string) bool {
	if len(input) != len(lower) {
		return false
	}
	for i := 0; i < len(input); i++ {
		c := input[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		if c != lower[i] {
			return false
		}
	}
	return true
}
