// Package amount normalizes monetary expressions to numeric values.  The
// classifier relies on it to compare extracted amounts ("$1,500", "10K",
// "ten thousand", "USD 75") against the financial approval threshold; any
// expression the parser cannot understand is reported as an error so the
// caller can fail safe towards requiring approval.
package amount

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/viant/parsly"
)

var unitValues = map[string]float64{
	"zero": 0, "one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
	"eleven": 11, "twelve": 12, "thirteen": 13, "fourteen": 14,
	"fifteen": 15, "sixteen": 16, "seventeen": 17, "eighteen": 18,
	"nineteen": 19,
}

var tenValues = map[string]float64{
	"twenty": 20, "thirty": 30, "forty": 40, "fifty": 50,
	"sixty": 60, "seventy": 70, "eighty": 80, "ninety": 90,
}

// Parse normalizes a monetary expression to its numeric value.  It accepts
// digit forms with separators and decimals, magnitude suffixes (10K, 1.5
// million) and written numbers (ten thousand, twenty five dollars), with an
// optional leading currency symbol or code.
func Parse(text string) (float64, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return 0, fmt.Errorf("empty amount")
	}
	cursor := parsly.NewCursor("", []byte(trimmed), 0)

	// Optional currency prefix – value is currency agnostic.
	cursor.MatchAfterOptional(whitespaceToken, currencyToken)

	var total, current float64
	seenValue := false
	for cursor.Pos < cursor.InputSize {
		matched := cursor.MatchAfterOptional(whitespaceToken,
			numberToken, magnitudeToken, numberWordToken, fillerToken)
		switch matched.Code {
		case numberToken.Code:
			if seenValue && current != 0 {
				return 0, fmt.Errorf("ambiguous amount %q", text)
			}
			literal := strings.ReplaceAll(matched.Text(cursor), ",", "")
			value, err := strconv.ParseFloat(literal, 64)
			if err != nil {
				return 0, fmt.Errorf("invalid number in %q: %w", text, err)
			}
			current += value
			seenValue = true
		case numberWordToken.Code:
			word := strings.ToLower(matched.Text(cursor))
			if value, ok := unitValues[word]; ok {
				current += value
			} else if value, ok := tenValues[word]; ok {
				current += value
			}
			seenValue = true
		case magnitudeToken.Code:
			if !seenValue {
				return 0, fmt.Errorf("magnitude without value in %q", text)
			}
			switch strings.ToLower(matched.Text(cursor)) {
			case "hundred":
				current *= 100
			case "k", "thousand":
				total += current * 1_000
				current = 0
			case "m", "million":
				total += current * 1_000_000
				current = 0
			case "b", "bn", "billion":
				total += current * 1_000_000_000
				current = 0
			}
		case fillerToken.Code:
			// connective noise: "dollars", "and"
		case whitespaceToken.Code:
		default:
			return 0, fmt.Errorf("unrecognised amount %q at position %d", text, cursor.Pos)
		}
	}
	if !seenValue {
		return 0, fmt.Errorf("no numeric value in %q", text)
	}
	return total + current, nil
}
