package util

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	numberPattern   = regexp.MustCompile(`-?\d+(?:[.,]\d+)?`)
	groupingPattern = regexp.MustCompile(`(\d)[ \x{00A0}\x{202F}](\d{3})\b`)
	digitPattern    = regexp.MustCompile(`\d`)
	bareNumber      = regexp.MustCompile(`^[-+]?\d+(?:[ .,]\d+)*\s*%?$`)
	yearPattern     = regexp.MustCompile(`\b(?:19|20)\d{2}\b`)

	minusReplacer = strings.NewReplacer("−", "-", "–", "-")
)

// ParseNumber extracts the first number from free text.
// Both "." and "," are accepted as decimal separators, space-grouped thousands
// ("45 000 000") are joined, and surrounding text such as units or footnote
// markers is ignored.
func ParseNumber(s string) (float64, bool) {
	s = minusReplacer.Replace(s)
	for {
		joined := groupingPattern.ReplaceAllString(s, "$1$2")
		if joined == s {
			break
		}
		s = joined
	}

	match := numberPattern.FindString(s)
	if match == "" {
		return 0, false
	}
	return ParseDecimal(match)
}

// ParseDecimal parses a bare decimal number that may use a comma separator
func ParseDecimal(s string) (float64, bool) {
	s = minusReplacer.Replace(strings.TrimSpace(s))
	s = strings.Replace(s, ",", ".", 1)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// HasDigit reports whether the text contains at least one digit
func HasDigit(s string) bool {
	return digitPattern.MatchString(s)
}

// IsBareNumber reports whether the text is only a number or percentage
func IsBareNumber(s string) bool {
	return bareNumber.MatchString(minusReplacer.Replace(strings.TrimSpace(s)))
}

// FindYear returns the first 19xx/20xx year in the text
func FindYear(s string) (int, bool) {
	match := yearPattern.FindString(s)
	if match == "" {
		return 0, false
	}
	year, err := strconv.Atoi(match)
	if err != nil {
		return 0, false
	}
	return year, true
}
