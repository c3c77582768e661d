package core

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DetectionMethod selects the predicate used to recognize the first data row.
type DetectionMethod int

const (
	MethodDatePattern DetectionMethod = iota
	MethodNumericPattern
	// MethodAfterBlank takes the first non-blank, non-skipped row. Blank rows
	// are discarded before any predicate runs, so no blank-to-data transition
	// is required.
	MethodAfterBlank
	MethodNonHeader
)

var methodNames = map[DetectionMethod]string{
	MethodDatePattern:    "date-pattern",
	MethodNumericPattern: "numeric-pattern",
	MethodAfterBlank:     "after-blank",
	MethodNonHeader:      "non-header",
}

func (m DetectionMethod) String() string {
	if s, ok := methodNames[m]; ok {
		return s
	}
	return "unknown"
}

// ParseDetectionMethod accepts the canonical names and their short forms
// ("date", "numeric", "blank", "header").
func ParseDetectionMethod(s string) (DetectionMethod, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "date-pattern", "date", "dates":
		return MethodDatePattern, nil
	case "numeric-pattern", "numeric", "number":
		return MethodNumericPattern, nil
	case "after-blank", "blank", "non-empty-after-empty":
		return MethodAfterBlank, nil
	case "non-header", "header", "first-non-header":
		return MethodNonHeader, nil
	default:
		return 0, fmt.Errorf("unknown detection method %q", s)
	}
}

// DefaultSkipWords are the words offered when the caller supplies none.
var DefaultSkipWords = []string{
	"statement", "account", "customer", "period", "report",
	"opening", "balance", "total", "summary",
}

// ParseSkipWords splits a comma-separated list, dropping blank entries.
func ParseSkipWords(s string) []string {
	var out []string
	for _, w := range strings.Split(s, ",") {
		if w = strings.TrimSpace(w); w != "" {
			out = append(out, w)
		}
	}
	return out
}

var datePrefixes = []*regexp.Regexp{
	regexp.MustCompile(`^\d{1,2}-\d{1,2}-\d{4}`),
	regexp.MustCompile(`^\d{4}-\d{1,2}-\d{1,2}`),
	regexp.MustCompile(`^\d{1,2}/\d{1,2}/\d{4}`),
}

var headerIndicators = []string{"DATE", "TYPE", "NUMBER", "AMOUNT", "DESCRIPTION", "ID"}

// LooksLikeDate reports whether s starts with D-M-YYYY, YYYY-M-D or D/M/YYYY.
func LooksLikeDate(s string) bool {
	for _, re := range datePrefixes {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

// LooksNumeric reports whether s reads as a decimal float once commas are
// removed. Underscores are allowed between digits ("1_000"); hex forms such
// as "0x1p4" are not. "inf" and "nan" spellings count as numeric.
func LooksNumeric(s string) bool {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if hasHexPrefix(s) || !digitUnderscores(s) {
		return false
	}
	_, err := strconv.ParseFloat(strings.ReplaceAll(s, "_", ""), 64)
	return err == nil || errors.Is(err, strconv.ErrRange)
}

// digitUnderscores is true when every underscore in s sits between two
// digits.
func digitUnderscores(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] != '_' {
			continue
		}
		if i == 0 || i == len(s)-1 || !isDigit(s[i-1]) || !isDigit(s[i+1]) {
			return false
		}
	}
	return true
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// LooksLikeHeader reports whether s is short and either all upper case or
// contains a common column keyword.
func LooksLikeHeader(s string) bool {
	if utf8.RuneCountInString(s) >= 20 {
		return false
	}
	if isAllUpper(s) {
		return true
	}
	upper := strings.ToUpper(s)
	for _, ind := range headerIndicators {
		if strings.Contains(upper, ind) {
			return true
		}
	}
	return false
}

// isAllUpper is true when s has at least one cased letter and none of them
// are lower or title case.
func isAllUpper(s string) bool {
	cased := false
	for _, r := range s {
		switch {
		case unicode.IsLower(r), unicode.IsTitle(r):
			return false
		case unicode.IsUpper(r):
			cased = true
		}
	}
	return cased
}

func (m DetectionMethod) matches(s string) bool {
	switch m {
	case MethodDatePattern:
		return LooksLikeDate(s)
	case MethodNumericPattern:
		return LooksNumeric(s)
	case MethodAfterBlank:
		return true
	case MethodNonHeader:
		return !LooksLikeHeader(s)
	default:
		return false
	}
}

// DetectStart returns the index of the first value that is not blank, does
// not contain a skip word (case-insensitive), and satisfies the method.
func DetectStart(values []Value, skipWords []string, method DetectionMethod) (int, bool) {
	words := make([]string, 0, len(skipWords))
	for _, w := range skipWords {
		if w = strings.TrimSpace(w); w != "" {
			words = append(words, strings.ToUpper(w))
		}
	}

candidates:
	for i, v := range values {
		if v.IsBlank() {
			continue
		}
		s := strings.TrimSpace(v.String())
		upper := strings.ToUpper(s)
		for _, w := range words {
			if strings.Contains(upper, w) {
				continue candidates
			}
		}
		if method.matches(s) {
			return i, true
		}
	}
	return 0, false
}

// DetectRegion finds the data block in a first-column slice. With cutAtBlank
// the block ends just before the first blank value after the start;
// otherwise it runs to the last value.
func DetectRegion(values []Value, skipWords []string, method DetectionMethod, cutAtBlank bool) (Region, bool) {
	start, ok := DetectStart(values, skipWords, method)
	if !ok {
		return Region{}, false
	}

	end := len(values) - 1
	if cutAtBlank {
		for i := start; i < len(values); i++ {
			if values[i].IsBlank() {
				end = i - 1
				break
			}
		}
	}
	return Region{Start: start, End: end}, true
}
