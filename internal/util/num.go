package util

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var reThousandCommas = regexp.MustCompile(`^-?\d{1,3}(?:,\d{3})+(?:\.\d+)?$`)

// ParseDecimal reads a numeric cell best-effort: whitespace and thousand
// separators are tolerated, anything that still fails to parse yields nil
// rather than an error.
func ParseDecimal(input string) *decimal.Decimal {
	text := strings.TrimSpace(strings.ReplaceAll(input, " ", " "))
	text = strings.ReplaceAll(text, " ", "")
	if text == "" || text == "-" || text == "—" {
		return nil
	}
	if reThousandCommas.MatchString(text) {
		text = strings.ReplaceAll(text, ",", "")
	}
	parsed, err := decimal.NewFromString(text)
	if err != nil {
		return nil
	}
	return &parsed
}
