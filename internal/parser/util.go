package parser

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// nonAmountChars matches anything that cannot be part of a plain decimal.
	nonAmountChars = regexp.MustCompile(`[^\d.\-]`)
	whitespaceRun  = regexp.MustCompile(`\s+`)
)

// NormalizeAmount converts a currency-like cell such as "1,234.50" or
// "₹ 500.00 Dr" to a decimal. Blank cells, "NA", "nan", a lone "-" and
// anything that does not parse come back invalid rather than as an error.
func NormalizeAmount(raw string) decimal.NullDecimal {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.NullDecimal{}
	}
	switch strings.ToLower(s) {
	case "na", "nan", "-":
		return decimal.NullDecimal{}
	}

	s = strings.ReplaceAll(s, ",", "")
	s = nonAmountChars.ReplaceAllString(s, "")
	if s == "" || s == "-" || s == "." {
		return decimal.NullDecimal{}
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: d, Valid: true}
}

// collapseSpace trims s and folds internal whitespace runs to one space.
func collapseSpace(s string) string {
	return whitespaceRun.ReplaceAllString(strings.TrimSpace(s), " ")
}

// allBlank reports whether every cell is empty after trimming.
func allBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
