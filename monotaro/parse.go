package monotaro

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	rePeriod = regexp.MustCompile(`(\d{4}-\d{2})`)
	rePrice  = regexp.MustCompile(`(\d{1,3}(?:,\d{3})*)`)
	reTax    = regexp.MustCompile(`(\d+)`)
)

func parseOrderDate(text string) (time.Time, error) {
	t, err := time.Parse("2006/01/02 15:04:05", strings.TrimSpace(text))
	if err != nil {
		return time.Time{}, fmt.Errorf("parse order date %q: %w", text, err)
	}
	return t, nil
}

// parsePrice pulls the first comma-grouped number out of a price label
// like "合計 3,980円".
func parsePrice(text string) (int, error) {
	m := rePrice.FindStringSubmatch(text)
	if m == nil {
		return 0, fmt.Errorf("no price in %q", text)
	}
	value, err := strconv.Atoi(strings.ReplaceAll(m[1], ",", ""))
	if err != nil {
		return 0, fmt.Errorf("parse price %q: %w", text, err)
	}
	return value, nil
}

// parseTaxRate pulls the leading integer percentage out of a label like
// "10%".
func parseTaxRate(text string) (int, error) {
	m := reTax.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return 0, fmt.Errorf("no tax rate in %q", text)
	}
	rate, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, fmt.Errorf("parse tax rate %q: %w", text, err)
	}
	return rate, nil
}

func parseQuantity(text string) (int, error) {
	qty, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return 0, fmt.Errorf("parse quantity %q: %w", text, err)
	}
	return qty, nil
}
