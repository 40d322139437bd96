package utils

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func FormatFloat(num float64, precision int) string {
	p := message.NewPrinter(language.English)
	f := fmt.Sprintf("%%.%vf", precision)
	s := p.Sprintf(f, num)
	if precision > 0 {
		s = strings.TrimRight(strings.TrimRight(s, "0"), ".")
	}
	if s == "" || s == "-" || s == "-0" {
		return "0"
	}
	return s
}

// FormatPercent renders a fraction (0.825) as a percentage ("82.5%").
func FormatPercent(fraction float64) string {
	return FormatFloat(fraction*100, 2) + "%"
}

// FormatCap renders a supply or borrow cap, where zero means no cap.
func FormatCap(capValue uint64, symbol string) string {
	if capValue == 0 {
		return "unlimited"
	}
	p := message.NewPrinter(language.English)
	if symbol == "" {
		return p.Sprintf("%d", capValue)
	}
	return p.Sprintf("%d %s", capValue, symbol)
}
