package cli

import (
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// formatPrice renders minor units as "1,249.00 EUR".
func formatPrice(minor int64, currency string) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	s := sign + printer.Sprintf("%d", minor/100) + fmt.Sprintf(".%02d", minor%100)
	if currency == "" {
		return s
	}
	return s + " " + currency
}
