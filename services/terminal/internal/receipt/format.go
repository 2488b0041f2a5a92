package receipt

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// DefaultCurrency is used when no currency code is configured.
const DefaultCurrency = "SAR"

// FormatDuration renders fractional hours as "45m", "2h" or "2h 15m".
func FormatDuration(hours float64) string {
	if hours < 0 {
		hours = 0
	}
	h := int(math.Floor(hours))
	m := int(math.Round((hours - float64(h)) * 60))
	if m == 60 {
		h++
		m = 0
	}
	switch {
	case h == 0:
		return fmt.Sprintf("%dm", m)
	case m == 0:
		return fmt.Sprintf("%dh", h)
	default:
		return fmt.Sprintf("%dh %dm", h, m)
	}
}

// FormatCurrency renders amount with two decimals followed by the currency code.
func FormatCurrency(amount float64, currency string) string {
	if currency == "" {
		currency = DefaultCurrency
	}
	return fmt.Sprintf("%.2f %s", amount, strings.ToUpper(currency))
}

// FormatTime renders a timestamp in the terminal's local zone.
func FormatTime(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return "-"
	}
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format("2006-01-02 15:04")
}
