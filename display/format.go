package display

import (
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Placeholder is shown for values the backend did not send.
const Placeholder = "-"

var printer = message.NewPrinter(language.BrazilianPortuguese)

// dateLayouts are the timestamp shapes the backends send.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

// FormatBRL formats a value as Brazilian reais, e.g. R$ 1.234,50.
func FormatBRL(v float64) string {
	return printer.Sprintf("R$ %.2f", v)
}

// FormatOptionalBRL formats v, or returns Placeholder when v is nil.
func FormatOptionalBRL(v *float64) string {
	if v == nil {
		return Placeholder
	}
	return FormatBRL(*v)
}

// FormatDate renders a backend timestamp as dd/mm/yyyy. Unparseable input
// is returned as is.
func FormatDate(s string) string {
	return formatTime(s, "02/01/2006")
}

// FormatDateTime renders a backend timestamp as dd/mm/yyyy hh:mm.
func FormatDateTime(s string) string {
	return formatTime(s, "02/01/2006 15:04")
}

func formatTime(s, layout string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return Placeholder
	}
	for _, l := range dateLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t.Format(layout)
		}
	}
	return s
}

// ValidationBadge is the label of the documentoValidado flag.
func ValidationBadge(validated bool) string {
	if validated {
		return "Validado"
	}
	return "Não Validado"
}

// OrDash returns s, or Placeholder when s is blank.
func OrDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return Placeholder
	}
	return s
}
