package render

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Labels whose "not recorded" placeholder takes the feminine form.
var feminineLabels = map[string]bool{
	"Fecha de nacimiento":     true,
	"Aseguradora":             true,
	"Presión arterial":        true,
	"Frecuencia cardiaca":     true,
	"Frecuencia respiratoria": true,
	"Temperatura":             true,
	"Saturación de oxígeno":   true,
	"Talla":                   true,
	"Dirección":               true,
}

// NotRecorded is the placeholder shown for an absent value of label.
func NotRecorded(label string) string {
	if feminineLabels[label] {
		return "No registrada"
	}
	return "No registrado"
}

// OrNotRecorded returns value, or the placeholder for label when value is blank.
func OrNotRecorded(label, value string) string {
	if strings.TrimSpace(value) == "" {
		return NotRecorded(label)
	}
	return strings.TrimSpace(value)
}

// FormatDate renders the UTC calendar date as DD/MM/YYYY.
func FormatDate(t time.Time) string {
	u := t.UTC()
	return fmt.Sprintf("%02d/%02d/%04d", u.Day(), int(u.Month()), u.Year())
}

// FormatOptionalDate is FormatDate with the placeholder for nil.
func FormatOptionalDate(label string, t *time.Time) string {
	if t == nil || t.IsZero() {
		return NotRecorded(label)
	}
	return FormatDate(*t)
}

// FormatNumber prints v without trailing zeros.
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Measure renders a numeric vital with its unit, or the placeholder when absent.
// Zero is a real reading and is printed as such.
func Measure(label string, v *float64, unit string) string {
	if v == nil {
		return NotRecorded(label)
	}
	if unit == "" {
		return FormatNumber(*v)
	}
	return FormatNumber(*v) + " " + unit
}
