package utils

import (
	"strings"
)

var accentFold = strings.NewReplacer(
	"á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u", "ñ", "n",
	"Á", "a", "É", "e", "Í", "i", "Ó", "o", "Ú", "u", "Ñ", "n",
)

// Slugify normalizes a company name into the deterministic id fragment used
// for document keys: lowercase, accents folded, non-alphanumeric runs
// collapsed to a single dash. The result is stable across runs; day and
// unit-day ids are derived from it.
func Slugify(s string) string {
	s = accentFold.Replace(strings.TrimSpace(s))
	s = strings.ToLower(s)

	var b strings.Builder
	lastDash := true // avoid a leading dash
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// DayKey returns the reportes_dia document id for a company and ISO date.
func DayKey(empresa, fecha string) string {
	return Slugify(empresa) + "_" + fecha
}

// UnidadKey returns the unidades document id for a company and unit code.
// The same derivation keys unit-day records under their day header.
func UnidadKey(empresa, codigo string) string {
	return Slugify(empresa) + "_" + strings.TrimSpace(codigo)
}
