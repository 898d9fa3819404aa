package schema

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// mojibake maps UTF-8 Spanish accents that were decoded as Latin-1/Windows-1252
// back to the intended rune.
var mojibake = strings.NewReplacer(
	"Ã¡", "á",
	"Ã©", "é",
	"Ã­", "í",
	"Ã³", "ó",
	"Ãº", "ú",
	"Ã±", "ñ",
	"Ã\u0093", "Ó",
	"Ã“", "Ó",
	"Ã\u009a", "Ú",
	"Ãš", "Ú",
	"Ã\u0081", "Á",
	"Ã\u0089", "É",
	"Ã‰", "É",
	"Ã\u0091", "Ñ",
	"Ã‘", "Ñ",
)

// FixMojibake repairs the common double-encoded Spanish accents.
func FixMojibake(s string) string {
	return mojibake.Replace(s)
}

// StripDiacritics removes combining marks after NFKD decomposition, so "Año"
// becomes "Ano" and "Producción" becomes "Produccion".
func StripDiacritics(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// NormalizeKey folds a header or categorical value into its comparison key:
// mojibake repaired, lowercased, diacritics stripped, every non-alphanumeric
// rune turned into a space and whitespace collapsed.
//
//	NormalizeKey(" AÑO ") == "ano"
//	NormalizeKey("Tiempo de resolución (en horas)") == "tiempo de resolucion en horas"
func NormalizeKey(s string) string {
	s = StripDiacritics(strings.ToLower(strings.TrimSpace(FixMojibake(s))))
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
