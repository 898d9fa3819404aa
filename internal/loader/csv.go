package loader

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// decode converts the input to UTF-8. BOM-marked UTF-8/UTF-16 is honoured,
// valid UTF-8 is kept, anything else is read as Windows-1252 (the usual
// spreadsheet export encoding for Spanish locales).
func decode(data []byte) ([]byte, string, error) {
	switch {
	case bytes.HasPrefix(data, bomUTF8):
		return data[len(bomUTF8):], "utf-8-bom", nil
	case bytes.HasPrefix(data, bomUTF16LE):
		out, _, err := transform.Bytes(unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder(), data)
		return out, "utf-16le", err
	case bytes.HasPrefix(data, bomUTF16BE):
		out, _, err := transform.Bytes(unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder(), data)
		return out, "utf-16be", err
	case utf8.Valid(data):
		return data, "utf-8", nil
	}
	out, _, err := transform.Bytes(charmap.Windows1252.NewDecoder(), data)
	return out, "windows-1252", err
}

// sniffDelimiter picks the most frequent of ',', ';' and tab on the header line.
func sniffDelimiter(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}
	best, bestCount := ',', bytes.Count(line, []byte{','})
	for _, d := range []rune{';', '\t'} {
		if n := bytes.Count(line, []byte(string(d))); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}

func readCSV(name string, data []byte) (*RawTable, error) {
	decoded, enc, err := decode(data)
	if err != nil {
		return nil, &FormatError{Source: name, Reason: "encoding detection failed", Err: err}
	}

	reader := csv.NewReader(bytes.NewReader(decoded))
	reader.Comma = sniffDelimiter(decoded)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	t := &RawTable{Source: name, Encoding: enc}
	var records [][]string
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) && len(records) > 0 {
				t.Warnings = append(t.Warnings, ParseWarning{
					Line:    len(records),
					Message: fmt.Sprintf("parse error: %v", err),
				})
				continue
			}
			return nil, &FormatError{Source: name, Reason: "failed to read header row", Err: err}
		}
		records = append(records, rec)
	}

	buildTable(t, records, 1, false)
	if t.Headers == nil {
		return nil, &FormatError{Source: name, Reason: "no header row found"}
	}
	return t, nil
}
