package normalize

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"ticket-kpi-exporter/internal/schema"
)

type coerceFunc func(n *Normalizer, f schema.Field, idx categoryIndex, raw string) (Value, error)

// coercers holds one coercion per semantic type.
var coercers = map[schema.SemanticType]coerceFunc{
	schema.TypeString:    coerceString,
	schema.TypeText:      coerceText,
	schema.TypeTimestamp: coerceTimestamp,
	schema.TypeDate:      coerceDate,
	schema.TypeDuration:  coerceDuration,
	schema.TypeNumber:    coerceNumber,
	schema.TypeInteger:   coerceInteger,
	schema.TypeCategory:  coerceCategory,
	schema.TypeTags:      coerceTags,
	schema.TypeMonth:     coerceMonth,
}

func (n *Normalizer) coerce(f schema.Field, idx categoryIndex, raw string) (Value, error) {
	fn, ok := coercers[f.Type]
	if !ok {
		return Value{}, fmt.Errorf("no coercion for type %s", f.Type)
	}
	v, err := fn(n, f, idx, raw)
	if err != nil {
		return Value{}, err
	}
	v.Type = f.Type
	v.Raw = raw
	return v, nil
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func coerceString(_ *Normalizer, _ schema.Field, _ categoryIndex, raw string) (Value, error) {
	return Value{Str: collapse(raw), Known: true}, nil
}

func coerceText(_ *Normalizer, _ schema.Field, _ categoryIndex, raw string) (Value, error) {
	return Value{Str: raw, Known: true}, nil
}

// Excel serial day numbers count from 1899-12-30. Anything outside
// 1900..9999 is not treated as a serial.
var excelEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

const maxExcelSerial = 2958465

func (n *Normalizer) parseTime(raw string) (time.Time, error) {
	if serial, err := strconv.ParseFloat(raw, 64); err == nil {
		if serial < 1 || serial > maxExcelSerial {
			return time.Time{}, fmt.Errorf("serial %s out of range", raw)
		}
		days := math.Floor(serial)
		secs := math.Round((serial - days) * 86400)
		t := excelEpoch.AddDate(0, 0, int(days)).Add(time.Duration(secs) * time.Second)
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, n.loc), nil
	}
	var err error
	for _, layout := range n.layouts {
		var t time.Time
		t, err = time.ParseInLocation(layout, raw, n.loc)
		if err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("no accepted layout matches %q", raw)
}

func coerceTimestamp(n *Normalizer, _ schema.Field, _ categoryIndex, raw string) (Value, error) {
	t, err := n.parseTime(raw)
	if err != nil {
		return Value{}, err
	}
	return Value{Time: t, Known: true}, nil
}

func coerceDate(n *Normalizer, _ schema.Field, _ categoryIndex, raw string) (Value, error) {
	t, err := n.parseTime(raw)
	if err != nil {
		return Value{}, err
	}
	return Value{Time: time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location()), Known: true}, nil
}

var clockDuration = regexp.MustCompile(`^(\d+):([0-5]?\d)(?::([0-5]?\d))?$`)

// coerceDuration accepts "hh:mm[:ss]" (hours may exceed 24), Go duration
// strings such as "4h30m", and bare numbers read as hours.
func coerceDuration(_ *Normalizer, _ schema.Field, _ categoryIndex, raw string) (Value, error) {
	if m := clockDuration.FindStringSubmatch(raw); m != nil {
		h, _ := strconv.Atoi(m[1])
		mins, _ := strconv.Atoi(m[2])
		secs := 0
		if m[3] != "" {
			secs, _ = strconv.Atoi(m[3])
		}
		d := time.Duration(h)*time.Hour + time.Duration(mins)*time.Minute + time.Duration(secs)*time.Second
		return Value{Dur: d, Known: true}, nil
	}
	if d, err := time.ParseDuration(raw); err == nil {
		if d < 0 {
			return Value{}, errors.New("negative duration")
		}
		return Value{Dur: d, Known: true}, nil
	}
	hours, err := ParseDecimal(raw)
	if err != nil {
		return Value{}, err
	}
	if hours.IsNegative() {
		return Value{}, errors.New("negative duration")
	}
	secs := hours.Mul(decimal.NewFromInt(3600)).Round(0).IntPart()
	return Value{Dur: time.Duration(secs) * time.Second, Num: hours.InexactFloat64(), Known: true}, nil
}

// ParseDecimal reads a number written with either '.' or ',' as the decimal
// separator. When both appear, the rightmost one is the decimal separator; a
// separator repeated more than once is a thousands separator.
func ParseDecimal(raw string) (decimal.Decimal, error) {
	s := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\u00a0', '\u202f', '\'':
			return -1
		}
		return r
	}, raw)
	dot, comma := strings.LastIndex(s, "."), strings.LastIndex(s, ",")
	switch {
	case dot >= 0 && comma >= 0:
		if comma > dot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case comma >= 0:
		if strings.Count(s, ",") > 1 {
			s = strings.ReplaceAll(s, ",", "")
		} else {
			s = strings.Replace(s, ",", ".", 1)
		}
	case dot >= 0 && strings.Count(s, ".") > 1:
		s = strings.ReplaceAll(s, ".", "")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("not a number: %q", raw)
	}
	return d, nil
}

func coerceNumber(_ *Normalizer, _ schema.Field, _ categoryIndex, raw string) (Value, error) {
	d, err := ParseDecimal(raw)
	if err != nil {
		return Value{}, err
	}
	return Value{Num: d.InexactFloat64(), Known: true}, nil
}

// coerceInteger accepts non-negative whole numbers, including "120.0" as
// written by spreadsheet exports.
func coerceInteger(_ *Normalizer, _ schema.Field, _ categoryIndex, raw string) (Value, error) {
	d, err := ParseDecimal(raw)
	if err != nil {
		return Value{}, err
	}
	if !d.IsInteger() {
		return Value{}, fmt.Errorf("%q is not a whole number", raw)
	}
	if d.IsNegative() {
		return Value{}, fmt.Errorf("%q is negative", raw)
	}
	i := d.IntPart()
	return Value{Int: i, Num: float64(i), Known: true}, nil
}

func coerceCategory(_ *Normalizer, f schema.Field, idx categoryIndex, raw string) (Value, error) {
	label, known := idx.lookup(f.Name, raw)
	return Value{Str: label, Known: known}, nil
}

func coerceTags(_ *Normalizer, _ schema.Field, _ categoryIndex, raw string) (Value, error) {
	parts := strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ';' || r == '|' })
	seen := make(map[string]bool, len(parts))
	var tags []string
	for _, p := range parts {
		p = collapse(p)
		if p == "" || seen[strings.ToLower(p)] {
			continue
		}
		seen[strings.ToLower(p)] = true
		tags = append(tags, p)
	}
	return Value{Tags: tags, Str: strings.Join(tags, ", "), Known: true}, nil
}

// coerceMonth accepts 1..12 or a configured month name.
func coerceMonth(n *Normalizer, _ schema.Field, _ categoryIndex, raw string) (Value, error) {
	if d, err := ParseDecimal(raw); err == nil {
		if !d.IsInteger() || d.IntPart() < 1 || d.IntPart() > 12 {
			return Value{}, fmt.Errorf("month %q out of range 1-12", raw)
		}
		return Value{Int: d.IntPart(), Known: true}, nil
	}
	if m, ok := n.months[schema.NormalizeKey(raw)]; ok {
		return Value{Int: int64(m), Str: raw, Known: true}, nil
	}
	return Value{}, fmt.Errorf("unknown month %q", raw)
}
