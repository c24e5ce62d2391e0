package infer

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/jarom-bradshaw/excel-to-streamlit/internal/dataset"
	"github.com/jarom-bradshaw/excel-to-streamlit/internal/schema"
)

// Classify decides the logical type of one column from its non-missing cells.
//
// Decision order (first match wins):
//  1. no values                         -> text
//  2. every value natively a timestamp  -> date
//  3. every value an integer            -> integer
//  4. every value numeric               -> float
//  5. every value parses as a date      -> date
//  6. otherwise                         -> text
//
// Numeric-looking strings are consumed by steps 3-4 before the date fallback
// so ambiguous digit strings are never misread as dates. A mixed column (one
// numeric value, one textual) lands on text because no narrower type covers
// every observed value. This is a closed-world decision over the sampled
// values only; later writes that do not fit are the store's problem.
func Classify(values []dataset.Cell) schema.Type {
	present := make([]dataset.Cell, 0, len(values))
	for _, c := range values {
		if !c.IsNull() {
			present = append(present, c)
		}
	}
	if len(present) == 0 {
		return schema.Text
	}

	allNative := true
	allInt := true
	allNum := true
	allDate := true
	for _, c := range present {
		if _, ok := c.Time(); !ok {
			allNative = false
		}
		isInt, isNum := numericShape(c)
		if !isInt {
			allInt = false
		}
		if !isNum {
			allNum = false
		}
		if !cellParsesAsDate(c) {
			allDate = false
		}
	}

	switch {
	case allNative:
		return schema.Date
	case allInt:
		return schema.Integer
	case allNum:
		return schema.Float
	case allDate:
		return schema.Date
	default:
		return schema.Text
	}
}

// numericShape reports whether a cell is interpretable as an integer (no
// fractional residue) and whether it is numeric at all.
func numericShape(c dataset.Cell) (isInt, isNum bool) {
	switch c.Kind() {
	case dataset.KindInt:
		return true, true
	case dataset.KindFloat:
		f, _ := c.Float()
		return math.Trunc(f) == f && !math.IsInf(f, 0), true
	case dataset.KindText:
		s, _ := c.Text()
		s = strings.TrimSpace(s)
		if _, err := strconv.ParseInt(s, 10, 64); err == nil {
			return true, true
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return false, false
		}
		return math.Trunc(f) == f && !math.IsInf(f, 0), true
	default:
		return false, false
	}
}

// dateLayouts are the loose layouts accepted for text values during
// classification, most specific first. ISO timestamps are included so columns
// of canonical strings written by the store classify back to date.
var dateLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02.01.2006",
	"02/01/2006",
	"01/02/2006",
}

func cellParsesAsDate(c dataset.Cell) bool {
	if _, ok := c.Time(); ok {
		return true
	}
	s, ok := c.Text()
	if !ok {
		return false
	}
	_, parsed := parseDateLoose(s)
	return parsed
}

// ParseDate parses a text value against the supported date layouts. The
// store uses it to normalize date-typed text before binding.
func ParseDate(s string) (time.Time, bool) {
	return parseDateLoose(s)
}

// parseDateLoose tries each supported layout in order.
func parseDateLoose(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, lay := range dateLayouts {
		if t, err := time.Parse(lay, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
