package model

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Budget is a non-negative amount that decodes leniently: numbers and
// numeric strings are accepted, anything else becomes 0.
type Budget float64

func (b Budget) Float() float64 {
	f := float64(b)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

func (b Budget) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatFloat(b.Float(), 'f', -1, 64)), nil
}

func (b *Budget) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*b = 0
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			*b = 0
			return nil
		}
		*b = ParseBudget(s)
		return nil
	}

	*b = ParseBudget(string(data))
	return nil
}

// ParseBudget converts free text to a Budget. Thousands separators are
// tolerated; invalid input, NaN and infinities yield 0.
func ParseBudget(s string) Budget {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return Budget(f)
}
