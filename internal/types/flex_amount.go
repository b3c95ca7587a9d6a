package types

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// FlexAmount is a money amount in minor currency units (cents) that can be
// unmarshaled from a JSON number or string in major units, e.g. 12.34,
// "12.34", "12" all become 1234 cents. Parsing is done on the decimal text,
// never through a float.
type FlexAmount int64

// UnmarshalJSON implements the json.Unmarshaler interface.
func (f *FlexAmount) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}

	text := string(data)
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		text = s
	}

	cents, err := ParseAmount(text)
	if err != nil {
		return err
	}
	*f = FlexAmount(cents)
	return nil
}

// MarshalJSON implements the json.Marshaler interface.
func (f FlexAmount) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(FormatAmount(int64(f)))), nil
}

// Int64 converts FlexAmount back to int64 cents.
func (f FlexAmount) Int64() int64 {
	return int64(f)
}

// ParseAmount converts decimal money text in major units to cents.
// At most two fractional digits are accepted.
func ParseAmount(text string) (int64, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, nil
	}

	negative := false
	if strings.HasPrefix(text, "-") {
		negative = true
		text = text[1:]
	}

	whole, frac := text, ""
	if i := strings.IndexByte(text, '.'); i >= 0 {
		whole, frac = text[:i], text[i+1:]
	}
	if whole == "" {
		whole = "0"
	}
	if len(frac) > 2 {
		return 0, fmt.Errorf("FlexAmount: more than two fractional digits in %q", text)
	}
	for len(frac) < 2 {
		frac += "0"
	}

	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("FlexAmount: invalid amount %q: %w", text, err)
	}
	cents, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("FlexAmount: invalid amount %q: %w", text, err)
	}

	total := units*100 + cents
	if negative {
		total = -total
	}
	return total, nil
}

// FormatAmount renders cents as decimal money text in major units.
func FormatAmount(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}
