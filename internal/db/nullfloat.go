package db

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// NullFloat is a nullable REAL column that tolerates legacy rows holding
// non-numeric text. Such text is kept in Text and Valid stays false.
type NullFloat struct {
	Float64 float64
	Valid   bool
	Text    string
}

// Float wraps v as a valid NullFloat.
func Float(v float64) NullFloat {
	return NullFloat{Float64: v, Valid: true}
}

// Scan implements sql.Scanner.
func (n *NullFloat) Scan(src interface{}) error {
	*n = NullFloat{}
	switch v := src.(type) {
	case nil:
		return nil
	case float64:
		n.Float64, n.Valid = v, true
	case int64:
		n.Float64, n.Valid = float64(v), true
	case []byte:
		n.setText(string(v))
	case string:
		n.setText(v)
	default:
		return fmt.Errorf("cannot scan %T into NullFloat", src)
	}
	return nil
}

func (n *NullFloat) setText(s string) {
	if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
		n.Float64, n.Valid = f, true
		return
	}
	n.Text = s
}

// Value implements driver.Valuer.
func (n NullFloat) Value() (driver.Value, error) {
	switch {
	case n.Valid:
		return n.Float64, nil
	case n.Text != "":
		return n.Text, nil
	}
	return nil, nil
}

// Number returns the value if it is present and finite.
func (n NullFloat) Number() (float64, error) {
	if !n.Valid {
		if n.Text != "" {
			return 0, fmt.Errorf("%q: %w", n.Text, ErrNotNumeric)
		}
		return 0, fmt.Errorf("no value: %w", ErrNotNumeric)
	}
	if math.IsNaN(n.Float64) || math.IsInf(n.Float64, 0) {
		return 0, fmt.Errorf("%v: %w", n.Float64, ErrNotNumeric)
	}
	return n.Float64, nil
}

// Ptr returns the value as a pointer, nil unless Valid.
func (n NullFloat) Ptr() *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}

func (n NullFloat) MarshalJSON() ([]byte, error) {
	switch {
	case n.Valid && !math.IsNaN(n.Float64) && !math.IsInf(n.Float64, 0):
		return json.Marshal(n.Float64)
	case n.Text != "":
		return json.Marshal(n.Text)
	}
	return []byte("null"), nil
}

func (n *NullFloat) UnmarshalJSON(data []byte) error {
	*n = NullFloat{}
	if string(data) == "null" {
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		n.Float64, n.Valid = f, true
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("NullFloat: %w", err)
	}
	if s != "" {
		n.setText(s)
	}
	return nil
}
