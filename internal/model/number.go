package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Number is a numeric column kept in its stored textual form. Rewriting a
// record writes the text back unchanged; the JSON view is normalised to a
// valid JSON number when the stored text is not one already (for example
// "+1500.50" or " 720").
type Number string

func (n Number) String() string { return string(n) }

// Float64 parses the value. Surrounding spaces and a leading '+' are
// accepted.
func (n Number) Float64() (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(string(n)), 64)
}

// Int64 parses the value as a base-10 integer.
func (n Number) Int64() (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(string(n)), 10, 64)
}

// finite reports whether the value parses to a finite float.
func (n Number) finite() bool {
	f, err := n.Float64()
	return err == nil && !math.IsNaN(f) && !math.IsInf(f, 0)
}

func (n Number) MarshalJSON() ([]byte, error) {
	s := strings.TrimSpace(string(n))
	if s == "" {
		return []byte("0"), nil
	}
	if isJSONNumber(s) {
		return []byte(s), nil
	}
	f, err := n.Float64()
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("invalid number %q", string(n))
	}
	return strconv.AppendFloat(nil, f, 'f', -1, 64), nil
}

func (n *Number) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*n = ""
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*n = Number(s)
	default:
		if !isJSONNumber(string(b)) {
			return fmt.Errorf("invalid number %q", b)
		}
		*n = Number(b)
	}
	return nil
}

func isJSONNumber(s string) bool {
	if s == "" || (s[0] != '-' && (s[0] < '0' || s[0] > '9')) {
		return false
	}
	return json.Valid([]byte(s))
}
