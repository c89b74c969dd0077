package models

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// RawTransactionRecord is a provider transaction as decoded from JSON.
// Keys differ between provider schema versions, so lookups go through Lookup.
// Numbers should be decoded with UseNumber to keep amounts exact.
type RawTransactionRecord map[string]any

// Value implements driver.Valuer for JSONB payload columns
func (r RawTransactionRecord) Value() (driver.Value, error) {
	if r == nil {
		return nil, nil
	}
	return json.Marshal(r)
}

// Scan implements sql.Scanner for JSONB payload columns
func (r *RawTransactionRecord) Scan(value any) error {
	if value == nil {
		*r = nil
		return nil
	}

	var b []byte
	switch v := value.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return errors.New("type assertion to []byte failed")
	}

	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	return dec.Decode(r)
}

// Lookup resolves a dotted path such as "transactionAmount.amount"
func (r RawTransactionRecord) Lookup(path string) (any, bool) {
	var cur any = map[string]any(r)
	for _, part := range strings.Split(path, ".") {
		m, ok := asMap(cur)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok || cur == nil {
			return nil, false
		}
	}
	return cur, true
}

// String returns the first non-empty value among paths, rendered as text
func (r RawTransactionRecord) String(paths ...string) string {
	for _, p := range paths {
		v, ok := r.Lookup(p)
		if !ok {
			continue
		}
		if s := strings.TrimSpace(stringify(v)); s != "" {
			return s
		}
	}
	return ""
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case RawTransactionRecord:
		return m, true
	}
	return nil, false
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	case map[string]any, []any:
		return ""
	default:
		return fmt.Sprint(t)
	}
}
