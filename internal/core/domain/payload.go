package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Payload is the schemaless metadata attached to a vector point.
type Payload map[string]any

// String returns the field rendered as text. Missing and null fields report
// false.
func (p Payload) String(key string) (string, bool) {
	v, ok := p[key]
	if !ok || v == nil {
		return "", false
	}
	return stringify(v), true
}

// StringOr returns the field as text or fallback when it is absent.
func (p Payload) StringOr(key, fallback string) string {
	if s, ok := p.String(key); ok {
		return s
	}
	return fallback
}

// Int returns an integral field. Numeric strings are accepted.
func (p Payload) Int(key string) (int, bool) {
	v, ok := p[key]
	if !ok || v == nil {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	case string:
		i, err := strconv.Atoi(n)
		if err != nil {
			return 0, false
		}
		return i, true
	default:
		return 0, false
	}
}

// Strings returns a list field. A scalar is not promoted to a list.
func (p Payload) Strings(key string) []string {
	switch list := p[key].(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if item == nil {
				continue
			}
			out = append(out, stringify(item))
		}
		return out
	default:
		return nil
	}
}

func stringify(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case json.Number:
		return s.String()
	case float64:
		if s == math.Trunc(s) && math.Abs(s) < 1e15 {
			return strconv.FormatInt(int64(s), 10)
		}
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int:
		return strconv.Itoa(s)
	case int64:
		return strconv.FormatInt(s, 10)
	case bool:
		return strconv.FormatBool(s)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// VectorHit is one point returned by the vector store.
type VectorHit struct {
	ID      string
	Payload Payload
	Vector  []float32
	Score   float64
}
