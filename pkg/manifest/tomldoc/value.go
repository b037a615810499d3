package tomldoc

import (
	"strconv"
	"strings"
)

// Value is a renderable TOML value for use with Document.SetKey.
type Value interface {
	render() string
}

type stringValue string

// String returns a TOML basic string value.
func String(s string) Value { return stringValue(s) }

func (v stringValue) render() string { return escapeBasic(string(v)) }

type boolValue bool

// Bool returns a TOML boolean value.
func Bool(b bool) Value { return boolValue(b) }

func (v boolValue) render() string { return strconv.FormatBool(bool(v)) }

type intValue int64

// Integer returns a TOML integer value.
func Integer(i int64) Value { return intValue(i) }

func (v intValue) render() string { return strconv.FormatInt(int64(v), 10) }

// Table is an ordered inline table value. Keys render in insertion order.
type Table struct {
	keys []string
	vals map[string]Value
}

// NewTable returns an empty inline table.
func NewTable() *Table {
	return &Table{vals: make(map[string]Value)}
}

// Set adds or replaces a key and returns the table for chaining.
func (t *Table) Set(key string, v Value) *Table {
	if _, ok := t.vals[key]; !ok {
		t.keys = append(t.keys, key)
	}
	t.vals[key] = v
	return t
}

func (t *Table) render() string {
	if len(t.keys) == 0 {
		return "{}"
	}
	var sb strings.Builder
	sb.WriteString("{ ")
	for i, k := range t.keys {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(renderKey(k))
		sb.WriteString(" = ")
		sb.WriteString(t.vals[k].render())
	}
	sb.WriteString(" }")
	return sb.String()
}
