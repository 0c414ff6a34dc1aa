package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
)

// EmptyPlaceholder is written instead of an empty file
const EmptyPlaceholder = "No data"

// Row is a flat record whose keys keep their insertion order
type Row struct {
	keys   []string
	values map[string]interface{}
}

// NewRow builds a row from alternating key, value pairs
func NewRow(pairs ...interface{}) *Row {
	r := &Row{values: make(map[string]interface{})}
	for i := 0; i+1 < len(pairs); i += 2 {
		r.Set(fmt.Sprint(pairs[i]), pairs[i+1])
	}
	return r
}

// Set stores a value, appending the key on first use
func (r *Row) Set(key string, value interface{}) *Row {
	if r.values == nil {
		r.values = make(map[string]interface{})
	}
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = value
	return r
}

// Get returns the value stored under key
func (r *Row) Get(key string) (interface{}, bool) {
	if r == nil {
		return nil, false
	}
	v, ok := r.values[key]
	return v, ok
}

// Keys returns the keys in insertion order
func (r *Row) Keys() []string {
	if r == nil {
		return nil
	}
	return append([]string(nil), r.keys...)
}

// Options changes how edge cases are written
type Options struct {
	// HeaderOnlyWhenEmpty writes just the header line for empty input
	// instead of the placeholder, when columns are known.
	HeaderOnlyWhenEmpty bool
}

// Delimited writes rows as CSV with the default options
func Delimited(rows []*Row, columns []string) []byte {
	return Write(rows, columns, Options{})
}

// Write serializes rows as comma separated text. With no columns the header
// is the union of all row keys in first-appearance order. Fields containing
// a comma, a quote or a line break are quoted with inner quotes doubled.
func Write(rows []*Row, columns []string, opts Options) []byte {
	if len(rows) == 0 && !(opts.HeaderOnlyWhenEmpty && len(columns) > 0) {
		return []byte(EmptyPlaceholder)
	}
	if len(columns) == 0 {
		columns = unionKeys(rows)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	// writes go to memory, so errors are not possible here
	_ = w.Write(columns)
	record := make([]string, len(columns))
	for _, row := range rows {
		for i, col := range columns {
			v, _ := row.Get(col)
			record[i] = Stringify(v)
		}
		_ = w.Write(record)
	}
	w.Flush()
	return buf.Bytes()
}

// Stringify renders one cell: nil is empty, objects and slices become JSON
func Stringify(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case *float64:
		if t == nil {
			return ""
		}
		return strconv.FormatFloat(*t, 'f', -1, 64)
	default:
		rv := reflect.ValueOf(t)
		switch rv.Kind() {
		case reflect.String:
			return rv.String()
		case reflect.Ptr, reflect.Slice, reflect.Map, reflect.Interface:
			if rv.IsNil() {
				return ""
			}
		}
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(data)
	}
}

func unionKeys(rows []*Row) []string {
	seen := make(map[string]bool)
	var keys []string
	for _, row := range rows {
		for _, key := range row.Keys() {
			if !seen[key] {
				seen[key] = true
				keys = append(keys, key)
			}
		}
	}
	return keys
}
