// Package fieldmap provides reflection-based mapping between struct fields
// and named external columns, driven by `dsm:"..."` struct tags.
//
// Tag syntax: `dsm:"COLUMN"` binds a field to a column, `dsm:"COLUMN,key"`
// marks it as the key column (exactly one per struct). Untagged fields are
// not mirrored. Supported field types: booleans, all integer kinds, floats,
// strings and time.Time.
package fieldmap

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

const tagName = "dsm"

// timeFormat is the rendering used for time.Time columns
const timeFormat = time.RFC3339Nano

var timeType = reflect.TypeOf(time.Time{})

// --------------------------------------------------------------------------
// Types
// --------------------------------------------------------------------------

// FieldValue is a single rendered column of a mapped struct
type FieldValue struct {
	Column string
	Value  string
}

// boundField binds one struct field to its column
type boundField struct {
	column string
	index  int // struct field index
	isKey  bool
}

// Mapper maps values of type V to and from their column representation.
//
// Thread-safety: a Mapper is immutable after construction and safe for
// concurrent use.
type Mapper[V any] struct {
	typ       reflect.Type
	fields    []boundField
	byColumn  map[string]int // column name (upper case) -> fields index
	keyColumn string
	keyIndex  int
}

// --------------------------------------------------------------------------
// Construction
// --------------------------------------------------------------------------

// New creates a mapper for the struct type V by scanning its field tags.
func New[V any]() (*Mapper[V], error) {
	typ := reflect.TypeOf((*V)(nil)).Elem()
	if typ.Kind() != reflect.Struct {
		return nil, fmt.Errorf("fieldmap: %s is not a struct type", typ)
	}

	m := &Mapper[V]{
		typ:      typ,
		byColumn: make(map[string]int),
		keyIndex: -1,
	}

	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)

		tag, ok := field.Tag.Lookup(tagName)
		if !ok || tag == "" {
			continue
		}

		column, opts, _ := strings.Cut(tag, ",")
		column = strings.ToUpper(strings.TrimSpace(column))
		if column == "" {
			return nil, fmt.Errorf("fieldmap: field %s.%s has an empty column name", typ, field.Name)
		}

		if !field.IsExported() {
			return nil, fmt.Errorf("fieldmap: field %s.%s is tagged but not exported", typ, field.Name)
		}

		if !supportedType(field.Type) {
			return nil, fmt.Errorf("fieldmap: field %s.%s has unsupported type %s", typ, field.Name, field.Type)
		}

		if _, exists := m.byColumn[column]; exists {
			return nil, fmt.Errorf("fieldmap: duplicate column %s in %s", column, typ)
		}

		isKey := opts == "key"
		if isKey {
			if m.keyIndex != -1 {
				return nil, fmt.Errorf("fieldmap: multiple key fields in %s", typ)
			}
			m.keyIndex = len(m.fields)
			m.keyColumn = column
		}

		m.byColumn[column] = len(m.fields)
		m.fields = append(m.fields, boundField{column: column, index: i, isKey: isKey})
	}

	if m.keyIndex == -1 {
		return nil, fmt.Errorf("fieldmap: no key field in %s (tag a field with `%s:\"NAME,key\"`)", typ, tagName)
	}

	return m, nil
}

// supportedType reports whether the mapper can render and parse the type
func supportedType(t reflect.Type) bool {
	if t == timeType {
		return true
	}
	switch t.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}

// --------------------------------------------------------------------------
// Rendering (struct -> columns)
// --------------------------------------------------------------------------

// KeyColumn returns the name of the key column
func (m *Mapper[V]) KeyColumn() string {
	return m.keyColumn
}

// Columns returns all column names with the key column first
func (m *Mapper[V]) Columns() []string {
	cols := make([]string, 0, len(m.fields))
	cols = append(cols, m.keyColumn)
	for _, f := range m.fields {
		if !f.isKey {
			cols = append(cols, f.column)
		}
	}
	return cols
}

// KeyValue renders the key column of a value
func (m *Mapper[V]) KeyValue(v V) string {
	return renderField(reflect.ValueOf(v).Field(m.fields[m.keyIndex].index))
}

// KeyOf returns the raw (unrendered) key field of a value
func (m *Mapper[V]) KeyOf(v V) any {
	return reflect.ValueOf(v).Field(m.fields[m.keyIndex].index).Interface()
}

// Fields renders all bound columns of a value, the key column first.
// With skipKey set the key column is left out.
func (m *Mapper[V]) Fields(v V, skipKey bool) []FieldValue {
	rv := reflect.ValueOf(v)

	result := make([]FieldValue, 0, len(m.fields))
	if !skipKey {
		result = append(result, FieldValue{Column: m.keyColumn, Value: m.KeyValue(v)})
	}

	for _, f := range m.fields {
		if f.isKey {
			continue
		}
		result = append(result, FieldValue{Column: f.column, Value: renderField(rv.Field(f.index))})
	}

	return result
}

// renderField renders a single struct field as a string
func renderField(fv reflect.Value) string {
	if fv.Type() == timeType {
		return fv.Interface().(time.Time).Format(timeFormat)
	}

	switch fv.Kind() {
	case reflect.Bool:
		return strconv.FormatBool(fv.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(fv.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(fv.Uint(), 10)
	case reflect.Float32:
		return strconv.FormatFloat(fv.Float(), 'g', -1, 32)
	case reflect.Float64:
		return strconv.FormatFloat(fv.Float(), 'g', -1, 64)
	default:
		return fv.String()
	}
}

// --------------------------------------------------------------------------
// Parsing (columns -> struct)
// --------------------------------------------------------------------------

// SetColumn parses a rendered column value into the corresponding field of
// target. Unknown columns return an error so callers can decide whether to
// skip or fail.
func (m *Mapper[V]) SetColumn(target *V, column, raw string) error {
	idx, ok := m.byColumn[strings.ToUpper(strings.TrimSpace(column))]
	if !ok {
		return fmt.Errorf("fieldmap: unknown column %s for %s", column, m.typ)
	}

	fv := reflect.ValueOf(target).Elem().Field(m.fields[idx].index)

	if fv.Type() == timeType {
		t, err := time.Parse(timeFormat, raw)
		if err != nil {
			return fmt.Errorf("fieldmap: column %s: %v", column, err)
		}
		fv.Set(reflect.ValueOf(t))
		return nil
	}

	switch fv.Kind() {
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("fieldmap: column %s: %v", column, err)
		}
		fv.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("fieldmap: column %s: %v", column, err)
		}
		fv.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("fieldmap: column %s: %v", column, err)
		}
		fv.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("fieldmap: column %s: %v", column, err)
		}
		fv.SetFloat(f)
	case reflect.String:
		fv.SetString(raw)
	}

	return nil
}
