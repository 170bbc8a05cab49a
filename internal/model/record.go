package model

import (
	"math"

	"github.com/pkg/errors"
)

var (
	// ErrUnsupportedType is returned for field values outside the supported scalar kinds.
	ErrUnsupportedType = errors.New("unsupported field type")

	// ErrSchemaMismatch is returned when a record does not line up with the schema.
	ErrSchemaMismatch = errors.New("record does not match schema")
)

// Kind identifies the scalar type of a normalized field value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindBytes
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindBytes:
		return "bytes"
	default:
		return "unknown"
	}
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	for k := KindNull; k <= KindBytes; k++ {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, errors.Wrapf(ErrUnsupportedType, "unknown kind %q", s)
}

// Schema is the ordered list of field names of a logger instance.
type Schema []string

// Len returns the number of fields.
func (s Schema) Len() int {
	return len(s)
}

// Index returns the position of name in the schema, or -1.
func (s Schema) Index(name string) int {
	for i, n := range s {
		if n == name {
			return i
		}
	}
	return -1
}

// Record is a structured log entry: one value per schema field, in schema order.
type Record []any

// Fields is the mapping form of a structured record.
type Fields map[string]any

// Raw is a pre-encoded record handed to a binary format unchanged.
type Raw []byte

// Resolve orders fields by the schema. Names missing from fields take the
// missing value; names unknown to the schema are an error.
func (f Fields) Resolve(s Schema, missing any) (Record, error) {
	rec := make(Record, len(s))
	matched := 0
	for i, name := range s {
		if v, ok := f[name]; ok {
			rec[i] = v
			matched++
			continue
		}
		rec[i] = missing
	}
	if matched != len(f) {
		for name := range f {
			if s.Index(name) < 0 {
				return nil, errors.Wrapf(ErrSchemaMismatch, "field %q is not part of the schema", name)
			}
		}
	}
	return rec, nil
}

// Normalize maps a Go value onto one of the supported kinds, widening integers
// to int64 and floats to float64.
func Normalize(v any) (any, Kind, error) {
	switch x := v.(type) {
	case nil:
		return nil, KindNull, nil
	case bool:
		return x, KindBool, nil
	case int:
		return int64(x), KindInt, nil
	case int8:
		return int64(x), KindInt, nil
	case int16:
		return int64(x), KindInt, nil
	case int32:
		return int64(x), KindInt, nil
	case int64:
		return x, KindInt, nil
	case uint8:
		return int64(x), KindInt, nil
	case uint16:
		return int64(x), KindInt, nil
	case uint32:
		return int64(x), KindInt, nil
	case uint:
		if uint64(x) > math.MaxInt64 {
			return nil, KindNull, errors.Wrapf(ErrUnsupportedType, "uint value %d overflows int64", x)
		}
		return int64(x), KindInt, nil
	case uint64:
		if x > math.MaxInt64 {
			return nil, KindNull, errors.Wrapf(ErrUnsupportedType, "uint64 value %d overflows int64", x)
		}
		return int64(x), KindInt, nil
	case float32:
		return float64(x), KindFloat, nil
	case float64:
		return x, KindFloat, nil
	case string:
		return x, KindString, nil
	case []byte:
		return x, KindBytes, nil
	case Raw:
		return []byte(x), KindBytes, nil
	default:
		return nil, KindNull, errors.Wrapf(ErrUnsupportedType, "%T", v)
	}
}
