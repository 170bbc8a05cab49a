// Package codec turns schema-ordered field values into the bytes (or rows)
// written to a segment, and reads them back.
package codec

import (
	"fmt"

	"github.com/coffersTech/seglog/internal/model"
	"github.com/pkg/errors"
)

// Version is written into the binary segment headers.
const Version = 1

// Entry is one encoded unit handed to a segment writer. Byte formats fill
// Data; the tabular format fills Row.
type Entry struct {
	Data []byte
	Row  []any
}

// Size is the number of bytes the entry occupies in a byte segment.
func (e Entry) Size() int {
	return len(e.Data)
}

// Empty reports whether the entry carries nothing to write.
func (e Entry) Empty() bool {
	return len(e.Data) == 0 && len(e.Row) == 0
}

// Encoder serializes records for one format. The set of implementations is
// closed; use For to obtain one.
type Encoder interface {
	Format() Format
	// Header builds the schema framing written at the start of every segment.
	Header(schema model.Schema) (Entry, error)
	Encode(schema model.Schema, rec model.Record) (Entry, error)
	sealed()
}

// For returns the encoder of f.
func For(f Format) (Encoder, error) {
	switch f {
	case CSV:
		return csvEncoder{}, nil
	case FixedBinary:
		return fixedEncoder{}, nil
	case TLV:
		return tlvEncoder{}, nil
	case Tabular:
		return tabularEncoder{}, nil
	default:
		return nil, errors.Wrapf(ErrUnsupportedFormat, "format %d", f)
	}
}

// EncodeRaw wraps a pre-encoded payload. Only binary formats accept one.
func EncodeRaw(f Format, raw []byte) (Entry, error) {
	if !f.Binary() {
		return Entry{}, errors.Wrapf(ErrRawUnsupported, "format %s", f)
	}
	data := make([]byte, len(raw))
	copy(data, raw)
	return Entry{Data: data}, nil
}

// fieldName names field i for error messages. Positional formats may run
// without a schema.
func fieldName(schema model.Schema, i int) string {
	if i < len(schema) {
		return schema[i]
	}
	return fmt.Sprintf("#%d", i)
}

// rejectNull fails on null values, which only TLV can represent.
func rejectNull(schema model.Schema, rec model.Record) error {
	for i, v := range rec {
		if v == nil {
			return errors.Wrapf(ErrUnsupportedType, "field %q: null", fieldName(schema, i))
		}
	}
	return nil
}

func checkArity(schema model.Schema, rec model.Record) error {
	if len(schema) == 0 {
		return ErrNoSchema
	}
	if len(rec) != len(schema) {
		return errors.Wrapf(ErrSchemaMismatch, "got %d values for %d fields", len(rec), len(schema))
	}
	return nil
}
