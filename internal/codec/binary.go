package codec

import (
	"encoding/binary"
	"math"

	"github.com/coffersTech/seglog/internal/model"
	"github.com/pkg/errors"
)

// BinaryMagic opens every fixed-binary segment.
var BinaryMagic = []byte("LOG1")

// fixedEncoder writes values back to back with no per-record framing:
// bool 1 byte, int and float 8 bytes little-endian, text NUL-terminated,
// bytes verbatim.
type fixedEncoder struct{}

func (fixedEncoder) sealed() {}

func (fixedEncoder) Format() Format { return FixedBinary }

// Header layout: MAGIC(4) + version(1) + count(1) + [len(1) + name]*.
func (fixedEncoder) Header(schema model.Schema) (Entry, error) {
	if len(schema) == 0 {
		return Entry{}, nil
	}
	if len(schema) > math.MaxUint8 {
		return Entry{}, errors.Wrapf(ErrSchemaTooLarge, "%d fields", len(schema))
	}

	buf := make([]byte, 0, 6+8*len(schema))
	buf = append(buf, BinaryMagic...)
	buf = append(buf, Version, byte(len(schema)))
	for _, name := range schema {
		if len(name) > math.MaxUint8 {
			return Entry{}, errors.Wrapf(ErrSchemaTooLarge, "field name %q", name)
		}
		buf = append(buf, byte(len(name)))
		buf = append(buf, name...)
	}
	return Entry{Data: buf}, nil
}

func (fixedEncoder) Encode(schema model.Schema, rec model.Record) (Entry, error) {
	if err := checkArity(schema, rec); err != nil {
		return Entry{}, err
	}

	buf := make([]byte, 0, 9*len(rec))
	for i, v := range rec {
		nv, kind, err := model.Normalize(v)
		if err != nil {
			return Entry{}, errors.Wrapf(err, "field %q", schema[i])
		}
		switch kind {
		case model.KindBool:
			if nv.(bool) {
				buf = append(buf, 1)
			} else {
				buf = append(buf, 0)
			}
		case model.KindInt:
			buf = binary.LittleEndian.AppendUint64(buf, uint64(nv.(int64)))
		case model.KindFloat:
			buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(nv.(float64)))
		case model.KindString:
			buf = append(buf, nv.(string)...)
			buf = append(buf, 0)
		case model.KindBytes:
			buf = append(buf, nv.([]byte)...)
		default:
			return Entry{}, errors.Wrapf(ErrUnsupportedType, "field %q: %s", schema[i], kind)
		}
	}
	return Entry{Data: buf}, nil
}
