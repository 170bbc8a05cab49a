package codec

import (
	"encoding/binary"
	"math"

	"github.com/coffersTech/seglog/internal/model"
	"github.com/pkg/errors"
)

// TLVMagic opens every TLV segment.
var TLVMagic = []byte("TLV1")

// TLV type tags.
const (
	TypeBool   byte = 1
	TypeInt    byte = 2
	TypeFloat  byte = 3
	TypeString byte = 4
	TypeBytes  byte = 5
	TypeNull   byte = 6
)

// fieldDef tags a field name entry in the TLV header.
const fieldDef byte = 0x01

const maxTLVLen = math.MaxUint16

type tlvEncoder struct{}

func (tlvEncoder) sealed() {}

func (tlvEncoder) Format() Format { return TLV }

// Header layout: MAGIC(4) + version(1) + count(1) + [0x01 + len(2) + name]*.
func (tlvEncoder) Header(schema model.Schema) (Entry, error) {
	if len(schema) == 0 {
		return Entry{}, nil
	}
	if len(schema) > math.MaxUint8 {
		return Entry{}, errors.Wrapf(ErrSchemaTooLarge, "%d fields", len(schema))
	}

	buf := make([]byte, 0, 6+10*len(schema))
	buf = append(buf, TLVMagic...)
	buf = append(buf, Version, byte(len(schema)))
	for _, name := range schema {
		if len(name) > maxTLVLen {
			return Entry{}, errors.Wrapf(ErrSchemaTooLarge, "field name of %d bytes", len(name))
		}
		buf = append(buf, fieldDef)
		buf = binary.LittleEndian.AppendUint16(buf, uint16(len(name)))
		buf = append(buf, name...)
	}
	return Entry{Data: buf}, nil
}

// Encode frames the record as [len(2)][ [type(1) + len(2) + value]* ].
func (tlvEncoder) Encode(schema model.Schema, rec model.Record) (Entry, error) {
	if err := checkArity(schema, rec); err != nil {
		return Entry{}, err
	}

	buf := make([]byte, 2, 2+12*len(rec))
	for i, v := range rec {
		nv, kind, err := model.Normalize(v)
		if err != nil {
			return Entry{}, errors.Wrapf(err, "field %q", schema[i])
		}
		switch kind {
		case model.KindNull:
			buf = appendTLV(buf, TypeNull, nil)
		case model.KindBool:
			b := byte(0)
			if nv.(bool) {
				b = 1
			}
			buf = appendTLV(buf, TypeBool, []byte{b})
		case model.KindInt:
			buf = appendTLV(buf, TypeInt, binary.LittleEndian.AppendUint64(nil, uint64(nv.(int64))))
		case model.KindFloat:
			buf = appendTLV(buf, TypeFloat, binary.LittleEndian.AppendUint64(nil, math.Float64bits(nv.(float64))))
		case model.KindString:
			s := nv.(string)
			if len(s) > maxTLVLen {
				return Entry{}, errors.Wrapf(ErrRecordTooLarge, "field %q: %d bytes", schema[i], len(s))
			}
			buf = appendTLV(buf, TypeString, []byte(s))
		case model.KindBytes:
			b := nv.([]byte)
			if len(b) > maxTLVLen {
				return Entry{}, errors.Wrapf(ErrRecordTooLarge, "field %q: %d bytes", schema[i], len(b))
			}
			buf = appendTLV(buf, TypeBytes, b)
		}
	}

	payload := len(buf) - 2
	if payload > maxTLVLen {
		return Entry{}, errors.Wrapf(ErrRecordTooLarge, "payload of %d bytes", payload)
	}
	binary.LittleEndian.PutUint16(buf[:2], uint16(payload))
	return Entry{Data: buf}, nil
}

func appendTLV(buf []byte, typ byte, value []byte) []byte {
	buf = append(buf, typ)
	buf = binary.LittleEndian.AppendUint16(buf, uint16(len(value)))
	return append(buf, value...)
}
