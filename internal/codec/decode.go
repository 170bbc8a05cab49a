package codec

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"io"
	"math"
	"strings"

	"github.com/coffersTech/seglog/internal/model"
	"github.com/pkg/errors"
)

// ReadCSVHeader reads the first line of a CSV segment as the schema.
func ReadCSVHeader(r *bufio.Reader) (model.Schema, error) {
	line, err := r.ReadString('\n')
	if err != nil && !(err == io.EOF && line != "") {
		return nil, err
	}
	line = strings.TrimSuffix(line, "\n")
	if line == "" {
		return nil, errors.Wrap(ErrInvalidHeader, "empty csv header")
	}
	return model.Schema(strings.Split(line, ",")), nil
}

// ReadBinaryHeader reads a fixed-binary segment header.
func ReadBinaryHeader(r io.Reader) (byte, model.Schema, error) {
	version, count, err := readPreamble(r, BinaryMagic)
	if err != nil {
		return 0, nil, err
	}

	schema := make(model.Schema, 0, count)
	var l [1]byte
	for i := 0; i < int(count); i++ {
		if _, err := io.ReadFull(r, l[:]); err != nil {
			return 0, nil, errors.Wrap(ErrInvalidHeader, err.Error())
		}
		name := make([]byte, l[0])
		if _, err := io.ReadFull(r, name); err != nil {
			return 0, nil, errors.Wrap(ErrInvalidHeader, err.Error())
		}
		schema = append(schema, string(name))
	}
	return version, schema, nil
}

// ReadTLVHeader reads a TLV segment header.
func ReadTLVHeader(r io.Reader) (byte, model.Schema, error) {
	version, count, err := readPreamble(r, TLVMagic)
	if err != nil {
		return 0, nil, err
	}

	schema := make(model.Schema, 0, count)
	var def [3]byte
	for i := 0; i < int(count); i++ {
		if _, err := io.ReadFull(r, def[:]); err != nil {
			return 0, nil, errors.Wrap(ErrInvalidHeader, err.Error())
		}
		if def[0] != fieldDef {
			return 0, nil, errors.Wrapf(ErrInvalidHeader, "field definition tag 0x%02x", def[0])
		}
		name := make([]byte, binary.LittleEndian.Uint16(def[1:]))
		if _, err := io.ReadFull(r, name); err != nil {
			return 0, nil, errors.Wrap(ErrInvalidHeader, err.Error())
		}
		schema = append(schema, string(name))
	}
	return version, schema, nil
}

func readPreamble(r io.Reader, magic []byte) (byte, byte, error) {
	pre := make([]byte, len(magic)+2)
	if _, err := io.ReadFull(r, pre); err != nil {
		return 0, 0, errors.Wrap(ErrInvalidHeader, err.Error())
	}
	if !bytes.Equal(pre[:len(magic)], magic) {
		return 0, 0, errors.Wrapf(ErrInvalidHeader, "magic %q", pre[:len(magic)])
	}
	return pre[len(magic)], pre[len(magic)+1], nil
}

// DecodeTLVRecord decodes one framed TLV record from the front of b and
// returns it together with the number of bytes consumed.
func DecodeTLVRecord(b []byte) (model.Record, int, error) {
	if len(b) < 2 {
		return nil, 0, errors.Wrap(ErrCorruptRecord, "short record length")
	}
	n := int(binary.LittleEndian.Uint16(b))
	if len(b) < 2+n {
		return nil, 0, errors.Wrapf(ErrCorruptRecord, "record of %d bytes truncated to %d", n, len(b)-2)
	}

	payload := b[2 : 2+n]
	var rec model.Record
	for len(payload) > 0 {
		if len(payload) < 3 {
			return nil, 0, errors.Wrap(ErrCorruptRecord, "short field header")
		}
		typ := payload[0]
		l := int(binary.LittleEndian.Uint16(payload[1:3]))
		if len(payload) < 3+l {
			return nil, 0, errors.Wrap(ErrCorruptRecord, "field value truncated")
		}
		v, err := decodeTLVValue(typ, payload[3:3+l])
		if err != nil {
			return nil, 0, err
		}
		rec = append(rec, v)
		payload = payload[3+l:]
	}
	return rec, 2 + n, nil
}

func decodeTLVValue(typ byte, v []byte) (any, error) {
	switch typ {
	case TypeNull:
		return nil, nil
	case TypeBool:
		if len(v) != 1 {
			return nil, errors.Wrap(ErrCorruptRecord, "bool length")
		}
		return v[0] != 0, nil
	case TypeInt:
		if len(v) != 8 {
			return nil, errors.Wrap(ErrCorruptRecord, "int length")
		}
		return int64(binary.LittleEndian.Uint64(v)), nil
	case TypeFloat:
		if len(v) != 8 {
			return nil, errors.Wrap(ErrCorruptRecord, "float length")
		}
		return math.Float64frombits(binary.LittleEndian.Uint64(v)), nil
	case TypeString:
		return string(v), nil
	case TypeBytes:
		out := make([]byte, len(v))
		copy(out, v)
		return out, nil
	default:
		return nil, errors.Wrapf(ErrCorruptRecord, "unknown type tag %d", typ)
	}
}

// TLVReader iterates the records of a TLV segment stream.
type TLVReader struct {
	r      *bufio.Reader
	schema model.Schema
	buf    []byte
}

// NewTLVReader consumes the segment header from r.
func NewTLVReader(r io.Reader) (*TLVReader, error) {
	br := bufio.NewReader(r)
	_, schema, err := ReadTLVHeader(br)
	if err != nil {
		return nil, err
	}
	return &TLVReader{r: br, schema: schema, buf: make([]byte, 2+maxTLVLen)}, nil
}

func (tr *TLVReader) Schema() model.Schema {
	return tr.schema
}

// Next returns the next record, or io.EOF once the stream is exhausted.
func (tr *TLVReader) Next() (model.Record, error) {
	if _, err := io.ReadFull(tr.r, tr.buf[:2]); err != nil {
		if err == io.ErrUnexpectedEOF {
			return nil, errors.Wrap(ErrCorruptRecord, "truncated record length")
		}
		return nil, err
	}
	n := int(binary.LittleEndian.Uint16(tr.buf[:2]))
	if _, err := io.ReadFull(tr.r, tr.buf[2:2+n]); err != nil {
		return nil, errors.Wrap(ErrCorruptRecord, err.Error())
	}
	rec, _, err := DecodeTLVRecord(tr.buf[:2+n])
	return rec, err
}

// DecodeFixed decodes one fixed-binary record from the front of b given the
// kind of each field, returning the record and the bytes consumed. Byte blobs
// carry no length on disk, so KindBytes cannot be decoded.
func DecodeFixed(b []byte, kinds []model.Kind) (model.Record, int, error) {
	rec := make(model.Record, 0, len(kinds))
	off := 0
	for _, k := range kinds {
		switch k {
		case model.KindBool:
			if len(b) < off+1 {
				return nil, 0, errors.Wrap(ErrCorruptRecord, "bool truncated")
			}
			rec = append(rec, b[off] != 0)
			off++
		case model.KindInt:
			if len(b) < off+8 {
				return nil, 0, errors.Wrap(ErrCorruptRecord, "int truncated")
			}
			rec = append(rec, int64(binary.LittleEndian.Uint64(b[off:])))
			off += 8
		case model.KindFloat:
			if len(b) < off+8 {
				return nil, 0, errors.Wrap(ErrCorruptRecord, "float truncated")
			}
			rec = append(rec, math.Float64frombits(binary.LittleEndian.Uint64(b[off:])))
			off += 8
		case model.KindString:
			end := bytes.IndexByte(b[off:], 0)
			if end < 0 {
				return nil, 0, errors.Wrap(ErrCorruptRecord, "unterminated string")
			}
			rec = append(rec, string(b[off:off+end]))
			off += end + 1
		default:
			return nil, 0, errors.Wrapf(ErrUnsupportedType, "cannot decode %s without a width", k)
		}
	}
	return rec, off, nil
}
