package codec

import (
	"strconv"
	"strings"

	"github.com/coffersTech/seglog/internal/model"
)

// csvEncoder writes comma-joined text lines. Values containing the delimiter
// or a newline are written as-is; the format does not quote.
type csvEncoder struct{}

func (csvEncoder) sealed() {}

func (csvEncoder) Format() Format { return CSV }

func (csvEncoder) Header(schema model.Schema) (Entry, error) {
	if len(schema) == 0 {
		return Entry{}, nil
	}
	return Entry{Data: []byte(strings.Join(schema, ",") + "\n")}, nil
}

func (csvEncoder) Encode(schema model.Schema, rec model.Record) (Entry, error) {
	if err := rejectNull(schema, rec); err != nil {
		return Entry{}, err
	}
	buf := make([]byte, 0, 16*len(rec)+1)
	for i, v := range rec {
		if i > 0 {
			buf = append(buf, ',')
		}
		var err error
		if buf, err = appendText(buf, v); err != nil {
			return Entry{}, err
		}
	}
	buf = append(buf, '\n')
	return Entry{Data: buf}, nil
}

func appendText(buf []byte, v any) ([]byte, error) {
	nv, kind, err := model.Normalize(v)
	if err != nil {
		return nil, err
	}
	switch kind {
	case model.KindNull:
		return buf, nil
	case model.KindBool:
		return strconv.AppendBool(buf, nv.(bool)), nil
	case model.KindInt:
		return strconv.AppendInt(buf, nv.(int64), 10), nil
	case model.KindFloat:
		return strconv.AppendFloat(buf, nv.(float64), 'g', -1, 64), nil
	case model.KindString:
		return append(buf, nv.(string)...), nil
	default:
		return append(buf, nv.([]byte)...), nil
	}
}

// FormatText renders a single value the way the CSV encoder does. Null,
// which only decoded TLV records carry, renders empty.
func FormatText(v any) (string, error) {
	b, err := appendText(nil, v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
