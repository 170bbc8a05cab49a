package codec

import (
	"strings"

	"github.com/pkg/errors"
)

// Format is the closed set of output formats a pipeline can write.
type Format uint8

const (
	CSV Format = iota + 1
	FixedBinary
	TLV
	Tabular
)

// ParseFormat maps a configured format name onto a Format.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), ".")) {
	case "csv":
		return CSV, nil
	case "bin":
		return FixedBinary, nil
	case "tlv", "tlvbin":
		return TLV, nil
	case "xlsx":
		return Tabular, nil
	default:
		return 0, errors.Wrapf(ErrUnsupportedFormat, "%q", name)
	}
}

func (f Format) String() string {
	switch f {
	case CSV:
		return "csv"
	case FixedBinary:
		return "bin"
	case TLV:
		return "tlv"
	case Tabular:
		return "xlsx"
	default:
		return "unknown"
	}
}

// Extension is the file extension of segments in this format.
func (f Format) Extension() string {
	return f.String()
}

// Binary reports whether records are opaque bytes that accept raw payloads.
func (f Format) Binary() bool {
	return f == FixedBinary || f == TLV
}

// Valid reports whether f is one of the known formats.
func (f Format) Valid() bool {
	return f >= CSV && f <= Tabular
}
