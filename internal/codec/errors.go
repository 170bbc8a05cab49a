package codec

import (
	"github.com/coffersTech/seglog/internal/model"
	"github.com/pkg/errors"
)

var (
	ErrUnsupportedType   = model.ErrUnsupportedType
	ErrSchemaMismatch    = model.ErrSchemaMismatch
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrNoSchema          = errors.New("schema not set")
	ErrRawUnsupported    = errors.New("raw records require a binary format")
	ErrRecordTooLarge    = errors.New("record exceeds format limits")
	ErrSchemaTooLarge    = errors.New("schema exceeds format limits")
	ErrInvalidHeader     = errors.New("invalid segment header")
	ErrCorruptRecord     = errors.New("corrupt record")
)
