package engine

import (
	"github.com/coffersTech/seglog/internal/codec"
	"github.com/coffersTech/seglog/internal/storage"
	"github.com/pkg/errors"
)

var (
	ErrNotInitialized     = errors.New("pipeline not initialized")
	ErrAlreadyInitialized = errors.New("pipeline already initialized")
	ErrNotRunning         = errors.New("pipeline not running")
	ErrAlreadyStarted     = errors.New("pipeline already started")

	// ErrStopped matches ErrNotRunning.
	ErrStopped = errors.Wrap(ErrNotRunning, "pipeline stopped")

	ErrEmptySchema  = errors.New("schema needs at least one field")
	ErrSchemaFrozen = errors.New("schema can only be set once, before start")

	ErrInsufficientStorage     = storage.ErrInsufficientStorage
	ErrCriticalStorageExceeded = storage.ErrCriticalStorageExceeded

	ErrSchemaMismatch    = codec.ErrSchemaMismatch
	ErrNoSchema          = codec.ErrNoSchema
	ErrUnsupportedType   = codec.ErrUnsupportedType
	ErrUnsupportedFormat = codec.ErrUnsupportedFormat
	ErrRawUnsupported    = codec.ErrRawUnsupported
	ErrRecordTooLarge    = codec.ErrRecordTooLarge
)
