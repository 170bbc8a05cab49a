package storage

import (
	"bufio"
	"os"

	"github.com/coffersTech/seglog/internal/codec"
	"github.com/pkg/errors"
)

// SegmentWriter appends encoded entries to one open segment. It is owned by
// a single goroutine.
type SegmentWriter interface {
	Path() string
	// Fits reports whether e can be appended without exceeding the segment limit.
	Fits(e codec.Entry) bool
	Append(e codec.Entry) error
	Flush() error
	// Close flushes and seals the segment.
	Close() error
	// Written is the amount written so far: bytes for byte segments, rows for sheets.
	Written() int64
}

// Limits bound a single segment.
type Limits struct {
	MaxBytes int64
	MaxRows  int
}

// OpenWriter opens path for format f and writes header, if any.
func OpenWriter(f codec.Format, path string, header codec.Entry, limits Limits) (SegmentWriter, error) {
	switch f {
	case codec.CSV, codec.FixedBinary, codec.TLV:
		return openByteWriter(path, header.Data, limits.MaxBytes)
	case codec.Tabular:
		return openSheetWriter(path, header.Row, limits.MaxRows)
	default:
		return nil, errors.Wrapf(codec.ErrUnsupportedFormat, "format %d", f)
	}
}

// byteWriter appends to a text or binary segment through a buffer.
type byteWriter struct {
	file    *os.File
	buf     *bufio.Writer
	path    string
	max     int64
	offset  int64
	records int
}

func openByteWriter(path string, header []byte, max int64) (*byteWriter, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	w := &byteWriter{
		file:   f,
		buf:    bufio.NewWriterSize(f, 64*1024),
		path:   path,
		max:    max,
		offset: info.Size(),
	}
	if len(header) > 0 {
		if _, err := w.buf.Write(header); err != nil {
			f.Close()
			return nil, err
		}
		w.offset += int64(len(header))
	}
	return w, nil
}

func (w *byteWriter) Path() string { return w.path }

func (w *byteWriter) Written() int64 { return w.offset }

// Fits never rejects the first record of a segment, so an oversized record
// gets a segment of its own instead of an endless rotation.
func (w *byteWriter) Fits(e codec.Entry) bool {
	return w.records == 0 || w.offset+int64(e.Size()) <= w.max
}

func (w *byteWriter) Append(e codec.Entry) error {
	n, err := w.buf.Write(e.Data)
	w.offset += int64(n)
	if err != nil {
		return err
	}
	w.records++
	return nil
}

func (w *byteWriter) Flush() error {
	return w.buf.Flush()
}

func (w *byteWriter) Close() error {
	flushErr := w.buf.Flush()
	syncErr := w.file.Sync()
	closeErr := w.file.Close()
	switch {
	case flushErr != nil:
		return flushErr
	case syncErr != nil:
		return syncErr
	default:
		return closeErr
	}
}
