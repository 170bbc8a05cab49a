package storage

import (
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
)

// Codec selects how sealed segments are compressed.
type Codec uint8

const (
	Gzip Codec = iota
	Zstd
)

// ParseCodec maps a configured codec name onto a Codec. Empty means gzip.
func ParseCodec(name string) (Codec, error) {
	switch strings.ToLower(name) {
	case "", "gzip", "gz":
		return Gzip, nil
	case "zstd", "zst":
		return Zstd, nil
	default:
		return 0, errors.Errorf("unknown compression codec %q", name)
	}
}

// Suffix is appended to the name of a compressed segment.
func (c Codec) Suffix() string {
	if c == Zstd {
		return ".zst"
	}
	return ".gz"
}

func (c Codec) String() string {
	if c == Zstd {
		return "zstd"
	}
	return "gzip"
}

// IsCompressed reports whether name carries a compressed-segment suffix.
func IsCompressed(name string) bool {
	return strings.HasSuffix(name, Gzip.Suffix()) || strings.HasSuffix(name, Zstd.Suffix())
}

// compressFile streams src into dst, replacing any existing dst. A partial
// dst is removed on failure.
func (c Codec) compressFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			out.Close()
			os.Remove(dst)
		}
	}()

	var zw io.WriteCloser
	switch c {
	case Zstd:
		if zw, err = zstd.NewWriter(out); err != nil {
			return err
		}
	default:
		zw = gzip.NewWriter(out)
	}

	if _, err = io.Copy(zw, in); err != nil {
		zw.Close()
		return err
	}
	if err = zw.Close(); err != nil {
		return err
	}
	if err = out.Sync(); err != nil {
		return err
	}
	return out.Close()
}

// OpenSegment opens a segment for reading, decompressing .gz and .zst
// segments transparently.
func OpenSegment(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	switch {
	case strings.HasSuffix(path, Gzip.Suffix()):
		zr, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, err
		}
		return &segmentReader{Reader: zr, closers: []io.Closer{zr, f}}, nil
	case strings.HasSuffix(path, Zstd.Suffix()):
		zr, err := zstd.NewReader(f)
		if err != nil {
			f.Close()
			return nil, err
		}
		return &segmentReader{Reader: zr, closers: []io.Closer{zr.IOReadCloser(), f}}, nil
	default:
		return f, nil
	}
}

type segmentReader struct {
	io.Reader
	closers []io.Closer
}

func (r *segmentReader) Close() error {
	var first error
	for _, c := range r.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
