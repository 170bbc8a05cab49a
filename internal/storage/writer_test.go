package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/coffersTech/seglog/internal/codec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestByteWriterFits(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seg.csv")
	header := codec.Entry{Data: []byte("a,b\n")}
	rec := codec.Entry{Data: []byte("1,2\n")}

	w, err := OpenWriter(codec.CSV, path, header, Limits{MaxBytes: 8})
	require.NoError(t, err)
	assert.Equal(t, int64(4), w.Written())

	assert.True(t, w.Fits(rec))
	require.NoError(t, w.Append(rec))
	assert.False(t, w.Fits(rec))
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,2\n", string(data))
}

func TestByteWriterOversizedRecordGetsOwnSegment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seg.bin")
	w, err := OpenWriter(codec.FixedBinary, path, codec.Entry{}, Limits{MaxBytes: 2})
	require.NoError(t, err)

	big := codec.Entry{Data: []byte("0123456789")}
	assert.True(t, w.Fits(big))
	require.NoError(t, w.Append(big))
	assert.False(t, w.Fits(codec.Entry{Data: []byte("x")}))
	require.NoError(t, w.Close())
}

func TestSheetWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seg.xlsx")
	header := codec.Entry{Row: []any{"ts", "n", "blob"}}

	w, err := OpenWriter(codec.Tabular, path, header, Limits{MaxRows: 3})
	require.NoError(t, err)
	assert.NoFileExists(t, path)

	require.True(t, w.Fits(codec.Entry{}))
	require.NoError(t, w.Append(codec.Entry{Row: []any{"t1", int64(1), []byte("ab")}}))
	require.NoError(t, w.Append(codec.Entry{Row: []any{"t2", int64(2), nil}}))
	assert.False(t, w.Fits(codec.Entry{}))
	assert.Equal(t, int64(3), w.Written())
	require.NoError(t, w.Flush())
	assert.NoFileExists(t, path)
	require.NoError(t, w.Close())

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"ts", "n", "blob"}, rows[0])
	assert.Equal(t, []string{"t1", "1", "ab"}, rows[1])
	assert.Equal(t, "t2", rows[2][0])
}

func TestOpenWriterUnknownFormat(t *testing.T) {
	_, err := OpenWriter(codec.Format(0), filepath.Join(t.TempDir(), "x"), codec.Entry{}, Limits{})
	require.ErrorIs(t, err, codec.ErrUnsupportedFormat)
}
