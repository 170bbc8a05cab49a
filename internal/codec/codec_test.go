package codec

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"io"
	"math"
	"strings"
	"testing"

	"github.com/coffersTech/seglog/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustEncoder(t *testing.T, f Format) Encoder {
	t.Helper()
	enc, err := For(f)
	require.NoError(t, err)
	require.Equal(t, f, enc.Format())
	return enc
}

func TestParseFormat(t *testing.T) {
	for name, want := range map[string]Format{
		"csv": CSV, ".CSV": CSV, "bin": FixedBinary, "tlv": TLV, "tlvbin": TLV, "xlsx": Tabular,
	} {
		got, err := ParseFormat(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := ParseFormat("parquet")
	require.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = For(Format(42))
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestSchemaRoundTrip(t *testing.T) {
	schema := model.Schema{"ts", "level", "message", "latency_ms"}

	t.Run("csv", func(t *testing.T) {
		h, err := mustEncoder(t, CSV).Header(schema)
		require.NoError(t, err)
		assert.Equal(t, "ts,level,message,latency_ms\n", string(h.Data))

		got, err := ReadCSVHeader(bufio.NewReader(bytes.NewReader(h.Data)))
		require.NoError(t, err)
		assert.Equal(t, schema, got)
	})

	t.Run("fixed binary", func(t *testing.T) {
		h, err := mustEncoder(t, FixedBinary).Header(schema)
		require.NoError(t, err)
		require.Equal(t, "LOG1", string(h.Data[:4]))

		version, got, err := ReadBinaryHeader(bytes.NewReader(h.Data))
		require.NoError(t, err)
		assert.Equal(t, byte(Version), version)
		assert.Equal(t, schema, got)
	})

	t.Run("tlv", func(t *testing.T) {
		h, err := mustEncoder(t, TLV).Header(schema)
		require.NoError(t, err)
		require.Equal(t, "TLV1", string(h.Data[:4]))

		version, got, err := ReadTLVHeader(bytes.NewReader(h.Data))
		require.NoError(t, err)
		assert.Equal(t, byte(Version), version)
		assert.Equal(t, schema, got)
	})

	t.Run("tabular", func(t *testing.T) {
		h, err := mustEncoder(t, Tabular).Header(schema)
		require.NoError(t, err)
		assert.Equal(t, []any{"ts", "level", "message", "latency_ms"}, h.Row)
	})
}

func TestEmptySchemaHasNoHeader(t *testing.T) {
	for _, f := range []Format{CSV, FixedBinary, TLV, Tabular} {
		h, err := mustEncoder(t, f).Header(nil)
		require.NoError(t, err)
		assert.True(t, h.Empty(), f.String())
	}
}

func TestTLVHeaderLayout(t *testing.T) {
	h, err := mustEncoder(t, TLV).Header(model.Schema{"x"})
	require.NoError(t, err)
	assert.Equal(t, []byte{'T', 'L', 'V', '1', 1, 1, 0x01, 1, 0, 'x'}, h.Data)
}

func TestCSVEncode(t *testing.T) {
	enc := mustEncoder(t, CSV)
	e, err := enc.Encode(nil, model.Record{"2024-01-01T00:00:00", "1", "2.5"})
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01T00:00:00,1,2.5\n", string(e.Data))

	e, err = enc.Encode(nil, model.Record{true, 42, 2.5, "", []byte("raw")})
	require.NoError(t, err)
	assert.Equal(t, "true,42,2.5,,raw\n", string(e.Data))

	_, err = enc.Encode(model.Schema{"a", "b"}, model.Record{"x", nil})
	require.ErrorIs(t, err, ErrUnsupportedType)
	assert.Contains(t, err.Error(), `field "b"`)

	// delimiters are not escaped
	e, err = enc.Encode(nil, model.Record{"a,b"})
	require.NoError(t, err)
	assert.Equal(t, "a,b\n", string(e.Data))

	_, err = enc.Encode(nil, model.Record{map[string]int{}})
	require.ErrorIs(t, err, ErrUnsupportedType)
}

func TestFixedBinaryEncode(t *testing.T) {
	enc := mustEncoder(t, FixedBinary)
	schema := model.Schema{"ok", "n", "f", "s", "b"}

	e, err := enc.Encode(schema, model.Record{true, int64(-2), 1.5, "hi", []byte{0xAA, 0xBB}})
	require.NoError(t, err)

	want := []byte{1}
	want = binary.LittleEndian.AppendUint64(want, uint64(0xFFFFFFFFFFFFFFFE))
	want = binary.LittleEndian.AppendUint64(want, math.Float64bits(1.5))
	want = append(want, 'h', 'i', 0, 0xAA, 0xBB)
	assert.Equal(t, want, e.Data)

	rec, n, err := DecodeFixed(e.Data, []model.Kind{model.KindBool, model.KindInt, model.KindFloat, model.KindString})
	require.NoError(t, err)
	assert.Equal(t, model.Record{true, int64(-2), 1.5, "hi"}, rec)
	assert.Equal(t, len(e.Data)-2, n)
}

func TestFixedBinaryValidation(t *testing.T) {
	enc := mustEncoder(t, FixedBinary)

	_, err := enc.Encode(nil, model.Record{1})
	require.ErrorIs(t, err, ErrNoSchema)

	_, err = enc.Encode(model.Schema{"a", "b"}, model.Record{1})
	require.ErrorIs(t, err, ErrSchemaMismatch)

	_, err = enc.Encode(model.Schema{"a"}, model.Record{nil})
	require.ErrorIs(t, err, ErrUnsupportedType)

	_, err = enc.Header(model.Schema{strings.Repeat("x", 256)})
	require.ErrorIs(t, err, ErrSchemaTooLarge)
}

func TestTLVRoundTrip(t *testing.T) {
	enc := mustEncoder(t, TLV)
	schema := model.Schema{"ok", "n", "f", "s", "b", "missing"}
	in := model.Record{false, int64(math.MinInt64), math.Inf(-1), "héllo", []byte{0, 1, 2}, nil}

	e, err := enc.Encode(schema, in)
	require.NoError(t, err)
	assert.Equal(t, len(e.Data)-2, int(binary.LittleEndian.Uint16(e.Data)))

	out, n, err := DecodeTLVRecord(e.Data)
	require.NoError(t, err)
	assert.Equal(t, len(e.Data), n)
	assert.Equal(t, in, out)
}

func TestTLVSingleInt(t *testing.T) {
	e, err := mustEncoder(t, TLV).Encode(model.Schema{"x"}, model.Record{42})
	require.NoError(t, err)

	want := []byte{11, 0, TypeInt, 8, 0, 42, 0, 0, 0, 0, 0, 0, 0}
	assert.Equal(t, want, e.Data)

	rec, _, err := DecodeTLVRecord(e.Data)
	require.NoError(t, err)
	require.Len(t, rec, 1)
	assert.Equal(t, int64(42), rec[0])
}

func TestTLVValidation(t *testing.T) {
	enc := mustEncoder(t, TLV)

	_, err := enc.Encode(model.Schema{"a", "b"}, model.Record{1, 2, 3})
	require.ErrorIs(t, err, ErrSchemaMismatch)

	_, err = enc.Encode(model.Schema{"a"}, model.Record{struct{}{}})
	require.ErrorIs(t, err, ErrUnsupportedType)

	_, err = enc.Encode(model.Schema{"a"}, model.Record{strings.Repeat("x", maxTLVLen+1)})
	require.ErrorIs(t, err, ErrRecordTooLarge)

	_, err = enc.Encode(model.Schema{"a", "b"}, model.Record{strings.Repeat("x", 40000), strings.Repeat("y", 40000)})
	require.ErrorIs(t, err, ErrRecordTooLarge)
}

func TestTLVReader(t *testing.T) {
	enc := mustEncoder(t, TLV)
	schema := model.Schema{"seq", "msg"}

	var buf bytes.Buffer
	h, err := enc.Header(schema)
	require.NoError(t, err)
	buf.Write(h.Data)
	for i := 0; i < 3; i++ {
		e, err := enc.Encode(schema, model.Record{i, "m"})
		require.NoError(t, err)
		buf.Write(e.Data)
	}

	r, err := NewTLVReader(&buf)
	require.NoError(t, err)
	assert.Equal(t, schema, r.Schema())

	for i := 0; i < 3; i++ {
		rec, err := r.Next()
		require.NoError(t, err)
		assert.Equal(t, model.Record{int64(i), "m"}, rec)
	}
	_, err = r.Next()
	assert.Equal(t, io.EOF, err)
}

func TestDecodeTLVRecordCorrupt(t *testing.T) {
	_, _, err := DecodeTLVRecord([]byte{5})
	require.ErrorIs(t, err, ErrCorruptRecord)

	_, _, err = DecodeTLVRecord([]byte{4, 0, 9, 0, 0, 0})
	require.ErrorIs(t, err, ErrCorruptRecord)

	_, _, err = ReadTLVHeader(bytes.NewReader([]byte("LOG1\x01\x00")))
	require.ErrorIs(t, err, ErrInvalidHeader)
}

func TestTabularEncode(t *testing.T) {
	e, err := mustEncoder(t, Tabular).Encode(nil, model.Record{1, "a", 2.5})
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1), "a", 2.5}, e.Row)
	assert.Zero(t, e.Size())

	_, err = mustEncoder(t, Tabular).Encode(nil, model.Record{"x", nil})
	require.ErrorIs(t, err, ErrUnsupportedType)
}

func TestOnlyTLVEncodesNull(t *testing.T) {
	schema := model.Schema{"a", "b"}
	rec := model.Record{"x", nil}

	for _, f := range []Format{CSV, FixedBinary, Tabular} {
		_, err := mustEncoder(t, f).Encode(schema, rec)
		assert.ErrorIs(t, err, ErrUnsupportedType, f.String())
	}

	_, err := mustEncoder(t, TLV).Encode(schema, rec)
	assert.NoError(t, err)
}

func TestEncodeRaw(t *testing.T) {
	e, err := EncodeRaw(TLV, []byte{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, e.Data)

	_, err = EncodeRaw(CSV, []byte{1})
	require.ErrorIs(t, err, ErrRawUnsupported)
}
