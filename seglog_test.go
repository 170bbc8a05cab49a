package seglog_test

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/coffersTech/seglog"
	"github.com/coffersTech/seglog/internal/codec"
	"github.com/coffersTech/seglog/internal/model"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerRoundTrip(t *testing.T) {
	cfg := seglog.DefaultConfig()
	cfg.Logger.Directory = filepath.Join(t.TempDir(), "logs")
	logger, _ := test.NewNullLogger()

	l, err := seglog.New(cfg,
		seglog.WithLogger(logger),
		seglog.WithDiskUsage(func(string) (uint64, uint64, error) { return 1, 100, nil }))
	require.NoError(t, err)

	format, err := seglog.ParseFormat("tlvbin")
	require.NoError(t, err)
	require.Equal(t, seglog.TLV, format)

	require.NoError(t, l.Initialize(format, false))
	require.NoError(t, l.SetSchema("level", "msg", "n"))
	require.NoError(t, l.Start())

	require.NoError(t, l.Publish(seglog.Record{"INFO", "direct", 1}))
	require.NoError(t, l.PublishFields(seglog.Fields{"msg": "fields", "n": 2}))
	slog.New(seglog.NewSlogHandler(l, nil)).Warn("bridged", "n", 3)
	require.NoError(t, l.Stop())
	require.ErrorIs(t, l.Publish(seglog.Record{"INFO", "late", 4}), seglog.ErrNotRunning)

	f, err := os.Open(l.CurrentSegment())
	require.NoError(t, err)
	defer f.Close()
	r, err := codec.NewTLVReader(f)
	require.NoError(t, err)

	var got []model.Record
	for {
		rec, err := r.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		got = append(got, rec)
	}
	assert.Equal(t, []model.Record{
		{"INFO", "direct", int64(1)},
		{nil, "fields", int64(2)},
		{"WARN", "bridged", int64(3)},
	}, got)
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seglog.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logger:\n  queue_size: -1\n"), 0o644))

	_, err := seglog.LoadConfig(path)
	assert.Error(t, err)
}
