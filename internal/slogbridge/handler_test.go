package slogbridge

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/coffersTech/seglog/internal/codec"
	"github.com/coffersTech/seglog/internal/config"
	"github.com/coffersTech/seglog/internal/engine"
	"github.com/coffersTech/seglog/internal/model"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	schema model.Schema
	got    []model.Fields
	err    error
}

func (r *recorder) Schema() model.Schema { return r.schema }

func (r *recorder) PublishFields(f model.Fields) error {
	r.got = append(r.got, f)
	return r.err
}

func TestHandlerMapsRecord(t *testing.T) {
	rec := &recorder{schema: model.Schema{"time", "level", "msg", "user", "req.id", "req.took", "count"}}
	logger := slog.New(NewHandler(rec, nil))

	logger.With("user", "ada").
		WithGroup("req").
		Info("served", "id", 7, "took", 1500*time.Millisecond, "ignored", true)

	require.Len(t, rec.got, 1)
	f := rec.got[0]
	assert.Equal(t, "INFO", f["level"])
	assert.Equal(t, "served", f["msg"])
	assert.Equal(t, "ada", f["user"])
	assert.Equal(t, int64(7), f["req.id"])
	assert.Equal(t, "1.5s", f["req.took"])
	assert.NotContains(t, f, "count")
	assert.NotContains(t, f, "req.ignored")

	ts, ok := f["time"].(string)
	require.True(t, ok)
	_, err := time.Parse(time.RFC3339Nano, ts)
	assert.NoError(t, err)
}

func TestHandlerLevelAndGroups(t *testing.T) {
	rec := &recorder{schema: model.Schema{"msg", "http.status", "err"}}
	logger := slog.New(NewHandler(rec, &Options{Level: slog.LevelWarn}))

	logger.Info("quiet")
	require.Empty(t, rec.got)

	logger.Warn("loud",
		slog.Group("http", slog.Int("status", 503)),
		slog.Any("err", errors.New("upstream down")))
	require.Len(t, rec.got, 1)
	assert.Equal(t, int64(503), rec.got[0]["http.status"])
	assert.Equal(t, "upstream down", rec.got[0]["err"])
}

func TestHandlerReturnsPublishError(t *testing.T) {
	rec := &recorder{schema: model.Schema{"msg"}, err: engine.ErrStopped}
	h := NewHandler(rec, nil)
	err := h.Handle(context.Background(), slog.NewRecord(time.Now(), slog.LevelInfo, "x", 0))
	require.ErrorIs(t, err, engine.ErrStopped)
}

func TestHandlerWritesThroughPipeline(t *testing.T) {
	cfg := config.Default()
	cfg.Logger.Directory = filepath.Join(t.TempDir(), "logs")
	logger, _ := test.NewNullLogger()

	p, err := engine.New(cfg,
		engine.WithLogger(logger),
		engine.WithDiskUsage(func(string) (uint64, uint64, error) { return 1, 100, nil }))
	require.NoError(t, err)
	require.NoError(t, p.Initialize(codec.CSV, false))
	require.NoError(t, p.SetSchema("level", "msg", "n"))
	require.NoError(t, p.Start())

	log := slog.New(NewHandler(p, nil))
	log.Info("first", "n", 1)
	log.Error("second", "n", 2, "extra", "dropped")
	require.NoError(t, p.Stop())

	data, err := os.ReadFile(p.CurrentSegment())
	require.NoError(t, err)
	assert.Equal(t, strings.Join([]string{
		"level,msg,n",
		"INFO,first,1",
		"ERROR,second,2",
		"",
	}, "\n"), string(data))
}
