// Package slogbridge lets a log/slog Logger write into a pipeline. Each slog
// record becomes one set of named fields; attributes whose key is not part
// of the pipeline schema are left out.
package slogbridge

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/coffersTech/seglog/internal/model"
)

// Publisher is the part of a pipeline the handler needs.
type Publisher interface {
	Schema() model.Schema
	PublishFields(model.Fields) error
}

type Options struct {
	// Level defaults to slog.LevelInfo.
	Level slog.Leveler
	// AddSource fills slog.SourceKey with file:line of the call site.
	AddSource bool
}

// Handler is a slog.Handler publishing to a pipeline. The pipeline schema
// must be set before the handler is created.
type Handler struct {
	pub    Publisher
	opts   Options
	known  map[string]bool
	attrs  []slog.Attr
	prefix string
}

func NewHandler(pub Publisher, opts *Options) *Handler {
	h := &Handler{pub: pub, known: make(map[string]bool)}
	if opts != nil {
		h.opts = *opts
	}
	if h.opts.Level == nil {
		h.opts.Level = slog.LevelInfo
	}
	for _, name := range pub.Schema() {
		h.known[name] = true
	}
	return h
}

func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.Level.Level()
}

func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	fields := make(model.Fields, len(h.known))

	if !r.Time.IsZero() {
		h.set(fields, slog.TimeKey, r.Time.Format(time.RFC3339Nano))
	}
	h.set(fields, slog.LevelKey, r.Level.String())
	h.set(fields, slog.MessageKey, r.Message)

	if h.opts.AddSource && r.PC != 0 {
		fs := runtime.CallersFrames([]uintptr{r.PC})
		f, _ := fs.Next()
		h.set(fields, slog.SourceKey, fmt.Sprintf("%s:%d", f.File, f.Line))
	}

	// handler attrs already carry their group prefix
	for _, a := range h.attrs {
		h.addAttr(fields, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		h.addAttr(fields, h.prefix, a)
		return true
	})

	return h.pub.PublishFields(fields)
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	h2 := *h
	h2.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	h2.attrs = append(h2.attrs, h.attrs...)
	for _, a := range attrs {
		a.Key = h.prefix + a.Key
		h2.attrs = append(h2.attrs, a)
	}
	return &h2
}

func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	h2 := *h
	h2.prefix = h.prefix + name + "."
	return &h2
}

func (h *Handler) set(fields model.Fields, key string, v any) {
	if h.known[key] {
		fields[key] = v
	}
}

func (h *Handler) addAttr(fields model.Fields, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}

	if a.Value.Kind() == slog.KindGroup {
		group := prefix
		if a.Key != "" {
			group = prefix + a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			h.addAttr(fields, group, ga)
		}
		return
	}

	if v := value(a.Value); v != nil {
		h.set(fields, prefix+a.Key, v)
	}
}

// value maps a slog value onto the scalar kinds a record field can hold.
func value(v slog.Value) any {
	switch v.Kind() {
	case slog.KindBool:
		return v.Bool()
	case slog.KindInt64:
		return v.Int64()
	case slog.KindUint64:
		return v.Uint64()
	case slog.KindFloat64:
		return v.Float64()
	case slog.KindString:
		return v.String()
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindTime:
		return v.Time().Format(time.RFC3339Nano)
	default:
		switch x := v.Any().(type) {
		case nil:
			return nil
		case []byte:
			return x
		case error:
			return x.Error()
		case fmt.Stringer:
			return x.String()
		default:
			return fmt.Sprint(x)
		}
	}
}
