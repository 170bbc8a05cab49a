package engine

import (
	"github.com/coffersTech/seglog/internal/codec"
	"github.com/coffersTech/seglog/internal/model"
	"github.com/pkg/errors"
	"github.com/valyala/fastjson"
)

// Publish encodes rec against the schema and queues it for the writer.
// It never blocks longer than the configured enqueue timeout; a record that
// cannot be queued in time is dropped and counted, and Publish still returns
// nil. Encoding errors are returned to the caller and nothing is queued.
func (p *Pipeline) Publish(rec model.Record) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if err := p.acceptLocked(); err != nil {
		return err
	}
	e, err := p.encoder.Encode(p.schema, rec)
	if err != nil {
		return err
	}
	p.enqueue(e)
	return nil
}

// PublishFields resolves named values against the schema. Fields not
// present are written as null in TLV segments and as empty text elsewhere.
func (p *Pipeline) PublishFields(fields model.Fields) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if err := p.acceptLocked(); err != nil {
		return err
	}
	rec, err := fields.Resolve(p.schema, p.missingValue())
	if err != nil {
		return err
	}
	e, err := p.encoder.Encode(p.schema, rec)
	if err != nil {
		return err
	}
	p.enqueue(e)
	return nil
}

// PublishRaw queues an already encoded record. Only binary formats accept
// one; the payload is copied.
func (p *Pipeline) PublishRaw(raw model.Raw) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if err := p.acceptLocked(); err != nil {
		return err
	}
	e, err := codec.EncodeRaw(p.format, raw)
	if err != nil {
		return err
	}
	p.enqueue(e)
	return nil
}

// PublishJSON decodes a flat JSON object and publishes its members as
// fields. Integral numbers become int64, other numbers float64, and nested
// objects or arrays are kept as their JSON text. Null members are treated
// as missing.
func (p *Pipeline) PublishJSON(doc []byte) error {
	parser := p.parsers.Get()
	defer p.parsers.Put(parser)

	v, err := parser.ParseBytes(doc)
	if err != nil {
		return errors.Wrap(err, "parse json record")
	}
	obj, err := v.Object()
	if err != nil {
		return errors.Wrap(err, "json record must be an object")
	}

	fields := make(model.Fields, obj.Len())
	obj.Visit(func(key []byte, v *fastjson.Value) {
		if v.Type() == fastjson.TypeNull {
			return
		}
		fields[string(key)] = jsonValue(v)
	})
	return p.PublishFields(fields)
}

func jsonValue(v *fastjson.Value) any {
	switch v.Type() {
	case fastjson.TypeTrue:
		return true
	case fastjson.TypeFalse:
		return false
	case fastjson.TypeString:
		return string(v.GetStringBytes())
	case fastjson.TypeNumber:
		if n, err := v.Int64(); err == nil {
			return n
		}
		return v.GetFloat64()
	default:
		return v.String()
	}
}

// missingValue fills schema fields a caller left out. Only TLV can store a
// null.
func (p *Pipeline) missingValue() any {
	if p.format == codec.TLV {
		return nil
	}
	return ""
}

// acceptLocked reports why records cannot be accepted right now. Callers
// hold mu.
func (p *Pipeline) acceptLocked() error {
	switch p.state {
	case StateUninitialized:
		return ErrNotInitialized
	case StateInitialized:
		return ErrNotRunning
	case StateStopped:
		return ErrStopped
	}
	return p.Err()
}
