package logging

import (
	"fmt"
	"path/filepath"
	"sort"
	"strconv"

	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

var bufferPool = buffer.NewPool()

// templateEncoder renders log records through a compiled formatter template.
// Structured fields attached with With or at the call site do not have a
// placeholder of their own; they are appended after the rendered line as
// key=value pairs so they are never silently dropped.
type templateEncoder struct {
	*zapcore.MapObjectEncoder
	tpl *Template
}

func newTemplateEncoder(tpl *Template) *templateEncoder {
	return &templateEncoder{
		MapObjectEncoder: zapcore.NewMapObjectEncoder(),
		tpl:              tpl,
	}
}

// Clone implements zapcore.Encoder.
func (e *templateEncoder) Clone() zapcore.Encoder {
	clone := newTemplateEncoder(e.tpl)
	for k, v := range e.MapObjectEncoder.Fields {
		clone.MapObjectEncoder.Fields[k] = v
	}
	return clone
}

// EncodeEntry implements zapcore.Encoder.
func (e *templateEncoder) EncodeEntry(ent zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	buf := bufferPool.Get()

	for _, seg := range e.tpl.segments {
		if seg.field == "" {
			buf.AppendString(seg.literal)
			continue
		}
		switch seg.field {
		case fieldTime:
			buf.AppendString(ent.Time.Format(TimeLayout))
		case fieldLevel:
			buf.AppendString(levelName(ent.Level))
		case fieldName:
			if ent.LoggerName == "" {
				buf.AppendString("root")
			} else {
				buf.AppendString(ent.LoggerName)
			}
		case fieldMessage:
			buf.AppendString(ent.Message)
		case fieldFilename:
			if ent.Caller.Defined {
				buf.AppendString(filepath.Base(ent.Caller.File))
			} else {
				buf.AppendString("???")
			}
		case fieldLineno:
			if ent.Caller.Defined {
				buf.AppendString(strconv.Itoa(ent.Caller.Line))
			} else {
				buf.AppendString("0")
			}
		}
	}

	e.appendFields(buf, fields)
	buf.AppendString("\n")
	return buf, nil
}

// appendFields renders context and call-site fields as sorted key=value
// pairs after the templated line.
func (e *templateEncoder) appendFields(buf *buffer.Buffer, fields []zapcore.Field) {
	if len(e.MapObjectEncoder.Fields) == 0 && len(fields) == 0 {
		return
	}

	flat := zapcore.NewMapObjectEncoder()
	for k, v := range e.MapObjectEncoder.Fields {
		flat.Fields[k] = v
	}
	for i := range fields {
		fields[i].AddTo(flat)
	}

	keys := make([]string, 0, len(flat.Fields))
	for k := range flat.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		buf.AppendString(" ")
		buf.AppendString(k)
		buf.AppendString("=")
		buf.AppendString(fmt.Sprintf("%v", flat.Fields[k]))
	}
}
