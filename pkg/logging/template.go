package logging

import (
	"fmt"
	"strings"
)

// Template fields recognized in formatter format strings.
const (
	fieldTime     = "asctime"
	fieldLevel    = "levelname"
	fieldName     = "name"
	fieldMessage  = "message"
	fieldFilename = "filename"
	fieldLineno   = "lineno"
)

// TimeLayout is the timestamp layout used for the asctime field.
const TimeLayout = "2006-01-02 15:04:05.000"

// segment is one piece of a compiled template: either literal text or a
// record field reference.
type segment struct {
	literal string
	field   string // empty for literal segments
}

// Template is a compiled formatter format string. Templates render a log
// record to text by substituting %(field)s placeholders.
type Template struct {
	source   string
	segments []segment
}

// ParseTemplate compiles a format string. Placeholders take the form
// %(field)s (or %(lineno)d for the line number); any other text is emitted
// verbatim. Unknown fields are rejected.
func ParseTemplate(format string) (*Template, error) {
	if format == "" {
		return nil, fmt.Errorf("format must not be empty")
	}

	t := &Template{source: format}
	var literal strings.Builder
	rest := format
	for {
		i := strings.Index(rest, "%(")
		if i < 0 {
			literal.WriteString(rest)
			break
		}
		literal.WriteString(rest[:i])
		rest = rest[i+2:]

		j := strings.Index(rest, ")")
		if j < 0 {
			return nil, fmt.Errorf("unterminated placeholder in %q", format)
		}
		field := rest[:j]
		rest = rest[j+1:]
		if len(rest) == 0 {
			return nil, fmt.Errorf("placeholder %%(%s) is missing its verb", field)
		}
		verb := rest[0]
		rest = rest[1:]
		if verb != 's' && verb != 'd' {
			return nil, fmt.Errorf("unsupported placeholder verb %%(%s)%c", field, verb)
		}

		switch field {
		case fieldTime, fieldLevel, fieldName, fieldMessage, fieldFilename, fieldLineno:
		default:
			return nil, fmt.Errorf("unknown placeholder field %q", field)
		}

		if literal.Len() > 0 {
			t.segments = append(t.segments, segment{literal: literal.String()})
			literal.Reset()
		}
		t.segments = append(t.segments, segment{field: field})
	}
	if literal.Len() > 0 {
		t.segments = append(t.segments, segment{literal: literal.String()})
	}
	return t, nil
}

// Source returns the original format string.
func (t *Template) Source() string { return t.source }

// usesCaller reports whether rendering needs source location information.
func (t *Template) usesCaller() bool {
	for _, s := range t.segments {
		if s.field == fieldFilename || s.field == fieldLineno {
			return true
		}
	}
	return false
}
