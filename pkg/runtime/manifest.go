package runtime

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

// ManifestOptions controls JSON rendering. An empty Indent renders a single
// line with ", " and ": " separators.
type ManifestOptions struct {
	Indent        string
	PreserveOrder bool
}

// ManifestJSON renders a fully evaluated JSON document. Hidden fields are
// omitted; functions cannot be manifested.
func ManifestJSON(v Value, opts ManifestOptions) (string, error) {
	var b strings.Builder
	if err := manifestJSON(&b, v, opts, ""); err != nil {
		return "", err
	}
	return b.String(), nil
}

func manifestJSON(b *strings.Builder, v Value, opts ManifestOptions, cur string) error {
	switch val := v.(type) {
	case NullValue:
		b.WriteString("null")
	case BoolValue:
		if val.Val {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}
	case NumberValue:
		b.WriteString(FormatJSONNumber(val.Val))
	case StringValue:
		b.WriteString(QuoteJSONString(val.Str()))
	case *ArrayValue:
		if val.Len() == 0 {
			b.WriteString("[ ]")
			return nil
		}
		inner := cur + opts.Indent
		b.WriteByte('[')
		for i := 0; i < val.Len(); i++ {
			if i > 0 {
				b.WriteByte(',')
				if opts.Indent == "" {
					b.WriteByte(' ')
				}
			}
			if opts.Indent != "" {
				b.WriteByte('\n')
				b.WriteString(inner)
			}
			elem, err := val.Get(i)
			if err != nil {
				return AddFrame(err, emptySpan, fmt.Sprintf("elem <%d> evaluation", i))
			}
			if err := manifestJSON(b, elem, opts, inner); err != nil {
				return AddFrame(err, emptySpan, fmt.Sprintf("elem <%d> manifestification", i))
			}
		}
		if opts.Indent != "" {
			b.WriteByte('\n')
			b.WriteString(cur)
		}
		b.WriteByte(']')
	case *ObjectValue:
		names, err := val.Fields(false, opts.PreserveOrder)
		if err != nil {
			return err
		}
		if len(names) == 0 {
			b.WriteString("{ }")
			return nil
		}
		inner := cur + opts.Indent
		b.WriteByte('{')
		for i, name := range names {
			if i > 0 {
				b.WriteByte(',')
				if opts.Indent == "" {
					b.WriteByte(' ')
				}
			}
			if opts.Indent != "" {
				b.WriteByte('\n')
				b.WriteString(inner)
			}
			b.WriteString(QuoteJSONString(name))
			b.WriteString(": ")
			field, _, err := val.Get(name)
			if err != nil {
				return AddFrame(err, emptySpan, fmt.Sprintf("field <%s> evaluation", name))
			}
			if err := manifestJSON(b, field, opts, inner); err != nil {
				return AddFrame(err, emptySpan, fmt.Sprintf("field <%s> manifestification", name))
			}
		}
		if opts.Indent != "" {
			b.WriteByte('\n')
			b.WriteString(cur)
		}
		b.WriteByte('}')
	case *FunctionValue, *NativeFunction:
		return NewError(ErrManifestFunction, "tried to manifest function")
	default:
		return NewError(ErrRuntime, "cannot manifest %T", v)
	}
	return nil
}

// FormatJSONNumber renders integers without a fraction and other values in
// the shortest round-trip form.
func FormatJSONNumber(n float64) string {
	if n == math.Trunc(n) && math.Abs(n) < 1e15 {
		return strconv.FormatInt(int64(n), 10)
	}
	abs := math.Abs(n)
	if abs >= 1e-6 && abs < 1e21 {
		return strconv.FormatFloat(n, 'f', -1, 64)
	}
	return strconv.FormatFloat(n, 'g', -1, 64)
}

// QuoteJSONString escapes s as a JSON string literal. Non-ASCII code points
// are kept as UTF-8.
func QuoteJSONString(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		i += size
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\b':
			b.WriteString(`\b`)
		case '\f':
			b.WriteString(`\f`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if r < 0x20 || r == 0x7f || (r >= 0x80 && r < 0xa0) {
				fmt.Fprintf(&b, `\u%04x`, r)
			} else {
				b.WriteRune(r)
			}
		}
	}
	b.WriteByte('"')
	return b.String()
}
