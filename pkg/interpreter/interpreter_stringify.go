package interpreter

import (
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"jsonnet/interpreter-go/pkg/runtime"
)

// formatSpec is one parsed `%` conversion.
type formatSpec struct {
	key       string
	hasKey    bool
	left      bool
	zero      bool
	plus      bool
	space     bool
	alternate bool
	width     int
	precision int
	hasPrec   bool
	verb      rune
}

type formatArgs struct {
	positional []runtime.Value
	next       int
	named      *runtime.ObjectValue
}

func (a *formatArgs) take() (runtime.Value, error) {
	if a.next >= len(a.positional) {
		return nil, runtime.NewError(runtime.ErrFormat, "not enough values to format, got %d", len(a.positional))
	}
	v := a.positional[a.next]
	a.next++
	return v, nil
}

func (a *formatArgs) lookup(key string) (runtime.Value, error) {
	if a.named == nil {
		return nil, runtime.NewError(runtime.ErrFormat, "format key %q requires an object of values", key)
	}
	v, ok, err := a.named.Get(key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, runtime.NewError(runtime.ErrFormat, "no such format field: %s", key)
	}
	return v, nil
}

// formatString implements `format % values` with Python-style conversions.
func (i *Interpreter) formatString(format string, values runtime.Value) (string, error) {
	args := &formatArgs{}
	switch v := values.(type) {
	case *runtime.ArrayValue:
		vals, err := v.Values()
		if err != nil {
			return "", err
		}
		args.positional = vals
	case *runtime.ObjectValue:
		args.named = v
	default:
		args.positional = []runtime.Value{values}
	}

	var b strings.Builder
	rest := format
	for len(rest) > 0 {
		pct := strings.IndexByte(rest, '%')
		if pct < 0 {
			b.WriteString(rest)
			break
		}
		b.WriteString(rest[:pct])
		rest = rest[pct+1:]
		spec, remaining, err := parseFormatSpec(rest, args)
		if err != nil {
			return "", err
		}
		rest = remaining
		if spec.verb == '%' {
			b.WriteByte('%')
			continue
		}
		var arg runtime.Value
		if spec.hasKey {
			arg, err = args.lookup(spec.key)
		} else {
			arg, err = args.take()
		}
		if err != nil {
			return "", err
		}
		out, err := formatOne(spec, arg)
		if err != nil {
			return "", err
		}
		b.WriteString(out)
	}
	if args.named == nil && args.next < len(args.positional) {
		return "", runtime.NewError(runtime.ErrFormat, "too many values to format: %d given, %d used", len(args.positional), args.next)
	}
	return b.String(), nil
}

func parseFormatSpec(s string, args *formatArgs) (formatSpec, string, error) {
	var spec formatSpec
	truncated := runtime.NewError(runtime.ErrFormat, "truncated format code")
	if s == "" {
		return spec, "", truncated
	}
	if s[0] == '(' {
		end := strings.IndexByte(s, ')')
		if end < 0 {
			return spec, "", truncated
		}
		spec.key, spec.hasKey = s[1:end], true
		s = s[end+1:]
	}
flags:
	for len(s) > 0 {
		switch s[0] {
		case '-':
			spec.left = true
		case '0':
			spec.zero = true
		case '+':
			spec.plus = true
		case ' ':
			spec.space = true
		case '#':
			spec.alternate = true
		default:
			break flags
		}
		s = s[1:]
	}
	var err error
	if spec.width, s, err = formatNumberField(s, args); err != nil {
		return spec, "", err
	}
	if len(s) > 0 && s[0] == '.' {
		spec.hasPrec = true
		if spec.precision, s, err = formatNumberField(s[1:], args); err != nil {
			return spec, "", err
		}
	}
	s = strings.TrimLeft(s, "hlL")
	if s == "" {
		return spec, "", truncated
	}
	r, size := utf8.DecodeRuneInString(s)
	spec.verb = r
	return spec, s[size:], nil
}

// formatNumberField reads a width or precision, which is either digits or
// `*` taking the value from the arguments.
func formatNumberField(s string, args *formatArgs) (int, string, error) {
	if len(s) > 0 && s[0] == '*' {
		v, err := args.take()
		if err != nil {
			return 0, "", err
		}
		n, err := runtime.ToInt(v, "format width")
		return n, s[1:], err
	}
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, s, nil
	}
	n, _ := strconv.Atoi(s[:end])
	return n, s[end:], nil
}

func formatOne(spec formatSpec, arg runtime.Value) (string, error) {
	switch spec.verb {
	case 's', 'r':
		s, err := runtime.ToString(arg)
		if err != nil {
			return "", err
		}
		if spec.hasPrec && spec.precision < utf8.RuneCountInString(s) {
			s = string([]rune(s)[:spec.precision])
		}
		return pad(s, spec), nil
	case 'c':
		switch v := arg.(type) {
		case runtime.NumberValue:
			return pad(string(rune(int(v.Val))), spec), nil
		case runtime.StringValue:
			if v.Len() != 1 {
				return "", runtime.NewError(runtime.ErrFormat, "%%c expected 1-sized string, got %d", v.Len())
			}
			return pad(v.Str(), spec), nil
		}
		return "", runtime.NewError(runtime.ErrFormat, "%%c expected number or string, got %s", runtime.TypeName(arg))
	}

	num, ok := arg.(runtime.NumberValue)
	if !ok {
		return "", runtime.NewError(runtime.ErrFormat, "format %%%c expected number, got %s", spec.verb, runtime.TypeName(arg))
	}
	n := num.Val
	var body string
	switch spec.verb {
	case 'd', 'i', 'u':
		body = strconv.FormatInt(int64(math.Abs(math.Trunc(n))), 10)
		if spec.hasPrec {
			body = zeroExtend(body, spec.precision)
		}
	case 'o':
		body = strconv.FormatInt(int64(math.Abs(math.Trunc(n))), 8)
		if spec.alternate {
			body = "0" + body
		}
	case 'x', 'X':
		body = strconv.FormatInt(int64(math.Abs(math.Trunc(n))), 16)
		if spec.alternate {
			body = "0x" + body
		}
		if spec.verb == 'X' {
			body = strings.ToUpper(body)
		}
	case 'f', 'F', 'e', 'E', 'g', 'G':
		prec := 6
		if spec.hasPrec {
			prec = spec.precision
		}
		verb := byte(spec.verb)
		if verb == 'F' {
			verb = 'f'
		}
		body = strconv.FormatFloat(math.Abs(n), verb, prec, 64)
	default:
		return "", runtime.NewError(runtime.ErrFormat, "unrecognized conversion type: %c", spec.verb)
	}
	sign := ""
	switch {
	case n < 0 && body != "0":
		sign = "-"
	case spec.plus:
		sign = "+"
	case spec.space:
		sign = " "
	}
	return padNumber(sign, body, spec), nil
}

func zeroExtend(digits string, width int) string {
	if len(digits) >= width {
		return digits
	}
	return strings.Repeat("0", width-len(digits)) + digits
}

func pad(s string, spec formatSpec) string {
	n := utf8.RuneCountInString(s)
	if n >= spec.width {
		return s
	}
	fill := strings.Repeat(" ", spec.width-n)
	if spec.left {
		return s + fill
	}
	return fill + s
}

// padNumber pads a signed number, placing zero padding after the sign.
func padNumber(sign, body string, spec formatSpec) string {
	if spec.zero && !spec.left {
		return sign + zeroExtend(body, spec.width-len(sign))
	}
	return pad(sign+body, spec)
}
