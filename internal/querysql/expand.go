package querysql

import (
	"fmt"
	"strings"
)

// QuoteIdentifier escapes a MySQL identifier with backticks, doubling any
// embedded backtick.
func QuoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// QuoteQualified quotes each dot-separated part of a name, so `db.users`
// becomes `db`.`users`.
func QuoteQualified(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = QuoteIdentifier(p)
	}
	return strings.Join(parts, ".")
}

// Expand prepares rendered SQL for the driver.
//
// Each `??` consumes one binding, which must be a string, and is replaced by
// the quoted identifier. Each `?` consumes one binding, which is returned in
// args for the driver to bind. Placeholders inside quoted literals and quoted
// identifiers are left alone. The number of placeholders must match the
// number of bindings exactly.
func Expand(sql string, bindings []any) (string, []any, error) {
	var out strings.Builder
	out.Grow(len(sql) + 16)
	args := make([]any, 0, len(bindings))
	next := 0

	take := func() (any, error) {
		if next >= len(bindings) {
			return nil, fmt.Errorf("expand: not enough bindings for placeholders (have %d)", len(bindings))
		}
		v := bindings[next]
		next++
		return v, nil
	}

	var quote byte
	for i := 0; i < len(sql); i++ {
		ch := sql[i]

		if quote != 0 {
			out.WriteByte(ch)
			switch {
			case ch == '\\' && quote != '`' && i+1 < len(sql):
				i++
				out.WriteByte(sql[i])
			case ch == quote:
				quote = 0
			}
			continue
		}

		switch ch {
		case '\'', '"', '`':
			quote = ch
			out.WriteByte(ch)
		case '?':
			if i+1 < len(sql) && sql[i+1] == '?' {
				i++
				v, err := take()
				if err != nil {
					return "", nil, err
				}
				name, ok := v.(string)
				if !ok {
					return "", nil, fmt.Errorf("expand: identifier binding %d is %T, not string", next-1, v)
				}
				out.WriteString(QuoteQualified(name))
				continue
			}
			v, err := take()
			if err != nil {
				return "", nil, err
			}
			args = append(args, v)
			out.WriteByte('?')
		default:
			out.WriteByte(ch)
		}
	}

	if next != len(bindings) {
		return "", nil, fmt.Errorf("expand: %d bindings for %d placeholders", len(bindings), next)
	}
	return out.String(), args, nil
}
