// Package jsonpath performs single writes through the proxy layer,
// addressed by $-rooted path expressions like $.posts[0].title. A path
// resolves to exactly one field or index; wildcard and recursive
// segments are not part of the grammar.
package jsonpath

import (
	"fmt"
	"strconv"
	"strings"
)

type segment struct {
	field   string
	index   int
	isIndex bool
}

func (s segment) String() string {
	if s.isIndex {
		return fmt.Sprintf("[%d]", s.index)
	}
	if strings.IndexAny(s.field, "'.$[]") == -1 {
		return "." + s.field
	}
	return ".'" + strings.ReplaceAll(s.field, "'", "\\'") + "'"
}

func parse(p string) ([]segment, error) {
	if len(p) == 0 || p[0] != '$' {
		return nil, fmt.Errorf("path %q should start with '$'", p)
	}
	var segs []segment
	rest := p[1:]
	for len(rest) > 0 {
		switch rest[0] {
		case '.':
			if strings.HasPrefix(rest, "..") {
				return nil, fmt.Errorf("path %q: recursive descent is not supported", p)
			}
			field, tail, err := scanField(rest[1:])
			if err != nil {
				return nil, fmt.Errorf("path %q: %w", p, err)
			}
			segs = append(segs, segment{field: field})
			rest = tail
		case '[':
			end := strings.IndexByte(rest, ']')
			if end == -1 {
				return nil, fmt.Errorf("path %q: expected '[' <index> ']'", p)
			}
			is := rest[1:end]
			if is == "*" {
				return nil, fmt.Errorf("path %q: wildcard index is not supported", p)
			}
			u, err := strconv.ParseUint(is, 10, 32)
			if err != nil {
				return nil, fmt.Errorf("path %q: bad index %q", p, is)
			}
			segs = append(segs, segment{index: int(u), isIndex: true})
			rest = rest[end+1:]
		default:
			return nil, fmt.Errorf("path %q: expected '.' or '['", p)
		}
	}
	return segs, nil
}

// scanField reads one field name, either bare (up to the next '.' or
// '[') or single-quoted with backslash escapes.
func scanField(s string) (field, tail string, err error) {
	if len(s) == 0 {
		return "", "", fmt.Errorf("expected field name")
	}
	if s[0] != '\'' {
		i := strings.IndexAny(s, ".[")
		if i == -1 {
			return s, "", nil
		}
		if i == 0 {
			return "", "", fmt.Errorf("expected field name")
		}
		return s[:i], s[i:], nil
	}
	var b strings.Builder
	escaped := false
	for i := 1; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			b.WriteByte(c)
			escaped = false
		case c == '\\':
			escaped = true
		case c == '\'':
			return b.String(), s[i+1:], nil
		default:
			b.WriteByte(c)
		}
	}
	return "", "", fmt.Errorf("unterminated quoted field")
}
