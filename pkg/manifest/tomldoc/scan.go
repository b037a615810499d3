package tomldoc

import (
	"fmt"
	"strings"

	"github.com/sink-tools/sink/pkg/errors"
)

// scanState tracks whether the scanner is inside a multi-line construct at a
// line boundary: an unterminated multi-line string, or an array or inline
// table whose brackets have not closed yet.
type scanState struct {
	mlDelim string // `"""` or `'''` while inside a multi-line string
	depth   int    // unclosed [ and { outside of strings
}

func (s *scanState) open() bool { return s.mlDelim != "" || s.depth > 0 }

// feed advances the state over one line of value text.
func (s *scanState) feed(src string) {
	i := 0
	for i < len(src) {
		if s.mlDelim != "" {
			end := strings.Index(src[i:], s.mlDelim)
			if end < 0 {
				return
			}
			i += end + len(s.mlDelim)
			s.mlDelim = ""
			continue
		}

		switch c := src[i]; c {
		case '#':
			return
		case '"', '\'':
			delim := string(c)
			if strings.HasPrefix(src[i:], delim+delim+delim) {
				s.mlDelim = delim + delim + delim
				i += 3
				continue
			}
			j, ok := scanSingleLineString(src, i)
			if !ok {
				// Treat an unterminated single-line string as consuming
				// the rest of the line; the semantic decoder reports it.
				return
			}
			i = j
		case '[', '{':
			s.depth++
			i++
		case ']', '}':
			if s.depth > 0 {
				s.depth--
			}
			i++
		default:
			i++
		}
	}
}

// scanSingleLineString scans a "basic" or 'literal' string starting at the
// opening quote and returns the index just past the closing quote.
func scanSingleLineString(src string, start int) (int, bool) {
	quote := src[start]
	i := start + 1
	for i < len(src) {
		switch {
		case src[i] == '\\' && quote == '"':
			i += 2
		case src[i] == quote:
			return i + 1, true
		default:
			i++
		}
	}
	return 0, false
}

// parseHeader decodes a [table] or [[array-of-tables]] header line that has
// already been trimmed of surrounding whitespace.
func parseHeader(trimmed string) (path []string, array bool, err error) {
	s := trimmed[1:]
	if strings.HasPrefix(s, "[") {
		array = true
		s = s[1:]
	}

	path, rest, err := parseKeyPath(s)
	if err != nil {
		return nil, false, err
	}

	close := "]"
	if array {
		close = "]]"
	}
	rest = strings.TrimLeft(rest, " \t")
	if !strings.HasPrefix(rest, close) {
		return nil, false, errors.New(errors.ErrCodeInvalidManifest, "malformed table header: %s", trimmed)
	}
	rest = strings.TrimSpace(rest[len(close):])
	if rest != "" && !strings.HasPrefix(rest, "#") {
		return nil, false, errors.New(errors.ErrCodeInvalidManifest, "trailing content after table header: %s", trimmed)
	}
	return path, array, nil
}

// splitKeyLine decodes the key of a trimmed key/value line and returns the
// value text after the equals sign for scan-state tracking.
func splitKeyLine(trimmed string) (key []string, rest string, err error) {
	key, rest, err = parseKeyPath(trimmed)
	if err != nil {
		return nil, "", err
	}
	rest = strings.TrimLeft(rest, " \t")
	if !strings.HasPrefix(rest, "=") {
		return nil, "", errors.New(errors.ErrCodeInvalidManifest, "expected key/value pair: %s", trimmed)
	}
	return key, rest[1:], nil
}

// parseKeyPath parses a dotted TOML key (bare, "basic" or 'literal' segments)
// and returns the remaining unparsed text.
func parseKeyPath(s string) ([]string, string, error) {
	var path []string
	for {
		s = strings.TrimLeft(s, " \t")
		seg, rest, err := parseKeySegment(s)
		if err != nil {
			return nil, "", err
		}
		path = append(path, seg)
		s = strings.TrimLeft(rest, " \t")
		if strings.HasPrefix(s, ".") {
			s = s[1:]
			continue
		}
		return path, s, nil
	}
}

func parseKeySegment(s string) (string, string, error) {
	if s == "" {
		return "", "", errors.New(errors.ErrCodeInvalidManifest, "empty key")
	}

	switch s[0] {
	case '"':
		end, ok := scanSingleLineString(s, 0)
		if !ok {
			return "", "", errors.New(errors.ErrCodeInvalidManifest, "unterminated quoted key: %s", s)
		}
		seg, err := unescapeBasic(s[1 : end-1])
		if err != nil {
			return "", "", err
		}
		return seg, s[end:], nil
	case '\'':
		end, ok := scanSingleLineString(s, 0)
		if !ok {
			return "", "", errors.New(errors.ErrCodeInvalidManifest, "unterminated quoted key: %s", s)
		}
		return s[1 : end-1], s[end:], nil
	}

	i := 0
	for i < len(s) && isBareKeyChar(s[i]) {
		i++
	}
	if i == 0 {
		return "", "", errors.New(errors.ErrCodeInvalidManifest, "invalid key: %s", s)
	}
	return s[:i], s[i:], nil
}

func isBareKeyChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' ||
		c >= '0' && c <= '9' || c == '-' || c == '_'
}

func unescapeBasic(s string) (string, error) {
	if !strings.Contains(s, "\\") {
		return s, nil
	}
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' {
			sb.WriteByte(s[i])
			continue
		}
		i++
		if i >= len(s) {
			return "", errors.New(errors.ErrCodeInvalidManifest, "dangling escape in key: %s", s)
		}
		switch s[i] {
		case '"':
			sb.WriteByte('"')
		case '\\':
			sb.WriteByte('\\')
		case 't':
			sb.WriteByte('\t')
		case 'n':
			sb.WriteByte('\n')
		case 'r':
			sb.WriteByte('\r')
		default:
			return "", errors.New(errors.ErrCodeInvalidManifest, "unsupported escape \\%c in key", s[i])
		}
	}
	return sb.String(), nil
}

// renderKey renders a key segment, quoting it when it is not a bare key.
func renderKey(key string) string {
	if key != "" && strings.IndexFunc(key, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' ||
			r >= '0' && r <= '9' || r == '-' || r == '_')
	}) < 0 {
		return key
	}
	return escapeBasic(key)
}

func renderHeader(path []string) string {
	segs := make([]string, len(path))
	for i, p := range path {
		segs[i] = renderKey(p)
	}
	return "[" + strings.Join(segs, ".") + "]"
}

func escapeBasic(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\t':
			sb.WriteString(`\t`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		default:
			if r < 0x20 {
				sb.WriteString(fmt.Sprintf(`\u%04X`, r))
			} else {
				sb.WriteRune(r)
			}
		}
	}
	sb.WriteByte('"')
	return sb.String()
}
