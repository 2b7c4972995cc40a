package simpledb

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	identifierPart = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_$]*$`)
	quotedPart     = regexp.MustCompile(`^("[^"]+"|\[[^\]]+\]|` + "`[^`]+`" + `)$`)
	idList         = regexp.MustCompile(`^(\d+,)*\d+$`)
)

// ValidateIdentifier accepts table, column and procedure names of the form
// name or schema.name, where every part is a plain identifier or a quoted
// one ("x", [x] or `x`).
func ValidateIdentifier(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidIdentifier)
	}
	for _, part := range strings.Split(name, ".") {
		if !identifierPart.MatchString(part) && !quotedPart.MatchString(part) {
			return fmt.Errorf("%w: %q", ErrInvalidIdentifier, name)
		}
	}
	return nil
}

// ParseIDList parses a comma separated list of integer ids such as
// "3,14,15". Anything else, spaces included, is ErrInvalidIDList.
func ParseIDList(ids string) ([]int64, error) {
	if !idList.MatchString(ids) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidIDList, ids)
	}
	parts := strings.Split(ids, ",")
	out := make([]int64, len(parts))
	for i, p := range parts {
		if _, err := fmt.Sscan(p, &out[i]); err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidIDList, ids)
		}
	}
	return out, nil
}

// Get all sum timing
func TotalTimeElapsedInSecond(reses []BasicSQLResult) float64 {
	sum := 0.0
	for i := range reses {
		sum += reses[i].Timing
	}
	return sum
}

func SecondToMs(s float64) float64 {
	return s * 1000
}

func SecondToMsString(s float64) string {
	return fmt.Sprintf("%.5f", SecondToMs(s))
}

// SplitStatements splits the content of a .sql script into individual
// statements. Statements end at ';' or at a line holding only GO (any
// case). Separators inside quotes ('..', "..", [..], `..`, $tag$..$tag$)
// do not count. Comments (-- and /* */) are dropped, empty statements
// skipped.
func SplitStatements(script string) []string {
	var (
		commands []string
		current  strings.Builder
	)
	flush := func() {
		if cmd := strings.TrimSpace(current.String()); cmd != "" {
			commands = append(commands, cmd)
		}
		current.Reset()
	}

	s := script
	lineStart := true
	for i := 0; i < len(s); {
		if lineStart {
			end := strings.IndexByte(s[i:], '\n')
			line := s[i:]
			if end >= 0 {
				line = s[i : i+end]
			}
			if strings.EqualFold(strings.TrimSpace(line), "GO") {
				flush()
				if end < 0 {
					break
				}
				i += end + 1
				continue
			}
			lineStart = false
		}

		c := s[i]
		switch {
		case c == '\n':
			current.WriteByte(c)
			lineStart = true
			i++
		case c == ';':
			flush()
			i++
		case c == '-' && strings.HasPrefix(s[i:], "--"):
			end := strings.IndexByte(s[i:], '\n')
			if end < 0 {
				i = len(s)
			} else {
				i += end
			}
		case c == '/' && strings.HasPrefix(s[i:], "/*"):
			end := strings.Index(s[i+2:], "*/")
			if end < 0 {
				i = len(s)
			} else {
				i += end + 4
			}
			current.WriteByte(' ')
		case c == '\'' || c == '"' || c == '`' || c == '[':
			closing := c
			if c == '[' {
				closing = ']'
			}
			i = copyQuoted(&current, s, i, closing)
		case c == '$':
			if tag, ok := dollarTag(s[i:]); ok {
				end := strings.Index(s[i+len(tag):], tag)
				if end < 0 {
					end = len(s) - i - len(tag)
				} else {
					end += len(tag)
				}
				current.WriteString(s[i : i+len(tag)+end])
				i += len(tag) + end
				break
			}
			current.WriteByte(c)
			i++
		default:
			current.WriteByte(c)
			i++
		}
	}
	flush()
	return commands
}

// copyQuoted copies a quoted run starting at s[i] and returns the index
// after its closing quote. A doubled closing quote is an escaped one.
func copyQuoted(b *strings.Builder, s string, i int, closing byte) int {
	b.WriteByte(s[i])
	i++
	for i < len(s) {
		b.WriteByte(s[i])
		if s[i] == closing {
			if i+1 < len(s) && s[i+1] == closing {
				b.WriteByte(s[i+1])
				i += 2
				continue
			}
			return i + 1
		}
		i++
	}
	return i
}

// dollarTag returns the $tag$ opening a dollar-quoted string at the start
// of s.
func dollarTag(s string) (string, bool) {
	end := strings.IndexByte(s[1:], '$')
	if end < 0 {
		return "", false
	}
	tag := s[:end+2]
	inner := tag[1 : len(tag)-1]
	if inner != "" && !identifierPart.MatchString(inner) {
		return "", false
	}
	return tag, true
}
