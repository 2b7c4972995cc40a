package sqldb

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/medatechnology/simpledb"
)

// mark is one parameter reference found in a query: a ? (name empty) or an
// @name, spanning query[start:end].
type mark struct {
	start, end int
	name       string
}

// marks returns the parameter references of query in order. Quoted text,
// comments and dollar-quoted bodies are skipped. @@name (server variables)
// and @ directly after an identifier are not parameters.
func marks(query string) []mark {
	var out []mark
	for i := 0; i < len(query); {
		ch := query[i]
		switch {
		case ch == '\'' || ch == '"' || ch == '`':
			i = skipQuoted(query, i, ch)
		case ch == '-' && strings.HasPrefix(query[i:], "--"):
			if end := strings.IndexByte(query[i:], '\n'); end >= 0 {
				i += end + 1
			} else {
				i = len(query)
			}
		case ch == '/' && strings.HasPrefix(query[i:], "/*"):
			if end := strings.Index(query[i+2:], "*/"); end >= 0 {
				i += end + 4
			} else {
				i = len(query)
			}
		case ch == '$':
			if tag, ok := dollarTag(query[i:]); ok {
				if end := strings.Index(query[i+len(tag):], tag); end >= 0 {
					i += len(tag) + end + len(tag)
				} else {
					i = len(query)
				}
				continue
			}
			i++
		case ch == '?':
			out = append(out, mark{start: i, end: i + 1})
			i++
		case ch == '@':
			if (i > 0 && (isNameByte(query[i-1]) || query[i-1] == '@')) ||
				i+1 >= len(query) || !isNameStart(query[i+1]) {
				i++
				for i < len(query) && query[i] == '@' {
					i++
				}
				continue
			}
			j := i + 1
			for j < len(query) && isNameByte(query[j]) {
				j++
			}
			out = append(out, mark{start: i, end: j, name: query[i+1 : j]})
			i = j
		default:
			i++
		}
	}
	return out
}

// skipQuoted returns the index after the quoted run opening at query[i].
// A doubled quote is an escaped one.
func skipQuoted(query string, i int, quote byte) int {
	for i++; i < len(query); i++ {
		if query[i] == quote {
			if i+1 < len(query) && query[i+1] == quote {
				i++
				continue
			}
			return i + 1
		}
	}
	return i
}

// dollarTag returns the $tag$ opening a dollar-quoted body at the start of
// s. $1 style placeholders are not tags.
func dollarTag(s string) (string, bool) {
	end := strings.IndexByte(s[1:], '$')
	if end < 0 {
		return "", false
	}
	inner := s[1 : end+1]
	if inner != "" && !isNameStart(inner[0]) {
		return "", false
	}
	for k := 0; k < len(inner); k++ {
		if !isNameByte(inner[k]) {
			return "", false
		}
	}
	return s[:end+2], true
}

func isNameStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isNameByte(c byte) bool {
	return isNameStart(c) || (c >= '0' && c <= '9')
}

// positionalCount returns the number of ? placeholders in query.
func positionalCount(query string) int {
	n := 0
	for _, m := range marks(query) {
		if m.name == "" {
			n++
		}
	}
	return n
}

// Bind rewrites query for a driver using style and returns the arguments
// to pass along. Named parameters are matched case-insensitively, with or
// without their @; a name referenced in query without a value is
// ErrMissingParameter. Parameters query does not reference are ignored.
func Bind(style Placeholder, query string, params []simpledb.Param) (string, []interface{}, error) {
	cmd := simpledb.Command{Query: query, Params: params}
	named, err := cmd.Named()
	if err != nil {
		return "", nil, err
	}
	refs := marks(query)

	if !named {
		values := cmd.Values()
		if style != Dollar {
			return query, values, nil
		}
		var (
			b    strings.Builder
			last int
			n    int
		)
		for _, m := range refs {
			if m.name != "" {
				continue
			}
			n++
			b.WriteString(query[last:m.start])
			b.WriteString("$" + strconv.Itoa(n))
			last = m.end
		}
		b.WriteString(query[last:])
		return b.String(), values, nil
	}

	lookup := make(map[string]interface{}, len(params))
	for _, p := range params {
		lookup[strings.ToLower(p.Key())] = p.Value
	}

	var (
		b    strings.Builder
		args []interface{}
		last int
		seen = make(map[string]int)
	)
	for _, m := range refs {
		if m.name == "" {
			continue
		}
		key := strings.ToLower(m.name)
		v, ok := lookup[key]
		if !ok {
			return "", nil, fmt.Errorf("%w: @%s", ErrMissingParameter, m.name)
		}
		switch style {
		case Question:
			b.WriteString(query[last:m.start])
			b.WriteByte('?')
			args = append(args, v)
		case Dollar:
			n, ok := seen[key]
			if !ok {
				args = append(args, v)
				n = len(args)
				seen[key] = n
			}
			b.WriteString(query[last:m.start])
			b.WriteString("$" + strconv.Itoa(n))
		default:
			b.WriteString(query[last:m.end])
			if _, ok := seen[key]; !ok {
				seen[key] = len(args)
				args = append(args, sql.Named(m.name, v))
			}
		}
		last = m.end
	}
	b.WriteString(query[last:])
	return b.String(), args, nil
}

// Statement is one bound statement, ready for the driver.
type Statement struct {
	Query string
	Args  []interface{}
}

// Split splits the query text of cmd into statements and binds each for
// style. Positional arguments are handed out to the statements in order of
// their ? marks, the last statement taking what is left; named ones are
// offered to each.
func Split(style Placeholder, cmd simpledb.Command) ([]Statement, error) {
	texts := simpledb.SplitStatements(cmd.Query)
	if len(texts) == 0 {
		return nil, ErrEmptyQuery
	}
	named, err := cmd.Named()
	if err != nil {
		return nil, err
	}

	out := make([]Statement, 0, len(texts))
	params := cmd.Params
	for i, text := range texts {
		own := cmd.Params
		if !named {
			n := positionalCount(text)
			if i == len(texts)-1 || n > len(params) {
				n = len(params)
			}
			own, params = params[:n], params[n:]
		}
		query, args, err := Bind(style, text, own)
		if err != nil {
			return nil, err
		}
		out = append(out, Statement{Query: query, Args: args})
	}
	return out, nil
}
