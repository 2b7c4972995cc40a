package tabular

import (
	"reflect"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// structInfo is the column layout derived from a struct type.
type structInfo struct {
	columns []Column
	// index holds the reflect field index of every column, in column order.
	index [][]int
}

var (
	cacheMutex sync.RWMutex
	cache      = make(map[reflect.Type]*structInfo)
)

// Schema returns the columns of a struct type (or pointer to struct).
//
// Fields tagged `db:"name"` become columns named after the tag. When no
// field of the struct carries a db tag, every exported field is a column
// named after the Go field. `db:"-"` skips a field in both cases. The
// result is computed once per type.
func Schema(t reflect.Type) ([]Column, error) {
	info, err := getStructInfo(t)
	if err != nil {
		return nil, err
	}
	out := make([]Column, len(info.columns))
	copy(out, info.columns)
	return out, nil
}

// StructRow returns the columns of v's type and the cells of v in the same
// order. v must be a struct or a non-nil pointer to one.
func StructRow(v any) ([]Column, []any, error) {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, nil, errors.Wrap(ErrUnsupportedType, "nil pointer")
		}
		rv = rv.Elem()
	}
	info, err := getStructInfo(rv.Type())
	if err != nil {
		return nil, nil, err
	}
	vals, err := info.values(rv)
	if err != nil {
		return nil, nil, err
	}
	return info.columns, vals, nil
}

func getStructInfo(t reflect.Type) (*structInfo, error) {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil, errors.Wrapf(ErrUnsupportedType, "%v is not a struct", t)
	}

	cacheMutex.RLock()
	info, ok := cache[t]
	cacheMutex.RUnlock()
	if ok {
		return info, nil
	}

	info, err := generateStructInfo(t)
	if err != nil {
		return nil, err
	}

	cacheMutex.Lock()
	cache[t] = info
	cacheMutex.Unlock()
	return info, nil
}

func generateStructInfo(t reflect.Type) (*structInfo, error) {
	fields := reflect.VisibleFields(t)

	tagged := false
	for _, f := range fields {
		if tag, ok := f.Tag.Lookup("db"); ok && tag != "-" && !f.Anonymous && f.IsExported() {
			tagged = true
			break
		}
	}

	info := &structInfo{}
	seen := make(map[string]bool)
	for _, f := range fields {
		if f.Anonymous || !f.IsExported() {
			continue
		}
		tag, hasTag := f.Tag.Lookup("db")
		if tag == "-" || (tagged && !hasTag) {
			continue
		}

		name := f.Name
		if hasTag {
			var err error
			if name, err = parseTag(tag); err != nil {
				return nil, errors.Wrapf(err, "field %q of %s", f.Name, t.Name())
			}
		}
		if seen[name] {
			return nil, errors.Errorf("struct %s has more than one column named %q", t.Name(), name)
		}
		seen[name] = true

		info.columns = append(info.columns, Column{
			Name:    name,
			Kind:    KindOf(f.Type),
			Ordinal: len(info.columns),
		})
		info.index = append(info.index, f.Index)
	}
	if len(info.columns) == 0 {
		return nil, errors.Wrapf(ErrUnsupportedType, "struct %s has no columns", t.Name())
	}
	return info, nil
}

// parseTag returns the column name of a db tag. The only option accepted
// after the name is omitempty, which has no effect on encoding.
func parseTag(tag string) (string, error) {
	options := strings.Split(tag, ",")
	name := strings.TrimSpace(options[0])
	if name == "" {
		return "", errors.Errorf("empty column name in tag %q", tag)
	}
	for _, opt := range options[1:] {
		if strings.TrimSpace(opt) != "omitempty" {
			return "", errors.Errorf("unexpected tag value %q", opt)
		}
	}
	return name, nil
}

// values reads the column cells of a struct value. Fields reached through
// a nil embedded pointer are null.
func (info *structInfo) values(rv reflect.Value) ([]any, error) {
	out := make([]any, len(info.index))
	for i, idx := range info.index {
		fv, err := rv.FieldByIndexErr(idx)
		if err != nil {
			out[i] = nil
			continue
		}
		out[i] = fv.Interface()
	}
	return out, nil
}
