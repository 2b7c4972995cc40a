package tabular

import (
	"context"
	"reflect"

	"github.com/pkg/errors"
)

// Field describes one column of an object list: its name, its kind and how
// to read its value from an element.
type Field[T any] struct {
	Name string
	Kind Kind
	Get  func(T) any
}

// ObjectSource is a row source over a slice of objects.
type ObjectSource[T any] struct {
	objects []T
	columns []Column
	read    func(T) ([]any, error)
	pos     int
	err     error
}

// NewObjectSource returns a source over objects. With fields, the columns
// are exactly the fields. Without, T (or the dynamic type of the first
// element when T is an interface) must be a struct whose schema is used;
// every element must then have that same type.
func NewObjectSource[T any](objects []T, fields ...Field[T]) (*ObjectSource[T], error) {
	s := &ObjectSource[T]{objects: objects}

	if len(fields) > 0 {
		cols := make([]Column, len(fields))
		for i, f := range fields {
			if f.Get == nil {
				return nil, errors.Errorf("field %q has no accessor", f.Name)
			}
			cols[i] = Column{Name: f.Name, Kind: f.Kind, Ordinal: i}
		}
		s.columns = cols
		s.read = func(obj T) ([]any, error) {
			row := make([]any, len(fields))
			for i, f := range fields {
				row[i] = f.Get(obj)
			}
			return row, nil
		}
		return s, nil
	}

	t := reflect.TypeOf((*T)(nil)).Elem()
	dynamic := t.Kind() == reflect.Interface
	if dynamic {
		if len(objects) == 0 {
			return s, nil
		}
		first := reflect.ValueOf(objects[0])
		if !first.IsValid() {
			return nil, errors.Wrap(ErrUnsupportedType, "nil element")
		}
		t = first.Type()
	}

	info, err := getStructInfo(t)
	if err != nil {
		return nil, err
	}
	s.columns = info.columns
	s.read = func(obj T) ([]any, error) {
		rv := reflect.ValueOf(obj)
		if dynamic && (!rv.IsValid() || rv.Type() != t) {
			return nil, errors.Wrapf(ErrShapeMismatch, "element of type %v in a list of %v", reflect.TypeOf(obj), t)
		}
		for rv.Kind() == reflect.Pointer {
			if rv.IsNil() {
				return make([]any, len(info.columns)), nil
			}
			rv = rv.Elem()
		}
		return info.values(rv)
	}
	return s, nil
}

func (s *ObjectSource[T]) Columns() ([]Column, error) {
	out := make([]Column, len(s.columns))
	copy(out, s.columns)
	return out, nil
}

func (s *ObjectSource[T]) Next() bool {
	if s.err != nil || s.pos > len(s.objects) {
		return false
	}
	s.pos++
	return s.pos <= len(s.objects)
}

func (s *ObjectSource[T]) Values() ([]any, error) {
	if s.pos < 1 || s.pos > len(s.objects) {
		return nil, errors.New("no current row")
	}
	row, err := s.read(s.objects[s.pos-1])
	if err != nil {
		s.err = err
		return nil, err
	}
	return row, nil
}

func (s *ObjectSource[T]) Err() error { return s.err }

// EncodeObjects encodes a list of objects. An empty list gives nil.
func EncodeObjects[T any](ctx context.Context, e *Encoder, objects []T, fields ...Field[T]) (*string, error) {
	if len(objects) == 0 {
		return nil, ctx.Err()
	}
	src, err := NewObjectSource(objects, fields...)
	if err != nil {
		return nil, err
	}
	return e.Encode(ctx, src)
}
