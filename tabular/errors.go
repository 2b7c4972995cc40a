package tabular

import "github.com/pkg/errors"

var (
	// ErrShapeMismatch is returned when a row does not have exactly one
	// cell per column.
	ErrShapeMismatch = errors.New("row does not match the column list")

	// ErrMalformedBlob is returned by the decoder for text that does not
	// follow the format grammar.
	ErrMalformedBlob = errors.New("malformed tabular blob")

	// ErrUnsupportedType is returned when an object list cannot be
	// described as columns.
	ErrUnsupportedType = errors.New("type cannot be encoded as rows")
)
