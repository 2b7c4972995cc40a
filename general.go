package simpledb

import (
	"strings"

	"github.com/medatechnology/goutil/medaerror"
)

const (
	DEFAULT_PRIMARY_KEY          = "Id"
	DEFAULT_MAX_MULTIPLE_INSERTS = 100 // Maximum number of rows to insert in a single SQL statement
)

var (
	// Some global vars are needed so we can change this on the fly later on.
	ErrSQLNoRows                  medaerror.MedaError = medaerror.MedaError{Message: "select returns no rows"}
	ErrInvalidIDList              medaerror.MedaError = medaerror.MedaError{Message: "wrong format of delete IDs"}
	ErrMissingPrimaryKey          medaerror.MedaError = medaerror.MedaError{Message: "primary key property was not provided"}
	ErrEmptyRecord                medaerror.MedaError = medaerror.MedaError{Message: "record has no columns"}
	ErrInvalidIdentifier          medaerror.MedaError = medaerror.MedaError{Message: "invalid SQL identifier"}
	ErrStoredProcedureUnsupported medaerror.MedaError = medaerror.MedaError{Message: "backend does not support stored procedures"}
	ErrMixedParameters            medaerror.MedaError = medaerror.MedaError{Message: "named and positional parameters cannot be mixed"}
	MAX_MULTIPLE_INSERTS          int                 = DEFAULT_MAX_MULTIPLE_INSERTS
)

// mostly used for rawSQL execution, this is the return, empty if it's not applicable
// This is not for query where we return usually rows
type BasicSQLResult struct {
	Timing       float64 `json:"timing"          db:"timing"` // in seconds
	RowsAffected int64   `json:"rows_affected"   db:"rows_affected"`
	LastInsertID int64   `json:"last_insert_id"  db:"last_insert_id"`
}

// Param is one command parameter. An empty Name makes it positional.
type Param struct {
	Name  string
	Value interface{}
}

// P builds a named parameter. The leading @ is optional.
func P(name string, value interface{}) Param {
	return Param{Name: name, Value: value}
}

// NullableString trims value and binds blank strings as NULL.
func NullableString(name, value string) Param {
	value = strings.TrimSpace(value)
	if value == "" {
		return Param{Name: name, Value: nil}
	}
	return Param{Name: name, Value: value}
}

// Key returns the parameter name without its @ prefix.
func (p Param) Key() string {
	return strings.TrimPrefix(p.Name, "@")
}

// Command is what is sent to a backend: query text (or procedure name),
// whether it is a stored procedure, and its parameters.
type Command struct {
	Query           string  `json:"query"`
	StoredProcedure bool    `json:"stored_procedure,omitempty"`
	Params          []Param `json:"params,omitempty"`
}

// Option modifies a Command. Every query method takes ...Option instead of
// the overloads a command would otherwise need.
type Option func(*Command)

// StoredProcedure marks the query as the name of a stored procedure.
func StoredProcedure() Option {
	return func(c *Command) { c.StoredProcedure = true }
}

// WithParams appends parameters.
func WithParams(params ...Param) Option {
	return func(c *Command) { c.Params = append(c.Params, params...) }
}

// With appends one named parameter.
func With(name string, value interface{}) Option {
	return WithParams(P(name, value))
}

// Args appends positional parameters.
func Args(values ...interface{}) Option {
	return func(c *Command) {
		for _, v := range values {
			c.Params = append(c.Params, Param{Value: v})
		}
	}
}

// NewCommand applies opts to a command for query.
func NewCommand(query string, opts ...Option) Command {
	c := Command{Query: query}
	for _, opt := range opts {
		if opt != nil {
			opt(&c)
		}
	}
	return c
}

// Named reports whether the command binds parameters by name. It fails
// when named and positional parameters are mixed.
func (c Command) Named() (bool, error) {
	named, positional := false, false
	for _, p := range c.Params {
		if p.Name == "" {
			positional = true
		} else {
			named = true
		}
	}
	if named && positional {
		return false, ErrMixedParameters
	}
	return named, nil
}

// Values returns the parameter values in order.
func (c Command) Values() []interface{} {
	if len(c.Params) == 0 {
		return nil
	}
	values := make([]interface{}, len(c.Params))
	for i, p := range c.Params {
		values[i] = p.Value
	}
	return values
}

// ResultKind selects how Retrieve writes one result set.
type ResultKind int

const (
	// ResultArray writes every row as a JSON array of objects.
	ResultArray ResultKind = iota
	// ResultObject writes the first row as a JSON object.
	ResultObject
	// ResultValue writes the first cell of the first row.
	ResultValue
	// ResultCsv writes the tabular blob as a JSON string.
	ResultCsv
)

func (k ResultKind) String() string {
	switch k {
	case ResultObject:
		return "object"
	case ResultValue:
		return "value"
	case ResultCsv:
		return "csv"
	default:
		return "array"
	}
}

// Property names one result set of a Retrieve batch.
type Property struct {
	Name string
	Kind ResultKind
}

// Prop is a shorthand for a Property.
func Prop(name string, kind ResultKind) Property {
	return Property{Name: name, Kind: kind}
}
