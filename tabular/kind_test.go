package tabular

import (
	"database/sql"
	"encoding/json"
	"testing"
	"time"
)

type status int

func (s status) String() string { return [...]string{"new", "done"}[s] }

// TestKindOf tests the type marker table
func TestKindOf(t *testing.T) {
	tests := []struct {
		value    any
		expected Kind
	}{
		{0, Numeric},
		{int8(0), Numeric},
		{int64(0), Numeric},
		{uint(0), Text},
		{uint16(0), Text},
		{uint32(0), Text},
		{uint64(0), Text},
		{byte(0), Numeric},
		{0.5, Decimal},
		{float32(0.5), Decimal},
		{json.Number("1"), Decimal},
		{time.Time{}, DateTime},
		{true, Boolean},
		{"", Text},
		{[]byte{}, Text},
		{'x', Numeric},
		{time.Second, Text},
		{status(0), Text},
		{struct{}{}, Text},
		{sql.NullInt64{}, Numeric},
		{sql.NullFloat64{}, Decimal},
		{sql.NullTime{}, DateTime},
		{sql.NullBool{}, Boolean},
		{sql.NullString{}, Text},
		{sql.Null[int32]{}, Numeric},
		{sql.Null[time.Time]{}, DateTime},
		{new(int), Numeric},
		{new(*float64), Decimal},
	}

	for _, tt := range tests {
		got := KindOfValue(tt.value)
		if got != tt.expected {
			t.Errorf("Expected %T to be %s, got %s", tt.value, tt.expected, got)
		}
	}

	if KindOf(nil) != Text {
		t.Errorf("Expected nil type to be text")
	}
	if KindOfValue(nil) != Text {
		t.Errorf("Expected nil value to be text")
	}
}

// TestMarkers tests that every marker maps back to its kind
func TestMarkers(t *testing.T) {
	expected := map[Kind]byte{Text: '$', Numeric: '!', Decimal: '%', DateTime: '#', Boolean: '^'}
	for kind, marker := range expected {
		if kind.Marker() != marker {
			t.Errorf("Expected marker of %s to be %c, got %c", kind, marker, kind.Marker())
		}
		back, ok := KindFromMarker(marker)
		if !ok || back != kind {
			t.Errorf("Expected %c to map to %s, got %s", marker, kind, back)
		}
	}
	if _, ok := KindFromMarker('*'); ok {
		t.Error("Expected unknown marker to be rejected")
	}
}

// TestKindOfDatabaseType tests the driver type name table
func TestKindOfDatabaseType(t *testing.T) {
	tests := []struct {
		name     string
		expected Kind
		known    bool
	}{
		{"INT4", Numeric, true},
		{"bigint", Numeric, true},
		{"INTEGER UNSIGNED", Text, true},
		{"bigint(20) unsigned", Text, true},
		{"TINYINT UNSIGNED", Numeric, true},
		{"DECIMAL(10,2) UNSIGNED", Decimal, true},
		{"NUMERIC(10,2)", Decimal, true},
		{"float8", Decimal, true},
		{"TIMESTAMPTZ", DateTime, true},
		{"date", DateTime, true},
		{"BOOL", Boolean, true},
		{"VARCHAR(255)", Text, true},
		{"UUID", Text, true},
		{"", Text, false},
		{"GEOMETRY", Text, false},
	}

	for _, tt := range tests {
		kind, known := KindOfDatabaseType(tt.name)
		if kind != tt.expected || known != tt.known {
			t.Errorf("Expected %q to be (%s, %v), got (%s, %v)", tt.name, tt.expected, tt.known, kind, known)
		}
	}
}

// TestParseTimeUnit tests time unit names
func TestParseTimeUnit(t *testing.T) {
	for _, s := range []string{"", "s", "Seconds"} {
		if u, err := ParseTimeUnit(s); err != nil || u != Seconds {
			t.Errorf("Expected %q to be seconds, got %v (%v)", s, u, err)
		}
	}
	for _, s := range []string{"ms", "milliseconds"} {
		if u, err := ParseTimeUnit(s); err != nil || u != Milliseconds {
			t.Errorf("Expected %q to be milliseconds, got %v (%v)", s, u, err)
		}
	}
	if _, err := ParseTimeUnit("hours"); err == nil {
		t.Error("Expected an error for an unknown unit")
	}
	at := time.Date(2020, 1, 2, 3, 4, 5, 6000000, time.UTC)
	if got := Milliseconds.Time(Milliseconds.Epoch(at)); !got.Equal(at) {
		t.Errorf("Expected %v, got %v", at, got)
	}
	if got := Seconds.Time(Seconds.Epoch(at)); !got.Equal(at.Truncate(time.Second)) {
		t.Errorf("Expected %v, got %v", at.Truncate(time.Second), got)
	}
}
