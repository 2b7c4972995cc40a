package simpledb

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/medatechnology/goutil/print"
	"github.com/medatechnology/goutil/timedate"
)

// StatusStruct is what a backend reports about itself. Depending on the
// backend some information is empty: connection pool numbers come from
// database/sql, cluster information (leader, peers) from rqlite.
type StatusStruct struct {
	URL             string        `json:"url,omitempty"               db:"url"`         // URL (host + port) or file
	Version         string        `json:"version,omitempty"           db:"version"`     // version of the DBMS
	DBMS            string        `json:"dbms,omitempty"              db:"dbms"`        // postgresql, sqlite, rqlite
	DBMSDriver      string        `json:"dbms_driver,omitempty"       db:"dbms_driver"` // Go driver name
	StartTime       time.Time     `json:"start_time,omitempty"        db:"start_time"`
	Uptime          time.Duration `json:"uptime,omitempty"            db:"uptime"`
	DBSize          int64         `json:"db_size,omitempty"           db:"db_size"` // if applicable
	NodeID          string        `json:"node_id,omitempty"           db:"node_id"`
	IsLeader        bool          `json:"is_leader,omitempty"         db:"is_leader"`
	Leader          string        `json:"leader,omitempty"            db:"leader"` // complete address (including protocol, ie: https://...)
	Peers           []string      `json:"peers,omitempty"             db:"-"`
	Mode            string        `json:"mode,omitempty"              db:"mode"` // options are r, w, or rw
	Nodes           int           `json:"nodes,omitempty"             db:"nodes"`
	MaxPool         int           `json:"max_pool,omitempty"          db:"max_pool"`
	OpenConnections int           `json:"open_connections,omitempty"  db:"open_connections"`
	InUse           int           `json:"in_use,omitempty"            db:"in_use"`
	Idle            int           `json:"idle,omitempty"              db:"idle"`
}

// String returns a one-line summary, mainly for logs.
// Output: postgresql 16.2 localhost:5432 (3 open, 1 in use)
func (s StatusStruct) String() string {
	parts := []string{s.DBMS}
	if s.Version != "" {
		parts = append(parts, s.Version)
	}
	if s.URL != "" {
		parts = append(parts, s.URL)
	}
	if s.OpenConnections > 0 {
		parts = append(parts, fmt.Sprintf("(%d open, %d in use)", s.OpenConnections, s.InUse))
	}
	if s.Leader != "" {
		parts = append(parts, "leader "+s.Leader)
	}
	return strings.Join(parts, " ")
}

// PrintPretty prints the status as an aligned label/value list, mainly for
// debugging and the CLI. Empty values are skipped.
func (s *StatusStruct) PrintPretty(w io.Writer, indent, title string) {
	if title == "" {
		title = "Status"
	}
	fmt.Fprintln(w, title+":")
	uptime := ""
	if s.Uptime > 0 {
		uptime = timedate.DurationUptimeShort(s.Uptime)
	}
	startTime := ""
	if !s.StartTime.IsZero() {
		startTime = s.StartTime.Format("2006-01-02 15:04:05")
	}
	dbSize := ""
	if s.DBSize > 0 {
		dbSize = print.BytesToHumanReadable(s.DBSize, " ")
	}
	fields := []struct {
		label string
		value string
	}{
		{"DBMS", s.DBMS},
		{"Driver", s.DBMSDriver},
		{"URL", s.URL},
		{"Version", s.Version},
		{"Start Time", startTime},
		{"Uptime", uptime},
		{"DB Size", dbSize},
		{"Node ID", s.NodeID},
		{"Leader", s.Leader},
		{"Peers", strings.Join(s.Peers, ", ")},
		{"Mode", s.Mode},
		{"Nodes", countString(s.Nodes)},
		{"Max Pool", countString(s.MaxPool)},
		{"Open", countString(s.OpenConnections)},
		{"In Use", countString(s.InUse)},
		{"Idle", countString(s.Idle)},
	}

	maxLabelLength := 0
	for _, field := range fields {
		if len(field.label) > maxLabelLength {
			maxLabelLength = len(field.label)
		}
	}

	for _, field := range fields {
		if field.value != "" {
			fmt.Fprintf(w, "%s%-*s: %s\n", indent, maxLabelLength, field.label, field.value)
		}
	}
}

func countString(n int) string {
	if n == 0 {
		return ""
	}
	return fmt.Sprintf("%d", n)
}
