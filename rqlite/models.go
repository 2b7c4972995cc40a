package rqlite

import (
	"encoding/json"
	"time"
)

const (
	// rqlite HTTP API endpoints
	ENDPOINT_EXECUTE = "/db/execute"
	ENDPOINT_UNIFIED = "/db/request"
	ENDPOINT_NODES   = "/nodes"

	DEFAULT_TIMEOUT       = 30 * time.Second
	DEFAULT_RETRY_TIMEOUT = 500 * time.Millisecond
	DEFAULT_MAX_RETRIES   = 3
	DEFAULT_CONSISTENCY   = "weak"
)

var consistencyLevels = map[string]bool{
	"none":         true,
	"weak":         true,
	"strong":       true,
	"linearizable": true,
}

// response is the body of /db/request and /db/execute.
type response struct {
	Results []result `json:"results"`
	Time    float64  `json:"time"`
	Error   string   `json:"error,omitempty"`
}

// result is one statement's outcome. Reads carry columns, writes carry
// last_insert_id and rows_affected.
type result struct {
	Columns      []string            `json:"columns,omitempty"`
	Types        []string            `json:"types,omitempty"`
	Values       [][]json.RawMessage `json:"values,omitempty"`
	LastInsertID int64               `json:"last_insert_id,omitempty"`
	RowsAffected int64               `json:"rows_affected,omitempty"`
	Time         float64             `json:"time,omitempty"`
	Error        string              `json:"error,omitempty"`
}

// node is one entry of the /nodes response.
type node struct {
	APIAddr   string `json:"api_addr"`
	Addr      string `json:"addr"`
	Reachable bool   `json:"reachable"`
	Leader    bool   `json:"leader"`
}
