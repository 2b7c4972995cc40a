package rqlite

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/medatechnology/simpledb"
	"github.com/medatechnology/simpledb/sqldb"
)

// httpClient talks to the rqlite HTTP API directly.
type httpClient struct {
	config RqliteConfig
	http   *http.Client
}

func newHTTPClient(config RqliteConfig, hc *http.Client) *httpClient {
	if hc == nil {
		hc = &http.Client{Timeout: config.Timeout}
	}
	return &httpClient{config: config, http: hc}
}

func (c *httpClient) name() string { return "rqlite-http" }

func (c *httpClient) close() {}

// buildURL creates a complete URL with the consistency level and params
func (c *httpClient) buildURL(endpoint string, params url.Values) string {
	if params == nil {
		params = url.Values{}
	}
	if c.config.Consistency != "" {
		params.Set("level", c.config.Consistency)
	}
	if q := params.Encode(); q != "" {
		endpoint += "?" + q
	}
	return c.config.URL + endpoint
}

// send posts (or gets, when body is nil) and retries transport errors and
// 503s. Other error statuses fail at once.
func (c *httpClient) send(ctx context.Context, endpoint string, params url.Values, body []byte) ([]byte, error) {
	target := c.buildURL(endpoint, params)
	var lastErr error
	for attempt := 0; attempt < c.config.RetryCount; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(DEFAULT_RETRY_TIMEOUT * time.Duration(attempt)):
			}
		}

		method := http.MethodGet
		var reader io.Reader
		if body != nil {
			method = http.MethodPost
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, target, reader)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if c.config.Username != "" || c.config.Password != "" {
			req.SetBasicAuth(c.config.Username, c.config.Password)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = fmt.Errorf("%w: %v", ErrRQLiteConnectionFailed, err)
			continue
		}
		data, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}
		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return data, nil
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			return nil, &RQLiteError{StatusCode: resp.StatusCode, Message: ErrRQLiteUnauthorized.Message, Err: ErrRQLiteUnauthorized}
		case resp.StatusCode == http.StatusServiceUnavailable:
			lastErr = &RQLiteError{StatusCode: resp.StatusCode, Message: string(bytes.TrimSpace(data))}
		default:
			return nil, &RQLiteError{StatusCode: resp.StatusCode, Message: string(bytes.TrimSpace(data))}
		}
	}
	return nil, fmt.Errorf("request failed after %d attempts: %w", c.config.RetryCount, lastErr)
}

// body encodes statements the way rqlite expects them: each one a JSON
// array of the query followed by its positional arguments.
func body(stmts []sqldb.Statement) ([]byte, error) {
	out := make([][]interface{}, len(stmts))
	for i, st := range stmts {
		one := make([]interface{}, 0, len(st.Args)+1)
		one = append(one, st.Query)
		for _, arg := range st.Args {
			// rqlite has no time type; SQLite's own format sorts and parses
			if t, ok := arg.(time.Time); ok {
				arg = t.UTC().Format("2006-01-02 15:04:05.999999999")
			}
			one = append(one, arg)
		}
		out[i] = one
	}
	return json.Marshal(out)
}

func (c *httpClient) post(ctx context.Context, endpoint string, params url.Values, stmts []sqldb.Statement) (*response, error) {
	data, err := body(stmts)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal statements: %w", err)
	}
	raw, err := c.send(ctx, endpoint, params, data)
	if err != nil {
		return nil, err
	}
	var resp response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRQLiteInvalidJSON, err)
	}
	if resp.Error != "" {
		return nil, &RQLiteError{Message: resp.Error}
	}
	if len(resp.Results) != len(stmts) {
		return nil, fmt.Errorf("%w: %d results for %d statements", ErrRQLiteInvalidJSON, len(resp.Results), len(stmts))
	}
	return &resp, nil
}

// query runs stmts through the unified endpoint, so writes may be mixed
// with reads. Statements without columns give nil sets.
func (c *httpClient) query(ctx context.Context, stmts []sqldb.Statement) ([]*resultSet, error) {
	params := url.Values{}
	params.Set("timings", "")
	resp, err := c.post(ctx, ENDPOINT_UNIFIED, params, stmts)
	if err != nil {
		return nil, err
	}
	sets := make([]*resultSet, len(resp.Results))
	for i, r := range resp.Results {
		if r.Error != "" {
			return nil, statementError("QUERY", i, stmts[i].Query, r.Error)
		}
		if len(r.Columns) == 0 {
			continue
		}
		rs := &resultSet{columns: r.Columns, types: r.Types, rows: make([][]any, len(r.Values))}
		for j, values := range r.Values {
			row := make([]any, len(values))
			for k, cell := range values {
				if row[k], err = decodeCell(cell); err != nil {
					return nil, fmt.Errorf("%w: %v", ErrRQLiteInvalidJSON, err)
				}
			}
			rs.rows[j] = row
		}
		sets[i] = rs
	}
	return sets, nil
}

func (c *httpClient) write(ctx context.Context, stmts []sqldb.Statement, transaction bool) ([]simpledb.BasicSQLResult, error) {
	params := url.Values{}
	params.Set("timings", "")
	if transaction {
		params.Set("transaction", "")
	}
	resp, err := c.post(ctx, ENDPOINT_EXECUTE, params, stmts)
	if err != nil {
		return nil, err
	}
	results := make([]simpledb.BasicSQLResult, len(resp.Results))
	for i, r := range resp.Results {
		if r.Error != "" {
			return nil, statementError("EXEC", i, stmts[i].Query, r.Error)
		}
		results[i] = simpledb.BasicSQLResult{
			LastInsertID: r.LastInsertID,
			RowsAffected: r.RowsAffected,
			Timing:       r.Time,
		}
	}
	return results, nil
}

// status reads the cluster membership from /nodes.
func (c *httpClient) status(ctx context.Context, status *simpledb.StatusStruct) error {
	raw, err := c.send(ctx, ENDPOINT_NODES, nil, nil)
	if err != nil {
		return err
	}
	nodes, err := parseNodes(raw)
	if err != nil {
		return err
	}

	ids := make([]string, 0, len(nodes))
	for id := range nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		n := nodes[id]
		if n.Leader {
			status.Leader = n.APIAddr
			status.IsLeader = n.APIAddr == c.config.URL
			if status.IsLeader {
				status.NodeID = id
			}
			continue
		}
		status.Peers = append(status.Peers, n.APIAddr)
		if n.APIAddr == c.config.URL {
			status.NodeID = id
		}
	}
	status.Nodes = len(nodes)
	return nil
}

// parseNodes accepts both /nodes formats: a map keyed by node id and the
// newer {"nodes": [{"id": ...}]} list.
func parseNodes(raw []byte) (map[string]node, error) {
	var list struct {
		Nodes []struct {
			ID string `json:"id"`
			node
		} `json:"nodes"`
	}
	if err := json.Unmarshal(raw, &list); err == nil && list.Nodes != nil {
		out := make(map[string]node, len(list.Nodes))
		for _, n := range list.Nodes {
			out[n.ID] = n.node
		}
		return out, nil
	}
	var byID map[string]node
	if err := json.Unmarshal(raw, &byID); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRQLiteInvalidJSON, err)
	}
	return byID, nil
}
