// Package rest talks to a remote tabular store over its REST filter protocol:
// GET/POST/PATCH/DELETE on /<resource>/<table> with select=, <field>=eq.<v>,
// <field>=is.null and limit= query parameters.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jrsteele09/go-movie-server/store"
	"github.com/rs/zerolog/log"
)

const (
	DefaultResourcePath = "rest/v1"
	defaultTimeout      = 10 * time.Second

	preferRepresentation = "return=representation"
	preferMinimal        = "return=minimal"
)

var _ store.Backend = (*Client)(nil)

// Client is a store.Backend over HTTP. It performs no retries.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// ClientOption defines a function type to modify the Client instance.
type ClientOption func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// New creates a client for the store at serverURL. resourcePath is the
// prefix before the table name and defaults to DefaultResourcePath.
func New(serverURL, resourcePath, apiKey string, options ...ClientOption) *Client {
	if strings.TrimSpace(resourcePath) == "" {
		resourcePath = DefaultResourcePath
	}
	c := &Client{
		baseURL:    strings.TrimRight(serverURL, "/") + "/" + strings.Trim(resourcePath, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// Select returns the rows of table matching q.
func (c *Client) Select(ctx context.Context, table string, q store.Query) ([]store.Row, error) {
	params := filterParams(q.Filters)
	columns := "*"
	if len(q.Columns) > 0 {
		columns = strings.Join(q.Columns, ",")
	}
	params.Set("select", columns)
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}

	body, err := c.do(ctx, http.MethodGet, table, params, nil, "")
	if err != nil {
		return nil, err
	}
	return decodeRows(body)
}

// Insert creates rows and returns their stored representation.
func (c *Client) Insert(ctx context.Context, table string, rows ...store.Row) ([]store.Row, error) {
	if len(rows) == 0 {
		return []store.Row{}, nil
	}
	body, err := c.do(ctx, http.MethodPost, table, nil, rows, preferRepresentation)
	if err != nil {
		return nil, err
	}
	return decodeRows(body)
}

// Update patches every row matching filters and returns the affected rows.
func (c *Client) Update(ctx context.Context, table string, patch store.Row, filters store.Filters) ([]store.Row, error) {
	body, err := c.do(ctx, http.MethodPatch, table, filterParams(filters), patch, preferRepresentation)
	if err != nil {
		return nil, err
	}
	return decodeRows(body)
}

// Delete removes every row matching filters.
func (c *Client) Delete(ctx context.Context, table string, filters store.Filters) error {
	_, err := c.do(ctx, http.MethodDelete, table, filterParams(filters), nil, preferMinimal)
	return err
}

func filterParams(filters store.Filters) url.Values {
	params := url.Values{}
	for field, value := range filters {
		if value == nil {
			params.Set(field, "is.null")
			continue
		}
		params.Set(field, "eq."+fmt.Sprint(value))
	}
	return params
}

// do sends one request and returns the raw JSON body, or nil when the body is empty.
func (c *Client) do(ctx context.Context, method, table string, params url.Values, payload any, prefer string) (json.RawMessage, error) {
	endpoint := c.baseURL + "/" + url.PathEscape(table)
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, &store.RequestError{Status: http.StatusInternalServerError, Message: fmt.Sprintf("encode payload: %v", err)}
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, &store.RequestError{Status: http.StatusInternalServerError, Message: fmt.Sprintf("build request: %v", err)}
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Warn().Err(err).Str("method", method).Str("table", table).Msg("remote store unreachable")
		return nil, &store.RequestError{Status: http.StatusServiceUnavailable, Message: err.Error()}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &store.RequestError{Status: http.StatusServiceUnavailable, Message: fmt.Sprintf("read response: %v", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &store.RequestError{Status: resp.StatusCode, Message: errorMessage(resp.StatusCode, data)}
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	if !json.Valid(data) {
		return nil, &store.RequestError{Status: resp.StatusCode, Message: "response is not valid JSON"}
	}
	return json.RawMessage(data), nil
}

func errorMessage(status int, body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	if text := strings.TrimSpace(string(body)); text != "" {
		return text
	}
	return http.StatusText(status)
}

func decodeRows(body json.RawMessage) ([]store.Row, error) {
	if body == nil {
		return []store.Row{}, nil
	}
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var row store.Row
		if err := json.Unmarshal(trimmed, &row); err != nil {
			return nil, &store.RequestError{Status: http.StatusBadGateway, Message: fmt.Sprintf("decode row: %v", err)}
		}
		return []store.Row{row}, nil
	}
	var rows []store.Row
	if err := json.Unmarshal(trimmed, &rows); err != nil {
		return nil, &store.RequestError{Status: http.StatusBadGateway, Message: fmt.Sprintf("decode rows: %v", err)}
	}
	if rows == nil {
		rows = []store.Row{}
	}
	return rows, nil
}
