// ABOUTME: REST client for the portal search API
// ABOUTME: Schema fetch, simple/legacy/advanced search, CSRF handling

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/nainya/facetsearch/internal/logger"
	"github.com/nainya/facetsearch/pkg/filter"
	"github.com/nainya/facetsearch/pkg/registry"
)

// API endpoint paths. These form the fixed contract with the backend.
const (
	PathGetSchemas     = "/api/v1/search_get-schemas/"
	PathSimpleSearch   = "/api/v1/search_simple-search/"
	PathAdvancedSearch = "/api/v1/search_advance-search/"
)

// csrfCookieName is where the web framework stores the CSRF token.
const csrfCookieName = "csrftoken"

// Client talks to the portal's search API.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	log       *logger.Logger
	csrfToken string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger attaches a structured logger.
func WithLogger(l *logger.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithCSRFToken sets an explicit CSRF token instead of reading the cookie.
func WithCSRFToken(token string) Option {
	return func(c *Client) { c.csrfToken = token }
}

// New creates a client for the given portal base URL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q: scheme and host required", baseURL)
	}

	c := &Client{
		baseURL: u,
		http:    &http.Client{},
		log:     logger.GetGlobalLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// SortField is one sort directive in a type-scoped search request.
type SortField struct {
	Field string `json:"field"`
	Order string `json:"order"`
}

// SearchRequest is the body of a faceted search call. Only query and
// filters are sent for a plain search; the scoping fields serialize solely
// on type-scoped refetches.
type SearchRequest struct {
	Query    string        `json:"query,omitempty"`
	Filters  *filter.Query `json:"filters,omitempty"`
	Type     string        `json:"type,omitempty"`
	Offset   int           `json:"offset,omitempty"`
	PageSize int           `json:"page_size,omitempty"`
	Sort     []SortField   `json:"sort,omitempty"`
}

// SearchResponse carries raw hits keyed by plural type name. Hits stay raw
// here; the search store owns mapping them into typed results.
type SearchResponse struct {
	Hits      map[string][]json.RawMessage `json:"hits"`
	TotalHits map[string]int               `json:"total_hits"`
}

// AdvancedSearchRequest is the body of the advanced search endpoint.
type AdvancedSearchRequest struct {
	Text           string   `json:"text"`
	TypeTag        string   `json:"TypeTag"`
	StartDate      string   `json:"StartDate,omitempty"`
	EndDate        string   `json:"EndDate,omitempty"`
	InstrumentList []string `json:"InstrumentList,omitempty"`
}

// schemasEnvelope is the wire shape of the schema registry payload.
type schemasEnvelope struct {
	Objects []struct {
		Schemas map[string]map[string]*registry.Schema `json:"schemas"`
	} `json:"objects"`
}

// legacyEnvelope is the wire shape of the legacy text-search payload.
type legacyEnvelope struct {
	Objects []struct {
		Hits map[string][]json.RawMessage `json:"hits"`
	} `json:"objects"`
}

// FetchSchemas retrieves the schema/parameter registry. Implements
// registry.SchemaFetcher.
func (c *Client) FetchSchemas(ctx context.Context) (map[registry.EntityType]map[string]*registry.Schema, error) {
	var envelope schemasEnvelope
	if err := c.do(ctx, http.MethodGet, PathGetSchemas, nil, nil, &envelope); err != nil {
		return nil, err
	}
	if len(envelope.Objects) == 0 {
		return nil, fmt.Errorf("schema response contains no objects")
	}

	out := make(map[registry.EntityType]map[string]*registry.Schema)
	for rawType, byID := range envelope.Objects[0].Schemas {
		t, err := registry.ParseEntityType(rawType)
		if err != nil {
			return nil, fmt.Errorf("schema response: %w", err)
		}
		out[t] = byID
	}
	return out, nil
}

// Search runs a faceted search.
func (c *Client) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	var resp SearchResponse
	if err := c.do(ctx, http.MethodPost, PathSimpleSearch, nil, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// LegacySearch runs the old GET text search and normalizes its envelope
// into the simple-search response shape.
func (c *Client) LegacySearch(ctx context.Context, text string) (*SearchResponse, error) {
	q := url.Values{"query": {text}}

	var envelope legacyEnvelope
	if err := c.do(ctx, http.MethodGet, PathSimpleSearch, q, nil, &envelope); err != nil {
		return nil, err
	}
	if len(envelope.Objects) == 0 {
		return nil, fmt.Errorf("legacy search response contains no objects")
	}

	resp := &SearchResponse{
		Hits:      envelope.Objects[0].Hits,
		TotalHits: make(map[string]int),
	}
	for key, hits := range resp.Hits {
		resp.TotalHits[key] = len(hits)
	}
	return resp, nil
}

// AdvancedSearch runs the advanced search endpoint.
func (c *Client) AdvancedSearch(ctx context.Context, req AdvancedSearchRequest) (*SearchResponse, error) {
	var resp SearchResponse
	if err := c.do(ctx, http.MethodPost, PathAdvancedSearch, nil, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// do issues one request and decodes the JSON response into out.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.baseURL.JoinPath(path)
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reqBody)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	requestID := uuid.New().String()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method != http.MethodGet {
		if token := c.csrf(); token != "" {
			req.Header.Set("X-CSRFToken", token)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.LogHTTPRequest(method, path, requestID, 0, time.Since(start), err)
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	c.log.LogHTTPRequest(method, path, requestID, resp.StatusCode, time.Since(start), nil)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain a little of the body for diagnostics.
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s returned %d: %s", method, path, resp.StatusCode, bytes.TrimSpace(snippet))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}

// csrf returns the configured token, falling back to the csrftoken cookie
// held by the HTTP client's jar.
func (c *Client) csrf() string {
	if c.csrfToken != "" {
		return c.csrfToken
	}
	if c.http.Jar == nil {
		return ""
	}
	for _, cookie := range c.http.Jar.Cookies(c.baseURL) {
		if cookie.Name == csrfCookieName {
			return cookie.Value
		}
	}
	return ""
}
