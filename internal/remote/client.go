// Package remote is a backend.Backend for a SPARQL 1.1 Protocol endpoint.
//
// Queries are POSTed as application/sparql-query and updates as
// application/sparql-update; results are read as
// application/sparql-results+json. When a working graph is configured,
// reads are wrapped in GRAPH <g> and updates are prefixed with WITH <g>.
//
// Mutation counts are parsed from the report strings Virtuoso returns for
// updates. Other endpoints yield reports with Available set to false.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/roach88/triplegate/internal/backend"
	"github.com/roach88/triplegate/internal/rdf"
	"github.com/roach88/triplegate/internal/sparql"
)

// Media types of the SPARQL 1.1 Protocol.
const (
	ContentTypeQuery   = "application/sparql-query"
	ContentTypeUpdate  = "application/sparql-update"
	ContentTypeResults = "application/sparql-results+json"
)

// DefaultTimeout bounds each request when Config.Timeout is zero.
const DefaultTimeout = 30 * time.Second

// Config describes an endpoint.
type Config struct {
	// QueryURL receives ASK and SELECT requests.
	QueryURL string
	// UpdateURL receives updates. Empty means QueryURL.
	UpdateURL string
	// Graph is the working graph. Empty targets the default graph.
	Graph rdf.IRI
	// Username and Password enable HTTP basic auth when Username is set.
	Username string
	Password string
	// Timeout bounds each request.
	Timeout time.Duration
	// HTTPClient overrides the client built from Timeout.
	HTTPClient *http.Client
	// Logger receives request tracing at Debug level.
	Logger *slog.Logger
}

// Client talks to one endpoint.
//
// Thread-safety: safe for concurrent use.
type Client struct {
	cfg    Config
	http   *http.Client
	render sparql.Renderer
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool
}

var _ backend.Backend = (*Client)(nil)

// StatusError reports a non-2xx response.
type StatusError struct {
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("endpoint returned %d: %s", e.StatusCode, e.Body)
}

// New creates a client for cfg.
func New(cfg Config) (*Client, error) {
	if cfg.QueryURL == "" {
		return nil, errors.New("remote: query URL is required")
	}
	if cfg.UpdateURL == "" {
		cfg.UpdateURL = cfg.QueryURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    cfg,
		http:   hc,
		render: sparql.Renderer{Graph: cfg.Graph},
		logger: logger,
	}, nil
}

// Ask implements backend.Backend.
func (c *Client) Ask(ctx context.Context, q sparql.Ask) (bool, error) {
	text, err := c.render.Render(q)
	if err != nil {
		return false, err
	}
	var res results
	if err := c.do(ctx, c.cfg.QueryURL, ContentTypeQuery, text, &res); err != nil {
		return false, fmt.Errorf("ask: %w", err)
	}
	if res.Boolean == nil {
		return false, errors.New("ask: response has no boolean")
	}
	return *res.Boolean, nil
}

// Select implements backend.Backend.
func (c *Client) Select(ctx context.Context, q sparql.Select) ([]sparql.Solution, error) {
	text, err := c.render.Render(q)
	if err != nil {
		return nil, err
	}
	return c.Query(ctx, text)
}

// Query implements backend.Backend. The text is sent unchanged.
func (c *Client) Query(ctx context.Context, text string) ([]sparql.Solution, error) {
	var res results
	if err := c.do(ctx, c.cfg.QueryURL, ContentTypeQuery, text, &res); err != nil {
		return nil, fmt.Errorf("select: %w", err)
	}
	sols, err := res.solutions()
	if err != nil {
		return nil, fmt.Errorf("select: %w", err)
	}
	return sols, nil
}

// Update implements backend.Backend. All statements travel in one request.
func (c *Client) Update(ctx context.Context, us ...sparql.Update) (backend.Report, error) {
	text, err := c.render.RenderUpdates(us)
	if err != nil {
		return backend.Report{}, err
	}
	return c.update(ctx, text)
}

// Snapshot implements backend.Backend.
func (c *Client) Snapshot(ctx context.Context) ([]rdf.Triple, error) {
	pattern := sparql.AnyTriple()
	sols, err := c.Select(ctx, sparql.Select{
		Vars:  []rdf.Variable{"s", "p", "o"},
		Where: []sparql.Element{pattern},
	})
	if err != nil {
		return nil, err
	}
	out := make([]rdf.Triple, 0, len(sols))
	for _, s := range sols {
		if s["s"] == nil || s["p"] == nil || s["o"] == nil {
			continue
		}
		out = append(out, rdf.T(s["s"], s["p"], s["o"]))
	}
	rdf.SortTriples(out)
	return out, nil
}

// Clear implements backend.Backend. It deletes by pattern rather than with
// CLEAR so that the endpoint reports how many triples went away.
func (c *Client) Clear(ctx context.Context) (backend.Report, error) {
	pattern := sparql.AnyTriple()
	return c.Update(ctx, sparql.Update{
		Delete: []rdf.Triple{rdf.Triple(pattern)},
		Where:  []sparql.Element{pattern},
	})
}

// Close implements backend.Backend.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		c.http.CloseIdleConnections()
	}
	return nil
}

func (c *Client) update(ctx context.Context, text string) (backend.Report, error) {
	body, err := c.post(ctx, c.cfg.UpdateURL, ContentTypeUpdate, text)
	if err != nil {
		return backend.Report{}, fmt.Errorf("update: %w", err)
	}
	return ParseReport(body), nil
}

func (c *Client) do(ctx context.Context, url, contentType, text string, out any) error {
	body, err := c.post(ctx, url, contentType, text)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode results: %w", err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, url, contentType, text string) ([]byte, error) {
	c.mu.RLock()
	closed := c.closed
	c.mu.RUnlock()
	if closed {
		return nil, backend.ErrClosed
	}

	c.logger.DebugContext(ctx, "remote request", "url", url, "content_type", contentType, "query", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBufferString(text))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType+"; charset=utf-8")
	req.Header.Set("Accept", ContentTypeResults)
	if c.cfg.Username != "" {
		req.SetBasicAuth(c.cfg.Username, c.cfg.Password)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(body), 512)}
	}
	return body, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
