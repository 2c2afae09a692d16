package sparql

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"sparqlmcp/internal/cache"
)

const acceptSPARQLJSON = "application/sparql-results+json"

// Result is the outcome of one endpoint call. A transport-level failure has
// Status 0; a non-2xx response keeps its status with OK false. Either way
// Err carries a human-readable description.
type Result struct {
	OK     bool
	Status int
	Body   string
	Err    string
	Cached bool
}

// Querier runs a SPARQL query string against an endpoint. The tool backends
// depend only on this contract, not on any particular HTTP client.
type Querier interface {
	Query(query string, acceptJSON bool) Result
}

// Client is the net/http Querier with an optional response cache.
type Client struct {
	endpoint string
	http     *http.Client
	cache    *cache.Cache
}

// NewClient creates a client for endpoint with a fixed request timeout.
// c may be nil to disable caching.
func NewClient(endpoint string, timeout time.Duration, c *cache.Cache) *Client {
	return &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: timeout},
		cache:    c,
	}
}

// Endpoint returns the configured endpoint URL.
func (c *Client) Endpoint() string { return c.endpoint }

// Query POSTs the query form-encoded to the endpoint. Only successful
// responses are cached; failures always hit the network again.
func (c *Client) Query(query string, acceptJSON bool) Result {
	key := cache.Key(c.endpoint, query, acceptJSON)
	if c.cache != nil {
		if entry, ok := c.cache.Get(key); ok {
			logrus.WithField("endpoint", c.endpoint).Debug("cache hit")
			return Result{OK: true, Status: entry.Status, Body: entry.Body, Cached: true}
		}
	}

	form := url.Values{"query": {query}}
	req, err := http.NewRequest(http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return Result{Err: fmt.Sprintf("build request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if acceptJSON {
		req.Header.Set("Accept", acceptSPARQLJSON)
	} else {
		req.Header.Set("Accept", "*/*")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		logrus.WithError(err).WithField("endpoint", c.endpoint).Warn("sparql request failed")
		return Result{Err: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{Status: resp.StatusCode, Err: fmt.Sprintf("read response: %v", err)}
	}

	res := Result{Status: resp.StatusCode, Body: string(body)}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		res.OK = true
		if c.cache != nil {
			if err := c.cache.Put(key, res.Status, res.Body); err != nil {
				logrus.WithError(err).Warn("failed to cache response")
			}
		}
	} else {
		res.Err = fmt.Sprintf("endpoint returned HTTP %d", resp.StatusCode)
	}
	return res
}
