// Package sparql exposes SPARQL query tools backed by an HTTP endpoint.
package sparql

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"sparqlmcp/internal/cache"
	mcp "sparqlmcp/internal/mcp"
)

// Registration
func init() {
	mcp.Register("sparql", func(opts map[string]any) ([]mcp.Backend, error) {
		endpoint := get[string](opts, "endpoint", "")
		if endpoint == "" {
			return nil, fmt.Errorf("sparql provider requires an endpoint")
		}
		timeout := get[time.Duration](opts, "timeout", 20*time.Second)

		var store *cache.Cache
		if path := get[string](opts, "cachePath", ""); path != "" {
			ttl := get[time.Duration](opts, "cacheTTL", 5*time.Minute)
			var err error
			store, err = cache.Open(path, ttl)
			if err != nil {
				return nil, err
			}
		}

		return NewBackends(NewClient(endpoint, timeout, store)), nil
	})
}

func get[T any](m map[string]any, k string, def T) T {
	if v, ok := m[k]; ok {
		if cast, ok := v.(T); ok {
			return cast
		}
	}
	return def
}

// NewBackends builds the sparqlQuery and authorsByDoi backends on top of any
// Querier.
func NewBackends(q Querier) []mcp.Backend {
	return []mcp.Backend{
		&queryTool{q: q},
		&authorsTool{q: q},
	}
}

// queryTool runs an arbitrary SPARQL query.
type queryTool struct {
	q Querier
}

func (t *queryTool) Descriptor() mcp.Tool {
	return mcp.Tool{
		Name:        "sparqlQuery",
		Description: "Run a SPARQL query against the configured endpoint and return the raw results",
		InputSchema: mcp.InputSchema{
			Type: "object",
			Properties: map[string]mcp.Property{
				"query": {
					Type:        "string",
					Description: "The SPARQL query to execute",
				},
				"jsonPreferred": {
					Type:        "boolean",
					Description: "Request application/sparql-results+json from the endpoint",
					Default:     true,
				},
			},
			Required: []string{"query"},
		},
	}
}

func (t *queryTool) Invoke(args map[string]any) (*mcp.ToolCallResult, *mcp.Error) {
	query := strings.TrimSpace(stringArg(args, "query"))
	if query == "" {
		return nil, &mcp.Error{Code: mcp.InvalidParams, Message: "query argument is required"}
	}

	jsonPreferred := true
	if v, ok := args["jsonPreferred"].(bool); ok {
		jsonPreferred = v
	}

	res := t.q.Query(query, jsonPreferred)
	if !res.OK {
		return failureResult("sparqlQuery", res), nil
	}

	body := res.Body
	if pretty, ok := prettyJSON(body); ok {
		body = pretty
	}

	result := mcp.TextResult("sparqlQuery", body)
	result.Meta = resultMeta(res)
	return result, nil
}

// authorsTool finds author names for a scholarly article by DOI.
type authorsTool struct {
	q Querier
}

// authorsQuery matches a schema:ScholarlyArticle whose identifier equals the
// DOI case-insensitively. The DOI is substituted with double quotes escaped.
const authorsQuery = `PREFIX schema: <http://schema.org/>
SELECT DISTINCT ?authorName WHERE {
  ?article a schema:ScholarlyArticle ;
           schema:identifier ?doi ;
           schema:author ?author .
  ?author schema:name ?authorName .
  FILTER(LCASE(STR(?doi)) = LCASE("%s"))
}`

func (t *authorsTool) Descriptor() mcp.Tool {
	return mcp.Tool{
		Name:        "authorsByDoi",
		Description: "Look up the authors of a scholarly article by its DOI",
		InputSchema: mcp.InputSchema{
			Type: "object",
			Properties: map[string]mcp.Property{
				"doi": {
					Type:        "string",
					Description: "The DOI identifying the article, e.g. 10.1000/182",
				},
			},
			Required: []string{"doi"},
		},
	}
}

func (t *authorsTool) Invoke(args map[string]any) (*mcp.ToolCallResult, *mcp.Error) {
	doi := strings.TrimSpace(stringArg(args, "doi"))
	if doi == "" {
		return nil, &mcp.Error{Code: mcp.InvalidParams, Message: "doi argument is required"}
	}

	escaped := strings.ReplaceAll(doi, `"`, `\"`)
	res := t.q.Query(fmt.Sprintf(authorsQuery, escaped), true)
	if !res.OK {
		return failureResult("authorsByDoi", res), nil
	}

	names, err := bindingValues(res.Body, "authorName")
	if err != nil {
		result := mcp.TextResult("authorsByDoi", fmt.Sprintf("Unexpected SPARQL result shape: %v", err))
		result.Meta = resultMeta(res)
		return result, nil
	}

	var text string
	if len(names) == 0 {
		text = fmt.Sprintf("No authors found for DOI %s", doi)
	} else {
		var b strings.Builder
		fmt.Fprintf(&b, "Authors for DOI %s:\n", doi)
		for _, name := range names {
			fmt.Fprintf(&b, "- %s\n", name)
		}
		text = strings.TrimRight(b.String(), "\n")
	}

	result := mcp.TextResult("authorsByDoi", text)
	result.Meta = resultMeta(res)
	return result, nil
}

// bindingValues extracts the bound values of one variable from the standard
// SPARQL JSON results shape (results.bindings[].<name>.value).
func bindingValues(body, name string) ([]string, error) {
	var parsed struct {
		Results struct {
			Bindings []map[string]struct {
				Value string `json:"value"`
			} `json:"bindings"`
		} `json:"results"`
	}
	if err := json.Unmarshal([]byte(body), &parsed); err != nil {
		return nil, err
	}

	var values []string
	for _, binding := range parsed.Results.Bindings {
		if v, ok := binding[name]; ok && v.Value != "" {
			values = append(values, v.Value)
		}
	}
	return values, nil
}

// failureResult renders an endpoint failure into success-shaped content so
// the caller always gets textual feedback. meta.status is null when the
// failure happened before any HTTP status existed.
func failureResult(tool string, res Result) *mcp.ToolCallResult {
	text := fmt.Sprintf("SPARQL request failed (status %d): %s", res.Status, res.Err)
	result := mcp.TextResult(tool, text)
	result.Meta = resultMeta(res)
	return result
}

func resultMeta(res Result) map[string]any {
	meta := map[string]any{}
	if res.Status != 0 {
		meta["status"] = res.Status
	} else {
		meta["status"] = nil
	}
	if res.Cached {
		meta["cached"] = true
	}
	return meta
}

func prettyJSON(body string) (string, bool) {
	trimmed := strings.TrimSpace(body)
	if !json.Valid([]byte(trimmed)) {
		return "", false
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(trimmed), "", "  "); err != nil {
		return "", false
	}
	return buf.String(), true
}

func stringArg(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}
