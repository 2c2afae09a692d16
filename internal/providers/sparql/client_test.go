package sparql

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"sparqlmcp/internal/cache"
)

func TestClientPostsFormEncodedQuery(t *testing.T) {
	var gotQuery, gotAccept, gotContentType string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		r.ParseForm()
		gotQuery = r.PostFormValue("query")
		gotAccept = r.Header.Get("Accept")
		gotContentType = r.Header.Get("Content-Type")
		w.Write([]byte(`{"results":{"bindings":[]}}`))
	}))
	defer ts.Close()

	c := NewClient(ts.URL, 5*time.Second, nil)
	res := c.Query("SELECT * WHERE { ?s ?p ?o }", true)

	if !res.OK || res.Status != 200 {
		t.Fatalf("expected success, got %+v", res)
	}
	if gotQuery != "SELECT * WHERE { ?s ?p ?o }" {
		t.Errorf("query not form-encoded correctly: %q", gotQuery)
	}
	if gotAccept != acceptSPARQLJSON {
		t.Errorf("expected JSON accept header, got %q", gotAccept)
	}
	if gotContentType != "application/x-www-form-urlencoded" {
		t.Errorf("unexpected content type %q", gotContentType)
	}
}

func TestClientAcceptAnyWhenJSONNotPreferred(t *testing.T) {
	var gotAccept string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAccept = r.Header.Get("Accept")
		w.Write([]byte("ok"))
	}))
	defer ts.Close()

	NewClient(ts.URL, 5*time.Second, nil).Query("SELECT 1", false)
	if gotAccept != "*/*" {
		t.Errorf("expected */*, got %q", gotAccept)
	}
}

func TestClientNon2xxStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer ts.Close()

	res := NewClient(ts.URL, 5*time.Second, nil).Query("SELECT 1", true)
	if res.OK {
		t.Error("non-2xx must not be OK")
	}
	if res.Status != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", res.Status)
	}
	if res.Err == "" {
		t.Error("expected a failure description")
	}
}

func TestClientTransportFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	ts.Close() // nothing listens anymore

	res := NewClient(ts.URL, time.Second, nil).Query("SELECT 1", true)
	if res.OK {
		t.Error("transport failure must not be OK")
	}
	if res.Status != 0 {
		t.Errorf("transport failure has no HTTP status, got %d", res.Status)
	}
	if res.Err == "" {
		t.Error("expected a failure description")
	}
}

func TestClientCachesSuccessfulResponses(t *testing.T) {
	hits := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte(`{"results":{"bindings":[]}}`))
	}))
	defer ts.Close()

	store, err := cache.Open(filepath.Join(t.TempDir(), "cache.db"), time.Minute)
	if err != nil {
		t.Fatalf("open cache: %v", err)
	}
	defer store.Close()

	c := NewClient(ts.URL, 5*time.Second, store)

	first := c.Query("SELECT 1", true)
	second := c.Query("SELECT 1", true)

	if hits != 1 {
		t.Errorf("expected one upstream request, got %d", hits)
	}
	if first.Cached || !second.Cached {
		t.Errorf("expected second response from cache: first=%+v second=%+v", first, second)
	}
	if second.Body != first.Body || second.Status != first.Status {
		t.Errorf("cached response differs: %+v vs %+v", second, first)
	}

	// A different query misses the cache.
	c.Query("SELECT 2", true)
	if hits != 2 {
		t.Errorf("distinct query should reach upstream, got %d hits", hits)
	}
}

func TestClientDoesNotCacheFailures(t *testing.T) {
	hits := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	store, err := cache.Open(filepath.Join(t.TempDir(), "cache.db"), time.Minute)
	if err != nil {
		t.Fatalf("open cache: %v", err)
	}
	defer store.Close()

	c := NewClient(ts.URL, 5*time.Second, store)
	c.Query("SELECT 1", true)
	c.Query("SELECT 1", true)

	if hits != 2 {
		t.Errorf("failures must not be cached, got %d hits", hits)
	}
}
