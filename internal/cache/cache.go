// Package cache provides a persistent SPARQL response cache using BBolt.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

var bucketResponses = []byte("responses")

// Entry is one cached endpoint response.
type Entry struct {
	Status   int       `json:"status"`
	Body     string    `json:"body"`
	StoredAt time.Time `json:"stored_at"`
}

// Cache is a bbolt-backed response cache with a fixed TTL.
type Cache struct {
	db  *bolt.DB
	ttl time.Duration
}

// Open creates or opens the cache database at path.
func Open(path string, ttl time.Duration) (*Cache, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketResponses)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Cache{db: db, ttl: ttl}, nil
}

// Key derives the cache key for one query against one endpoint.
func Key(endpoint, query string, acceptJSON bool) string {
	h := sha256.New()
	h.Write([]byte(endpoint))
	h.Write([]byte{0})
	h.Write([]byte(query))
	h.Write([]byte{0})
	if acceptJSON {
		h.Write([]byte("json"))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached entry for key, or false when absent or expired.
// Expired entries are left in place; Put overwrites them on the next fetch.
func (c *Cache) Get(key string) (*Entry, bool) {
	var entry Entry
	found := false

	c.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketResponses).Get([]byte(key))
		if data == nil {
			return nil
		}
		if err := json.Unmarshal(data, &entry); err != nil {
			return nil
		}
		found = true
		return nil
	})

	if !found || time.Since(entry.StoredAt) > c.ttl {
		return nil, false
	}
	return &entry, true
}

// Put stores a response under key, stamping it with the current time.
func (c *Cache) Put(key string, status int, body string) error {
	entry := Entry{Status: status, Body: body, StoredAt: time.Now()}
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketResponses).Put([]byte(key), data)
	})
}

// Close closes the underlying database.
func (c *Cache) Close() error {
	return c.db.Close()
}
