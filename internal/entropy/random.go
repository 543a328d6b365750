// Package entropy provides the randomness sources behind intervention draws.
// Production uses true randomness via random.org with a crypto/rand fallback;
// tests inject a seeded deterministic source.
package entropy

import (
	"bytes"
	"crypto/rand"
	"encoding/binary"
	"encoding/json"
	"io"
	"log/slog"
	mathrand "math/rand"
	"net/http"
	"sync"
	"time"
)

// Source yields uniform floats in [0, 1) for probability draws.
type Source interface {
	Float() float64
}

// CryptoSource draws from crypto/rand. The zero value is ready to use.
type CryptoSource struct{}

// Float returns a uniform float64 in [0, 1).
func (CryptoSource) Float() float64 {
	return cryptoRandFloat()
}

func cryptoRandFloat() float64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// Should never happen; 0.5 is a safe neutral draw.
		return 0.5
	}
	// Use only 53 bits for a uniform float64 in [0, 1).
	n := binary.LittleEndian.Uint64(buf[:]) >> 11
	return float64(n) / float64(1<<53)
}

// SeededSource is a deterministic source for tests and local runs.
type SeededSource struct {
	mu  sync.Mutex
	rng *mathrand.Rand
}

// NewSeeded creates a deterministic source from a seed.
func NewSeeded(seed int64) *SeededSource {
	return &SeededSource{rng: mathrand.New(mathrand.NewSource(seed))}
}

// Float returns the next deterministic draw.
func (s *SeededSource) Float() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}

// Client draws true random numbers from random.org, keeping a local pool and
// falling back to crypto/rand when the API is unavailable. The pool refills in
// a background goroutine; a draw never waits on the network.
type Client struct {
	apiKey string
	client *http.Client

	mu        sync.Mutex
	pool      []float64
	refilling bool
}

// poolLowWater is the pool size that triggers a background refill.
const poolLowWater = 10

// NewClient creates a random.org-backed source. Returns nil if apiKey is
// empty; callers should fall back to CryptoSource.
func NewClient(apiKey string) *Client {
	if apiKey == "" {
		return nil
	}
	return &Client{
		apiKey: apiKey,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

// Float returns a random float64 in [0, 1). A low pool kicks off an
// asynchronous refill; an empty pool falls back to crypto/rand rather than
// blocking the draw behind the HTTP call.
func (c *Client) Float() float64 {
	if c == nil {
		return cryptoRandFloat()
	}

	c.mu.Lock()
	if len(c.pool) < poolLowWater && !c.refilling {
		c.refilling = true
		go c.refill()
	}
	if len(c.pool) == 0 {
		c.mu.Unlock()
		return cryptoRandFloat()
	}

	val := c.pool[0]
	c.pool = c.pool[1:]
	c.mu.Unlock()
	return val
}

// refill fetches one batch and swaps it into the pool. The network call runs
// without the lock; the lock is held only to append the results.
func (c *Client) refill() {
	data := c.fetch()

	c.mu.Lock()
	c.pool = append(c.pool, data...)
	c.refilling = false
	c.mu.Unlock()
}

func (c *Client) fetch() []float64 {
	req := map[string]any{
		"jsonrpc": "2.0",
		"method":  "generateDecimalFractions",
		"params": map[string]any{
			"apiKey":        c.apiKey,
			"n":             100,
			"decimalPlaces": 6,
		},
		"id": 1,
	}

	body, err := json.Marshal(req)
	if err != nil {
		slog.Debug("random.org marshal failed", "error", err)
		return nil
	}

	resp, err := c.client.Post("https://api.random.org/json-rpc/4/invoke", "application/json", bytes.NewReader(body))
	if err != nil {
		slog.Debug("random.org fetch failed", "error", err)
		return nil
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		slog.Debug("random.org read failed", "error", err)
		return nil
	}

	var result struct {
		Result struct {
			Random struct {
				Data []float64 `json:"data"`
			} `json:"random"`
		} `json:"result"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		slog.Debug("random.org parse failed", "error", err)
		return nil
	}
	if result.Error != nil {
		slog.Debug("random.org API error", "error", result.Error.Message)
		return nil
	}

	slog.Debug("random.org pool refilled", "count", len(result.Result.Random.Data))
	return result.Result.Random.Data
}

// SourceFor picks the best available source: random.org when a key is
// configured, crypto/rand otherwise.
func SourceFor(apiKey string) Source {
	if c := NewClient(apiKey); c != nil {
		return c
	}
	return CryptoSource{}
}
