// Package fetch provides the background fetch scheduler: a bounded worker
// pool draining a priority queue of HTTP fetch requests, writing results
// into the cache so the render loop never waits on the network.
package fetch

import (
	"net/url"
	"time"

	"github.com/google/uuid"
)

// Priority bounds. Lower numbers are served first; requests sharing a
// priority are served FIFO.
const (
	PriorityHighest = 1
	PriorityDefault = 3
	PriorityLowest  = 5
)

// NoRetries disables retries for a single request. The zero value of
// Request.MaxRetries means the scheduler default instead.
const NoRetries = -1

// Request describes one background fetch. The target fields (URL, Headers,
// Params) are opaque to the scheduler; it only routes, retries, and caches.
// Once submitted, the Request is owned by the scheduler and must not be
// mutated by the submitter.
type Request struct {
	// ID identifies the request; assigned by the scheduler on Submit.
	ID uuid.UUID

	// URL is the fetch target.
	URL string

	// Headers are extra request headers, e.g. API keys.
	Headers map[string]string

	// Params are query parameters merged into the URL.
	Params url.Values

	// CacheKey is where a successful response is stored. At most one
	// fetch per CacheKey is in flight at any time.
	CacheKey string

	// Priority orders the request in the queue (1 highest .. 5 lowest).
	// Zero means PriorityDefault.
	Priority int

	// Timeout bounds a single attempt. Zero means the scheduler default.
	Timeout time.Duration

	// MaxRetries is the number of retries after the first attempt.
	// Zero means the scheduler default; NoRetries disables retries.
	MaxRetries int

	// TTL is the cache freshness window for a successful response.
	// Zero means the scheduler default.
	TTL time.Duration

	// Validate, when set, rejects response payloads with an unexpected
	// shape. A validation failure is treated as a fetch failure and
	// goes through the retry path.
	Validate func([]byte) error

	// OnComplete, when set, is invoked once with the terminal result.
	// It runs on a worker goroutine and must not block.
	OnComplete func(Result)
}

// Result is the terminal outcome of a request: either Value was fetched,
// validated, and cached, or Err explains why retries were exhausted.
type Result struct {
	Key      string
	Value    []byte
	Err      error
	Attempts int
	Elapsed  time.Duration
}

// Handle is returned from Submit. Every submission gets its own handle,
// even when coalesced onto an in-flight fetch for the same cache key.
type Handle struct {
	// ID of the submission. Coalesced submissions keep their own IDs.
	ID uuid.UUID

	// CacheKey the submission targets.
	CacheKey string

	done chan Result
}

// Done returns a channel delivering the terminal result exactly once.
func (h *Handle) Done() <-chan Result {
	return h.done
}
