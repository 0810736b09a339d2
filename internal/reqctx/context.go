// Package reqctx carries request-scoped identity and metadata through context.Context.
//
// A scope is opened once per inbound request with Open and closed by the returned
// release function. Anything reached from that request's context can read the
// request id and metadata with Current, without extra parameters.
package reqctx

import (
	"context"
	"errors"
	"maps"
	"sync"
	"sync/atomic"
)

// RequestIDKey is the metadata key under which the correlation identifier is exposed.
const RequestIDKey = "requestId"

var (
	ErrNoActiveContext    = errors.New("no active request context")
	ErrImmutableRequestID = errors.New("request id cannot be overwritten")
)

type scopeKey struct{}

// RequestContext is the per-request store. It is safe for use by goroutines spawned
// while handling the same request.
type RequestContext struct {
	requestID string

	mu       sync.RWMutex
	metadata map[string]any

	released atomic.Bool
}

// RequestID returns the correlation identifier. It never changes for the lifetime of the scope.
func (rc *RequestContext) RequestID() string {
	return rc.requestID
}

// Set adds or overwrites a metadata entry. The request id key is rejected.
func (rc *RequestContext) Set(key string, value any) error {
	if key == RequestIDKey {
		return ErrImmutableRequestID
	}

	rc.mu.Lock()
	rc.metadata[key] = value
	rc.mu.Unlock()

	return nil
}

func (rc *RequestContext) Get(key string) (any, bool) {
	if key == RequestIDKey {
		return rc.requestID, true
	}

	rc.mu.RLock()
	defer rc.mu.RUnlock()

	v, ok := rc.metadata[key]
	return v, ok
}

// Fields returns a snapshot of the metadata with the request id merged in.
func (rc *RequestContext) Fields() map[string]any {
	rc.mu.RLock()
	out := make(map[string]any, len(rc.metadata)+1)
	maps.Copy(out, rc.metadata)
	rc.mu.RUnlock()

	out[RequestIDKey] = rc.requestID
	return out
}

// Released reports whether the owning scope has been closed.
func (rc *RequestContext) Released() bool {
	return rc.released.Load()
}

// Open starts a scope seeded with requestID (generated when empty) and metadata.
// The returned release function is idempotent; only the first call closes the scope.
func Open(parent context.Context, requestID string, metadata map[string]any) (context.Context, func()) {
	if parent == nil {
		parent = context.Background()
	}
	if requestID == "" {
		requestID = NewRequestID()
	}

	rc := &RequestContext{
		requestID: requestID,
		metadata:  make(map[string]any, len(metadata)),
	}
	for k, v := range metadata {
		if k == RequestIDKey {
			continue
		}
		rc.metadata[k] = v
	}

	var once sync.Once
	release := func() {
		once.Do(func() {
			rc.released.Store(true)
		})
	}

	return context.WithValue(parent, scopeKey{}, rc), release
}

// Current returns the request context of the scope ctx belongs to.
func Current(ctx context.Context) (*RequestContext, error) {
	if ctx == nil {
		return nil, ErrNoActiveContext
	}

	rc, ok := ctx.Value(scopeKey{}).(*RequestContext)
	if !ok || rc == nil || rc.Released() {
		return nil, ErrNoActiveContext
	}

	return rc, nil
}

// RequestID returns the active request id, or "" outside a scope.
func RequestID(ctx context.Context) string {
	rc, err := Current(ctx)
	if err != nil {
		return ""
	}
	return rc.RequestID()
}

// Set records a metadata entry on the active scope.
func Set(ctx context.Context, key string, value any) error {
	rc, err := Current(ctx)
	if err != nil {
		return err
	}
	return rc.Set(key, value)
}
