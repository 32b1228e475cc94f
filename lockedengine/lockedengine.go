// Package lockedengine wraps a *flashee.Engine for embedders that need to
// call Write/Read from more than one goroutine. The core engine stays
// single-threaded by design; this package supplies the optional
// concurrency-safe shell on top of it.
package lockedengine

import (
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/donocean/go-flashee"
)

// Engine serializes writes with a mutex and collapses concurrent reads of
// the same id into a single underlying call via singleflight.
type Engine struct {
	mu    sync.Mutex
	inner *flashee.Engine
	group singleflight.Group
}

// New wraps inner. inner must already be initialized (Init called).
func New(inner *flashee.Engine) *Engine {
	return &Engine{inner: inner}
}

// Write serializes access to the underlying engine's Write.
func (e *Engine) Write(id flashee.VariableID, buf []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.inner.Write(id, buf)
}

// Read collapses concurrent reads of the same id into one call to the
// underlying engine's Read. Callers must not mutate the returned slice;
// it may be shared with other callers that arrived while a read for the
// same id was already in flight.
func (e *Engine) Read(id flashee.VariableID) ([]byte, error) {
	v, err, _ := e.group.Do(fmt.Sprintf("%d", id), func() (interface{}, error) {
		e.mu.Lock()
		defer e.mu.Unlock()

		return e.inner.Read(id)
	})
	if err != nil {
		return nil, err
	}

	return v.([]byte), nil
}

// Inspect serializes access to the underlying engine's Inspect.
func (e *Engine) Inspect() (flashee.Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.inner.Inspect()
}
