// Package middleware decorates an EntityStore with cross-cutting behavior:
// structured logging, metrics, field masking and encryption at rest.
package middleware

import "github.com/aretw0/manifold/pkg/ports"

// Middleware allows wrapping an EntityStore to add behavior.
type Middleware func(ports.EntityStore) ports.EntityStore

// Chain applies middlewares so that the first one listed is the outermost.
func Chain(store ports.EntityStore, mws ...Middleware) ports.EntityStore {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}
