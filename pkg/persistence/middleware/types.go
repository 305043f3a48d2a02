package middleware

import "github.com/aretw0/petri/pkg/ports"

// Middleware allows wrapping a SubjectStore to add behavior.
type Middleware func(ports.SubjectStore) ports.SubjectStore

// Chain wraps store so the first middleware listed is the outermost layer.
func Chain(store ports.SubjectStore, middlewares ...Middleware) ports.SubjectStore {
	for i := len(middlewares) - 1; i >= 0; i-- {
		store = middlewares[i](store)
	}
	return store
}
