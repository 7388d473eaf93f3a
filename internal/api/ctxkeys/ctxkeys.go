// Package ctxkeys holds the shared context keys for the API layer. A leaf
// package so api and api/handlers can both import it without a cycle.
package ctxkeys

import "context"

// Key is the unexported named type for all API context keys. A named type
// avoids collisions with string keys from other packages at runtime
// (context.Value compares both type and value).
type Key string

const (
	// OperatorID is the context key for the authenticated operator,
	// injected by AuthMiddleware from JWT claims.
	OperatorID Key = "operator_id"

	// Role is the context key for the operator's role.
	Role Key = "role"
)

// WithValue adds a ctxkeys.Key value to the context.
func WithValue(ctx context.Context, key Key, value string) context.Context {
	return context.WithValue(ctx, key, value)
}
