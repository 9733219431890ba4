package middleware

import "net/http"

// Chain composes a middleware stack in the order its members were added;
// the first Add call runs outermost.
type Chain struct {
	middlewares []func(http.Handler) http.Handler
}

// NewChain creates an empty middleware chain.
func NewChain() *Chain {
	return &Chain{}
}

// Add appends a middleware to the chain.
func (c *Chain) Add(m func(http.Handler) http.Handler) *Chain {
	c.middlewares = append(c.middlewares, m)
	return c
}

// Build wraps handler with every middleware in the chain, outermost first.
func (c *Chain) Build(handler http.Handler) http.Handler {
	for i := len(c.middlewares) - 1; i >= 0; i-- {
		handler = c.middlewares[i](handler)
	}
	return handler
}
