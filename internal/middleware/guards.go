package middleware

import "github.com/gin-gonic/gin"

// Guards bundles the per-route middleware that feature route tables share.
type Guards struct {
	Auth        gin.HandlerFunc
	Idempotency gin.HandlerFunc
	RateLimit   gin.HandlerFunc
}

func passthrough(c *gin.Context) { c.Next() }

// WithDefaults fills unset guards with pass-through handlers so route tables
// can be registered in tests without redis or JWT.
func (g Guards) WithDefaults() Guards {
	if g.Auth == nil {
		g.Auth = passthrough
	}
	if g.Idempotency == nil {
		g.Idempotency = passthrough
	}
	if g.RateLimit == nil {
		g.RateLimit = passthrough
	}
	return g
}
