package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
)

// NewRelicErrors returns middleware that links the request's New Relic
// transaction to the request context, so database and Redis segments are
// recorded, and reports errors attached to the gin context. It must run after
// nrgin.Middleware; without a transaction it does nothing.
func NewRelicErrors() gin.HandlerFunc {
	return func(c *gin.Context) {
		txn := nrgin.Transaction(c)
		if txn == nil {
			c.Next()
			return
		}
		c.Request = newrelic.RequestWithTransactionContext(c.Request, txn)

		c.Next()

		if route := c.FullPath(); route != "" {
			txn.AddAttribute("http.route", route)
		}
		for _, err := range c.Errors {
			txn.NoticeError(err.Err)
		}
	}
}
