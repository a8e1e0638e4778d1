package httpmiddleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// AdminIPAllowlist restricts a route group to configured source IPs. An empty
// list disables the filter entirely (dev mode); "*" or "0.0.0.0" in the list
// allows any source.
func AdminIPAllowlist(allowed []string) gin.HandlerFunc {
	if len(allowed) == 0 {
		return func(c *gin.Context) { c.Next() }
	}

	set := make(map[string]struct{}, len(allowed))
	any := false
	for _, ip := range allowed {
		if ip == "*" || ip == "0.0.0.0" {
			any = true
		}
		set[ip] = struct{}{}
	}

	return func(c *gin.Context) {
		if any {
			c.Next()
			return
		}
		if _, ok := set[c.ClientIP()]; !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "source IP not allowed"})
			return
		}
		c.Next()
	}
}
