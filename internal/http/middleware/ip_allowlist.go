package middleware

import (
	"fmt"
	"net/http"
	"net/netip"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/enrollment-backend/internal/http/response"
	"github.com/yungbote/enrollment-backend/internal/observability"
	"github.com/yungbote/enrollment-backend/internal/platform/logger"
)

// ParseAllowList accepts exact addresses and CIDR prefixes. IPv4-mapped IPv6 addresses are
// unmapped so "::ffff:10.0.0.1" matches "10.0.0.0/8".
func ParseAllowList(entries []string) ([]netip.Prefix, error) {
	var out []netip.Prefix
	for _, raw := range entries {
		entry := strings.TrimSpace(raw)
		if entry == "" {
			continue
		}
		if strings.Contains(entry, "/") {
			p, err := netip.ParsePrefix(entry)
			if err != nil {
				return nil, fmt.Errorf("allowed ip %q: %w", entry, err)
			}
			out = append(out, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(entry)
		if err != nil {
			return nil, fmt.Errorf("allowed ip %q: %w", entry, err)
		}
		addr = addr.Unmap()
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out, nil
}

// IPAllowList rejects clients whose address is outside prefixes. An empty list allows
// everyone. The client address is gin's ClientIP, so proxies must be configured as trusted
// for forwarded headers to count.
func IPAllowList(log *logger.Logger, metrics *observability.Metrics, prefixes []netip.Prefix) gin.HandlerFunc {
	mwLog := log.With("middleware", "IPAllowList")
	if len(prefixes) == 0 {
		mwLog.Warn("ALLOWED_IPS is empty, protected routes accept any client address")
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		addr, err := netip.ParseAddr(c.ClientIP())
		if err == nil {
			addr = addr.Unmap()
			for _, p := range prefixes {
				if p.Contains(addr) {
					c.Next()
					return
				}
			}
		}
		metrics.IncSecurityEvent("ip_denied")
		mwLog.Warn("client address not allowed", "client_ip", c.ClientIP(), "path", c.FullPath())
		c.AbortWithStatusJSON(http.StatusForbidden, response.ErrorEnvelope{
			Error: response.APIError{Message: "client address not allowed", Code: "ip_not_allowed"},
		})
	}
}
