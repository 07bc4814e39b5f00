package middleware

import (
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
)

var (
	corsAllowHeaders = strings.Join([]string{
		"Content-Type", "Authorization", "Accept", "Cache-Control", "X-Requested-With",
		"X-Client-Id", "X-Contact-Id", "X-Contact-Email",
	}, ", ")
	corsAllowMethods = strings.Join([]string{http.MethodGet, http.MethodPost, http.MethodOptions}, ", ")
)

// CORSPolicy admits browser calls from the admin console and checkout hosts.
type CORSPolicy struct {
	hosts map[string]struct{}
}

// NewCORSPolicy builds a policy for hosts given as "host" or "host:port".
func NewCORSPolicy(hosts []string) *CORSPolicy {
	p := &CORSPolicy{hosts: make(map[string]struct{}, len(hosts))}
	for _, h := range hosts {
		if h = canonicalHost(h); h != "" {
			p.hosts[h] = struct{}{}
		}
	}
	return p
}

// canonicalHost lowercases host and drops the default http or https port.
func canonicalHost(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	if name, port, err := net.SplitHostPort(host); err == nil && (port == "80" || port == "443") {
		return name
	}
	return host
}

// requestOrigin returns the caller's origin, derived from Referer when the
// browser sent no Origin header.
func requestOrigin(r *http.Request) string {
	raw := r.Header.Get("Origin")
	if raw == "" {
		raw = r.Header.Get("Referer")
	}
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

// Allowed returns the origin to echo back, or "" when it is not admitted.
func (p *CORSPolicy) Allowed(r *http.Request) string {
	origin := requestOrigin(r)
	if origin == "" {
		return ""
	}
	u, _ := url.Parse(origin)
	if _, ok := p.hosts[canonicalHost(u.Host)]; !ok {
		return ""
	}
	return origin
}

// Handle sets the CORS headers and answers preflight requests.
func (p *CORSPolicy) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Vary", "Origin")
		if origin := p.Allowed(c.Request); origin != "" {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
		}
		c.Header("Access-Control-Allow-Headers", corsAllowHeaders)
		c.Header("Access-Control-Allow-Methods", corsAllowMethods)
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// CORSMiddleware is NewCORSPolicy(hosts).Handle().
func CORSMiddleware(hosts []string) gin.HandlerFunc {
	return NewCORSPolicy(hosts).Handle()
}
