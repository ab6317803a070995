package http

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
)

type securityMetrics struct {
	rateLimitHits      int64
	suspiciousRequests int64
}

// trustedProxies may set forwarding headers.
var trustedProxies = []*net.IPNet{
	parseCIDR("127.0.0.0/8"),
	parseCIDR("10.0.0.0/8"),
	parseCIDR("172.16.0.0/12"),
	parseCIDR("192.168.0.0/16"),
	parseCIDR("::1/128"),
}

func parseCIDR(cidr string) *net.IPNet {
	_, network, err := net.ParseCIDR(cidr)
	if err != nil {
		panic(fmt.Sprintf("failed to parse trusted proxy CIDR %s: %v", cidr, err))
	}
	return network
}

func isTrustedProxy(ip net.IP) bool {
	for _, network := range trustedProxies {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// extractClientIP returns the peer address, or the forwarded client when
// the peer is a trusted proxy.
func extractClientIP(r *http.Request) string {
	directIP, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		directIP = r.RemoteAddr
	}
	parsed := net.ParseIP(directIP)
	if parsed == nil || !isTrustedProxy(parsed) {
		return directIP
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first := strings.TrimSpace(strings.Split(xff, ",")[0])
		if net.ParseIP(first) != nil {
			return first
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); net.ParseIP(xri) != nil {
		return xri
	}
	return directIP
}

// Scanner paths seen against a dashboard that has no admin surface.
var suspiciousPaths = []string{
	"../", "..\\", ".env", ".git", "wp-admin", "wp-login", "phpmyadmin",
	"admin.php", "config.php", "etc/passwd", "cmd.exe",
}

var suspiciousQueries = []string{"<script", "union select", "' or 1=1", "../"}

var scannerAgents = []string{"sqlmap", "nmap", "nikto", "gobuster", "dirb", "masscan"}

// suspicionReason explains why a request looks like a scan, or returns ""
// for an ordinary one. Suspicious requests are logged, not blocked.
func suspicionReason(r *http.Request) string {
	if len(r.URL.RequestURI()) > 2048 {
		return "oversized url"
	}
	switch r.Method {
	case http.MethodTrace, http.MethodConnect, "TRACK", "DEBUG":
		return "method " + r.Method
	}
	path := strings.ToLower(r.URL.Path)
	for _, p := range suspiciousPaths {
		if strings.Contains(path, p) {
			return "path contains " + p
		}
	}
	query := strings.ToLower(r.URL.RawQuery)
	if q, err := url.QueryUnescape(query); err == nil {
		query = q
	}
	for _, p := range suspiciousQueries {
		if strings.Contains(query, p) {
			return "query contains " + p
		}
	}
	agent := strings.ToLower(r.UserAgent())
	for _, a := range scannerAgents {
		if strings.Contains(agent, a) {
			return "scanner agent " + a
		}
	}
	return ""
}

// detectSuspiciousRequest counts and returns the suspicion reason.
func detectSuspiciousRequest(r *http.Request, metrics *securityMetrics) string {
	reason := suspicionReason(r)
	if reason != "" && metrics != nil {
		atomic.AddInt64(&metrics.suspiciousRequests, 1)
	}
	return reason
}
