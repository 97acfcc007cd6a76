package monitoring

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const slowRequestThreshold = 5 * time.Second

// maxBidBodySize caps bid submissions; proposals are plain text and
// never legitimately approach this.
const maxBidBodySize = 64 * 1024

var sqlInjectionMarkers = []string{
	"union select",
	"union all",
	"select * from",
	"drop table",
	"delete from",
	"';--",
	"/*",
	"*/",
	" xp_",
	" sp_",
}

var scannerUserAgents = []string{
	"sqlmap",
	"nmap",
	"masscan",
	"zmap",
	"dirbuster",
	"gobuster",
	"nikto",
	"acunetix",
	"openvas",
	"nessus",
}

// MonitoringMiddleware records per-request metrics and emits the
// request trace after the handler chain completes.
func MonitoringMiddleware(metrics *Metrics, logger *Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		metrics.IncrementRequest()

		ip := c.ClientIP()
		userAgent := c.GetHeader("User-Agent")
		method := c.Request.Method
		path := c.Request.URL.Path

		c.Next()

		duration := time.Since(start)
		status := c.Writer.Status()

		metrics.RecordResponseTime(duration)
		metrics.RecordRequestByStatus(status)
		if status >= 400 {
			metrics.IncrementError()
		}

		logger.RequestLogger(method, path, ip, userAgent, status, duration)
		for _, err := range c.Errors {
			logger.APIErrorLogger(err.Err, method, path, ip, status)
		}

		if duration > slowRequestThreshold {
			logger.PerformanceLogger("slow_request", duration.Seconds(), "seconds")
		}
		if status >= 500 {
			logger.SystemLogger("server_error", fmt.Sprintf("Status %d for %s %s", status, method, path))
		}
	}
}

// SecurityMonitoringMiddleware flags requests that look like probing:
// injection markers in the query string, oversized bid bodies and
// known scanner user agents. It only logs; blocking is the rate
// limiters' and validators' job.
func SecurityMonitoringMiddleware(logger *Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		userAgent := c.GetHeader("User-Agent")
		path := c.Request.URL.Path

		details := make(map[string]interface{})

		if matchesAny(c.Request.URL.RawQuery, sqlInjectionMarkers) {
			details["type"] = "potential_sql_injection"
			details["query"] = c.Request.URL.RawQuery
		}

		if c.Request.Method == http.MethodPost && strings.Contains(path, "/bids") &&
			c.Request.ContentLength > maxBidBodySize {
			details["type"] = "large_request_body"
			details["size_bytes"] = c.Request.ContentLength
		}

		if matchesAny(userAgent, scannerUserAgents) {
			details["type"] = "suspicious_user_agent"
			details["user_agent"] = userAgent
		}

		if len(details) > 0 {
			logger.SecurityLogger("suspicious_activity_detected", ip, userAgent, details)
		}

		c.Next()
	}
}

func matchesAny(s string, markers []string) bool {
	lower := strings.ToLower(s)
	for _, marker := range markers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
