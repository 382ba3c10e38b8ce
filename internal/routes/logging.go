package routes

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
)

// accessLog is gin's default line format with session tokens removed from
// the query string; websocket clients authenticate with ?token=.
func accessLog(p gin.LogFormatterParams) string {
	return fmt.Sprintf("[GIN] %v | %3d | %13v | %15s | %-7s %#v\n%s",
		p.TimeStamp.Format("2006/01/02 - 15:04:05"),
		p.StatusCode,
		p.Latency,
		p.ClientIP,
		p.Method,
		redactToken(p.Path),
		p.ErrorMessage,
	)
}

func redactToken(path string) string {
	base, rawQuery, ok := strings.Cut(path, "?")
	if !ok {
		return path
	}
	q, err := url.ParseQuery(rawQuery)
	if err != nil {
		return base + "?[unparsed]"
	}
	if _, ok := q["token"]; !ok {
		return path
	}
	q.Set("token", "REDACTED")
	return base + "?" + q.Encode()
}
