package checker

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// retryAfterHeader parses Retry-After as delta seconds or an HTTP date.
func retryAfterHeader(resp *http.Response, now time.Time) (time.Duration, string) {
	if resp == nil || resp.Header == nil {
		return 0, ""
	}

	retry := strings.TrimSpace(resp.Header.Get("Retry-After"))
	if retry == "" {
		return 0, ""
	}

	if seconds, err := strconv.Atoi(retry); err == nil {
		if seconds < 0 {
			return 0, retry
		}
		return time.Duration(seconds) * time.Second, retry
	}
	if parsed, err := http.ParseTime(retry); err == nil {
		if wait := parsed.Sub(now); wait > 0 {
			return wait, retry
		}
		return 0, retry
	}

	return 0, retry
}

func isSuccess(code int) bool {
	return code >= 200 && code < 300
}
