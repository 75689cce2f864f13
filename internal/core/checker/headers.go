package checker

import (
	"net/http"
	"strings"
)

// DefaultUserAgent mimics a desktop browser; many targets serve bots a
// different page.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36"

// DefaultHeaders returns the browser header set sent with every probe.
func DefaultHeaders() map[string]string {
	return map[string]string{
		"User-Agent":                DefaultUserAgent,
		"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		"Accept-Language":           "en-US,en;q=0.5",
		"Accept-Encoding":           "gzip, deflate",
		"DNT":                       "1",
		"Connection":                "keep-alive",
		"Upgrade-Insecure-Requests": "1",
	}
}

// MergeHeaders overlays overrides on the defaults. An empty override value
// removes the header.
func MergeHeaders(overrides map[string]string) map[string]string {
	merged := DefaultHeaders()
	for key, value := range overrides {
		key = http.CanonicalHeaderKey(strings.TrimSpace(key))
		if key == "" {
			continue
		}
		for existing := range merged {
			if strings.EqualFold(existing, key) {
				delete(merged, existing)
			}
		}
		if strings.TrimSpace(value) == "" {
			continue
		}
		merged[key] = value
	}
	return merged
}

func applyHeaders(req *http.Request, headers map[string]string) {
	if headers == nil {
		headers = DefaultHeaders()
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}
}
