package checker

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"
)

// DefaultMaxBodyBytes caps how much of a response body is inspected.
const DefaultMaxBodyBytes int64 = 2 << 20

// readBody decompresses, caps, and decodes a response body to UTF-8.
// A truncated body is returned without error.
func readBody(resp *http.Response, limit int64) (string, error) {
	if resp == nil || resp.Body == nil {
		return "", nil
	}
	if limit <= 0 {
		limit = DefaultMaxBodyBytes
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil && len(raw) == 0 {
		return "", fmt.Errorf("read body: %w", err)
	}

	decompressed, err := decompress(raw, resp.Header.Get("Content-Encoding"), limit)
	if err != nil {
		return "", err
	}

	contentType := resp.Header.Get("Content-Type")
	reader, err := charset.NewReader(bytes.NewReader(decompressed), contentType)
	if err != nil {
		return string(decompressed), nil
	}
	decoded, err := io.ReadAll(reader)
	if err != nil {
		return string(decompressed), nil
	}
	return string(decoded), nil
}

func decompress(raw []byte, encoding string, limit int64) ([]byte, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "gzip", "x-gzip":
		gzr, err := gzip.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("create gzip reader: %w", err)
		}
		defer gzr.Close() // nolint:errcheck // in-memory reader
		return readCapped(gzr, limit)
	case "deflate":
		// Servers disagree on zlib-wrapped versus raw deflate.
		if zr, err := zlib.NewReader(bytes.NewReader(raw)); err == nil {
			defer zr.Close() // nolint:errcheck // in-memory reader
			if out, err := readCapped(zr, limit); err == nil {
				return out, nil
			}
		}
		fr := flate.NewReader(bytes.NewReader(raw))
		defer fr.Close() // nolint:errcheck // in-memory reader
		return readCapped(fr, limit)
	default:
		return raw, nil
	}
}

func readCapped(r io.Reader, limit int64) ([]byte, error) {
	out, err := io.ReadAll(io.LimitReader(r, limit))
	if err != nil && len(out) == 0 {
		return nil, fmt.Errorf("decompress body: %w", err)
	}
	return out, nil
}

// containsMessage reports whether the error message appears in the body,
// either verbatim or, for HTML, in the rendered document text.
func containsMessage(body, message, contentType string) bool {
	if message == "" {
		return false
	}
	if strings.Contains(body, message) {
		return true
	}
	if !isHTML(body, contentType) {
		return false
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return false
	}
	return strings.Contains(collapseSpace(doc.Text()), collapseSpace(message))
}

func isHTML(body, contentType string) bool {
	if strings.Contains(strings.ToLower(contentType), "html") {
		return true
	}
	return strings.HasPrefix(http.DetectContentType([]byte(body)), "text/html")
}

func collapseSpace(value string) string {
	return strings.Join(strings.Fields(value), " ")
}
