package output

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/namelens/handlescan/internal/core"
)

// JSONFormatter renders reports as JSON. Probe URLs are written unescaped,
// so query strings keep their literal '&'.
type JSONFormatter struct {
	// Indent is the per-level indent; empty renders compact JSON.
	Indent string
}

// FormatReport renders a check report as JSON.
func (f *JSONFormatter) FormatReport(report *core.CheckReport) (string, error) {
	if report == nil {
		return "", nil
	}
	return encodeJSON(report, f.Indent)
}

func encodeJSON(value any, indent string) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if indent != "" {
		enc.SetIndent("", indent)
	}
	if err := enc.Encode(value); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}
