package core

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Placeholder marks where the identifier is substituted into a target URL.
const Placeholder = "{}"

// UnrankedRank is assigned to targets missing from the ranking table so they
// sort after every ranked target.
const UnrankedRank = 1<<31 - 1

// Detection identifies how a target's response is interpreted.
type Detection string

const (
	DetectionStatusCode  Detection = "status_code"
	DetectionBodyMessage Detection = "body_message"
)

// ParseDetection normalizes a detection name from registry data.
func ParseDetection(value string) (Detection, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	normalized = strings.ReplaceAll(normalized, "-", "_")
	switch normalized {
	case string(DetectionStatusCode), "status":
		return DetectionStatusCode, nil
	case string(DetectionBodyMessage), "message":
		return DetectionBodyMessage, nil
	default:
		return "", fmt.Errorf("unknown detection strategy: %q", value)
	}
}

// Availability represents the tri-state verdict for a probe.
type Availability int

const (
	AvailabilityIndeterminate Availability = 0
	AvailabilityAvailable     Availability = 1
	AvailabilityTaken         Availability = 2
)

// String returns the wire name of the availability.
func (a Availability) String() string {
	switch a {
	case AvailabilityAvailable:
		return "available"
	case AvailabilityTaken:
		return "taken"
	default:
		return "indeterminate"
	}
}

// MarshalJSON encodes the availability by name.
func (a Availability) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON decodes the availability from its name.
func (a *Availability) UnmarshalJSON(data []byte) error {
	var value string
	if err := json.Unmarshal(data, &value); err != nil {
		return err
	}
	switch value {
	case "available":
		*a = AvailabilityAvailable
	case "taken":
		*a = AvailabilityTaken
	case "indeterminate", "":
		*a = AvailabilityIndeterminate
	default:
		return fmt.Errorf("unknown availability: %q", value)
	}
	return nil
}

// ErrorKind tags why an outcome is indeterminate.
type ErrorKind string

const (
	ErrorKindSkipped       ErrorKind = "skipped"
	ErrorKindTimeout       ErrorKind = "timeout"
	ErrorKindNetwork       ErrorKind = "network_error"
	ErrorKindCancelled     ErrorKind = "cancelled"
	ErrorKindRateLimited   ErrorKind = "rate_limited"
	ErrorKindInternal      ErrorKind = "internal_error"
	ErrorKindInvalidTarget ErrorKind = "invalid_target"
)

// Target describes one probeable web service.
type Target struct {
	Name              string    `json:"name" yaml:"name"`
	URL               string    `json:"url" yaml:"url"`
	URLMain           string    `json:"url_main" yaml:"url_main"`
	Category          string    `json:"category,omitempty" yaml:"category"`
	Detection         Detection `json:"detection" yaml:"detection"`
	ErrorMessage      string    `json:"error_message,omitempty" yaml:"error_message"`
	ValidationPattern string    `json:"validation_pattern,omitempty" yaml:"validation_pattern"`
}

// URLFor substitutes the path-escaped identifier into the URL template.
func (t Target) URLFor(identifier string) string {
	return strings.Replace(t.URL, Placeholder, url.PathEscape(identifier), 1)
}

// ProbeOutcome reports the verdict for one target in one invocation.
type ProbeOutcome struct {
	Target       string       `json:"target_name"`
	URL          string       `json:"url"`
	URLMain      string       `json:"url_main"`
	Category     string       `json:"category,omitempty"`
	Availability Availability `json:"availability"`
	ErrorKind    ErrorKind    `json:"error_kind,omitempty"`
	ErrorDetail  string       `json:"error_detail,omitempty"`
	Rank         int          `json:"rank"`
	StatusCode   int          `json:"status_code,omitempty"`
	ElapsedMS    int64        `json:"elapsed_ms,omitempty"`
}

// Indeterminate builds an indeterminate outcome for the target.
func Indeterminate(target Target, url string, kind ErrorKind, detail string) ProbeOutcome {
	if strings.TrimSpace(detail) == "" {
		detail = string(kind)
	}
	return ProbeOutcome{
		Target:       target.Name,
		URL:          url,
		URLMain:      target.URLMain,
		Category:     target.Category,
		Availability: AvailabilityIndeterminate,
		ErrorKind:    kind,
		ErrorDetail:  detail,
		Rank:         UnrankedRank,
	}
}

// Summary tallies outcomes by availability.
type Summary struct {
	Total     int `json:"total"`
	Available int `json:"available"`
	Taken     int `json:"taken"`
	Errors    int `json:"errors"`
}

// Summarize counts outcomes. Total always equals Available + Taken + Errors.
func Summarize(outcomes []ProbeOutcome) Summary {
	summary := Summary{Total: len(outcomes)}
	for _, outcome := range outcomes {
		switch outcome.Availability {
		case AvailabilityAvailable:
			summary.Available++
		case AvailabilityTaken:
			summary.Taken++
		default:
			summary.Errors++
		}
	}
	return summary
}

// CheckReport is the result of checking one identifier.
type CheckReport struct {
	CheckID         string         `json:"check_id"`
	Identifier      string         `json:"identifier"`
	Outcomes        []ProbeOutcome `json:"outcomes"`
	Summary         Summary        `json:"summary"`
	RegistryVersion string         `json:"registry_version,omitempty"`
	StartedAt       time.Time      `json:"started_at"`
	CompletedAt     time.Time      `json:"completed_at"`
}
