package core

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSummarizeIdentity(t *testing.T) {
	outcomes := []ProbeOutcome{
		{Target: "A", Availability: AvailabilityAvailable},
		{Target: "B", Availability: AvailabilityTaken},
		{Target: "C", Availability: AvailabilityAvailable},
		{Target: "D", Availability: AvailabilityIndeterminate, ErrorKind: ErrorKindTimeout},
	}

	summary := Summarize(outcomes)
	require.Equal(t, Summary{Total: 4, Available: 2, Taken: 1, Errors: 1}, summary)
	require.Equal(t, summary.Total, summary.Available+summary.Taken+summary.Errors)

	require.Equal(t, Summary{}, Summarize(nil))
}

func TestAvailabilityJSON(t *testing.T) {
	outcome := Indeterminate(Target{Name: "Site", URLMain: "https://site.example/"}, "https://site.example/x", ErrorKindSkipped, "")

	data, err := json.Marshal(outcome)
	require.NoError(t, err)
	require.JSONEq(t, `{
		"target_name": "Site",
		"url": "https://site.example/x",
		"url_main": "https://site.example/",
		"availability": "indeterminate",
		"error_kind": "skipped",
		"error_detail": "skipped",
		"rank": 2147483647
	}`, string(data))

	var decoded ProbeOutcome
	require.NoError(t, json.Unmarshal([]byte(`{"target_name":"X","availability":"taken","rank":3}`), &decoded))
	require.Equal(t, AvailabilityTaken, decoded.Availability)

	require.Error(t, json.Unmarshal([]byte(`{"availability":"maybe"}`), &decoded))
}

func TestParseDetection(t *testing.T) {
	cases := map[string]Detection{
		"status_code":  DetectionStatusCode,
		"Status-Code":  DetectionStatusCode,
		"status":       DetectionStatusCode,
		"body_message": DetectionBodyMessage,
		" message ":    DetectionBodyMessage,
	}
	for input, expected := range cases {
		got, err := ParseDetection(input)
		require.NoError(t, err, input)
		require.Equal(t, expected, got)
	}

	_, err := ParseDetection("response_url")
	require.Error(t, err)
}

func TestURLFor(t *testing.T) {
	target := Target{URL: "https://{}.example.com/"}
	require.Equal(t, "https://handle.example.com/", target.URLFor("handle"))

	target = Target{URL: "https://site.example/u/{}"}
	require.Equal(t, "https://site.example/u/a%2Fb%3Fc", target.URLFor("a/b?c"))
}
