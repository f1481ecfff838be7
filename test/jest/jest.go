// Package jest reads the machine-readable report jest prints with --json and turns it
// into the one-line summary shown to the developer.
package jest

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/x/ansi"
	"github.com/pkg/errors"
)

// MaxFailureMessageLength is the number of characters kept from a failing suite's message.
const MaxFailureMessageLength = 1000

// ParseReport decodes a captured --json report.
func ParseReport(data string) (Report, error) {
	var report Report
	if err := json.Unmarshal([]byte(data), &report); err != nil {
		return Report{}, errors.Wrap(err, "failed to parse test report")
	}
	return report, nil
}

// Duration returns the run time in seconds: the latest suite end time minus the run start time.
// A report without suites has a zero duration.
func (r Report) Duration() float64 {
	if len(r.TestResults) == 0 {
		return 0
	}

	endTime := r.TestResults[0].EndTime
	for _, result := range r.TestResults[1:] {
		if result.EndTime > endTime {
			endTime = result.EndTime
		}
	}

	return float64(endTime-r.StartTime) / 1000
}

// FailedSuites returns the failing suites in report order.
func (r Report) FailedSuites() []SuiteResult {
	var failed []SuiteResult
	for _, result := range r.TestResults {
		if result.Failed() {
			failed = append(failed, result)
		}
	}
	return failed
}

// Summary ...
type Summary struct {
	Passed   int
	Failed   int
	Total    int
	Suites   int
	Duration float64
}

// Summarize ...
func Summarize(report Report) Summary {
	return Summary{
		Passed:   report.NumPassedTests,
		Failed:   report.NumFailedTests,
		Total:    report.NumTotalTests,
		Suites:   report.NumTotalTestSuites,
		Duration: report.Duration(),
	}
}

// Message renders the summary line, for example
// "[TEST] 1 test failed, 2 test passed (3 total in 1, run time 4.5s)".
func (s Summary) Message() string {
	message := fmt.Sprintf("%d test passed (%d total in %d, run time %ss)", s.Passed, s.Total, s.Suites, formatSeconds(s.Duration))
	if s.Failed > 0 {
		message = fmt.Sprintf("%d test failed, %s", s.Failed, message)
	}
	return "[TEST] " + message
}

func formatSeconds(seconds float64) string {
	return strconv.FormatFloat(seconds, 'f', -1, 64)
}

// CleanFailureMessage removes terminal colors from a suite's failure message and cuts it
// to MaxFailureMessageLength characters.
func CleanFailureMessage(message string) string {
	message = ansi.Strip(message)

	runes := []rune(message)
	if len(runes) > MaxFailureMessageLength {
		return string(runes[:MaxFailureMessageLength])
	}
	return message
}

func stripFailureMessages(messages []string) string {
	var cleaned []string
	for _, message := range messages {
		cleaned = append(cleaned, ansi.Strip(message))
	}
	return strings.Join(cleaned, "\n\n")
}
