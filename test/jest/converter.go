package jest

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/bitrise-steplib/steps-frontend-tasks/test/testreport"
)

const statusPending = "pending"

// Convert maps the jest report onto the JUnit model. Suites jest could not run at all
// (syntax errors, missing modules) have no assertion results; they become a suite with
// a single failing test case carrying the suite message.
func (r Report) Convert() testreport.TestReport {
	report := testreport.TestReport{
		Name:     "jest",
		Tests:    r.NumTotalTests,
		Failures: r.NumFailedTests,
		Time:     r.Duration(),
	}

	for _, result := range r.TestResults {
		suite := testreport.TestSuite{
			Name: result.Name,
			Time: seconds(result.EndTime - result.StartTime),
		}
		if result.StartTime > 0 {
			suite.Timestamp = time.UnixMilli(result.StartTime).UTC().Format("2006-01-02T15:04:05")
		}

		className := suiteClassName(result.Name)
		for _, assertion := range result.AssertionResults {
			testCase := testreport.TestCase{
				Name:      assertion.FullName,
				ClassName: className,
				Time:      seconds(assertion.Duration),
			}
			if testCase.Name == "" {
				testCase.Name = strings.Join(append(append([]string{}, assertion.AncestorTitles...), assertion.Title), " ")
			}

			switch assertion.Status {
			case statusPassed:
			case statusPending, "skipped", "todo", "disabled":
				testCase.Skipped = &testreport.Skipped{}
				suite.Skipped++
			default:
				testCase.Failure = &testreport.Failure{Value: stripFailureMessages(assertion.FailureMessages)}
				suite.Failures++
			}

			suite.TestCases = append(suite.TestCases, testCase)
		}

		if len(result.AssertionResults) == 0 && result.Failed() {
			suite.TestCases = append(suite.TestCases, testreport.TestCase{
				Name:      className,
				ClassName: className,
				Failure:   &testreport.Failure{Value: CleanFailureMessage(result.Message)},
			})
			suite.Errors++
		}

		suite.Tests = len(suite.TestCases)
		report.TestSuites = append(report.TestSuites, suite)
	}

	return report
}

func suiteClassName(name string) string {
	base := filepath.Base(name)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func seconds(milliseconds int64) float64 {
	if milliseconds < 0 {
		return 0
	}
	return float64(milliseconds) / 1000
}
