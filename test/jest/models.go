package jest

// Report is the document jest prints with --json.
type Report struct {
	StartTime          int64         `json:"startTime"`
	Success            bool          `json:"success"`
	NumPassedTests     int           `json:"numPassedTests"`
	NumFailedTests     int           `json:"numFailedTests"`
	NumPendingTests    int           `json:"numPendingTests"`
	NumTotalTests      int           `json:"numTotalTests"`
	NumTotalTestSuites int           `json:"numTotalTestSuites"`
	TestResults        []SuiteResult `json:"testResults"`
}

// SuiteResult is the outcome of a single test file.
type SuiteResult struct {
	Name             string            `json:"name"`
	Success          bool              `json:"success"`
	Status           string            `json:"status"`
	StartTime        int64             `json:"startTime"`
	EndTime          int64             `json:"endTime"`
	Message          string            `json:"message"`
	AssertionResults []AssertionResult `json:"assertionResults"`
}

// AssertionResult is the outcome of a single test case.
type AssertionResult struct {
	AncestorTitles  []string `json:"ancestorTitles"`
	Title           string   `json:"title"`
	FullName        string   `json:"fullName"`
	Status          string   `json:"status"`
	Duration        int64    `json:"duration"`
	FailureMessages []string `json:"failureMessages"`
}

const statusPassed = "passed"

// Failed reports whether the suite failed. Older jest versions only set the success flag,
// newer ones only the status, a suite passes if either of them says so.
func (r SuiteResult) Failed() bool {
	return !r.Success && r.Status != statusPassed
}
