package test

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bitrise-io/go-utils/v2/command"
	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bitrise-steplib/steps-frontend-tasks/mocks"
	"github.com/bitrise-steplib/steps-frontend-tasks/notify"
	"github.com/bitrise-steplib/steps-frontend-tasks/output"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	notificationTitle = "frontend-tasks"
	errorTitle        = "Error running frontend-tasks"

	passingReport = `{"startTime":1000,"numPassedTests":3,"numFailedTests":0,"numTotalTests":3,"numTotalTestSuites":1,"testResults":[{"success":true,"endTime":3000,"message":""}]}`
)

var testCommand = []string{"npx", "jest", "--json"}

type fixture struct {
	console  *bytes.Buffer
	stream   *output.Stream
	runner   *mocks.CommandRunner
	sender   *mocks.Sender
	notifier *notify.Notifier
}

func newFixture(consoleOutput string, exitCode int, runErr error) fixture {
	console := &bytes.Buffer{}
	runner := new(mocks.CommandRunner)
	runner.On("Run", "npx", []string{"jest", "--json"}, mock.Anything).
		Run(func(args mock.Arguments) {
			opts := args.Get(2).(*command.Opts)
			_, _ = fmt.Fprint(opts.Stdout, consoleOutput)
		}).
		Return(exitCode, runErr)

	sender := new(mocks.Sender)
	sender.On("Send", mock.Anything).Return(nil)

	return fixture{
		console:  console,
		stream:   output.NewStream(console),
		runner:   runner,
		sender:   sender,
		notifier: notify.New(notificationTitle, sender, log.NewLogger()),
	}
}

func (f fixture) summarizer(config Config) *Summarizer {
	if config.Command == nil {
		config.Command = testCommand
	}
	return NewSummarizer(config, f.runner, f.stream, f.notifier, log.NewLogger())
}

func (f fixture) notifications() []notify.Notification {
	var notifications []notify.Notification
	for _, call := range f.sender.Calls {
		notifications = append(notifications, call.Arguments.Get(0).(notify.Notification))
	}
	return notifications
}

func TestSummarizer_PassingRun(t *testing.T) {
	f := newFixture("Determining test suites to run...\n"+passingReport+"\nDone.\n", 0, nil)

	result := f.summarizer(Config{}).Run()

	assert.True(t, result.Success)
	require.NotNil(t, result.Report)
	assert.Equal(t, "[TEST] 3 test passed (3 total in 1, run time 2s)", result.Message)
	assert.Equal(t, []notify.Notification{
		{Title: notificationTitle, Message: "[TEST] 3 test passed (3 total in 1, run time 2s)"},
	}, f.notifications())
	assert.Equal(t, "Determining test suites to run...\nDone.\n", f.console.String())
	assert.Equal(t, notify.LevelAll, f.notifier.LogLevel())
}

func TestSummarizer_FailingRun(t *testing.T) {
	longMessage := strings.Repeat("x", 1200)
	report := fmt.Sprintf(`{"startTime":1000,"numPassedTests":1,"numFailedTests":2,"numTotalTests":3,"numTotalTestSuites":3,"testResults":[`+
		`{"success":false,"endTime":4000,"message":"\u001b[31mfail\u001b[0m"},`+
		`{"success":true,"endTime":2000,"message":""},`+
		`{"success":false,"endTime":5500,"message":"%s"}]}`, longMessage)
	f := newFixture("PASS a\n"+report+"\nFAIL b\n", 1, errors.New("exit status 1"))

	result := f.summarizer(Config{}).Run()

	assert.False(t, result.Success)
	assert.Equal(t, []notify.Notification{
		{Title: errorTitle, Message: "fail", IsError: true},
		{Title: errorTitle, Message: strings.Repeat("x", 1000), IsError: true},
		{Title: errorTitle, Message: "[TEST] 2 test failed, 1 test passed (3 total in 3, run time 4.5s)", IsError: true},
	}, f.notifications())
	assert.Equal(t, "PASS a\nFAIL b\n", f.console.String())
	assert.Equal(t, notify.LevelAll, f.notifier.LogLevel())
}

func TestSummarizer_SendFailureDoesNotStopOtherNotifications(t *testing.T) {
	report := `{"startTime":0,"numPassedTests":0,"numFailedTests":2,"numTotalTests":2,"numTotalTestSuites":2,"testResults":[` +
		`{"success":false,"endTime":1000,"message":"first"},{"success":false,"endTime":1000,"message":"second"}]}`
	f := newFixture(report+"\n", 1, errors.New("exit status 1"))
	f.sender.ExpectedCalls = nil
	f.sender.On("Send", mock.Anything).Return(errors.New("notification center unavailable"))

	f.summarizer(Config{}).Run()

	f.sender.AssertNumberOfCalls(t, "Send", 3)
}

func TestSummarizer_UnparseableReport(t *testing.T) {
	tests := []struct {
		name    string
		console string
	}{
		{name: "no report at all", console: "Error: Cannot find module 'jest'\n"},
		{name: "truncated report", console: `{"a":` + "\n"},
		{name: "two report lines", console: `{"a":1}` + "\n" + `{"b":2}` + "\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(tt.console, 1, errors.New("exit status 1"))

			result := f.summarizer(Config{}).Run()

			assert.Nil(t, result.Report)
			notifications := f.notifications()
			require.Len(t, notifications, 1)
			assert.True(t, notifications[0].IsError)

			_, err := f.stream.Write([]byte(`{"after":true}` + "\n"))
			require.NoError(t, err)
			assert.True(t, strings.HasSuffix(f.console.String(), `{"after":true}`+"\n"), "stream must be restored")
		})
	}
}

func TestSummarizer_CommandCannotStart(t *testing.T) {
	f := newFixture("", -1, errors.New(`exec: "npx": executable file not found in $PATH`))

	result := f.summarizer(Config{}).Run()

	assert.False(t, result.Success)
	notifications := f.notifications()
	require.Len(t, notifications, 1)
	assert.Equal(t, errorTitle, notifications[0].Title)
}

func TestSummarizer_Exports(t *testing.T) {
	f := newFixture(passingReport+"\n", 0, nil)
	junitPath := filepath.Join(t.TempDir(), "junit.xml")

	summarizer := f.summarizer(Config{JUnitReportPath: junitPath, ExportSummaryEnv: true})
	exported := map[string]string{}
	summarizer.exportEnv = func(key, value string) error {
		exported[key] = value
		return nil
	}

	summarizer.Run()

	assert.Equal(t, map[string]string{SummaryEnvKey: "[TEST] 3 test passed (3 total in 1, run time 2s)"}, exported)
	data, err := os.ReadFile(junitPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `<testsuites name="jest" tests="3" failures="0" time="2">`)
}

func TestSummarizer_RunsInConfiguredDir(t *testing.T) {
	f := newFixture(passingReport+"\n", 0, nil)

	f.summarizer(Config{Dir: "/project"}).Run()

	f.runner.AssertCalled(t, "Run", "npx", []string{"jest", "--json"}, mock.MatchedBy(func(opts *command.Opts) bool {
		return opts.Dir == "/project" && opts.Stdout == f.stream
	}))
}
