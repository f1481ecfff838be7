package test

import (
	"errors"
	"os"
	"sync"

	"github.com/bitrise-io/go-steputils/tools"
	"github.com/bitrise-io/go-utils/v2/command"
	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bitrise-steplib/steps-frontend-tasks/notify"
	"github.com/bitrise-steplib/steps-frontend-tasks/output"
	"github.com/bitrise-steplib/steps-frontend-tasks/test/jest"
	"github.com/bitrise-steplib/steps-frontend-tasks/test/testreport"
	"github.com/kr/pretty"
)

// SummaryEnvKey is the environment variable the summary line is exported to.
const SummaryEnvKey = "FRONTEND_TASKS_TEST_SUMMARY"

const (
	parseErrorTemplate   = "{{.Error}}"
	summaryTemplate      = "{{.Message}}"
	suiteFailureTemplate = "{{.Error}}"
)

// Runner runs an external command and returns its exit code.
type Runner interface {
	Run(name string, args []string, opts *command.Opts) (int, error)
}

type commandRunner struct {
	factory command.Factory
	logger  log.Logger
}

// NewCommandRunner ...
func NewCommandRunner(factory command.Factory, logger log.Logger) Runner {
	return commandRunner{factory: factory, logger: logger}
}

func (r commandRunner) Run(name string, args []string, opts *command.Opts) (int, error) {
	cmd := r.factory.Create(name, args, opts)
	r.logger.Printf("$ %s", cmd.PrintableCommandArgs())
	return cmd.RunAndReturnExitCode()
}

// Config ...
type Config struct {
	// Command is the test command with its arguments, it has to print a jest --json report to stdout.
	Command          []string
	Dir              string
	JUnitReportPath  string
	ExportSummaryEnv bool
}

// Result is what a test run leaves behind for the caller. Report is nil if the
// structured report could not be parsed.
type Result struct {
	Success bool
	Report  *jest.Report
	Message string
}

// Summarizer runs the test suite, picks the structured report out of the console
// output and tells the developer how it went.
type Summarizer struct {
	mu        sync.Mutex
	config    Config
	runner    Runner
	stream    *output.Stream
	notifier  *notify.Notifier
	logger    log.Logger
	exportEnv func(key, value string) error
}

// NewSummarizer ...
func NewSummarizer(config Config, runner Runner, stream *output.Stream, notifier *notify.Notifier, logger log.Logger) *Summarizer {
	return &Summarizer{
		config:    config,
		runner:    runner,
		stream:    stream,
		notifier:  notifier,
		logger:    logger,
		exportEnv: tools.ExportEnvironmentWithEnvman,
	}
}

// Run executes one test run. It never fails: every problem ends up as a notification.
// Runs are serialized.
func (s *Summarizer) Run() Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	success, captured := s.runTests()

	report, err := jest.ParseReport(captured)
	if err != nil {
		s.notifier.OnError(parseErrorTemplate)(err)
		return Result{Success: success}
	}
	s.logger.Debugf("Test report: %# v", pretty.Formatter(report))

	message := jest.Summarize(report).Message()
	s.notifySummary(success, report, message)
	s.export(report, message)

	return Result{Success: success, Report: &report, Message: message}
}

func (s *Summarizer) runTests() (bool, string) {
	interceptor := output.Intercept(s.stream)
	defer interceptor.Release()

	if len(s.config.Command) == 0 {
		s.logger.Warnf("No test command configured")
		return false, ""
	}

	opts := &command.Opts{
		Stdout: s.stream,
		Stderr: os.Stderr,
		Dir:    s.config.Dir,
	}
	exitCode, err := s.runner.Run(s.config.Command[0], s.config.Command[1:], opts)
	if err != nil {
		if exitCode < 0 {
			s.logger.Warnf("Failed to run tests: %s", err)
		} else {
			s.logger.Debugf("Test command exited with %d: %s", exitCode, err)
		}
	}

	interceptor.Release()

	return err == nil && exitCode == 0, interceptor.Captured()
}

func (s *Summarizer) notifySummary(success bool, report jest.Report, message string) {
	restore := s.notifier.OverrideLogLevel(notify.LevelSilent)
	defer restore()

	if success {
		if err := s.notifier.Notify(summaryTemplate, notify.Context{Message: message}); err != nil {
			s.logger.Debugf("%s", err)
		}
		return
	}

	onSuiteFailure := s.notifier.OnError(suiteFailureTemplate)
	for _, suite := range report.FailedSuites() {
		onSuiteFailure(errors.New(jest.CleanFailureMessage(suite.Message)))
	}

	s.notifier.OnError(summaryTemplate)(errors.New(message))
}

func (s *Summarizer) export(report jest.Report, message string) {
	if s.config.JUnitReportPath != "" {
		if err := testreport.Export(report.Convert(), s.config.JUnitReportPath); err != nil {
			s.logger.Warnf("Failed to export JUnit report: %s", err)
		} else {
			s.logger.Printf("JUnit report written to %s", s.config.JUnitReportPath)
		}
	}

	if s.config.ExportSummaryEnv {
		if err := s.exportEnv(SummaryEnvKey, message); err != nil {
			s.logger.Warnf("Failed to export %s: %s", SummaryEnvKey, err)
		}
	}
}
