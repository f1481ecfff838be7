package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/bitrise-io/go-steputils/v2/stepconf"
	v1log "github.com/bitrise-io/go-utils/log"
	"github.com/bitrise-io/go-utils/v2/env"
	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bitrise-io/go-utils/v2/pathutil"
	"github.com/bitrise-steplib/steps-frontend-tasks/notify"
	"github.com/bitrise-steplib/steps-frontend-tasks/project"
)

// Config ...
type Config struct {
	ProjectDir   string `env:"project_dir"`
	ScriptDir    string `env:"script_dir"`
	EntryPoint   string `env:"entry_point"`
	DestDir      string `env:"dest_dir"`
	ScriptOutput string `env:"script_output"`
	SourceMap    bool   `env:"source_map"`

	TestCommand      string `env:"test_command"`
	JUnitReportPath  string `env:"junit_report_path"`
	ExportSummaryEnv bool   `env:"export_summary_env"`

	ServerHost string `env:"server_host"`
	ServerPort int    `env:"server_port"`
	LiveReload bool   `env:"live_reload"`

	DesktopNotifications bool   `env:"desktop_notifications"`
	NotifyLogLevel       int    `env:"notify_log_level"`
	NotificationIcon     string `env:"notification_icon"`

	DebugMode bool `env:"debug_mode"`
}

// defaultConfig mirrors the layout of a gulp project: sources in js/, output in public/.
// Inputs left empty keep these values.
func defaultConfig() Config {
	return Config{
		ProjectDir:           ".",
		ScriptDir:            "js",
		EntryPoint:           "js/index.js",
		DestDir:              "public",
		ScriptOutput:         "js/script.js",
		SourceMap:            true,
		TestCommand:          "npx jest --json",
		ServerHost:           "localhost",
		ServerPort:           8000,
		LiveReload:           true,
		DesktopNotifications: true,
		NotifyLogLevel:       int(notify.LevelAll),
	}
}

func parseConfig(envRepository env.Repository) (Config, error) {
	config := defaultConfig()
	if err := stepconf.NewInputParser(envRepository).Parse(&config); err != nil {
		return Config{}, err
	}

	if config.NotifyLogLevel < int(notify.LevelSilent) || config.NotifyLogLevel > int(notify.LevelAll) {
		return Config{}, fmt.Errorf("notify_log_level: %d is out of range [%d..%d]", config.NotifyLogLevel, notify.LevelSilent, notify.LevelAll)
	}
	if config.ServerPort < 1 || config.ServerPort > 65535 {
		return Config{}, fmt.Errorf("server_port: %d is not a valid port", config.ServerPort)
	}
	if len(config.testCommand()) == 0 {
		return Config{}, fmt.Errorf("test_command: empty command")
	}

	return config, nil
}

func (c Config) testCommand() []string {
	return strings.Fields(c.TestCommand)
}

func (c Config) layout() project.Layout {
	return project.Layout{
		ProjectDir:   c.ProjectDir,
		ScriptDir:    c.ScriptDir,
		EntryPoint:   c.EntryPoint,
		DestDir:      c.DestDir,
		ScriptOutput: c.ScriptOutput,
	}
}

func fail(format string, v ...interface{}) {
	v1log.Errorf(format, v...)
	os.Exit(1)
}

func main() {
	config, err := parseConfig(env.NewRepository())
	if err != nil {
		fail("Issue with input: %s", err)
	}

	logger := log.NewLogger()
	logger.EnableDebugLog(config.DebugMode)
	v1log.SetEnableDebugLog(config.DebugMode)
	if config.DebugMode {
		stepconf.Print(config)
		fmt.Println()
	}

	paths, err := project.NewResolver(pathutil.NewPathModifier(), pathutil.NewPathChecker()).Resolve(config.layout())
	if err != nil {
		fail("%s", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newRootCmd(newApp(config, paths, logger))
	if err := cmd.ExecuteContext(ctx); err != nil {
		stop()
		fail("%s", err)
	}
}
