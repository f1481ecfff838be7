package main

import (
	"context"

	"github.com/bitrise-io/go-utils/v2/command"
	"github.com/bitrise-io/go-utils/v2/env"
	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bitrise-steplib/steps-frontend-tasks/bundle"
	"github.com/bitrise-steplib/steps-frontend-tasks/notify"
	"github.com/bitrise-steplib/steps-frontend-tasks/opener"
	"github.com/bitrise-steplib/steps-frontend-tasks/output"
	"github.com/bitrise-steplib/steps-frontend-tasks/project"
	"github.com/bitrise-steplib/steps-frontend-tasks/server"
	"github.com/bitrise-steplib/steps-frontend-tasks/task"
	"github.com/bitrise-steplib/steps-frontend-tasks/test"
	"github.com/bitrise-steplib/steps-frontend-tasks/watch"
)

const (
	notificationTitle = "frontend-tasks"

	scriptSuccessTemplate = "[SCRIPT] Generated script: {{.File}}"
	scriptErrorTemplate   = "[SCRIPT] {{.Error}}"
)

type app struct {
	paths      project.Paths
	logger     log.Logger
	notifier   *notify.Notifier
	summarizer *test.Summarizer
	bundler    bundle.Bundler
	server     *server.Server
	opener     opener.Opener
}

func newApp(config Config, paths project.Paths, logger log.Logger) *app {
	var sender notify.Sender = notify.NewConsoleSender(logger)
	if config.DesktopNotifications {
		sender = notify.DesktopSender{AppIcon: config.NotificationIcon}
	}
	notifier := notify.New(notificationTitle, sender, logger)
	notifier.SetLogLevel(notify.Level(config.NotifyLogLevel))

	runner := test.NewCommandRunner(command.NewFactory(env.NewRepository()), logger)
	summarizer := test.NewSummarizer(test.Config{
		Command:          config.testCommand(),
		Dir:              paths.ProjectDir,
		JUnitReportPath:  config.JUnitReportPath,
		ExportSummaryEnv: config.ExportSummaryEnv,
	}, runner, output.Stdout, notifier, logger)

	bundler := bundle.New(bundle.Config{
		ProjectDir: paths.ProjectDir,
		EntryPoint: paths.EntryPoint,
		DestDir:    paths.DestDir,
		OutputPath: paths.ScriptOutput,
		Debug:      config.SourceMap,
	}, logger)

	srv := server.New(server.Config{
		Root:       paths.DestDir,
		Host:       config.ServerHost,
		Port:       config.ServerPort,
		LiveReload: config.LiveReload,
	}, logger)

	return &app{
		paths:      paths,
		logger:     logger,
		notifier:   notifier,
		summarizer: summarizer,
		bundler:    bundler,
		server:     srv,
		opener:     opener.New(logger),
	}
}

func (a *app) registry() *task.Registry {
	registry := task.NewRegistry(a.logger)
	for _, t := range []task.Task{
		{Name: "script", Description: "Bundle the script once", Run: a.script},
		{Name: "test", Description: "Run the tests and notify about the result", Run: a.test},
		{Name: "watch:script", Description: "Rebuild the script on every change", Run: a.watchScript},
		{Name: "watch:test", Description: "Re-run the tests on every change", Deps: []string{"test"}, Run: a.watchTest},
		{Name: "watch", Description: "watch:script and watch:test", Deps: []string{"watch:script", "watch:test"}},
		{Name: "server", Description: "Serve the output with live-reload", Run: a.serve},
		{Name: "open", Description: "Open the dev server in the browser", Run: a.open},
		{Name: "tdd", Description: "server and watch", Deps: []string{"server", "watch"}},
		{Name: "tdd-open", Description: "tdd and open", Deps: []string{"tdd", "open"}},
		{Name: "default", Description: "script and test", Deps: []string{"script", "test"}},
	} {
		registry.Add(t)
	}
	return registry
}

func (a *app) script(context.Context) error {
	return a.reportBuild(a.bundler.Build())
}

func (a *app) reportBuild(out bundle.Output, err error) error {
	if err != nil {
		a.notifier.OnError(scriptErrorTemplate)(err)
		return err
	}

	a.logger.Printf("%s (%s)", out.Path, out.HumanSize())
	if err := a.notifier.Notify(scriptSuccessTemplate, notify.Context{File: out.Relative}); err != nil {
		a.logger.Warnf("%s", err)
	}
	return nil
}

func (a *app) test(context.Context) error {
	a.summarizer.Run()
	return nil
}

func (a *app) watchScript(ctx context.Context) error {
	session, err := a.bundler.NewSession()
	if err != nil {
		a.notifier.OnError(scriptErrorTemplate)(err)
		return err
	}
	defer session.Dispose()

	rebuild := func() {
		if err := a.reportBuild(session.Rebuild()); err != nil {
			a.logger.Debugf("Rebuild failed: %s", err)
		}
	}
	rebuild()

	return watch.New(a.paths.ScriptDir, watch.DefaultDebounce, a.logger).Run(ctx, func(paths []string) {
		a.logger.Printf("%d file(s) changed, rebuilding script", len(paths))
		rebuild()
	})
}

func (a *app) watchTest(ctx context.Context) error {
	return watch.New(a.paths.ScriptDir, watch.DefaultDebounce, a.logger).Run(ctx, func(paths []string) {
		a.logger.Printf("%d file(s) changed, running tests", len(paths))
		a.summarizer.Run()
	})
}

func (a *app) serve(ctx context.Context) error {
	return a.server.ListenAndServe(ctx)
}

func (a *app) open(context.Context) error {
	return a.opener.Open(a.server.URL())
}
