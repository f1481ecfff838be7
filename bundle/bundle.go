// Package bundle builds the browser script with esbuild: one entry point, bundled with
// its imports, JSX allowed in .js files and an inline source map.
package bundle

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/docker/go-units"
	"github.com/evanw/esbuild/pkg/api"
)

// Config ...
type Config struct {
	ProjectDir string
	EntryPoint string
	DestDir    string
	OutputPath string
	Debug      bool
}

// Output describes a written bundle.
type Output struct {
	Path     string
	Relative string
	Size     int64
}

// HumanSize ...
func (o Output) HumanSize() string {
	return units.HumanSize(float64(o.Size))
}

// Bundler ...
type Bundler struct {
	config Config
	logger log.Logger
}

// New ...
func New(config Config, logger log.Logger) Bundler {
	return Bundler{config: config, logger: logger}
}

func (b Bundler) options() api.BuildOptions {
	opts := api.BuildOptions{
		AbsWorkingDir: b.config.ProjectDir,
		EntryPoints:   []string{b.config.EntryPoint},
		Outfile:       filepath.Join(b.config.DestDir, b.config.OutputPath),
		Bundle:        true,
		Write:         true,
		LogLevel:      api.LogLevelSilent,
		Target:        api.ES2015,
		Loader: map[string]api.Loader{
			".js": api.LoaderJSX,
		},
	}
	if b.config.Debug {
		opts.Sourcemap = api.SourceMapInline
	}
	return opts
}

// Build bundles the entry point once.
func (b Bundler) Build() (Output, error) {
	b.logger.Debugf("Bundling %s", b.config.EntryPoint)
	return b.output(api.Build(b.options()))
}

func (b Bundler) output(result api.BuildResult) (Output, error) {
	for _, warning := range result.Warnings {
		b.logger.Warnf("%s", formatMessage(warning))
	}
	if len(result.Errors) > 0 {
		return Output{}, buildError(result.Errors)
	}

	outfile := filepath.Join(b.config.DestDir, b.config.OutputPath)
	if !filepath.IsAbs(outfile) {
		outfile = filepath.Join(b.config.ProjectDir, outfile)
	}

	info, err := os.Stat(outfile)
	if err != nil {
		return Output{}, fmt.Errorf("bundle was not written: %w", err)
	}

	return Output{Path: outfile, Relative: filepath.ToSlash(b.config.OutputPath), Size: info.Size()}, nil
}

// Session is an incremental build context for watch mode. Dispose must be called when done.
type Session struct {
	bundler Bundler
	ctx     api.BuildContext
}

// NewSession ...
func (b Bundler) NewSession() (*Session, error) {
	ctx, ctxErr := api.Context(b.options())
	if ctxErr != nil {
		return nil, buildError(ctxErr.Errors)
	}
	return &Session{bundler: b, ctx: ctx}, nil
}

// Rebuild reuses the previous build's state and only reprocesses changed files.
func (s *Session) Rebuild() (Output, error) {
	return s.bundler.output(s.ctx.Rebuild())
}

// Dispose ...
func (s *Session) Dispose() {
	s.ctx.Dispose()
}

func buildError(messages []api.Message) error {
	var errs []error
	for _, message := range messages {
		errs = append(errs, errors.New(formatMessage(message)))
	}
	return errors.Join(errs...)
}

func formatMessage(message api.Message) string {
	if message.Location == nil {
		return message.Text
	}

	location := message.Location
	return fmt.Sprintf("%s:%d:%d: %s", location.File, location.Line, location.Column, strings.TrimSpace(message.Text))
}
