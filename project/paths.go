// Package project resolves the configured project layout into absolute paths.
package project

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bitrise-io/go-utils/v2/pathutil"
)

// Layout is the project layout as configured, relative paths are relative to ProjectDir.
type Layout struct {
	ProjectDir   string
	ScriptDir    string
	EntryPoint   string
	DestDir      string
	ScriptOutput string
}

// Paths is the resolved layout. ScriptOutput stays relative to DestDir.
type Paths struct {
	ProjectDir   string
	ScriptDir    string
	EntryPoint   string
	DestDir      string
	ScriptOutput string
}

// Resolver ...
type Resolver struct {
	pathModifier pathutil.PathModifier
	pathChecker  pathutil.PathChecker
}

// NewResolver ...
func NewResolver(modifier pathutil.PathModifier, checker pathutil.PathChecker) Resolver {
	return Resolver{
		pathModifier: modifier,
		pathChecker:  checker,
	}
}

// Resolve expands the layout. The project dir has to exist, everything else may be
// created later by the tasks.
func (r Resolver) Resolve(layout Layout) (Paths, error) {
	projectDir, err := r.pathModifier.AbsPath(strings.TrimSpace(layout.ProjectDir))
	if err != nil {
		return Paths{}, fmt.Errorf("failed to expand project dir (%s): %w", layout.ProjectDir, err)
	}

	exists, err := r.pathChecker.IsDirExists(projectDir)
	if err != nil {
		return Paths{}, fmt.Errorf("failed to check if project dir (%s) exists: %w", projectDir, err)
	}
	if !exists {
		return Paths{}, fmt.Errorf("project dir (%s) does not exist", projectDir)
	}

	paths := Paths{ProjectDir: projectDir}
	for _, item := range []struct {
		name   string
		value  string
		target *string
	}{
		{name: "script dir", value: layout.ScriptDir, target: &paths.ScriptDir},
		{name: "entry point", value: layout.EntryPoint, target: &paths.EntryPoint},
		{name: "dest dir", value: layout.DestDir, target: &paths.DestDir},
	} {
		pth, err := r.resolve(projectDir, item.value)
		if err != nil {
			return Paths{}, fmt.Errorf("failed to expand %s (%s): %w", item.name, item.value, err)
		}
		*item.target = pth
	}

	scriptOutput := filepath.Clean(strings.TrimSpace(layout.ScriptOutput))
	if filepath.IsAbs(scriptOutput) || scriptOutput == "." || strings.HasPrefix(scriptOutput, "..") {
		return Paths{}, fmt.Errorf("script output (%s) has to be a file path relative to the dest dir", layout.ScriptOutput)
	}
	paths.ScriptOutput = scriptOutput

	return paths, nil
}

func (r Resolver) resolve(projectDir, pth string) (string, error) {
	pth = strings.TrimSpace(pth)
	if pth == "" {
		return "", fmt.Errorf("empty path")
	}
	if !filepath.IsAbs(pth) && !strings.HasPrefix(pth, "~") && !strings.HasPrefix(pth, "$") {
		pth = filepath.Join(projectDir, pth)
	}
	return r.pathModifier.AbsPath(pth)
}

// ScriptOutputPath is the absolute path of the bundle.
func (p Paths) ScriptOutputPath() string {
	return filepath.Join(p.DestDir, p.ScriptOutput)
}
