package main

import (
	"fmt"
	"strings"

	"github.com/bitrise-steplib/steps-frontend-tasks/task"
	"github.com/spf13/cobra"
)

const defaultTask = "default"

func newRootCmd(a *app) *cobra.Command {
	registry := a.registry()

	var debug bool
	root := &cobra.Command{
		Use:           "frontend-tasks [task...]",
		Short:         "Build, test and serve a front-end project",
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if debug {
				a.logger.EnableDebugLog(true)
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				args = []string{defaultTask}
			}
			return registry.Run(cmd.Context(), args...)
		},
	}
	root.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	for _, t := range registry.Tasks() {
		root.AddCommand(taskCmd(registry, t))
	}
	root.AddCommand(listCmd(registry))

	return root
}

func taskCmd(registry *task.Registry, t task.Task) *cobra.Command {
	return &cobra.Command{
		Use:   t.Name + " [task...]",
		Short: t.Description,
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return registry.Run(cmd.Context(), append([]string{t.Name}, args...)...)
		},
	}
}

func listCmd(registry *task.Registry) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the available tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, t := range registry.Tasks() {
				line := t.Name
				if len(t.Deps) > 0 {
					line += fmt.Sprintf(" [%s]", strings.Join(t.Deps, ", "))
				}
				if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", line, t.Description); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
