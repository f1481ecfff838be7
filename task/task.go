// Package task runs named tasks with dependencies: the dependencies of a task run
// concurrently and the task's own body starts once all of them are done.
package task

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/bitrise-io/go-utils/v2/log"
)

// Func is the body of a task. Long running tasks return when ctx is done.
type Func func(ctx context.Context) error

// Task ...
type Task struct {
	Name        string
	Description string
	Deps        []string
	Run         Func
}

// Registry ...
type Registry struct {
	tasks  map[string]Task
	logger log.Logger
}

// NewRegistry ...
func NewRegistry(logger log.Logger) *Registry {
	return &Registry{tasks: map[string]Task{}, logger: logger}
}

// Add registers t, replacing any task with the same name.
func (r *Registry) Add(t Task) {
	r.tasks[t.Name] = t
}

// Get ...
func (r *Registry) Get(name string) (Task, bool) {
	t, ok := r.tasks[name]
	return t, ok
}

// Tasks returns the registered tasks sorted by name.
func (r *Registry) Tasks() []Task {
	var tasks []Task
	for _, t := range r.tasks {
		tasks = append(tasks, t)
	}
	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].Name < tasks[j].Name
	})
	return tasks
}

// Validate checks that every dependency exists and that there are no cycles.
func (r *Registry) Validate() error {
	const (
		visiting = 1
		done     = 2
	)
	state := map[string]int{}

	var visit func(name string, path []string) error
	visit = func(name string, path []string) error {
		t, ok := r.tasks[name]
		if !ok {
			if len(path) == 0 {
				return fmt.Errorf("task not found: %s", name)
			}
			return fmt.Errorf("task %s depends on unknown task: %s", path[len(path)-1], name)
		}
		switch state[name] {
		case visiting:
			return fmt.Errorf("dependency cycle: %v", append(path, name))
		case done:
			return nil
		}

		state[name] = visiting
		next := append(append([]string{}, path...), name)
		for _, dep := range t.Deps {
			if err := visit(dep, next); err != nil {
				return err
			}
		}
		state[name] = done
		return nil
	}

	for _, t := range r.Tasks() {
		if err := visit(t.Name, nil); err != nil {
			return err
		}
	}
	return nil
}

// Run runs the named tasks concurrently, each task at most once.
func (r *Registry) Run(ctx context.Context, names ...string) error {
	for _, name := range names {
		if _, ok := r.tasks[name]; !ok {
			return fmt.Errorf("task not found: %s", name)
		}
	}
	if err := r.Validate(); err != nil {
		return err
	}

	run := &run{registry: r, results: map[string]*result{}}
	return run.all(ctx, names)
}

type result struct {
	done chan struct{}
	err  error
}

type run struct {
	registry *Registry

	mu      sync.Mutex
	results map[string]*result
}

func (r *run) all(ctx context.Context, names []string) error {
	errs := make([]error, len(names))

	var wg sync.WaitGroup
	for i, name := range names {
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			errs[i] = r.task(ctx, name)
		}(i, name)
	}
	wg.Wait()

	return errors.Join(errs...)
}

// task starts name unless another dependent already did, and waits for it.
func (r *run) task(ctx context.Context, name string) error {
	r.mu.Lock()
	res, started := r.results[name]
	if !started {
		res = &result{done: make(chan struct{})}
		r.results[name] = res
	}
	r.mu.Unlock()

	if started {
		<-res.done
		return res.err
	}

	defer close(res.done)
	res.err = r.execute(ctx, r.registry.tasks[name])
	return res.err
}

func (r *run) execute(ctx context.Context, t Task) error {
	logger := r.registry.logger

	if len(t.Deps) > 0 {
		if err := r.all(ctx, t.Deps); err != nil {
			return fmt.Errorf("%s: %w", t.Name, err)
		}
	}
	if t.Run == nil {
		return nil
	}

	logger.Infof("Starting '%s'...", t.Name)
	if err := t.Run(ctx); err != nil {
		logger.Errorf("'%s' failed: %s", t.Name, err)
		return fmt.Errorf("%s: %w", t.Name, err)
	}
	logger.Donef("Finished '%s'", t.Name)
	return nil
}
