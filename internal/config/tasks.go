// ABOUTME: Classification task definitions (label column, categories, instruction)
// ABOUTME: Built-in tasks are embedded YAML; --task-file adds or overrides them
package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/harper/comment-classifier/internal/models"
)

// DefaultTask is used when neither a task name nor a single-task file is given
const DefaultTask = "strong-mayor-powers"

//go:embed tasks/builtin.yaml
var builtinTasks []byte

// Task describes one classification question
type Task struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description,omitempty"`
	LabelColumn string   `yaml:"label_column"`
	Categories  []string `yaml:"categories"`
	Instruction string   `yaml:"instruction"`
	TieBreak    string   `yaml:"tie_break,omitempty"`
}

type taskFile struct {
	Tasks []*Task `yaml:"tasks"`
}

// CategorySet returns the task's normalized labels
func (t *Task) CategorySet() (models.CategorySet, error) {
	set, err := models.NewCategorySet(t.Categories...)
	if err != nil {
		return nil, models.NewConfigError("task %s: %v", t.Name, err)
	}
	return set, nil
}

// Validate checks that a task can drive a run
func (t *Task) Validate() error {
	if t.Name == "" {
		return models.NewConfigError("task name is required")
	}
	if strings.TrimSpace(t.Instruction) == "" {
		return models.NewConfigError("task %s: instruction is required", t.Name)
	}
	if _, err := t.CategorySet(); err != nil {
		return err
	}
	return nil
}

// Column returns the output label column, defaulting to the task name
func (t *Task) Column() string {
	if t.LabelColumn != "" {
		return t.LabelColumn
	}
	return t.Name
}

// ParseTasks reads either a `tasks:` list or a single task document
func ParseTasks(data []byte) ([]*Task, error) {
	var file taskFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err == nil && len(file.Tasks) > 0 {
		return validated(file.Tasks)
	}

	var single Task
	if err := yaml.Unmarshal(data, &single); err != nil {
		return nil, models.NewConfigError("invalid task definition: %v", err)
	}
	return validated([]*Task{&single})
}

func validated(tasks []*Task) ([]*Task, error) {
	for _, t := range tasks {
		if err := t.Validate(); err != nil {
			return nil, err
		}
	}
	return tasks, nil
}

// Tasks returns the built-in tasks merged with those from path (if set),
// keyed by name. File tasks replace built-ins of the same name.
func Tasks(path string) (map[string]*Task, error) {
	builtins, err := ParseTasks(builtinTasks)
	if err != nil {
		return nil, fmt.Errorf("built-in tasks: %w", err)
	}

	all := make(map[string]*Task, len(builtins))
	for _, t := range builtins {
		all[t.Name] = t
	}
	if path == "" {
		return all, nil
	}

	extra, err := loadTaskFile(path)
	if err != nil {
		return nil, err
	}
	for _, t := range extra {
		all[t.Name] = t
	}
	return all, nil
}

func loadTaskFile(path string) ([]*Task, error) {
	data, err := os.ReadFile(path) // #nosec G304
	if err != nil {
		return nil, models.NewConfigError("task file %s: %v", path, err)
	}
	return ParseTasks(data)
}

// ResolveTask picks the named task. With no name, a task file holding a
// single task selects it; otherwise DefaultTask is used.
func ResolveTask(name, path string) (*Task, error) {
	if name == "" && path != "" {
		extra, err := loadTaskFile(path)
		if err != nil {
			return nil, err
		}
		if len(extra) == 1 {
			return extra[0], nil
		}
	}
	if name == "" {
		name = DefaultTask
	}

	all, err := Tasks(path)
	if err != nil {
		return nil, err
	}
	task, ok := all[name]
	if !ok {
		return nil, models.NewConfigError("unknown task %q (available: %s)", name, strings.Join(TaskNames(all), ", "))
	}
	return task, nil
}

// TaskNames returns the sorted names of tasks
func TaskNames(tasks map[string]*Task) []string {
	names := make([]string, 0, len(tasks))
	for name := range tasks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
