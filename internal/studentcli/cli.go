// Package studentcli is the interactive terminal menu for student records.
package studentcli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/okian/grader/internal/adapters/repository"
	"github.com/okian/grader/internal/domain/model"
)

// Students is the part of the application service the menu drives.
type Students interface {
	CreateStudent(ctx context.Context, s model.Student) (model.Student, error)
	ListStudents(ctx context.Context) ([]model.Student, error)
	SearchStudents(ctx context.Context, f model.StudentFilter) ([]model.Student, error)
	UpdateStudent(ctx context.Context, rollNumber string, u model.StudentUpdate) (model.Student, error)
	DeleteStudent(ctx context.Context, rollNumber string) error
	ExportStudentsCSV(ctx context.Context, w io.Writer) (int, error)
}

// Menu entries, in display order.
const (
	ActionView   = "View all students"
	ActionAdd    = "Add a student"
	ActionUpdate = "Update a student"
	ActionDelete = "Delete a student"
	ActionSearch = "Search students"
	ActionExport = "Export to CSV"
	ActionExit   = "Exit"
)

// Actions lists the menu entries.
var Actions = []string{ActionView, ActionAdd, ActionUpdate, ActionDelete, ActionSearch, ActionExport, ActionExit}

const defaultExportPath = "students.csv"

// CLI runs the student menu.
type CLI struct {
	students Students
	prompt   Prompter
	out      io.Writer
}

// Option applies a configuration option to the CLI.
type Option func(*CLI)

// WithOutput sends messages and tables to w instead of stdout.
func WithOutput(w io.Writer) Option {
	return func(c *CLI) {
		if w != nil {
			c.out = w
		}
	}
}

// New creates a CLI over students.
func New(students Students, prompt Prompter, opts ...Option) *CLI {
	c := &CLI{students: students, prompt: prompt, out: os.Stdout}

	// Apply all options
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run shows the menu until the user exits or interrupts. Failed actions
// are reported and the menu is shown again.
func (c *CLI) Run(ctx context.Context) error {
	for {
		idx, err := c.prompt.Select(ctx, "What would you like to do?", Actions)
		if err != nil {
			if errors.Is(err, ErrAborted) {
				return nil
			}
			return err
		}
		if idx < 0 || idx >= len(Actions) {
			continue
		}

		action := Actions[idx]
		if action == ActionExit {
			fmt.Fprintln(c.out, "Goodbye.")
			return nil
		}
		if err := c.do(ctx, action); err != nil {
			if errors.Is(err, ErrAborted) {
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.report(err)
		}
	}
}

func (c *CLI) do(ctx context.Context, action string) error {
	switch action {
	case ActionView:
		return c.view(ctx)
	case ActionAdd:
		return c.add(ctx)
	case ActionUpdate:
		return c.update(ctx)
	case ActionDelete:
		return c.remove(ctx)
	case ActionSearch:
		return c.search(ctx)
	case ActionExport:
		return c.export(ctx)
	}
	return nil
}

func (c *CLI) view(ctx context.Context) error {
	students, err := c.students.ListStudents(ctx)
	if err != nil {
		return err
	}
	c.table(students)
	return nil
}

func (c *CLI) add(ctx context.Context) error {
	name, err := c.prompt.Input(ctx, "Name:", "")
	if err != nil {
		return err
	}
	roll, err := c.prompt.Input(ctx, "Roll number:", "")
	if err != nil {
		return err
	}
	grade, err := c.prompt.Input(ctx, "Grade (A-F):", "")
	if err != nil {
		return err
	}

	created, err := c.students.CreateStudent(ctx, model.Student{Name: name, RollNumber: roll, Grade: grade})
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Added %s (%s) with grade %s.\n", created.Name, created.RollNumber, created.Grade)
	return nil
}

func (c *CLI) update(ctx context.Context) error {
	roll, err := c.prompt.Input(ctx, "Roll number:", "")
	if err != nil {
		return err
	}
	name, err := c.prompt.Input(ctx, "New name (blank to keep):", "")
	if err != nil {
		return err
	}
	grade, err := c.prompt.Input(ctx, "New grade (blank to keep):", "")
	if err != nil {
		return err
	}

	var u model.StudentUpdate
	if strings.TrimSpace(name) != "" {
		u.Name = &name
	}
	if strings.TrimSpace(grade) != "" {
		u.Grade = &grade
	}
	updated, err := c.students.UpdateStudent(ctx, roll, u)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Updated %s: %s, grade %s.\n", updated.RollNumber, updated.Name, updated.Grade)
	return nil
}

func (c *CLI) remove(ctx context.Context) error {
	roll, err := c.prompt.Input(ctx, "Roll number:", "")
	if err != nil {
		return err
	}
	ok, err := c.prompt.Confirm(ctx, fmt.Sprintf("Delete student %s?", roll), false)
	if err != nil || !ok {
		return err
	}
	if err := c.students.DeleteStudent(ctx, roll); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Deleted %s.\n", roll)
	return nil
}

func (c *CLI) search(ctx context.Context) error {
	name, err := c.prompt.Input(ctx, "Name contains (blank for any):", "")
	if err != nil {
		return err
	}
	grade, err := c.prompt.Input(ctx, "Grade (blank for any):", "")
	if err != nil {
		return err
	}
	students, err := c.students.SearchStudents(ctx, model.StudentFilter{Name: name, Grade: grade})
	if err != nil {
		return err
	}
	c.table(students)
	return nil
}

func (c *CLI) export(ctx context.Context) error {
	path, err := c.prompt.Input(ctx, "Export to:", defaultExportPath)
	if err != nil {
		return err
	}
	if strings.TrimSpace(path) == "" {
		path = defaultExportPath
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	n, err := c.students.ExportStudentsCSV(ctx, f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Exported %d students to %s.\n", n, path)
	return nil
}

func (c *CLI) table(students []model.Student) {
	if len(students) == 0 {
		fmt.Fprintln(c.out, "No students found.")
		return
	}
	tw := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ROLL\tNAME\tGRADE")
	for _, s := range students {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", s.RollNumber, s.Name, s.Grade)
	}
	_ = tw.Flush()
}

func (c *CLI) report(err error) {
	var ve *model.ValidationError
	switch {
	case errors.As(err, &ve):
		keys := make([]string, 0, len(ve.Fields))
		for k := range ve.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(c.out, "Invalid %s: %s\n", k, ve.Fields[k])
		}
	case errors.Is(err, repository.ErrNotFound):
		fmt.Fprintln(c.out, "No student with that roll number.")
	case errors.Is(err, repository.ErrDuplicate):
		fmt.Fprintln(c.out, "A student with that roll number already exists.")
	default:
		fmt.Fprintf(c.out, "Error: %v\n", err)
	}
}
