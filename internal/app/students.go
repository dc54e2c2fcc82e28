package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/okian/grader/internal/adapters/repository"
	"github.com/okian/grader/internal/domain/model"
	"github.com/okian/grader/pkg/logger"
	"github.com/okian/grader/pkg/metrics"
)

// StudentCSVHeader is the header row written by ExportStudentsCSV.
var StudentCSVHeader = []string{"id", "roll_number", "name", "grade"}

// CreateStudent cleans, validates and stores st.
func (s *Service) CreateStudent(ctx context.Context, st model.Student) (model.Student, error) {
	store, err := s.studentStore()
	if err != nil {
		return model.Student{}, err
	}
	st.ID = 0
	st = s.validator.clean(st)
	if err := s.validator.check(st); err != nil {
		recordOutcome("create", err)
		return model.Student{}, err
	}

	created, err := store.Create(ctx, st)
	recordOutcome("create", err)
	if err != nil {
		return model.Student{}, err
	}
	s.log().Info(ctx, "student created", logger.String("roll_number", created.RollNumber))
	return created, nil
}

// GetStudent returns the student with rollNumber.
func (s *Service) GetStudent(ctx context.Context, rollNumber string) (model.Student, error) {
	store, err := s.studentStore()
	if err != nil {
		return model.Student{}, err
	}
	st, err := store.Get(ctx, strings.TrimSpace(rollNumber))
	recordOutcome("get", err)
	return st, err
}

// ListStudents returns every student.
func (s *Service) ListStudents(ctx context.Context) ([]model.Student, error) {
	store, err := s.studentStore()
	if err != nil {
		return nil, err
	}
	out, err := store.List(ctx)
	recordOutcome("list", err)
	return out, err
}

// SearchStudents filters by name substring and grade.
func (s *Service) SearchStudents(ctx context.Context, f model.StudentFilter) ([]model.Student, error) {
	store, err := s.studentStore()
	if err != nil {
		return nil, err
	}
	f.Name = strings.TrimSpace(f.Name)
	f.Grade = strings.ToUpper(strings.TrimSpace(f.Grade))
	out, err := store.Search(ctx, f)
	recordOutcome("search", err)
	return out, err
}

// UpdateStudent applies u to the student with rollNumber. An update that
// changes nothing is rejected with the grade reported as required.
func (s *Service) UpdateStudent(ctx context.Context, rollNumber string, u model.StudentUpdate) (model.Student, error) {
	store, err := s.studentStore()
	if err != nil {
		return model.Student{}, err
	}
	if u.IsEmpty() {
		err := &model.ValidationError{Fields: map[string]string{"grade": "grade is a required field"}}
		recordOutcome("update", err)
		return model.Student{}, err
	}

	current, err := store.Get(ctx, strings.TrimSpace(rollNumber))
	if err != nil {
		recordOutcome("update", err)
		return model.Student{}, err
	}
	next := s.validator.clean(u.Apply(current))
	if err := s.validator.check(next); err != nil {
		recordOutcome("update", err)
		return model.Student{}, err
	}

	updated, err := store.Update(ctx, next)
	recordOutcome("update", err)
	if err != nil {
		return model.Student{}, err
	}
	s.log().Info(ctx, "student updated",
		logger.String("roll_number", updated.RollNumber),
		logger.String("grade", updated.Grade),
	)
	return updated, nil
}

// DeleteStudent removes the student with rollNumber.
func (s *Service) DeleteStudent(ctx context.Context, rollNumber string) error {
	store, err := s.studentStore()
	if err != nil {
		return err
	}
	err = store.Delete(ctx, strings.TrimSpace(rollNumber))
	recordOutcome("delete", err)
	if err == nil {
		s.log().Info(ctx, "student deleted", logger.String("roll_number", rollNumber))
	}
	return err
}

// ExportStudentsCSV writes every student to w with StudentCSVHeader and
// returns the number of data rows written.
func (s *Service) ExportStudentsCSV(ctx context.Context, w io.Writer) (int, error) {
	students, err := s.ListStudents(ctx)
	if err != nil {
		return 0, err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(StudentCSVHeader); err != nil {
		return 0, fmt.Errorf("write header: %w", err)
	}
	for _, st := range students {
		row := []string{strconv.FormatInt(st.ID, 10), st.RollNumber, st.Name, st.Grade}
		if err := cw.Write(row); err != nil {
			return 0, fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return 0, fmt.Errorf("flush csv: %w", err)
	}
	return len(students), nil
}

func recordOutcome(op string, err error) {
	var ve *model.ValidationError
	switch {
	case err == nil:
		metrics.RecordStudentOperation(op, "ok")
	case errors.As(err, &ve):
		metrics.RecordStudentOperation(op, "invalid")
	case errors.Is(err, repository.ErrNotFound):
		metrics.RecordStudentOperation(op, "not_found")
	case errors.Is(err, repository.ErrDuplicate):
		metrics.RecordStudentOperation(op, "duplicate")
	default:
		metrics.RecordStudentOperation(op, "error")
	}
}
