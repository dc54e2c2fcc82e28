// Package repository defines the student store interface and its SQLite
// implementation.
package repository

import (
	"context"

	"github.com/okian/grader/internal/domain/model"
)

// Store provides read/write access to student records. Records are
// addressed by roll number, which is unique.
type Store interface {
	// Create inserts s and returns it with its assigned ID.
	// Returns ErrDuplicate if the roll number is taken.
	Create(ctx context.Context, s model.Student) (model.Student, error)

	// Get returns the student with rollNumber or ErrNotFound.
	Get(ctx context.Context, rollNumber string) (model.Student, error)

	// List returns every student ordered by ID.
	List(ctx context.Context) ([]model.Student, error)

	// Search filters by name substring and exact grade.
	Search(ctx context.Context, f model.StudentFilter) ([]model.Student, error)

	// Update replaces name and grade of the student with s.RollNumber.
	// Returns ErrNotFound if no row matched.
	Update(ctx context.Context, s model.Student) (model.Student, error)

	// Delete removes the student or returns ErrNotFound.
	Delete(ctx context.Context, rollNumber string) error

	// Count returns the number of stored students.
	Count(ctx context.Context) (int, error)

	Close() error
}
