// Package model contains domain models passed between layers.
package model

import "strings"

// Student is a row of the students table.
type Student struct {
	ID         int64  `db:"id" json:"id"`
	Name       string `db:"name" json:"name" validate:"required,personname,min=2,max=100"`
	RollNumber string `db:"roll_number" json:"roll_number" validate:"required,alphanum,min=1,max=32"`
	Grade      string `db:"grade" json:"grade" validate:"required,oneof=A B C D E F"`
}

// Normalize trims whitespace and upper-cases the grade.
func (s *Student) Normalize() {
	s.Name = strings.TrimSpace(s.Name)
	s.RollNumber = strings.TrimSpace(s.RollNumber)
	s.Grade = strings.ToUpper(strings.TrimSpace(s.Grade))
}

// StudentFilter narrows a student search. Name matches as a substring,
// Grade exactly. Empty fields do not filter.
type StudentFilter struct {
	Name  string
	Grade string
}

// StudentUpdate carries the fields to change; nil fields keep their value.
type StudentUpdate struct {
	Name  *string `json:"name,omitempty"`
	Grade *string `json:"grade,omitempty"`
}

// Apply returns s with the update applied and normalized.
func (u StudentUpdate) Apply(s Student) Student {
	if u.Name != nil {
		s.Name = *u.Name
	}
	if u.Grade != nil {
		s.Grade = *u.Grade
	}
	s.Normalize()
	return s
}

// IsEmpty reports whether the update changes nothing.
func (u StudentUpdate) IsEmpty() bool {
	return u.Name == nil && u.Grade == nil
}
