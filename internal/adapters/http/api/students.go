package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/okian/grader/internal/adapters/repository"
	"github.com/okian/grader/internal/domain/model"
)

// StudentsHandler serves the student records API.
type StudentsHandler struct {
	deps         StudentDependencies
	maxBodyBytes int64
}

// NewStudentsHandler creates a new students handler.
func NewStudentsHandler(deps StudentDependencies, maxBodyBytes int64) *StudentsHandler {
	return &StudentsHandler{deps: deps, maxBodyBytes: maxBodyBytes}
}

type studentsResponse struct {
	Students []model.Student `json:"students"`
	Count    int             `json:"count"`
}

func listResponse(students []model.Student) studentsResponse {
	if students == nil {
		students = []model.Student{}
	}
	return studentsResponse{Students: students, Count: len(students)}
}

// HandleCollection handles GET and POST /students.
func (h *StudentsHandler) HandleCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		students, err := h.deps.ListStudents(r.Context())
		if err != nil {
			writeStudentError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, listResponse(students))
	case http.MethodPost:
		var in model.Student
		if err := h.decode(w, r, &in); err != nil {
			writeBodyError(w, err)
			return
		}
		created, err := h.deps.CreateStudent(r.Context(), in)
		if err != nil {
			writeStudentError(w, err)
			return
		}
		w.Header().Set("Location", "/students/"+url.PathEscape(created.RollNumber))
		writeJSON(w, http.StatusCreated, created)
	default:
		methodNotAllowed(w, "students", "GET, POST")
	}
}

// HandleSearch handles GET /students/search?name=&grade=.
func (h *StudentsHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "search students", http.MethodGet)
		return
	}
	q := r.URL.Query()
	students, err := h.deps.SearchStudents(r.Context(), model.StudentFilter{
		Name:  q.Get("name"),
		Grade: q.Get("grade"),
	})
	if err != nil {
		writeStudentError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse(students))
}

// HandleItem handles GET, PUT and DELETE /students/{roll_number}.
func (h *StudentsHandler) HandleItem(w http.ResponseWriter, r *http.Request) {
	roll := strings.TrimPrefix(r.URL.Path, "/students/")
	if roll == "" || strings.Contains(roll, "/") {
		writeError(w, http.StatusNotFound, "not_found", NewKind(r.URL.Path, ErrNotFound))
		return
	}

	switch r.Method {
	case http.MethodGet:
		st, err := h.deps.GetStudent(r.Context(), roll)
		if err != nil {
			writeStudentError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, st)
	case http.MethodPut:
		var u model.StudentUpdate
		if err := h.decode(w, r, &u); err != nil {
			writeBodyError(w, err)
			return
		}
		st, err := h.deps.UpdateStudent(r.Context(), roll, u)
		if err != nil {
			writeStudentError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, st)
	case http.MethodDelete:
		if err := h.deps.DeleteStudent(r.Context(), roll); err != nil {
			writeStudentError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, "student", "GET, PUT, DELETE")
	}
}

// HandleExport handles GET /students.csv.
func (h *StudentsHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "export students", http.MethodGet)
		return
	}
	var buf bytes.Buffer
	if _, err := h.deps.ExportStudentsCSV(r.Context(), &buf); err != nil {
		writeStudentError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="students.csv"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *StudentsHandler) decode(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return WrapKind("decode student", ErrBadRequest, err)
	}
	return nil
}

func writeStudentError(w http.ResponseWriter, err error) {
	var ve *model.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, validationResponse{Errors: ve.Fields})
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, repository.ErrDuplicate):
		writeError(w, http.StatusConflict, "duplicate", err)
	case errors.Is(err, repository.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, "unavailable", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal", NewKind("students", ErrInternal))
	}
}
