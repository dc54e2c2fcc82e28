package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/okian/grader/internal/adapters/http/site"
	"github.com/okian/grader/internal/domain/prediction"
	"github.com/okian/grader/pkg/logger"
)

const (
	noticeNotReady = "The model is not loaded yet. Please try again later."
	noticeFailed   = "The prediction could not be computed. Please check your values and try again."
)

var errTrailingData = errors.New("unexpected data after the JSON object")

// PredictHandler serves POST /predict for JSON clients and HTML forms.
type PredictHandler struct {
	deps         PredictionDependencies
	renderer     *site.Renderer
	maxBodyBytes int64
	logger       logger.Logger
}

// NewPredictHandler creates a new predict handler.
func NewPredictHandler(deps PredictionDependencies, renderer *site.Renderer, maxBodyBytes int64, log logger.Logger) *PredictHandler {
	return &PredictHandler{deps: deps, renderer: renderer, maxBodyBytes: maxBodyBytes, logger: log}
}

type predictResponse struct {
	Prediction float64            `json:"prediction"`
	Grade      string             `json:"grade"`
	Inputs     map[string]float64 `json:"inputs"`
}

// HandlePredict dispatches on Content-Type: application/json bodies get a
// JSON answer, everything else is treated as a submitted form.
func (h *PredictHandler) HandlePredict(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "predict", http.MethodPost)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)

	if isJSON(r) {
		h.handleJSON(w, r)
		return
	}
	h.handleForm(w, r)
}

func isJSON(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "application/json"
}

func (h *PredictHandler) handleJSON(w http.ResponseWriter, r *http.Request) {
	raw, err := decodeObject(r)
	if err != nil {
		writeBodyError(w, err)
		return
	}

	res, err := h.deps.Predict(r.Context(), raw)
	if err != nil {
		if ve, ok := prediction.AsValidationError(err); ok {
			writeJSON(w, http.StatusBadRequest, validationResponse{Errors: ve.Fields})
			return
		}
		if errors.Is(err, prediction.ErrServiceNotReady) {
			writeError(w, http.StatusServiceUnavailable, "not_ready", err)
			return
		}
		h.logger.Error(r.Context(), "predict failed", logger.Error(err),
			logger.String("request_id", RequestIDFromContext(r.Context())))
		writeError(w, http.StatusInternalServerError, "internal", NewKind("predict", ErrInternal))
		return
	}

	writeJSON(w, http.StatusOK, predictResponse{
		Prediction: res.Score,
		Grade:      string(res.Grade),
		Inputs:     res.Inputs,
	})
}

// decodeObject reads a single JSON object, keeping numbers as json.Number
// so the domain decides what counts as numeric.
func decodeObject(r *http.Request) (prediction.RawInput, error) {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, WrapKind("decode body", ErrBadRequest, err)
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, WrapKind("decode body", ErrBadRequest, fmt.Errorf("expected a JSON object, got %T", v))
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			err = errTrailingData
		}
		return nil, WrapKind("decode body", ErrBadRequest, err)
	}
	return prediction.RawInput(obj), nil
}

func writeBodyError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, "body_too_large", WrapKind("read body", ErrBodyTooLarge, err))
		return
	}
	writeError(w, http.StatusBadRequest, "bad_request", err)
}

func (h *PredictHandler) handleForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			w.WriteHeader(http.StatusRequestEntityTooLarge)
			return
		}
		h.renderForm(w, r, http.StatusBadRequest, site.FormView{
			Fields: site.FormFields(h.deps.Features(), nil, nil),
			Notice: "The form could not be read.",
		})
		return
	}

	values := make(map[string]string, len(r.PostForm))
	raw := make(prediction.RawInput, len(r.PostForm))
	for k, vs := range r.PostForm {
		if len(vs) == 0 {
			continue
		}
		values[k] = vs[0]
		raw[k] = vs[0]
	}

	features := h.deps.Features()
	res, err := h.deps.Predict(r.Context(), raw)
	if err != nil {
		if ve, ok := prediction.AsValidationError(err); ok {
			h.renderForm(w, r, http.StatusBadRequest, site.FormView{
				Fields: site.FormFields(features, values, ve.Fields),
				Scale:  h.deps.GradeScale().Name(),
			})
			return
		}
		if errors.Is(err, prediction.ErrServiceNotReady) {
			h.renderForm(w, r, http.StatusServiceUnavailable, site.FormView{Notice: noticeNotReady})
			return
		}
		h.logger.Error(r.Context(), "predict failed", logger.Error(err),
			logger.String("request_id", RequestIDFromContext(r.Context())))
		h.renderForm(w, r, http.StatusInternalServerError, site.FormView{
			Fields: site.FormFields(features, values, nil),
			Notice: noticeFailed,
		})
		return
	}

	inputs := make([]site.Field, len(features))
	for i, name := range features {
		inputs[i] = site.Field{
			Name:  name,
			Label: site.Label(name),
			Value: strconv.FormatFloat(res.Inputs[name], 'f', -1, 64),
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if err := h.renderer.Result(w, site.ResultView{
		Score:  prediction.FormatScore(res.Score),
		Grade:  string(res.Grade),
		Inputs: inputs,
	}); err != nil {
		h.logger.Error(r.Context(), "render result failed", logger.Error(err))
	}
}

func (h *PredictHandler) renderForm(w http.ResponseWriter, r *http.Request, status int, v site.FormView) {
	renderForm(w, r, h.renderer, h.logger, status, v)
}

func renderForm(w http.ResponseWriter, r *http.Request, renderer *site.Renderer, log logger.Logger, status int, v site.FormView) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := renderer.Form(w, v); err != nil {
		log.Error(r.Context(), "render form failed", logger.Error(err))
	}
}

// IndexHandler serves the prediction form at the site root.
type IndexHandler struct {
	deps     PredictionDependencies
	renderer *site.Renderer
	logger   logger.Logger
}

// NewIndexHandler creates a new index handler.
func NewIndexHandler(deps PredictionDependencies, renderer *site.Renderer, log logger.Logger) *IndexHandler {
	return &IndexHandler{deps: deps, renderer: renderer, logger: log}
}

// HandleIndex handles GET /. Unknown paths are 404.
func (h *IndexHandler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeError(w, http.StatusNotFound, "not_found", NewKind(r.URL.Path, ErrNotFound))
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		methodNotAllowed(w, "index", "GET, HEAD")
		return
	}

	if !h.deps.Ready() {
		renderForm(w, r, h.renderer, h.logger, http.StatusOK, site.FormView{Notice: noticeNotReady})
		return
	}
	renderForm(w, r, h.renderer, h.logger, http.StatusOK, site.FormView{
		Fields: site.FormFields(h.deps.Features(), nil, nil),
		Scale:  h.deps.GradeScale().Name(),
	})
}
