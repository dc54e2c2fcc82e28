package service

import (
	"context"
	"errors"
	"time"

	"github.com/okian/grader/internal/domain/prediction"
	"github.com/okian/grader/pkg/logger"
	"github.com/okian/grader/pkg/metrics"
)

// Predict validates raw against the loaded feature spec and returns the
// rounded score and grade. It returns prediction.ErrServiceNotReady when
// no model is loaded and *prediction.ValidationError for bad input.
func (s *Service) Predict(ctx context.Context, raw prediction.RawInput) (prediction.Result, error) {
	p := s.currentPredictor()

	start := time.Now()
	res, err := p.Predict(ctx, raw)
	metrics.RecordPredictionLatency(float64(time.Since(start).Microseconds()) / 1000)

	if err == nil {
		s.predictions.Add(1)
		metrics.RecordPrediction(string(res.Grade), res.Score)
		return res, nil
	}

	if ve, ok := prediction.AsValidationError(err); ok {
		s.validationFailures.Add(1)
		for field, msg := range ve.Fields {
			metrics.RecordValidationFailure(field, reason(msg))
		}
		return prediction.Result{}, err
	}

	switch {
	case errors.Is(err, prediction.ErrServiceNotReady):
		metrics.RecordNotReady()
	case errors.Is(err, prediction.ErrComputation):
		metrics.RecordComputationError()
		s.log().Error(ctx, "prediction failed", logger.Error(err))
	}
	return prediction.Result{}, err
}

func reason(msg string) string {
	switch msg {
	case prediction.MsgRequired:
		return "required"
	case prediction.MsgNotANumber:
		return "not_a_number"
	default:
		return "other"
	}
}

func (s *Service) log() logger.Logger {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.logLocked()
}

// logLocked is log for callers already holding mu.
func (s *Service) logLocked() logger.Logger {
	if s.logger == nil {
		return logger.Get()
	}
	return s.logger
}
