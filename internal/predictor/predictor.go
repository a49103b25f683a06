// Package predictor classifies failure risk for a single sensor reading.
package predictor

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"predictive-maintenance/internal/artifact"
	"predictive-maintenance/internal/metrics"
	"predictive-maintenance/internal/models"
)

// Фиксированные пороги уровней риска (нижняя граница включительно)
const (
	CriticalThreshold = 0.70
	WarningThreshold  = 0.40

	// failureClass индекс класса "отказ" в выходе PredictProba
	failureClass = 1
)

// ErrInference ошибка масштабирования или инференса
var ErrInference = errors.New("inference failed")

// InferenceError сохраняет исходное сообщение для ответа клиенту
type InferenceError struct {
	Err error
}

func (e *InferenceError) Error() string { return e.Err.Error() }

func (e *InferenceError) Unwrap() error { return e.Err }

func (e *InferenceError) Is(target error) bool { return target == ErrInference }

// Service прогноз риска отказа на загруженных артефактах
type Service struct {
	scaler     artifact.Scaler
	classifier artifact.Classifier
}

// NewService создает сервис; артефакты только читаются
func NewService(scaler artifact.Scaler, classifier artifact.Classifier) *Service {
	return &Service{
		scaler:     scaler,
		classifier: classifier,
	}
}

// Predict вычисляет вероятность отказа и уровень риска
func (s *Service) Predict(ctx context.Context, reading models.SensorReading) (models.PredictionResult, error) {
	if err := ctx.Err(); err != nil {
		return models.PredictionResult{}, err
	}

	start := time.Now()
	p, err := s.FailureProbability(reading.Vector())
	metrics.InferenceLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.PredictionErrors.Inc()
		return models.PredictionResult{}, err
	}

	result := models.PredictionResult{
		FailureProbability: Round(p, 3),
		RiskPercentage:     Round(p*100, 1),
		Status:             Classify(p),
	}

	metrics.FailureProbability.Observe(p)
	metrics.PredictionsTotal.WithLabelValues(string(result.Status)).Inc()
	return result, nil
}

// FailureProbability возвращает неокругленную вероятность класса "отказ"
func (s *Service) FailureProbability(vector []float64) (float64, error) {
	scaled, err := s.scaler.Transform(vector)
	if err != nil {
		return 0, &InferenceError{Err: err}
	}

	proba, err := s.classifier.PredictProba(scaled)
	if err != nil {
		return 0, &InferenceError{Err: err}
	}
	if len(proba) <= failureClass {
		return 0, &InferenceError{Err: fmt.Errorf("index %d is out of bounds for %d classes", failureClass, len(proba))}
	}

	p := proba[failureClass]
	if math.IsNaN(p) || p < 0 || p > 1 {
		return 0, &InferenceError{Err: fmt.Errorf("probability %v is outside [0, 1]", p)}
	}
	return p, nil
}

// Classify сопоставляет вероятность уровню риска
func Classify(p float64) models.Status {
	switch {
	case p >= CriticalThreshold:
		return models.StatusCritical
	case p >= WarningThreshold:
		return models.StatusWarning
	default:
		return models.StatusOptimal
	}
}

// Round десятичное округление точного двоичного значения
func Round(x float64, places int) float64 {
	v, err := strconv.ParseFloat(strconv.FormatFloat(x, 'f', places, 64), 64)
	if err != nil {
		return x
	}
	return v
}
