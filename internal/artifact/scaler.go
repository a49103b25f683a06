package artifact

import (
	"errors"
	"fmt"

	"predictive-maintenance/internal/models"
)

// Scaler нормализация признаков, обученная вместе с моделью
type Scaler interface {
	Transform(x []float64) ([]float64, error)
}

const (
	ScalerStandard = "standard"
	ScalerMinMax   = "minmax"
)

type scalerDocument struct {
	Type     string    `json:"type"`
	Features []string  `json:"features,omitempty"`
	Mean     []float64 `json:"mean,omitempty"`
	Min      []float64 `json:"min,omitempty"`
	Scale    []float64 `json:"scale"`
}

// StandardScaler x' = (x - mean) / scale
type StandardScaler struct {
	mean  []float64
	scale []float64
}

// NewStandardScaler создает scaler; нулевой scale трактуется как 1
func NewStandardScaler(mean, scale []float64) (*StandardScaler, error) {
	if len(mean) == 0 || len(mean) != len(scale) {
		return nil, fmt.Errorf("standard scaler: mean has %d values, scale has %d", len(mean), len(scale))
	}

	s := &StandardScaler{
		mean:  append([]float64(nil), mean...),
		scale: make([]float64, len(scale)),
	}
	for i, v := range scale {
		if v == 0 {
			v = 1
		}
		s.scale[i] = v
	}
	return s, nil
}

// Transform применяет нормализацию к вектору признаков
func (s *StandardScaler) Transform(x []float64) ([]float64, error) {
	if len(x) != len(s.mean) {
		return nil, fmt.Errorf("scaler expects %d features, got %d", len(s.mean), len(x))
	}

	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = (v - s.mean[i]) / s.scale[i]
	}
	return out, nil
}

// MinMaxScaler x' = x * scale + min
type MinMaxScaler struct {
	min   []float64
	scale []float64
}

func NewMinMaxScaler(min, scale []float64) (*MinMaxScaler, error) {
	if len(min) == 0 || len(min) != len(scale) {
		return nil, fmt.Errorf("minmax scaler: min has %d values, scale has %d", len(min), len(scale))
	}
	return &MinMaxScaler{
		min:   append([]float64(nil), min...),
		scale: append([]float64(nil), scale...),
	}, nil
}

func (s *MinMaxScaler) Transform(x []float64) ([]float64, error) {
	if len(x) != len(s.min) {
		return nil, fmt.Errorf("scaler expects %d features, got %d", len(s.min), len(x))
	}

	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = v*s.scale[i] + s.min[i]
	}
	return out, nil
}

func buildScaler(doc scalerDocument) (Scaler, error) {
	if err := checkFeatureNames(doc.Features); err != nil {
		return nil, err
	}

	var (
		scaler Scaler
		n      int
		err    error
	)
	switch doc.Type {
	case ScalerStandard:
		scaler, err = NewStandardScaler(doc.Mean, doc.Scale)
		n = len(doc.Mean)
	case ScalerMinMax:
		scaler, err = NewMinMaxScaler(doc.Min, doc.Scale)
		n = len(doc.Min)
	case "":
		return nil, errors.New("scaler type is missing")
	default:
		return nil, fmt.Errorf("unsupported scaler type %q", doc.Type)
	}
	if err != nil {
		return nil, err
	}

	if n != len(models.FeatureNames()) {
		return nil, fmt.Errorf("scaler fitted on %d features, expected %d", n, len(models.FeatureNames()))
	}
	return scaler, nil
}

// checkFeatureNames сверяет порядок признаков артефакта, если он указан
func checkFeatureNames(names []string) error {
	if len(names) == 0 {
		return nil
	}

	expected := models.FeatureNames()
	if len(names) != len(expected) {
		return fmt.Errorf("artifact lists %d features, expected %d", len(names), len(expected))
	}
	for i, name := range names {
		if name != expected[i] {
			return fmt.Errorf("feature %d is %q, expected %q", i, name, expected[i])
		}
	}
	return nil
}
