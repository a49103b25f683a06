package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"math"
	"strconv"
	"strings"

	"predictive-maintenance/internal/models"
)

// ValidationError описание ошибки схемы запроса
type ValidationError struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

// DecodeReading разбирает тело запроса в SensorReading. Ошибки схемы
// возвращаются списком, err только при ошибке чтения тела.
func DecodeReading(body io.Reader) (models.SensorReading, []ValidationError, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return models.SensorReading{}, nil, err
	}

	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return models.SensorReading{}, []ValidationError{{
			Loc: []string{"body"}, Msg: "Field required", Type: "missing",
		}}, nil
	}
	if !json.Valid(data) {
		return models.SensorReading{}, []ValidationError{{
			Loc: []string{"body"}, Msg: "JSON decode error", Type: "json_invalid",
		}}, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		return models.SensorReading{}, []ValidationError{{
			Loc:  []string{"body"},
			Msg:  "Input should be a valid dictionary or object to extract fields from",
			Type: "model_attributes_type",
		}}, nil
	}

	var problems []ValidationError
	values := make(map[string]float64, 4)
	for _, name := range models.FeatureNames() {
		raw, ok := fields[name]
		if !ok {
			problems = append(problems, ValidationError{
				Loc: []string{"body", name}, Msg: "Field required", Type: "missing",
			})
			continue
		}

		v, problem := parseNumber(raw)
		if problem != nil {
			problem.Loc = []string{"body", name}
			problems = append(problems, *problem)
			continue
		}
		values[name] = v
	}
	if len(problems) > 0 {
		return models.SensorReading{}, problems, nil
	}

	return models.ReadingFromValues(values), nil, nil
}

// parseNumber принимает JSON число или строку с числом
func parseNumber(raw json.RawMessage) (float64, *ValidationError) {
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return 0, &ValidationError{Msg: "Input should be a valid number", Type: "float_type"}
	}

	var number float64
	if err := json.Unmarshal(raw, &number); err == nil {
		return number, nil
	}

	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return 0, &ValidationError{Msg: "Input should be a valid number", Type: "float_type"}
	}

	v, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil {
		return 0, &ValidationError{Msg: "Input should be a valid number, unable to parse string as a number", Type: "float_parsing"}
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &ValidationError{Msg: "Input should be a finite number", Type: "finite_number"}
	}
	return v, nil
}
