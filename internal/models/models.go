package models

// Порядок признаков совпадает с порядком при обучении модели
const (
	FieldTemperature = "temperature"
	FieldVibration   = "vibration"
	FieldPressure    = "pressure"
	FieldRPM         = "rpm"
)

// FeatureNames возвращает имена признаков в порядке вектора модели
func FeatureNames() []string {
	return []string{FieldTemperature, FieldVibration, FieldPressure, FieldRPM}
}

// SensorReading показания датчиков оборудования
type SensorReading struct {
	Temperature float64 `json:"temperature"`
	Vibration   float64 `json:"vibration"`
	Pressure    float64 `json:"pressure"`
	RPM         float64 `json:"rpm"`
}

// Vector собирает признаки в вектор [temperature, vibration, pressure, rpm]
func (r SensorReading) Vector() []float64 {
	return []float64{r.Temperature, r.Vibration, r.Pressure, r.RPM}
}

// ReadingFromValues собирает SensorReading из значений по именам признаков
func ReadingFromValues(values map[string]float64) SensorReading {
	return SensorReading{
		Temperature: values[FieldTemperature],
		Vibration:   values[FieldVibration],
		Pressure:    values[FieldPressure],
		RPM:         values[FieldRPM],
	}
}

// Status уровень риска отказа
type Status string

const (
	StatusOptimal  Status = "OPTIMAL"
	StatusWarning  Status = "WARNING"
	StatusCritical Status = "CRITICAL"
)

// PredictionResult результат классификации риска
type PredictionResult struct {
	FailureProbability float64 `json:"failure_probability"`
	RiskPercentage     float64 `json:"risk_percentage"`
	Status             Status  `json:"status"`
}
