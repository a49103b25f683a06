package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal общее количество запросов
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// RequestDuration продолжительность запросов
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// PredictionsTotal прогнозы по уровням риска
	PredictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "predictions_total",
			Help: "Total number of predictions by risk status",
		},
		[]string{"status"},
	)

	// PredictionErrors ошибки инференса
	PredictionErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "prediction_errors_total",
			Help: "Total number of failed predictions",
		},
	)

	// FailureProbability распределение вероятности отказа
	FailureProbability = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "failure_probability",
			Help:    "Distribution of predicted failure probability",
			Buckets: []float64{.1, .2, .3, .4, .5, .6, .7, .8, .9, 1},
		},
	)

	// InferenceLatency задержка scaler + модель
	InferenceLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "inference_latency_seconds",
			Help:    "Scaling and inference latency in seconds",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .025, .05, .1},
		},
	)

	// SourceReads чтения последнего показания
	SourceReads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "source_reads_total",
			Help: "Total number of latest reading lookups",
		},
		[]string{"source", "result"},
	)

	// SensorRollingAverage скользящее среднее входных показаний
	SensorRollingAverage = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sensor_rolling_average",
			Help: "Rolling average of submitted sensor values",
		},
		[]string{"sensor"},
	)

	// SensorZScore z-score последнего показания
	SensorZScore = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sensor_zscore",
			Help: "Z-score of the latest submitted sensor value",
		},
		[]string{"sensor"},
	)

	// InputDriftDetected выбросы во входных данных
	InputDriftDetected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "input_drift_detected_total",
			Help: "Total number of submitted values outside the rolling window",
		},
		[]string{"sensor"},
	)

	// QueueSize размер очереди анализатора
	QueueSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "analyzer_queue_size",
			Help: "Current size of the analyzer queue",
		},
	)

	// ArtifactChanges изменения артефактов на диске после старта
	ArtifactChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "artifact_changes_total",
			Help: "Artifact file changes observed since startup",
		},
		[]string{"artifact"},
	)
)
