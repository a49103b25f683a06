// Package analytics отслеживает дрейф входных показаний относительно
// скользящего окна. На результат прогноза не влияет.
package analytics

import (
	"math"
	"sync"
	"sync/atomic"
	"time"

	"predictive-maintenance/internal/models"
)

// SensorWindow хранит скользящее окно значений одного датчика
type SensorWindow struct {
	values  []float64
	mu      sync.Mutex
	maxSize int
}

// Analyzer анализатор показаний с rolling average и z-score
type Analyzer struct {
	windows        map[string]*SensorWindow
	windowSize     int
	driftThreshold float64
	readingsChan   chan ReadingData
	resultsChan    chan AnalysisResult
	stopChan       chan struct{}
	stopOnce       sync.Once
	wg             sync.WaitGroup
	processed      atomic.Int64
	dropped        atomic.Int64
	drifts         atomic.Int64
}

// ReadingData показание, отправленное на прогноз
type ReadingData struct {
	Timestamp time.Time
	Reading   models.SensorReading
}

// SensorStats статистика датчика после добавления значения
type SensorStats struct {
	Sensor     string
	Value      float64
	RollingAvg float64
	StdDev     float64
	ZScore     float64
	Drift      bool
}

// AnalysisResult результат анализа
type AnalysisResult struct {
	Timestamp    time.Time
	Sensors      []SensorStats
	IsDrift      bool
	DriftSensors []string
	MaxZScore    float64
}

// NewAnalyzer создает новый анализатор
func NewAnalyzer(windowSize int, driftThreshold float64) *Analyzer {
	windows := make(map[string]*SensorWindow, 4)
	for _, name := range models.FeatureNames() {
		windows[name] = &SensorWindow{
			values:  make([]float64, 0, windowSize),
			maxSize: windowSize,
		}
	}

	return &Analyzer{
		windows:        windows,
		windowSize:     windowSize,
		driftThreshold: driftThreshold,
		readingsChan:   make(chan ReadingData, 1000),
		resultsChan:    make(chan AnalysisResult, 1000),
		stopChan:       make(chan struct{}),
	}
}

// Start запускает обработчики в goroutines
func (a *Analyzer) Start(workers int) {
	for i := 0; i < workers; i++ {
		a.wg.Add(1)
		go a.processReadings()
	}
}

// Stop останавливает анализатор и закрывает канал результатов
func (a *Analyzer) Stop() {
	a.stopOnce.Do(func() {
		close(a.stopChan)
		a.wg.Wait()
		close(a.resultsChan)
	})
}

// AddReading ставит показание в очередь без блокировки запроса
func (a *Analyzer) AddReading(data ReadingData) {
	select {
	case <-a.stopChan:
		return
	default:
	}

	select {
	case a.readingsChan <- data:
	default:
		// Очередь полна, показание пропускается
		a.dropped.Add(1)
	}
}

// GetResultsChan возвращает канал с результатами
func (a *Analyzer) GetResultsChan() <-chan AnalysisResult {
	return a.resultsChan
}

func (a *Analyzer) processReadings() {
	defer a.wg.Done()

	for {
		select {
		case <-a.stopChan:
			return
		case data := <-a.readingsChan:
			result := a.analyze(data)
			a.processed.Add(1)
			if result.IsDrift {
				a.drifts.Add(1)
			}
			select {
			case a.resultsChan <- result:
			default:
				// Канал результатов полон
			}
		}
	}
}

func (a *Analyzer) analyze(data ReadingData) AnalysisResult {
	result := AnalysisResult{
		Timestamp: data.Timestamp,
		Sensors:   make([]SensorStats, 0, 4),
	}

	values := data.Reading.Vector()
	for i, name := range models.FeatureNames() {
		stats := a.windows[name].add(values[i])
		stats.Sensor = name
		stats.Drift = math.Abs(stats.ZScore) > a.driftThreshold

		if stats.Drift {
			result.IsDrift = true
			result.DriftSensors = append(result.DriftSensors, name)
		}
		result.MaxZScore = math.Max(result.MaxZScore, math.Abs(stats.ZScore))
		result.Sensors = append(result.Sensors, stats)
	}
	return result
}

// add добавляет значение и считает статистику окна
func (w *SensorWindow) add(value float64) SensorStats {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.values = append(w.values, value)
	if len(w.values) > w.maxSize {
		w.values = w.values[1:]
	}

	avg := calculateAverage(w.values)
	stdDev := calculateStdDev(w.values, avg)

	var zScore float64
	if stdDev > 0 {
		zScore = (value - avg) / stdDev
	}

	return SensorStats{
		Value:      value,
		RollingAvg: avg,
		StdDev:     stdDev,
		ZScore:     zScore,
	}
}

// calculateAverage вычисляет среднее значение
func calculateAverage(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// calculateStdDev вычисляет стандартное отклонение
func calculateStdDev(values []float64, mean float64) float64 {
	if len(values) == 0 {
		return 0
	}

	variance := 0.0
	for _, v := range values {
		diff := v - mean
		variance += diff * diff
	}
	variance /= float64(len(values))

	return math.Sqrt(variance)
}

// GetStats возвращает статистику анализатора
func (a *Analyzer) GetStats() map[string]interface{} {
	return map[string]interface{}{
		"sensors_tracked": len(a.windows),
		"window_size":     a.windowSize,
		"threshold":       a.driftThreshold,
		"queue_size":      len(a.readingsChan),
		"processed":       a.processed.Load(),
		"dropped":         a.dropped.Load(),
		"drift_events":    a.drifts.Load(),
	}
}
