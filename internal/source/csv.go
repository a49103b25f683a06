package source

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"predictive-maintenance/internal/models"
)

// CSVSource читает последнюю строку CSV файла при каждом вызове
type CSVSource struct {
	path string
}

// NewCSVSource создает источник для файла path
func NewCSVSource(path string) *CSVSource {
	return &CSVSource{path: path}
}

func (s *CSVSource) Name() string { return KindCSV }

// Path путь к файлу данных
func (s *CSVSource) Path() string { return s.path }

// Latest возвращает последнюю строку файла в порядке записи
func (s *CSVSource) Latest(ctx context.Context) (models.SensorReading, error) {
	if err := ctx.Err(); err != nil {
		return models.SensorReading{}, err
	}

	file, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return models.SensorReading{}, newError(ErrNotFound, "CSV file not found")
		}
		return models.SensorReading{}, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	// BOM от Excel не должен попадать в имя первой колонки
	utf8Reader := transform.NewReader(file, unicode.BOMOverride(unicode.UTF8.NewDecoder()))

	reader := csv.NewReader(utf8Reader)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return models.SensorReading{}, newError(ErrEmpty, "CSV file is empty")
	}
	if err != nil {
		return models.SensorReading{}, newError(ErrMalformed, fmt.Sprintf("failed to parse CSV header: %v", err))
	}

	var last []string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return models.SensorReading{}, newError(ErrMalformed, fmt.Sprintf("failed to parse CSV: %v", err))
		}
		if isBlank(record) {
			continue
		}
		last = record
	}

	if last == nil {
		return models.SensorReading{}, newError(ErrEmpty, "CSV file is empty")
	}

	return readingFromRecord(header, last)
}

func readingFromRecord(header, record []string) (models.SensorReading, error) {
	columns := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		if _, exists := columns[name]; !exists {
			columns[name] = i
		}
	}

	values := make(map[string]float64, 4)
	for _, name := range models.FeatureNames() {
		idx, ok := columns[name]
		if !ok {
			return models.SensorReading{}, newError(ErrMalformed, fmt.Sprintf("CSV file has no %q column", name))
		}
		if idx >= len(record) {
			return models.SensorReading{}, newError(ErrMalformed, fmt.Sprintf("last row has no value for %q", name))
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(record[idx]), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return models.SensorReading{}, newError(ErrMalformed, fmt.Sprintf("invalid %s value %q", name, record[idx]))
		}
		values[name] = v
	}

	return models.ReadingFromValues(values), nil
}

func isBlank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
