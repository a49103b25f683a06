package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"predictive-maintenance/internal/analytics"
	"predictive-maintenance/internal/models"
	"predictive-maintenance/internal/predictor"
	"predictive-maintenance/internal/source"
)

type identityScaler struct{}

func (identityScaler) Transform(x []float64) ([]float64, error) { return x, nil }

type fixedClassifier struct {
	p   float64
	err error
}

func (f fixedClassifier) PredictProba(x []float64) ([]float64, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []float64{1 - f.p, f.p}, nil
}

type fakePredictor struct {
	result models.PredictionResult
	seen   []models.SensorReading
}

func (f *fakePredictor) Predict(ctx context.Context, reading models.SensorReading) (models.PredictionResult, error) {
	f.seen = append(f.seen, reading)
	return f.result, nil
}

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sensor_data.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func setUpTestServer(t *testing.T, p Predictor, csvPath string, analyzer *analytics.Analyzer) *httptest.Server {
	t.Helper()
	h := NewHandler(p, source.NewCSVSource(csvPath), analyzer, zap.NewNop(), map[string]interface{}{
		"model_type": "logistic_regression",
	})

	server := httptest.NewServer(RegisterRoutes(http.NewServeMux(), h, zap.NewNop()))
	t.Cleanup(server.Close)
	return server
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url+"/predict", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	return resp
}

/* ---------------- GET / ---------------- */

func TestHealthCheck(t *testing.T) {
	server := setUpTestServer(t, &fakePredictor{}, "", nil)

	resp, err := http.Get(server.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"backend running successfully"}`, string(body))

	t.Run("UnknownPath", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/unknown")
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

/* ---------------- GET /latest ---------------- */

func TestGetLatest(t *testing.T) {
	t.Run("LastRow", func(t *testing.T) {
		path := writeCSV(t, "temperature,vibration,pressure,rpm\n70,0.1,100,1100\n72.5,0.2,101.1,1200\n")
		server := setUpTestServer(t, &fakePredictor{}, path, nil)

		resp, err := http.Get(server.URL + "/latest")
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		body := decodeBody(t, resp)
		assert.Equal(t, map[string]interface{}{
			"temperature": 72.5,
			"vibration":   0.2,
			"pressure":    101.1,
			"rpm":         1200.0,
		}, body)
	})

	tests := []struct {
		name   string
		path   func(t *testing.T) string
		status int
		detail string
	}{
		{
			name:   "MissingFile",
			path:   func(t *testing.T) string { return filepath.Join(t.TempDir(), "absent.csv") },
			status: http.StatusNotFound,
			detail: "CSV file not found",
		},
		{
			name:   "HeaderOnly",
			path:   func(t *testing.T) string { return writeCSV(t, "temperature,vibration,pressure,rpm\n") },
			status: http.StatusBadRequest,
			detail: "CSV file is empty",
		},
		{
			name:   "MissingColumn",
			path:   func(t *testing.T) string { return writeCSV(t, "temperature,vibration\n1,2\n") },
			status: http.StatusInternalServerError,
			detail: `CSV file has no "pressure" column`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := setUpTestServer(t, &fakePredictor{}, tt.path(t), nil)

			resp, err := http.Get(server.URL + "/latest")
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.detail, decodeBody(t, resp)["detail"])
		})
	}
}

/* ---------------- POST /predict ---------------- */

func TestPredict(t *testing.T) {
	t.Run("CriticalScenario", func(t *testing.T) {
		svc := predictor.NewService(identityScaler{}, fixedClassifier{p: 0.82})
		server := setUpTestServer(t, svc, "", nil)

		resp := postJSON(t, server.URL, `{"temperature":90,"vibration":0.8,"pressure":105,"rpm":1500}`)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		require.NoError(t, err)
		assert.JSONEq(t, `{"failure_probability":0.82,"risk_percentage":82.0,"status":"CRITICAL"}`, string(body))
	})

	t.Run("InferenceError", func(t *testing.T) {
		svc := predictor.NewService(identityScaler{}, fixedClassifier{err: errors.New("model expects 5 features, got 4")})
		server := setUpTestServer(t, svc, "", nil)

		resp := postJSON(t, server.URL, `{"temperature":90,"vibration":0.8,"pressure":105,"rpm":1500}`)
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		assert.Equal(t, "model expects 5 features, got 4", decodeBody(t, resp)["detail"])
	})

	t.Run("NumericStrings", func(t *testing.T) {
		fake := &fakePredictor{result: models.PredictionResult{Status: models.StatusOptimal}}
		server := setUpTestServer(t, fake, "", nil)

		resp := postJSON(t, server.URL, `{"temperature":"90.5","vibration":0.8,"pressure":105,"rpm":1500,"site":"plant-1"}`)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		require.Len(t, fake.seen, 1)
		assert.Equal(t, models.SensorReading{Temperature: 90.5, Vibration: 0.8, Pressure: 105, RPM: 1500}, fake.seen[0])
	})

	t.Run("MissingField", func(t *testing.T) {
		fake := &fakePredictor{}
		server := setUpTestServer(t, fake, "", nil)

		resp := postJSON(t, server.URL, `{"temperature":90,"vibration":0.8,"pressure":105}`)
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

		detail, ok := decodeBody(t, resp)["detail"].([]interface{})
		require.True(t, ok)
		require.Len(t, detail, 1)
		problem := detail[0].(map[string]interface{})
		assert.Equal(t, []interface{}{"body", "rpm"}, problem["loc"])
		assert.Equal(t, "missing", problem["type"])
		assert.Empty(t, fake.seen)
	})

	t.Run("InvalidJSON", func(t *testing.T) {
		server := setUpTestServer(t, &fakePredictor{}, "", nil)

		resp := postJSON(t, server.URL, `{bad-json`)
		resp.Body.Close()
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	})

	t.Run("MethodNotAllowed", func(t *testing.T) {
		server := setUpTestServer(t, &fakePredictor{}, "", nil)

		resp, err := http.Get(server.URL + "/predict")
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	})

	t.Run("BodyTooLarge", func(t *testing.T) {
		h := NewHandler(&fakePredictor{}, source.NewCSVSource(""), nil, zap.NewNop(), nil)

		payload := `{"temperature":90,"vibration":0.8,"pressure":105,"rpm":1500,"pad":"` +
			strings.Repeat("x", maxBodyBytes) + `"}`
		req := httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader(payload))
		rr := httptest.NewRecorder()
		h.Predict(rr, req)

		assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
	})

	t.Run("FeedsAnalyzer", func(t *testing.T) {
		analyzer := analytics.NewAnalyzer(10, 3)
		analyzer.Start(1)
		defer analyzer.Stop()

		fake := &fakePredictor{result: models.PredictionResult{Status: models.StatusOptimal}}
		server := setUpTestServer(t, fake, "", analyzer)

		resp := postJSON(t, server.URL, `{"temperature":90,"vibration":0.8,"pressure":105,"rpm":1500}`)
		resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		select {
		case result := <-analyzer.GetResultsChan():
			require.Len(t, result.Sensors, 4)
			assert.Equal(t, 90.0, result.Sensors[0].Value)
		case <-time.After(2 * time.Second):
			t.Fatal("analyzer did not receive the reading")
		}
	})
}

/* ---------------- GET /stats ---------------- */

func TestGetStats(t *testing.T) {
	analyzer := analytics.NewAnalyzer(10, 3)
	server := setUpTestServer(t, &fakePredictor{}, "", analyzer)

	resp, err := http.Get(server.URL + "/stats")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "csv", body["source"])
	assert.Contains(t, body, "analyzer")
	assert.Contains(t, body, "timestamp")
	assert.Equal(t, "logistic_regression", body["artifacts"].(map[string]interface{})["model_type"])
}

/* ---------------- DecodeReading ---------------- */

func TestDecodeReading(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		types []string
	}{
		{"Valid", `{"temperature":1,"vibration":2,"pressure":3,"rpm":4}`, nil},
		{"EmptyBody", ``, []string{"missing"}},
		{"NotAnObject", `[1,2,3,4]`, []string{"model_attributes_type"}},
		{"NullBody", `null`, []string{"model_attributes_type"}},
		{"Malformed", `{"temperature":`, []string{"json_invalid"}},
		{"NullField", `{"temperature":null,"vibration":2,"pressure":3,"rpm":4}`, []string{"float_type"}},
		{"BoolField", `{"temperature":true,"vibration":2,"pressure":3,"rpm":4}`, []string{"float_type"}},
		{"TextField", `{"temperature":"hot","vibration":2,"pressure":3,"rpm":4}`, []string{"float_parsing"}},
		{"InfiniteField", `{"temperature":"inf","vibration":2,"pressure":3,"rpm":4}`, []string{"finite_number"}},
		{"AllMissing", `{}`, []string{"missing", "missing", "missing", "missing"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, problems, err := DecodeReading(bytes.NewBufferString(tt.body))
			require.NoError(t, err)

			types := make([]string, 0, len(problems))
			for _, p := range problems {
				types = append(types, p.Type)
			}
			if tt.types == nil {
				assert.Empty(t, types)
				return
			}
			assert.Equal(t, tt.types, types)
		})
	}
}
