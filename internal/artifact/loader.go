// Package artifact загружает обученные scaler и классификатор.
// Артефакты читаются один раз при старте и дальше не изменяются.
package artifact

import (
	"encoding/json"
	"fmt"
	"os"
)

// Artifacts загруженные при старте scaler и модель
type Artifacts struct {
	Scaler     Scaler
	Classifier Classifier

	ModelPath  string
	ScalerPath string
	ModelType  string
	ScalerType string
}

// Load загружает модель и scaler. Любая ошибка фатальна для старта сервиса.
func Load(modelPath, scalerPath string) (*Artifacts, error) {
	classifier, modelType, err := LoadClassifier(modelPath)
	if err != nil {
		return nil, err
	}

	scaler, scalerType, err := LoadScaler(scalerPath)
	if err != nil {
		return nil, err
	}

	return &Artifacts{
		Scaler:     scaler,
		Classifier: classifier,
		ModelPath:  modelPath,
		ScalerPath: scalerPath,
		ModelType:  modelType,
		ScalerType: scalerType,
	}, nil
}

// LoadClassifier читает модель из JSON файла
func LoadClassifier(path string) (Classifier, string, error) {
	var doc modelDocument
	if err := readDocument(path, &doc); err != nil {
		return nil, "", fmt.Errorf("failed to load model: %w", err)
	}

	classifier, err := buildClassifier(doc)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load model %s: %w", path, err)
	}
	return classifier, doc.Type, nil
}

// LoadScaler читает scaler из JSON файла
func LoadScaler(path string) (Scaler, string, error) {
	var doc scalerDocument
	if err := readDocument(path, &doc); err != nil {
		return nil, "", fmt.Errorf("failed to load scaler: %w", err)
	}

	scaler, err := buildScaler(doc)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load scaler %s: %w", path, err)
	}
	return scaler, doc.Type, nil
}

// Describe возвращает сведения об артефактах для /stats
func (a *Artifacts) Describe() map[string]interface{} {
	return map[string]interface{}{
		"model_path":  a.ModelPath,
		"model_type":  a.ModelType,
		"scaler_path": a.ScalerPath,
		"scaler_type": a.ScalerType,
	}
}

func readDocument(path string, out interface{}) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := json.NewDecoder(file).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
