package connectors

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// LinearModel - экспорт регрессора RUL в виде коэффициентов и свободного члена.
// Файл модели: {"features": [...], "coefficients": [...], "intercept": 123.4}.
type LinearModel struct {
	Features     []string  `json:"features"`
	Coefficients []float64 `json:"coefficients"`
	Intercept    float64   `json:"intercept"`
}

// LoadLinearModel читает файл модели и проверяет, что он совпадает с ожидаемым набором признаков.
func LoadLinearModel(path string, features []string) (*LinearModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model %s: %w", path, err)
	}
	var m LinearModel
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode model %s: %w", path, err)
	}
	if err := m.validate(features); err != nil {
		return nil, fmt.Errorf("model %s: %w", path, err)
	}
	return &m, nil
}

func (m *LinearModel) validate(features []string) error {
	if len(m.Coefficients) != len(features) {
		return fmt.Errorf("expected %d coefficients, got %d", len(features), len(m.Coefficients))
	}
	// Без списка признаков в файле доверяем порядку коэффициентов
	if len(m.Features) == 0 {
		return nil
	}
	if len(m.Features) != len(features) {
		return fmt.Errorf("expected %d features, got %d", len(features), len(m.Features))
	}
	for i, name := range features {
		if m.Features[i] != name {
			return fmt.Errorf("feature %d: expected %q, got %q", i, name, m.Features[i])
		}
	}
	return nil
}

func (m *LinearModel) Score(_ context.Context, features []float64) (float64, error) {
	if len(features) != len(m.Coefficients) {
		return 0, fmt.Errorf("%w: expected %d features, got %d", ErrBadResponse, len(m.Coefficients), len(features))
	}
	y := m.Intercept
	for i, x := range features {
		y += m.Coefficients[i] * x
	}
	return y, nil
}
