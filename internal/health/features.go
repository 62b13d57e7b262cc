// Package health превращает показания датчиков станка в оценку остаточного ресурса,
// уровень состояния, приоритет и причину отказа.
package health

import (
	"fmt"

	"github.com/xela07ax/floorwatch/internal/domain"
)

// FeatureNames - порядок признаков, на котором обучена модель RUL. Менять нельзя.
var FeatureNames = []string{
	"time_in_cycles",
	"voltmean_24h", "rotatemean_24h", "pressuremean_24h", "vibrationmean_24h",
	"voltsd_24h", "rotatesd_24h", "pressuresd_24h", "vibrationsd_24h",
	"voltmean_5d", "rotatemean_5d", "pressuremean_5d", "vibrationmean_5d",
	"voltsd_5d", "rotatesd_5d", "pressuresd_5d", "vibrationsd_5d",
	"error1", "error2", "error3", "error4", "error5",
	"comp1", "comp2", "comp3", "comp4",
	"age", "model_encoded", "DI",
}

// BuildVector собирает вектор признаков в порядке FeatureNames.
// Отсутствие любого признака делает оценку невозможной.
func BuildVector(rec domain.SensorRecord) ([]float64, error) {
	vec := make([]float64, len(FeatureNames))
	for i, name := range FeatureNames {
		v, ok := rec.Value(name)
		if !ok {
			return nil, fmt.Errorf("machine %s: feature %q missing: %w", rec.MachineID, name, domain.ErrScoringUnavailable)
		}
		vec[i] = v
	}
	return vec, nil
}
