package health

import (
	"fmt"
	"strings"

	"github.com/xela07ax/floorwatch/internal/domain"
	"github.com/xela07ax/floorwatch/internal/rules"
)

const GeneralWear = "Unknown or general wear"

var (
	errorCodes     = []string{"error1", "error2", "error3", "error4", "error5"}
	componentFlags = []string{"comp1", "comp2", "comp3", "comp4"}
)

// Пороги средних за 24 часа, выше которых причина считается очевидной.
const (
	VibrationLimit = 45
	VoltageLimit   = 180
	PressureLimit  = 110
	RotationLimit  = 500
)

// reasonRules - каскад причин, первое сработавшее правило выигрывает.
var reasonRules = []rules.Rule[domain.SensorRecord, string]{
	{
		Name: "error_codes",
		When: func(r domain.SensorRecord) bool { return len(active(r, errorCodes)) > 0 },
		Then: func(r domain.SensorRecord) string {
			return "Error codes: " + strings.Join(active(r, errorCodes), ", ")
		},
	},
	{
		Name: "component_flags",
		When: func(r domain.SensorRecord) bool { return len(active(r, componentFlags)) > 0 },
		Then: func(r domain.SensorRecord) string {
			comps := active(r, componentFlags)
			for i, c := range comps {
				comps[i] = strings.Replace(c, "comp", "component ", 1)
			}
			return "Maintenance on: " + strings.Join(comps, ", ")
		},
	},
	above("vibrationmean_24h", VibrationLimit, "High vibration"),
	above("voltmean_24h", VoltageLimit, "High voltage"),
	above("pressuremean_24h", PressureLimit, "High pressure"),
	above("rotatemean_24h", RotationLimit, "High rotation speed"),
}

// InferFailureReason возвращает текст причины по сырым флагам записи.
// Текст справочный и на уровень состояния не влияет.
func InferFailureReason(rec domain.SensorRecord) string {
	return rules.First(reasonRules, rec, GeneralWear).Value
}

func above(field string, limit float64, reason string) rules.Rule[domain.SensorRecord, string] {
	return rules.Rule[domain.SensorRecord, string]{
		Name: fmt.Sprintf("%s_above_%g", field, limit),
		When: func(r domain.SensorRecord) bool {
			v, ok := r.Value(field)
			return ok && v > limit
		},
		Then: rules.Const[domain.SensorRecord](reason),
	}
}

func active(r domain.SensorRecord, names []string) []string {
	var out []string
	for _, n := range names {
		if v, ok := r.Value(n); ok && v > 0 {
			out = append(out, n)
		}
	}
	return out
}
