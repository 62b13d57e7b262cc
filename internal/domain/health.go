package domain

import "time"

// HealthStatus - уровень состояния станка по одной записи (не хранится между записями)
type HealthStatus string

const (
	StatusGood      HealthStatus = "Good"
	StatusWarning   HealthStatus = "Warning"
	StatusBreakdown HealthStatus = "Breakdown"
	StatusUnknown   HealthStatus = "Unknown" // RUL недоступен, уровень не вычисляется
)

// NeedsMaintenance - тревога на обслуживание поднимается только для Warning и Breakdown.
func (s HealthStatus) NeedsMaintenance() bool {
	return s == StatusWarning || s == StatusBreakdown
}

type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

// Rank упорядочивает приоритеты для выбора старшего.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 2
	case PriorityMedium:
		return 1
	default:
		return 0
	}
}

// Max возвращает старший из двух приоритетов.
func (p Priority) Max(other Priority) Priority {
	if other.Rank() > p.Rank() {
		return other
	}
	return p
}

// HealthAssessment - снимок классификации одной записи датчиков.
type HealthAssessment struct {
	RUL                *float64 // nil, если модель не смогла дать оценку
	Status             HealthStatus
	Priority           Priority
	FailureReason      string
	PredictedFailureAt *time.Time
}

// MaintenanceAlert сообщает, нужно ли событие maintenance после machine.
func (a HealthAssessment) MaintenanceAlert() bool {
	return a.RUL != nil && a.Status.NeedsMaintenance()
}
