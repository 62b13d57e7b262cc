package audit

import "time"

// Действия админки, которые попадают в журнал.
const (
	ActionTemporaryAdd    = "temporary_access.add"
	ActionTemporaryRemove = "temporary_access.remove"
)

// Исходы действия.
const (
	OutcomeApplied   = "APPLIED"   // набор изменился
	OutcomeUnchanged = "UNCHANGED" // идемпотентное добавление уже существующего
	OutcomeNotFound  = "NOT_FOUND" // удаление отсутствующего
	OutcomeFailed    = "FAILED"    // локально применено, но не разослано
)

// AccessEvent - одна запись журнала изменений временных допусков.
type AccessEvent struct {
	ID         string    `json:"id"`          // UUID события
	RequestID  string    `json:"request_id"`  // X-Request-Id запроса админки
	Action     string    `json:"action"`      // что делали
	DeviceID   string    `json:"device_id"`   // над каким устройством
	Outcome    string    `json:"outcome"`     // чем закончилось
	RemoteAddr string    `json:"remote_addr"` // откуда пришёл запрос
	Timestamp  time.Time `json:"timestamp"`
	Error      string    `json:"error,omitempty"`
}
