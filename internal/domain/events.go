package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// EventKind - тег варианта выходного события, он же имя SSE-события.
type EventKind string

const (
	EventUpdate        EventKind = "update"
	EventUnauthorized  EventKind = "unauthorized"
	EventZoneViolation EventKind = "zone_violation"
	EventMachine       EventKind = "machine"
	EventMaintenance   EventKind = "maintenance"
	EventError         EventKind = "error"
)

// Event - закрытое объединение выходных событий сессии.
// Реализации живут только в этом пакете и собираются конструкторами New*Event.
type Event interface {
	Kind() EventKind
	sealed()
}

var errMissingDevice = errors.New("event: device id is required")

type UpdateEvent struct {
	DeviceID      string              `json:"device_id"`
	Location      Location            `json:"location"`
	Name          string              `json:"name,omitempty"`
	Company       string              `json:"company,omitempty"`
	Role          string              `json:"role,omitempty"`
	Authorization AuthorizationStatus `json:"authorization"`
	Timestamp     string              `json:"timestamp"`
}

func (UpdateEvent) Kind() EventKind { return EventUpdate }
func (UpdateEvent) sealed()         {}

// NewUpdateEvent собирает update; entity может быть nil для временно
// авторизованного устройства, которого нет в справочнике.
func NewUpdateEvent(rec LocationRecord, entity *Entity, status AuthorizationStatus) (UpdateEvent, error) {
	if rec.DeviceID == "" {
		return UpdateEvent{}, errMissingDevice
	}
	ev := UpdateEvent{
		DeviceID:      rec.DeviceID,
		Location:      rec.Location(),
		Authorization: status,
		Timestamp:     rec.Timestamp,
	}
	if entity != nil {
		ev.Name = entity.Name
		ev.Company = entity.Zone
		ev.Role = entity.Role
	}
	return ev, nil
}

type UnauthorizedEvent struct {
	DeviceID  string   `json:"device_id"`
	Location  Location `json:"location"`
	Timestamp string   `json:"timestamp"`
}

func (UnauthorizedEvent) Kind() EventKind { return EventUnauthorized }
func (UnauthorizedEvent) sealed()         {}

// NewUnauthorizedEvent переносит сырую запись как есть: запись без идентификатора
// ни в одном списке допусков не числится и тоже считается чужой.
func NewUnauthorizedEvent(rec LocationRecord) (UnauthorizedEvent, error) {
	return UnauthorizedEvent{
		DeviceID:  rec.DeviceID,
		Location:  rec.Location(),
		Timestamp: rec.Timestamp,
	}, nil
}

type ZoneViolationEvent struct {
	DeviceID   string   `json:"device_id"`
	Name       string   `json:"name"`
	Company    string   `json:"company"`
	Role       string   `json:"role"`
	ActualZone string   `json:"actual_zone"`
	Location   Location `json:"location"`
	Message    string   `json:"message"`
	Timestamp  string   `json:"timestamp"`
}

func (ZoneViolationEvent) Kind() EventKind { return EventZoneViolation }
func (ZoneViolationEvent) sealed()         {}

func NewZoneViolationEvent(rec LocationRecord, entity Entity, actualZone string) (ZoneViolationEvent, error) {
	if rec.DeviceID == "" {
		return ZoneViolationEvent{}, errMissingDevice
	}
	if actualZone == "" {
		return ZoneViolationEvent{}, errors.New("event: actual zone is required")
	}
	return ZoneViolationEvent{
		DeviceID:   rec.DeviceID,
		Name:       entity.Name,
		Company:    entity.Zone,
		Role:       entity.Role,
		ActualZone: actualZone,
		Location:   rec.Location(),
		Message:    fmt.Sprintf("%s (%s) entered the %s zone, assigned to %s", entity.Name, entity.Role, actualZone, entity.Zone),
		Timestamp:  rec.Timestamp,
	}, nil
}

type MachineEvent struct {
	MachineID string       `json:"machine_id"`
	DeviceID  string       `json:"device_id"`
	Name      string       `json:"name"`
	Company   string       `json:"company"`
	Zone      string       `json:"zone"`
	Location  *Location    `json:"location"`
	RUL       *float64     `json:"rul"` // null, если оценка недоступна
	Status    HealthStatus `json:"status"`
	Timestamp string       `json:"timestamp"`
}

func (MachineEvent) Kind() EventKind { return EventMachine }
func (MachineEvent) sealed()         {}

func NewMachineEvent(rec SensorRecord, machine Entity, a HealthAssessment) (MachineEvent, error) {
	if machine.Kind != KindMachine {
		return MachineEvent{}, fmt.Errorf("event: entity %s is not a machine", machine.ID)
	}
	return MachineEvent{
		MachineID: rec.MachineID,
		DeviceID:  machine.ID,
		Name:      machine.Name,
		Company:   machine.Zone,
		Zone:      machine.Floor,
		Location:  machine.Location,
		RUL:       a.RUL,
		Status:    a.Status,
		Timestamp: rec.Timestamp,
	}, nil
}

type MaintenanceEvent struct {
	MachineID            string       `json:"machine_id"`
	DeviceID             string       `json:"device_id"`
	Name                 string       `json:"name"`
	Company              string       `json:"company"`
	Zone                 string       `json:"zone"`
	Location             *Location    `json:"location"`
	RUL                  float64      `json:"rul"`
	Status               HealthStatus `json:"status"`
	Priority             Priority     `json:"priority"`
	Message              string       `json:"message"`
	PredictedFailureTime time.Time    `json:"predicted_failure_time"`
	FailureReason        string       `json:"failure_reason"`
	Timestamp            string       `json:"timestamp"`
}

func (MaintenanceEvent) Kind() EventKind { return EventMaintenance }
func (MaintenanceEvent) sealed()         {}

// NewMaintenanceEvent допустим только для оценки с поднятой тревогой.
func NewMaintenanceEvent(rec SensorRecord, machine Entity, a HealthAssessment) (MaintenanceEvent, error) {
	if !a.MaintenanceAlert() {
		return MaintenanceEvent{}, fmt.Errorf("event: no maintenance alert for status %s", a.Status)
	}
	if a.PredictedFailureAt == nil {
		return MaintenanceEvent{}, errors.New("event: predicted failure time is required")
	}
	return MaintenanceEvent{
		MachineID:            rec.MachineID,
		DeviceID:             machine.ID,
		Name:                 machine.Name,
		Company:              machine.Zone,
		Zone:                 machine.Floor,
		Location:             machine.Location,
		RUL:                  *a.RUL,
		Status:               a.Status,
		Priority:             a.Priority,
		Message:              fmt.Sprintf("%s requires maintenance: %s, %.1f hours of useful life left", machine.Name, a.Status, *a.RUL),
		PredictedFailureTime: *a.PredictedFailureAt,
		FailureReason:        a.FailureReason,
		Timestamp:            rec.Timestamp,
	}, nil
}

type ErrorEvent struct {
	Class   string `json:"class"`
	Message string `json:"message"`
}

func (ErrorEvent) Kind() EventKind { return EventError }
func (ErrorEvent) sealed()         {}

func NewErrorEvent(err error) ErrorEvent {
	return ErrorEvent{Class: FaultClass(err), Message: err.Error()}
}

// EncodeSSE сериализует событие в кадр text/event-stream.
func EncodeSSE(ev Event) ([]byte, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("encode %s event: %w", ev.Kind(), err)
	}
	frame := make([]byte, 0, len(data)+len(ev.Kind())+16)
	frame = append(frame, "event: "...)
	frame = append(frame, ev.Kind()...)
	frame = append(frame, "\ndata: "...)
	frame = append(frame, data...)
	frame = append(frame, "\n\n"...)
	return frame, nil
}
