package domain

import "strings"

// EntityKind различает сотрудников и оборудование в справочнике
type EntityKind string

const (
	KindEmployee EntityKind = "employee"
	KindMachine  EntityKind = "machine"
)

// Entity - известное системе устройство (бейдж сотрудника или станок).
type Entity struct {
	ID        string     `json:"mac_address"` // MAC-адрес, всегда в нижнем регистре
	Kind      EntityKind `json:"type"`
	Name      string     `json:"name"`
	Zone      string     `json:"company"` // Компания-владелец зоны, к которой привязан объект
	Role      string     `json:"role,omitempty"`
	Floor     string     `json:"floor,omitempty"`
	MachineID string     `json:"machine_id,omitempty"`
	Location  *Location  `json:"location,omitempty"` // Только для стационарного оборудования
}

// Location - пара координат в порядке [lat, lng], как её ждёт карта на фронте.
type Location [2]float64

func NewLocation(lat, lng float64) Location {
	return Location{lat, lng}
}

func (l Location) Lat() float64 { return l[0] }
func (l Location) Lng() float64 { return l[1] }

// NormalizeID приводит идентификатор устройства к каноническому виду.
func NormalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// AuthorizationStatus - производное состояние доступа для идентификатора
type AuthorizationStatus string

const (
	AuthPermanent    AuthorizationStatus = "permanent"
	AuthTemporary    AuthorizationStatus = "temporary"
	AuthUnauthorized AuthorizationStatus = "unauthorized"
)

// Authorized сообщает, пропускает ли статус устройство как своё.
func (s AuthorizationStatus) Authorized() bool {
	return s == AuthPermanent || s == AuthTemporary
}
