package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// LocationRecord - одна отметка RTLS: где и когда было замечено устройство.
type LocationRecord struct {
	DeviceID  string  `json:"ClientMacAddr"`
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	Timestamp string  `json:"localtime"`
}

func (r LocationRecord) Location() Location {
	return NewLocation(r.Lat, r.Lng)
}

// SensorRecord - агрегированные показания датчиков станка за цикл.
// Values содержит все числовые колонки источника (признаки модели и сырые флаги).
type SensorRecord struct {
	MachineID string
	Timestamp string
	Values    map[string]float64
}

// Value возвращает показатель и признак его наличия в записи.
func (r SensorRecord) Value(name string) (float64, bool) {
	v, ok := r.Values[name]
	return v, ok
}

// UnmarshalJSON разбирает плоский объект источника: machineID может прийти
// строкой или числом, null-значения считаются отсутствующими.
func (r *SensorRecord) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	r.Values = make(map[string]float64, len(raw))
	for key, val := range raw {
		if bytes.Equal(bytes.TrimSpace(val), []byte("null")) {
			continue
		}
		switch key {
		case "machineID", "machine_id":
			id, err := decodeID(val)
			if err != nil {
				return fmt.Errorf("field %s: %w", key, err)
			}
			r.MachineID = id
		case "datetime", "timestamp":
			var ts string
			if err := json.Unmarshal(val, &ts); err != nil {
				return fmt.Errorf("field %s: %w", key, err)
			}
			r.Timestamp = ts
		default:
			var f float64
			if err := json.Unmarshal(val, &f); err != nil {
				// Нечисловые колонки (например, "model") в признаки не попадают
				continue
			}
			r.Values[key] = f
		}
	}

	if r.MachineID == "" {
		return fmt.Errorf("machineID is required")
	}
	return nil
}

func decodeID(val json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(val, &s); err == nil {
		return s, nil
	}
	var n json.Number
	dec := json.NewDecoder(bytes.NewReader(val))
	dec.UseNumber()
	if err := dec.Decode(&n); err != nil {
		return "", err
	}
	if i, err := n.Int64(); err == nil {
		return strconv.FormatInt(i, 10), nil
	}
	return n.String(), nil
}
