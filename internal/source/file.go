// Package source читает наборы записей для воспроизведения.
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/xela07ax/floorwatch/internal/domain"
)

// FileSource - JSON-массивы записей на диске. Файлы перечитываются на каждую сессию,
// у каждой сессии свой курсор.
type FileSource struct {
	LocationPath string
	SensorPath   string
}

func NewFileSource(locationPath, sensorPath string) *FileSource {
	return &FileSource{LocationPath: locationPath, SensorPath: sensorPath}
}

func (s *FileSource) Locations(ctx context.Context) ([]domain.LocationRecord, error) {
	return load[domain.LocationRecord](ctx, s.LocationPath)
}

func (s *FileSource) Sensors(ctx context.Context) ([]domain.SensorRecord, error) {
	return load[domain.SensorRecord](ctx, s.SensorPath)
}

func load[T any](ctx context.Context, path string) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if path == "" {
		return nil, fmt.Errorf("no source configured: %w", domain.ErrSourceUnavailable)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w: %w", path, domain.ErrSourceUnavailable, err)
	}
	defer f.Close()

	var records []T
	if err := json.NewDecoder(f).Decode(&records); err != nil {
		return nil, fmt.Errorf("decode %s: %w: %w", path, domain.ErrSourceMalformed, err)
	}
	return records, nil
}
