package engine

import (
	"context"
	"time"
)

// Replay выдаёт записи по одной в исходном порядке, растягивая проход на total:
// перед каждой записью пауза total/N. Выдача синхронная, поэтому медленный
// потребитель тормозит сам проход (backpressure: block). Пустой набор завершается сразу.
// Ошибка emit или отмена ctx прерывает проход.
func Replay[T any](ctx context.Context, records []T, total time.Duration, emit func(i int, rec T) error) error {
	if len(records) == 0 {
		return nil
	}
	step := total / time.Duration(len(records))

	var timer *time.Timer
	if step > 0 {
		timer = time.NewTimer(step)
		defer timer.Stop()
	}

	for i, rec := range records {
		if timer != nil {
			if i > 0 {
				timer.Reset(step)
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-timer.C:
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}

		if err := emit(i, rec); err != nil {
			return err
		}
	}
	return nil
}
