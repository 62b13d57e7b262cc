package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	signalOn  = "on"
	signalOff = "off"
)

// FormatSignal кодирует изменение членства в наборе: "<id>:on" или "<id>:off".
func FormatSignal(id string, on bool) string {
	if on {
		return id + ":" + signalOn
	}
	return id + ":" + signalOff
}

// ParseSignal режет по последнему двоеточию: MAC-адрес сам содержит двоеточия.
func ParseSignal(payload string) (id string, on bool, err error) {
	i := strings.LastIndex(payload, ":")
	if i <= 0 || i == len(payload)-1 {
		return "", false, fmt.Errorf("invalid signal format %q", payload)
	}
	id, state := payload[:i], payload[i+1:]
	switch state {
	case signalOn, "true":
		return id, true, nil
	case signalOff, "false":
		return id, false, nil
	default:
		return "", false, fmt.Errorf("invalid signal state %q", state)
	}
}

// ListenStateResilient - "живучая" подписка на канал Redis.
// Переподключается при обрыве, на каждом успешном коннекте зовёт onReconnect
// для ресинхронизации, сигналы отдаёт в onMessage. Возвращается только по ctx.
func ListenStateResilient(
	ctx context.Context,
	rdb *redis.Client,
	logger *zap.Logger,
	channel string,
	onReconnect func() error,
	onMessage func(id string, on bool),
) {
	for {
		pubsub := rdb.Subscribe(ctx, channel)

		if _, err := pubsub.Receive(ctx); err != nil {
			pubsub.Close()
			if ctx.Err() != nil {
				return
			}
			logger.Error("failed to subscribe", zap.String("chan", channel), zap.Error(err))
			if !sleepCtx(ctx, 5*time.Second) {
				return
			}
			continue
		}

		// Пока были отключены, сигналы могли потеряться
		if err := onReconnect(); err != nil {
			logger.Error("sync failed on reconnect", zap.Error(err))
		}

		ch := pubsub.Channel()

	loop:
		for {
			select {
			case <-ctx.Done():
				pubsub.Close()
				return
			case msg, ok := <-ch:
				if !ok {
					break loop // канал закрыт, идём на переподключение
				}

				id, on, err := ParseSignal(msg.Payload)
				if err != nil {
					logger.Error("invalid signal", zap.String("payload", msg.Payload), zap.Error(err))
					continue
				}
				onMessage(id, on)
			}
		}

		pubsub.Close()
		if !sleepCtx(ctx, time.Second) {
			return
		}
	}
}

// sleepCtx ждёт d или отмены контекста; false - контекст отменён.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
