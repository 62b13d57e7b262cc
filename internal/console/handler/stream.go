package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/xela07ax/floorwatch/internal/domain"
	"github.com/xela07ax/floorwatch/internal/engine"
)

// StreamRunner - движок сессий (engine.Engine).
type StreamRunner interface {
	Run(ctx context.Context, kind engine.StreamKind, out engine.Emitter) error
}

type StreamHandler struct {
	runner   StreamRunner
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

func NewStreamHandler(runner StreamRunner, logger *zap.Logger) *StreamHandler {
	return &StreamHandler{
		runner: runner,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// Дашборд живёт на другом origin
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger: logger.Named("stream-handler"),
	}
}

// sseEmitter пишет кадры text/event-stream и сбрасывает их сразу после записи.
type sseEmitter struct {
	w http.ResponseWriter
	f http.Flusher
}

func (e *sseEmitter) Emit(ev domain.Event) error {
	frame, err := domain.EncodeSSE(ev)
	if err != nil {
		return err
	}
	if _, err := e.w.Write(frame); err != nil {
		return err
	}
	e.f.Flush()
	return nil
}

// SSE отдаёт поток kind как text/event-stream. Сессия живёт, пока жив запрос.
// GET /stream, /stream/zones, /stream/machines
func (h *StreamHandler) SSE(kind engine.StreamKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			writeError(w, http.StatusInternalServerError, "streaming is not supported")
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		h.run(r.Context(), kind, &sseEmitter{w: w, f: flusher})
	}
}

type wsFrame struct {
	Event domain.EventKind `json:"event"`
	Data  domain.Event     `json:"data"`
}

const wsWriteWait = 10 * time.Second

type wsEmitter struct {
	conn *websocket.Conn
}

func (e *wsEmitter) Emit(ev domain.Event) error {
	_ = e.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return e.conn.WriteJSON(wsFrame{Event: ev.Kind(), Data: ev})
}

// WebSocket - тот же поток кадрами {"event": ..., "data": ...}.
// GET /ws/{kind}
func (h *StreamHandler) WebSocket(w http.ResponseWriter, r *http.Request) {
	kind, err := engine.ParseStreamKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade уже ответил клиенту
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Клиент ничего не шлёт: читаем только чтобы заметить закрытие
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	h.run(ctx, kind, &wsEmitter{conn: conn})

	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "stream finished"),
		time.Now().Add(time.Second))
}

func (h *StreamHandler) run(ctx context.Context, kind engine.StreamKind, out engine.Emitter) {
	err := h.runner.Run(ctx, kind, out)
	switch {
	case err == nil:
	case errors.Is(err, engine.ErrObserverGone):
		h.logger.Debug("observer left", zap.String("stream", string(kind)))
	default:
		h.logger.Warn("stream terminated with fault", zap.String("stream", string(kind)), zap.Error(err))
	}
}
