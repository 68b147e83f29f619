package v1

import (
	"context"
	"log"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/Shodexco/aiproductmanager/internal/domain"
)

const (
	streamPollInterval = 250 * time.Millisecond
	streamWriteTimeout = 10 * time.Second
)

// StreamRunEvents pushes the run's events over a WebSocket as they are recorded
// and closes the connection after the terminal event.
// GET /v1/runs/:run_id/stream
func (h *Handler) StreamRunEvents(c echo.Context) error {
	runID := c.Param("run_id")
	if _, err := h.service.GetRun(c.Request().Context(), runID); err != nil {
		return errorResponse(c, err)
	}

	ws, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		log.Printf("WARN: failed to upgrade WebSocket: %v", err)
		return nil
	}
	defer ws.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The client never sends data; reading only detects the close.
	go func() {
		defer cancel()
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(streamPollInterval)
	defer ticker.Stop()

	var cursor eventCursor
	for {
		events, err := h.service.GetRunEvents(ctx, runID, cursor.afterTs(), nil, 0)
		if err != nil {
			if ctx.Err() == nil {
				log.Printf("WARN: failed to load events for stream %s: %v", runID, err)
			}
			return nil
		}

		for _, ev := range cursor.fresh(events) {
			_ = ws.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
			if err := ws.WriteJSON(ev); err != nil {
				return nil
			}
			if isTerminalEvent(ev.Type) {
				_ = ws.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, string(ev.Type)))
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func isTerminalEvent(t domain.EventType) bool {
	return t == domain.EventTypeRunDone || t == domain.EventTypeRunFailed || t == domain.EventTypeRunReaped
}

// eventCursor tracks delivered events. Timestamps have millisecond resolution,
// so events sharing the last timestamp are re-read and filtered by id.
type eventCursor struct {
	lastTs int64
	seen   map[string]struct{}
}

func (c *eventCursor) afterTs() int64 {
	if c.lastTs == 0 {
		return 0
	}
	return c.lastTs - 1
}

func (c *eventCursor) fresh(events []domain.Event) []domain.Event {
	var out []domain.Event
	for _, ev := range events {
		if _, ok := c.seen[ev.EventID]; ok {
			continue
		}
		if ev.Ts > c.lastTs {
			c.lastTs = ev.Ts
			c.seen = map[string]struct{}{}
		}
		if c.seen == nil {
			c.seen = map[string]struct{}{}
		}
		if ev.Ts == c.lastTs {
			c.seen[ev.EventID] = struct{}{}
		}
		out = append(out, ev)
	}
	return out
}
