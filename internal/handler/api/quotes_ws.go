package api

import (
	"time"

	"Infinity/internal/domain/models"
	xlogger "Infinity/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const (
	wsWriteWait  = 5 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
)

// QuotesMessage is pushed to websocket clients on every feed period.
type QuotesMessage struct {
	Type   string         `json:"type"`
	Assets []models.Asset `json:"assets"`
	At     time.Time      `json:"at"`
}

// Quotes streams the live asset snapshot until the client goes away.
func (h *SessionEchoHandler) Quotes(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", xlogger.Error(err))
		return nil
	}
	defer conn.Close()

	remote := c.RealIP()
	h.logger.Debug("quotes client connected", xlogger.String("remote", remote))

	// The read side only handles control frames; its exit means the client is gone.
	closed := make(chan struct{})
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	push := func() error {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		return conn.WriteJSON(QuotesMessage{Type: "quotes", Assets: h.session.Assets(), At: time.Now().UTC()})
	}
	if err := push(); err != nil {
		return nil
	}

	ticker := time.NewTicker(h.session.FeedPeriod())
	defer ticker.Stop()
	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-closed:
			h.logger.Debug("quotes client disconnected", xlogger.String("remote", remote))
			return nil
		case <-ticker.C:
			if err := push(); err != nil {
				h.logger.Debug("quotes write failed", xlogger.String("remote", remote), xlogger.Error(err))
				return nil
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return nil
			}
		}
	}
}
