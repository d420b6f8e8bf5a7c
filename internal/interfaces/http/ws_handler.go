package http

import (
	"errors"

	"github.com/clicksand/clicksand/internal/tracking"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

// StreamHandler pushes live stats/achievement events to clients
type StreamHandler struct {
	broker *tracking.Broker
}

// NewStreamHandler create a live event stream controller
func NewStreamHandler(Broker *tracking.Broker) *StreamHandler {
	return &StreamHandler{Broker}
}

// HandleStatsStream forward the user's event feed over the socket until
// the client goes away
func (sh *StreamHandler) HandleStatsStream(c echo.Context, conn *websocket.Conn, closed <-chan struct{}) error {
	userID := c.QueryParam("userId")
	if userID == "" {
		return errors.New("missing userId")
	}

	events, cancel := sh.broker.Subscribe(userID)
	defer cancel()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if err := conn.WriteJSON(ev); err != nil {
				return err
			}
		case <-closed:
			return nil
		}
	}
}
