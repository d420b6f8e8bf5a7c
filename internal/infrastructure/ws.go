package infra

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	HandshakeTimeout: 3 * time.Second,
}

var (
	writeWait    = 10 * time.Second
	pongWait     = 30 * time.Second
	pingInterval = pongWait * 9 / 10
)

// Websocket upgrades requests and keeps the resulting connection alive
// with a ping/pong heartbeat
type Websocket struct{}

// NewWebsocket .
func NewWebsocket() *Websocket {
	return &Websocket{}
}

// WithHeartbeat wrap a push handler with upgrade and heartbeat plumbing.
//
// The handler owns the write side; incoming frames are drained internally
// so pong handlers fire. closed is signalled as soon as the peer goes
// away, handlers must select on it when blocking on other sources
func (ws *Websocket) WithHeartbeat(handler func(c echo.Context, conn *websocket.Conn, closed <-chan struct{}) error) echo.HandlerFunc {
	return func(c echo.Context) error {
		conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
		if err != nil {
			return c.String(http.StatusBadRequest, err.Error())
		}

		closed := make(chan struct{})
		var once sync.Once
		shutdown := func() {
			once.Do(func() {
				close(closed)
				conn.Close()
			})
		}

		go readPump(conn, shutdown)
		go heartbeatRoutine(conn, closed, shutdown)
		go func() {
			defer shutdown()
			handler(c, conn, closed)
		}()
		return nil
	}
}

// readPump drain incoming frames so control handlers get serviced
func readPump(conn *websocket.Conn, shutdown func()) {
	defer shutdown()
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func heartbeatRoutine(conn *websocket.Conn, closed <-chan struct{}, shutdown func()) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		shutdown()
	}()
	for {
		select {
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-closed:
			return
		}
	}
}
