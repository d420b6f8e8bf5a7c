package http

import (
	infra "github.com/clicksand/clicksand/internal/infrastructure"
	"github.com/labstack/echo/v4"
)

func v1Endpoint(
	websocket *infra.Websocket,
	TrackingHandler *TrackingHandler,
	StreamHandler *StreamHandler,
	requestIDMiddleware echo.MiddlewareFunc,
	traceLoggerMiddleware echo.MiddlewareFunc,
) *endpoint {
	return &endpoint{
		apiVersion:  "api/v1",
		middlewares: []echo.MiddlewareFunc{requestIDMiddleware, traceLoggerMiddleware},
		groups: []*apiGroup{
			{
				prefix: "/track",
				routes: []*route{
					{"POST", "/log", TrackingHandler.HandleLog, nil},
					{"POST", "/heartbeat", TrackingHandler.HandleHeartbeat, nil},
					{"GET", "/stats", TrackingHandler.HandleGetStats, nil},
					{"POST", "/reset", TrackingHandler.HandleReset, nil},
					{"POST", "/settings", TrackingHandler.HandleUpdateSettings, nil},
				},
			},
			{
				prefix: "/ws",
				routes: []*route{
					{"GET", "/stats", websocket.WithHeartbeat(StreamHandler.HandleStatsStream), nil},
				},
			},
		},
	}
}
