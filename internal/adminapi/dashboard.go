package adminapi

import (
	"log"
	"net/http"

	"futures-gateway/internal/events"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// dashboard upgrades to a WebSocket and relays account/position updates and
// risk alerts as they are published to the gateway's events.Bus, fanning
// every topic a dashboard would want into the same connection.
func (s *Server) dashboard(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("adminapi: websocket upgrade: %v", err)
		return
	}
	defer conn.Close()

	if s.bus == nil {
		_ = conn.WriteJSON(gin.H{"error": "event bus not configured"})
		return
	}

	acctCh, unsubAcct := s.bus.Subscribe(events.EventAccountUpdate, 64)
	posCh, unsubPos := s.bus.Subscribe(events.EventPositionUpdate, 64)
	alertCh, unsubAlert := s.bus.Subscribe(events.EventRiskAlert, 64)
	defer unsubAcct()
	defer unsubPos()
	defer unsubAlert()

	// A read goroutine drains (and discards) client frames purely to
	// detect the peer closing the socket; this dashboard is push-only.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case msg, ok := <-acctCh:
			if !ok {
				return
			}
			if err := conn.WriteJSON(gin.H{"type": "account_update", "data": msg}); err != nil {
				return
			}
		case msg, ok := <-posCh:
			if !ok {
				return
			}
			if err := conn.WriteJSON(gin.H{"type": "position_update", "data": msg}); err != nil {
				return
			}
		case msg, ok := <-alertCh:
			if !ok {
				return
			}
			if err := conn.WriteJSON(gin.H{"type": "risk_alert", "data": msg}); err != nil {
				return
			}
		}
	}
}
