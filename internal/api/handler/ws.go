package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ServeLive streams transcript events to an authenticated admin client.
// One Redis subscription per connection; the feed is observation only
// and has no replay — a client sees what is relayed while it listens.
func (h *Handler) ServeLive(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to upgrade connection"})
		return
	}

	pubsub := h.Store.SubscribeTranscript()
	go h.liveWritePump(conn, pubsub)
	go h.liveReadPump(conn, pubsub)
}

// liveWritePump copies pub/sub payloads onto the socket and keeps the
// connection alive with pings. Closing the subscription (from the read
// pump) drains the channel and ends the loop.
func (h *Handler) liveWritePump(conn *websocket.Conn, pubsub *redis.PubSub) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	ch := pubsub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg.Payload)); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// liveReadPump exists to notice the client going away; admins send
// nothing meaningful upstream.
func (h *Handler) liveReadPump(conn *websocket.Conn, pubsub *redis.PubSub) {
	defer func() {
		if err := pubsub.Close(); err != nil {
			h.log.Warn("failed to close transcript subscription", zap.Error(err))
		}
		conn.Close()
	}()

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
