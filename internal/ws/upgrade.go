package ws

import (
	"encoding/json"
	"net/http"
	"time"

	"tresesenta/config"
	"tresesenta/internal/auth"
	"tresesenta/internal/middleware"
	"tresesenta/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	pingPeriod     = 30 * time.Second
	pongWait       = 60 * time.Second
	writeWait      = 10 * time.Second
	maxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// inbound is a client command: {"type":"join-pin","pin_id":12}.
type inbound struct {
	Type  string `json:"type"`
	PinID uint   `json:"pin_id"`
}

// ServePins upgrades GET /ws/pins. The access token comes from the "token"
// query parameter or an Authorization: Bearer header.
func ServePins(cfg *config.JWTConfig, hub *PinHub) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			token, _ = middleware.BearerToken(c.GetHeader("Authorization"))
		}
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "token required", "code": "UNAUTHORIZED"})
			return
		}
		claims, err := auth.ParseAccessToken(cfg, token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token", "code": "UNAUTHORIZED"})
			return
		}
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		client := NewClient(claims.UserID, claims.Role)
		hub.Register(client)
		defer client.Close()
		logger.WithFields(logrus.Fields{"user_id": claims.UserID}).Debug("ws: client connected")

		go writePump(client, conn)
		readPump(hub, client, conn)
	}
}

// writePump copies messages from client.Send to the connection.
func writePump(c *Client, conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case msg, ok := <-c.Send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func readPump(hub *PinHub, c *Client, conn *websocket.Conn) {
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var msg inbound
		if err := json.Unmarshal(data, &msg); err != nil || msg.PinID == 0 {
			c.deliver([]byte(`{"type":"error","error":"invalid message"}`))
			continue
		}
		switch msg.Type {
		case "join-pin":
			hub.Join(c, msg.PinID)
			c.deliver(ack("joined", msg.PinID))
		case "leave-pin":
			hub.Leave(c, msg.PinID)
			c.deliver(ack("left", msg.PinID))
		default:
			c.deliver([]byte(`{"type":"error","error":"unknown message type"}`))
		}
	}
}

func ack(kind string, pinID uint) []byte {
	data, _ := json.Marshal(map[string]interface{}{"type": kind, "pin_id": pinID})
	return data
}
