package slideshow

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"slidecast/internal/pkg/apperr"
	"slidecast/internal/server/middleware"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Events 进度事件流
// @Summary      进度事件流
// @Description  WebSocket 连接，推送 line_updated / session_updated / batch_started / batch_finished / aligned / render_progress / render_finished / error 事件
// @Tags         批处理
// @Success      101  {string}  string  "Switching Protocols"
// @Router       /api/v1/events [get]
func (h *Handler) Events(c *gin.Context) {
	if h.hub == nil {
		respondError(c, apperr.NotFound("event stream is not available"))
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	sub, cancel := h.hub.Subscribe()
	defer cancel()

	// 读循环只用于处理 pong 和检测断开
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	log.Debug().Str("request_id", c.GetString(middleware.RequestIDKey)).Msg("event stream connected")
	for {
		select {
		case event, ok := <-sub:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
					time.Now().Add(writeWait))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(event); err != nil {
				log.Debug().Err(err).Msg("event stream write failed")
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-closed:
			log.Debug().Msg("event stream disconnected")
			return
		case <-h.jobCtx.Done():
			return
		}
	}
}
