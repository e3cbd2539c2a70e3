// internal/handlers/chat.go
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/shopmate/shopmate-backend/internal/config"
	"github.com/shopmate/shopmate-backend/internal/models"
	"github.com/shopmate/shopmate-backend/internal/services"
	"github.com/shopmate/shopmate-backend/internal/utils"
)

const (
	writeWait    = 10 * time.Second
	messageBurst = 3
)

var wsActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "shopmate_chat_active_connections",
	Help: "Open chat websocket connections.",
})

type ChatHandler struct {
	chat     *services.ChatService
	cfg      *config.Config
	logger   *logrus.Logger
	upgrader websocket.Upgrader
}

func NewChatHandler(chat *services.ChatService, cfg *config.Config, logger *logrus.Logger) *ChatHandler {
	return &ChatHandler{
		chat:   chat,
		cfg:    cfg,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin(cfg.Server.AllowedOrigins),
		},
	}
}

// HandleWS upgrades the connection and serves it until the client leaves.
// Commands are handled one at a time: a message runs the whole pipeline and
// streams its reply before the next command is read.
func (h *ChatHandler) HandleWS(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	log := h.logger.WithFields(logrus.Fields{
		"conn_id": uuid.New().String(),
		"ip":      c.ClientIP(),
	})

	wsActiveConnections.Inc()
	defer wsActiveConnections.Dec()

	client := &wsClient{conn: conn, writeWait: writeWait}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	pongWait := time.Duration(h.cfg.Chat.PongWaitSeconds) * time.Second
	conn.SetReadLimit(h.cfg.Chat.ReadLimitBytes)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	go h.pingLoop(ctx, cancel, conn, pongWait*9/10, log)

	log.Info("Chat connection opened")
	defer log.Info("Chat connection closed")

	perMinute := h.cfg.Chat.MessagesPerMinute
	if perMinute < 1 {
		perMinute = 1
	}
	limiter := rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), messageBurst)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.WithError(err).Warn("Chat connection read failed")
			}
			return
		}

		var cmd models.ClientCommand
		if err := json.Unmarshal(data, &cmd); err != nil {
			_ = client.Send(models.NewErrorEvent("Invalid message format"))
			continue
		}
		if err := utils.ValidateStruct(cmd); err != nil {
			_ = client.Send(models.NewErrorEvent(commandErrorMessage(err)))
			continue
		}
		if !limiter.Allow() {
			_ = client.Send(models.NewErrorEvent("You are sending messages too quickly. Please slow down."))
			continue
		}

		if err := h.chat.HandleMessage(ctx, cmd.Text, client); err != nil {
			log.WithError(err).Warn("Chat message handling failed")
		}
	}
}

// pingLoop keeps the connection alive and tears it down when the client
// stops answering. Closing the conn unblocks the read loop.
func (h *ChatHandler) pingLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, period time.Duration, log *logrus.Entry) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				log.WithError(err).Debug("Ping failed, closing connection")
				cancel()
				_ = conn.Close()
				return
			}
		}
	}
}

// wsClient adapts a websocket connection to the pipeline's event sink.
// Writes are serialized; gorilla allows one concurrent writer only.
type wsClient struct {
	conn      *websocket.Conn
	mtx       sync.Mutex
	writeWait time.Duration
}

func (w *wsClient) Send(event models.ChatEvent) error {
	w.mtx.Lock()
	defer w.mtx.Unlock()

	_ = w.conn.SetWriteDeadline(time.Now().Add(w.writeWait))
	return w.conn.WriteJSON(event)
}

func commandErrorMessage(err error) string {
	errs := utils.GetValidationErrors(err)
	if len(errs) == 0 {
		return "Invalid message"
	}
	return "Invalid message: " + errs[0].Message
}

func checkOrigin(allowed []string) func(*http.Request) bool {
	allowAll := false
	set := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		if origin == "*" {
			allowAll = true
		}
		set[origin] = struct{}{}
	}

	return func(r *http.Request) bool {
		if allowAll {
			return true
		}
		origin := r.Header.Get("Origin")
		if origin == "" {
			// Non-browser clients send no Origin header.
			return true
		}
		_, ok := set[origin]
		return ok
	}
}
