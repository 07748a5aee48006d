package websocket

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"tempmail/relay/internal/domain"
	"tempmail/relay/internal/monitoring"
	"tempmail/relay/internal/poller"
	"tempmail/relay/internal/service"
)

// MessageType 定义推送给客户端的消息类型
type MessageType string

const (
	MessageTypeSnapshot MessageType = "snapshot" // 每次成功轮询后的完整列表
	MessageTypeNewMail  MessageType = "new_mail" // 新出现的单封邮件
	MessageTypeError    MessageType = "error"    // 单次轮询失败（非致命）
)

// Message 定义推送消息的结构
type Message struct {
	Type      MessageType `json:"type"`
	Messages  interface{} `json:"messages,omitempty"`
	Error     string      `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// upgraderFactory 创建带有 Origin 验证的 WebSocket 升级器
func upgraderFactory(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			for _, origin := range allowedOrigins {
				if origin == "*" {
					return true
				}
			}

			requestOrigin := r.Header.Get("Origin")
			if requestOrigin == "" {
				// 没有 Origin 视为同源请求
				return true
			}

			for _, origin := range allowedOrigins {
				if requestOrigin == origin {
					return true
				}
			}
			return false
		},
	}
}

// StreamHandler 把收件箱轮询结果通过 WebSocket 推送给客户端。
//
// 每个连接持有一个独立的轮询器：连接建立后服务端代替浏览器
// 定时拉取，新邮件以事件形式下发，连接关闭时轮询随之停止。
type StreamHandler struct {
	upgrader websocket.Upgrader
	messages *service.MessageService
	interval time.Duration
	metrics  *monitoring.Metrics
	log      *zap.Logger
}

// NewStreamHandler 创建流处理器。
func NewStreamHandler(messages *service.MessageService, interval time.Duration, allowedOrigins []string, metrics *monitoring.Metrics, log *zap.Logger) *StreamHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &StreamHandler{
		upgrader: upgraderFactory(allowedOrigins),
		messages: messages,
		interval: interval,
		metrics:  metrics,
		log:      log,
	}
}

// Handle 处理 GET /v1/ws?token=... 的升级请求。
func (h *StreamHandler) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing_token"})
			return
		}

		conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			h.log.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		h.serve(conn, token)
	}
}

func (h *StreamHandler) serve(conn *websocket.Conn, token string) {
	if h.metrics != nil {
		h.metrics.ActiveStreams.Inc()
		defer h.metrics.ActiveStreams.Dec()
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 写操作需要串行化：轮询回调和 ping 都会写
	var writeMu sync.Mutex
	send := func(msg Message) {
		msg.Timestamp = time.Now().UTC()
		writeMu.Lock()
		defer writeMu.Unlock()
		_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := conn.WriteJSON(msg); err != nil {
			cancel()
		}
	}

	p := poller.New(
		func(ctx context.Context) ([]domain.MessageSummary, error) {
			inbox, err := h.messages.List(ctx, token)
			if err != nil {
				return nil, err
			}
			return inbox.Messages, nil
		},
		h.interval,
		poller.WithLogger(h.log),
		poller.OnNew(func(msg domain.MessageSummary) {
			send(Message{Type: MessageTypeNewMail, Messages: []domain.MessageSummary{msg}})
		}),
		poller.OnUpdate(func(all []domain.MessageSummary) {
			if h.metrics != nil {
				h.metrics.RecordPollTick("ok")
			}
			send(Message{Type: MessageTypeSnapshot, Messages: all})
		}),
		poller.OnError(func(err error) {
			if h.metrics != nil {
				h.metrics.RecordPollTick("error")
			}
			send(Message{Type: MessageTypeError, Error: err.Error()})
		}),
	)

	p.Start(ctx)
	defer p.Stop()

	// 保活 ping
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				writeMu.Lock()
				_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
				err := conn.WriteMessage(websocket.PingMessage, nil)
				writeMu.Unlock()
				if err != nil {
					cancel()
					return
				}
			}
		}
	}()

	// 读循环只用于感知连接关闭
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(90 * time.Second))
	})
	_ = conn.SetReadDeadline(time.Now().Add(90 * time.Second))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
