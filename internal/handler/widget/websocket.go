package widget

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/zhouzirui/linguabot/backend/internal/service/bridge"
	chatservice "github.com/zhouzirui/linguabot/backend/internal/service/chat"
	"github.com/zhouzirui/linguabot/backend/internal/service/widget"
	"github.com/zhouzirui/linguabot/backend/pkg/logger"
)

const (
	pongWait     = 60 * time.Second
	pingInterval = 54 * time.Second
	writeWait    = 10 * time.Second
	outboxSize   = 64
)

func newUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		// 组件运行在任意宿主页面的 iframe 中
		CheckOrigin:     func(*http.Request) bool { return true },
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
}

type inboundMessage struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId"`
	Data      json.RawMessage `json:"data"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

type textData struct {
	Text string `json:"text"`
}

type languageData struct {
	Language string `json:"language"`
}

type feedbackData struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

type actionData struct {
	Action widget.QuickAction `json:"action"`
}

type questionData struct {
	Question string `json:"question"`
}

// audioData carries base64 PCM in JSON; binary frames carry it raw.
type audioData struct {
	Audio []byte `json:"audio"`
	Final bool   `json:"final"`
}

type connectivityData struct {
	Online bool `json:"online"`
}

type themeData struct {
	Theme      widget.Theme `json:"theme"`
	Background string       `json:"background"`
}

// wsConn serialises writes to one socket through a single goroutine.
type wsConn struct {
	conn      *websocket.Conn
	sessionID string
	out       chan outgoingMessage
}

func (c *wsConn) send(msgType string, data interface{}) {
	msg := outgoingMessage{
		Type:      msgType,
		SessionID: c.sessionID,
		Data:      data,
		Timestamp: time.Now().Unix(),
	}
	select {
	case c.out <- msg:
	default:
		logger.WarnCF("websocket", "Outbox full, dropping message", map[string]interface{}{
			"session_id": c.sessionID,
			"type":       msgType,
		})
	}
}

func (c *wsConn) sendError(message string) {
	c.send("error", map[string]string{"message": message})
}

func (c *wsConn) writeLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-c.out:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(msg); err != nil {
				logger.DebugCF("websocket", "Write failed", map[string]interface{}{
					"session_id": c.sessionID,
					"error":      err.Error(),
				})
				return
			}
		}
	}
}

// pingLoop 定期发送ping消息
func (c *wsConn) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	sess, err := h.sessions.GetSession(r.Context(), sessionID)
	if err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.WarnCF("websocket", "Upgrade failed", map[string]interface{}{"error": err.Error()})
		return
	}
	defer conn.Close()

	logger.InfoCF("websocket", "Renderer connected", map[string]interface{}{"session_id": sessionID})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := &wsConn{conn: conn, sessionID: sessionID, out: make(chan outgoingMessage, outboxSize)}

	// First message is the full view so the renderer never misses a transition.
	c.send("state", h.view(sess, sess.Controller.Snapshot()))
	unsubscribe := sess.Controller.Subscribe(func(u widget.Update) {
		c.send("state", h.view(sess, u.State))
	})
	defer unsubscribe()
	unsubscribeResize := sess.SubscribeResize(func(m bridge.ResizeMessage) {
		c.send("resize", m)
	})
	defer unsubscribeResize()

	// A renderer going away ends any utterance it was streaming.
	defer sess.Voice.Stop()

	go c.writeLoop(ctx)
	go c.pingLoop(ctx)

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.WarnCF("websocket", "Read error", map[string]interface{}{
					"session_id": sessionID,
					"error":      err.Error(),
				})
			}
			logger.InfoCF("websocket", "Renderer disconnected", map[string]interface{}{"session_id": sessionID})
			return
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))

		if kind == websocket.BinaryMessage {
			if err := sess.Voice.Feed(data); err != nil {
				c.sendError(err.Error())
			}
			continue
		}

		var msg inboundMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.sendError("invalid message")
			continue
		}
		if msg.SessionID != "" && msg.SessionID != sessionID {
			c.sendError("session mismatch")
			continue
		}
		if err := h.handleMessage(sess, &msg); err != nil {
			c.sendError(err.Error())
		}
	}
}

func (h *Handler) handleMessage(sess *chatservice.Session, msg *inboundMessage) error {
	ctrl := sess.Controller
	switch msg.Type {
	case "toggle":
		return ctrl.Toggle()

	case "text":
		var d textData
		if err := unmarshalData(msg.Data, &d); err != nil {
			return err
		}
		return ctrl.SendUserMessage(d.Text)

	case "language":
		var d languageData
		if err := unmarshalData(msg.Data, &d); err != nil {
			return err
		}
		return ctrl.ChangeLanguage(d.Language)

	case "human":
		return ctrl.RequestHuman()

	case "feedback":
		var d feedbackData
		if err := unmarshalData(msg.Data, &d); err != nil {
			return err
		}
		return ctrl.SubmitFeedback(d.Rating, d.Comment)

	case "quick_action":
		var d actionData
		if err := unmarshalData(msg.Data, &d); err != nil {
			return err
		}
		return ctrl.QuickAction(d.Action)

	case "question":
		var d questionData
		if err := unmarshalData(msg.Data, &d); err != nil {
			return err
		}
		return ctrl.SelectQuestion(d.Question)

	case "draft":
		var d textData
		if err := unmarshalData(msg.Data, &d); err != nil {
			return err
		}
		return ctrl.SetDraft(d.Text)

	case "voice_toggle":
		// Unsupported voice is announced in the conversation, not reported as a
		// protocol error.
		_ = sess.Voice.Toggle()
		return nil

	case "audio":
		var d audioData
		if err := unmarshalData(msg.Data, &d); err != nil {
			return err
		}
		if len(d.Audio) > 0 {
			if err := sess.Voice.Feed(d.Audio); err != nil {
				return err
			}
		}
		if d.Final {
			sess.Voice.Stop()
		}
		return nil

	case "layout":
		var size bridge.Size
		if err := unmarshalData(msg.Data, &size); err != nil {
			return err
		}
		sess.Layout.Report(size)
		return nil

	case "host_resize":
		if sess.Bridge != nil {
			sess.Bridge.HostResized()
		}
		return nil

	case "connectivity":
		var d connectivityData
		if err := unmarshalData(msg.Data, &d); err != nil {
			return err
		}
		sess.Online.Set(d.Online)
		return nil

	case "theme":
		var d themeData
		if err := unmarshalData(msg.Data, &d); err != nil {
			return err
		}
		theme := d.Theme
		if theme == "" {
			theme = bridge.ProbeTheme(d.Background)
		}
		return ctrl.SetTheme(theme)

	default:
		return errUnsupportedType(msg.Type)
	}
}
