package widget

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/linguabot/backend/internal/locale"
	"github.com/zhouzirui/linguabot/backend/internal/service/bridge"
	"github.com/zhouzirui/linguabot/backend/internal/service/widget"
)

type received struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func dial(t *testing.T, f *fixture, id string) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(f.router)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/" + id
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// next reads until a message of type want arrives.
func next(t *testing.T, conn *websocket.Conn, want string) json.RawMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		var msg received
		require.NoError(t, conn.ReadJSON(&msg))
		if msg.Type == want {
			return msg.Data
		}
	}
}

// nextState reads state messages until cond holds.
func nextState(t *testing.T, conn *websocket.Conn, cond func(sessionView) bool) sessionView {
	t.Helper()
	for {
		var view sessionView
		require.NoError(t, json.Unmarshal(next(t, conn, "state"), &view))
		if cond(view) {
			return view
		}
	}
}

func send(t *testing.T, conn *websocket.Conn, msgType string, data any) {
	t.Helper()
	payload := map[string]any{"type": msgType}
	if data != nil {
		payload["data"] = data
	}
	require.NoError(t, conn.WriteJSON(payload))
}

func TestWebSocketDrivesConversation(t *testing.T) {
	f := newFixture(t)
	id := f.create(t, "").Session.ID
	conn := dial(t, f, id)

	initial := nextState(t, conn, func(sessionView) bool { return true })
	assert.False(t, initial.State.IsOpen)

	send(t, conn, "toggle", nil)
	nextState(t, conn, func(v sessionView) bool { return v.State.IsOpen })

	send(t, conn, "text", map[string]string{"text": "do you ship abroad"})
	view := nextState(t, conn, func(v sessionView) bool { return v.State.IsTyping })
	assert.Equal(t, "do you ship abroad", view.State.Messages[len(view.State.Messages)-1].Content)

	f.clock.Advance(2 * time.Second)
	view = nextState(t, conn, func(v sessionView) bool {
		m := v.State.Messages
		return strings.HasPrefix(m[len(m)-1].Content, "re: ")
	})
	assert.Equal(t, "re: do you ship abroad", view.State.Messages[len(view.State.Messages)-1].Content)
	assert.False(t, view.State.IsTyping)

	send(t, conn, "language", map[string]string{"language": "hi"})
	view = nextState(t, conn, func(v sessionView) bool { return v.State.CurrentLanguage == "hi" })
	assert.Equal(t, "hi", view.Session.Language)
	assert.Equal(t, f.catalog.Text("hi", locale.KeyPlaceholder), view.Strings[locale.KeyPlaceholder])
}

func TestWebSocketReportsErrors(t *testing.T) {
	f := newFixture(t)
	conn := dial(t, f, f.create(t, "").Session.ID)

	send(t, conn, "feedback", map[string]int{"rating": 0})
	assert.Contains(t, string(next(t, conn, "error")), "rating")

	send(t, conn, "teleport", nil)
	assert.Contains(t, string(next(t, conn, "error")), "unsupported message type")

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "toggle", "sessionId": "someone-else"}))
	assert.Contains(t, string(next(t, conn, "error")), "session mismatch")

	// voice is not configured: the widget says so in the conversation
	send(t, conn, "voice_toggle", nil)
	view := nextState(t, conn, func(v sessionView) bool { return len(v.State.Messages) > 0 })
	assert.Equal(t, f.catalog.Text("en", locale.KeyVoiceNotSupported), view.State.Messages[0].Content)
}

func TestWebSocketOfflineReply(t *testing.T) {
	f := newFixture(t)
	conn := dial(t, f, f.create(t, "").Session.ID)

	send(t, conn, "connectivity", map[string]bool{"online": false})
	send(t, conn, "text", map[string]string{"text": "hello"})

	offline := f.catalog.Text("en", locale.KeyOffline)
	view := nextState(t, conn, func(v sessionView) bool { return len(v.State.Messages) == 2 })
	assert.Equal(t, offline, view.State.Messages[1].Content)
	assert.False(t, view.State.IsTyping)
}

func TestWebSocketResizeForEmbeddedSession(t *testing.T) {
	f := newFixture(t)
	id := f.create(t, `{"embedded":true}`).Session.ID
	conn := dial(t, f, id)
	nextState(t, conn, func(sessionView) bool { return true })

	send(t, conn, "layout", bridge.Size{Width: 380, Height: 720})
	send(t, conn, "toggle", nil)
	// the read loop is sequential, so the layout is recorded once the toggle shows up
	nextState(t, conn, func(v sessionView) bool { return v.State.IsOpen })

	f.clock.Advance(bridge.DefaultDebounce)

	var msg bridge.ResizeMessage
	require.NoError(t, json.Unmarshal(next(t, conn, "resize"), &msg))
	assert.Equal(t, bridge.ResizeMessage{Type: "CHATBOT_RESIZE", Width: 400, Height: 720, IsOpen: true}, msg)
}

func TestWebSocketThemeProbe(t *testing.T) {
	f := newFixture(t)
	conn := dial(t, f, f.create(t, "").Session.ID)

	send(t, conn, "theme", map[string]string{"background": "#101418"})
	view := nextState(t, conn, func(v sessionView) bool { return v.State.Theme == widget.ThemeDark })
	assert.Equal(t, "rgb(17, 24, 39)", view.Background)
}

func TestWebSocketUnknownSession(t *testing.T) {
	f := newFixture(t)
	srv := httptest.NewServer(f.router)
	defer srv.Close()

	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws/missing", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 404, resp.StatusCode)
}
