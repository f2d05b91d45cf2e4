package speech

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	speechmodel "github.com/zhouzirui/linguabot/backend/internal/model/speech"
)

type fakeASR struct {
	t        *testing.T
	received chan int
	language chan string
	reply    func(conn *websocket.Conn)
}

func (f *fakeASR) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("X-Api-App-Key") != "app" || r.Header.Get("X-Api-Access-Key") != "token" {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	up := websocket.Upgrader{}
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	_, data, err := conn.ReadMessage()
	if err != nil {
		return
	}
	first, err := DecodeFrame(data)
	if err != nil {
		return
	}
	body, _ := first.Body()
	var req asrRequestBody
	_ = json.Unmarshal(body, &req)
	f.language <- req.Audio.Language

	total := 0
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		frame, err := DecodeFrame(data)
		if err != nil {
			return
		}
		chunk, _ := frame.Body()
		total += len(chunk)
		if frame.Last() {
			break
		}
	}
	f.received <- total
	f.reply(conn)
}

func replyText(text string) func(*websocket.Conn) {
	return func(conn *websocket.Conn) {
		partial, _ := json.Marshal(map[string]any{"result": map[string]any{"text": "partial"}})
		pf, _ := newClientRequest(partial)
		pf.Type = FrameServerResponse
		pf.Flags = FlagSequence
		pf.Sequence = 1
		_ = conn.WriteMessage(websocket.BinaryMessage, pf.Encode())

		final, _ := json.Marshal(map[string]any{
			"result":     map[string]any{"text": text},
			"audio_info": map[string]any{"duration": 1200},
		})
		ff, _ := newClientRequest(final)
		ff.Type = FrameServerResponse
		ff.Flags = FlagLastWithSeq
		ff.Sequence = -2
		_ = conn.WriteMessage(websocket.BinaryMessage, ff.Encode())
	}
}

func newFakeASR(t *testing.T, reply func(*websocket.Conn)) (*fakeASR, *speechmodel.SpeechConfig) {
	t.Helper()
	fake := &fakeASR{t: t, received: make(chan int, 1), language: make(chan string, 1), reply: reply}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	cfg := &speechmodel.SpeechConfig{
		AppID:       "app",
		AccessToken: "token",
		Endpoint:    "ws" + strings.TrimPrefix(srv.URL, "http"),
		Timeout:     5 * time.Second,
	}
	return fake, cfg
}

func TestTranscribeStreamsAudioUntilClosed(t *testing.T) {
	fake, cfg := newFakeASR(t, replyText("where is my order"))
	svc := NewService(cfg)
	svc.asr.chunkSize = 4

	audio := make(chan []byte, 4)
	audio <- []byte("abcdef")
	audio <- []byte("ghij")
	close(audio)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := svc.TranscribeStream(ctx, &speechmodel.ASRRequest{SessionID: "s1", Audio: audio, Language: "fr-FR"})
	require.NoError(t, err)
	assert.Equal(t, "where is my order", resp.Text)
	assert.Equal(t, int64(1200), resp.Duration)
	assert.Equal(t, "fr-FR", <-fake.language)
	assert.Equal(t, 10, <-fake.received)
}

func TestRecognizerMapsLanguage(t *testing.T) {
	fake, cfg := newFakeASR(t, replyText("  hola  "))
	rec := NewService(cfg).Recognizer("s2")
	require.NotNil(t, rec)

	audio := make(chan []byte, 1)
	audio <- []byte("pcm")
	close(audio)

	text, err := rec.Recognize(context.Background(), "es", audio)
	require.NoError(t, err)
	assert.Equal(t, "hola", text)
	assert.Equal(t, "es-ES", <-fake.language)
}

func TestTranscribeServerError(t *testing.T) {
	_, cfg := newFakeASR(t, func(conn *websocket.Conn) {
		f := &Frame{Type: FrameServerError, ErrorCode: 45000002, Payload: []byte("bad audio")}
		_ = conn.WriteMessage(websocket.BinaryMessage, f.Encode())
	})

	_, err := NewService(cfg).TranscribeBuffer(context.Background(), "s3", []byte("pcm"), "pcm", "en")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad audio")
}

func TestTranscribeWithoutAudio(t *testing.T) {
	_, cfg := newFakeASR(t, replyText("unused"))
	audio := make(chan []byte)
	close(audio)

	_, err := NewService(cfg).TranscribeStream(context.Background(), &speechmodel.ASRRequest{SessionID: "s4", Audio: audio})
	assert.True(t, errors.Is(err, ErrNoAudio), "got %v", err)
}

func TestTranscribeHonoursCancellation(t *testing.T) {
	_, cfg := newFakeASR(t, replyText("unused"))
	audio := make(chan []byte)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := NewService(cfg).TranscribeStream(ctx, &speechmodel.ASRRequest{SessionID: "s5", Audio: audio})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestUnconfiguredService(t *testing.T) {
	svc := NewService(&speechmodel.SpeechConfig{})
	assert.False(t, svc.Enabled())
	assert.Nil(t, svc.Recognizer("s6"))

	_, err := svc.TranscribeBuffer(context.Background(), "s6", []byte("pcm"), "pcm", "en")
	assert.ErrorIs(t, err, ErrNotConfigured)
}
