package speech

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	speechmodel "github.com/zhouzirui/linguabot/backend/internal/model/speech"
	"github.com/zhouzirui/linguabot/backend/pkg/logger"
)

// 16kHz 16bit 单声道 200ms
const defaultChunkSize = 6400

// ErrNoAudio 说话结束时没有收到任何音频
var ErrNoAudio = errors.New("no audio data to send")

// ASRClient 火山引擎流式识别客户端，音频边收边发
type ASRClient struct {
	config    *speechmodel.SpeechConfig
	dialer    *websocket.Dialer
	chunkSize int
}

type asrRequestBody struct {
	User struct {
		UID string `json:"uid,omitempty"`
	} `json:"user"`
	Audio struct {
		Language string `json:"language,omitempty"`
		Format   string `json:"format"`
		Codec    string `json:"codec,omitempty"`
		Rate     int    `json:"rate,omitempty"`
		Bits     int    `json:"bits,omitempty"`
		Channel  int    `json:"channel,omitempty"`
	} `json:"audio"`
	Request struct {
		ModelName      string `json:"model_name"`
		EnableITN      bool   `json:"enable_itn,omitempty"`
		EnablePunc     bool   `json:"enable_punc,omitempty"`
		ShowUtterances bool   `json:"show_utterances,omitempty"`
		ResultType     string `json:"result_type,omitempty"`
		EndWindowSize  int    `json:"end_window_size,omitempty"`
	} `json:"request"`
}

type asrServerMessage struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Result  struct {
		Text       string `json:"text"`
		Utterances []struct {
			Text     string `json:"text"`
			Definite bool   `json:"definite"`
		} `json:"utterances,omitempty"`
	} `json:"result"`
	AudioInfo struct {
		Duration int64 `json:"duration"`
	} `json:"audio_info"`
}

// NewASRClient 创建识别客户端
func NewASRClient(cfg *speechmodel.SpeechConfig) *ASRClient {
	timeout := 30 * time.Second
	if cfg != nil && cfg.Timeout > 0 {
		timeout = cfg.Timeout
	}
	return &ASRClient{
		config:    cfg,
		dialer:    &websocket.Dialer{HandshakeTimeout: timeout},
		chunkSize: defaultChunkSize,
	}
}

// Transcribe 建立连接，转发 req.Audio 直到通道关闭，返回最终文本
func (c *ASRClient) Transcribe(ctx context.Context, req *speechmodel.ASRRequest) (*speechmodel.ASRResponse, error) {
	appID, token, err := resolveCredentials(c.config)
	if err != nil {
		return nil, err
	}

	connectID := uuid.NewString()
	header := http.Header{}
	header.Set("X-Api-App-Key", appID)
	header.Set("X-Api-Access-Key", token)
	header.Set("X-Api-Resource-Id", resourceID(c.config))
	header.Set("X-Api-Connect-Id", connectID)

	conn, resp, err := c.dialer.DialContext(ctx, c.config.Endpoint, header)
	if err != nil {
		return nil, fmt.Errorf("connect to ASR: %w", err)
	}
	defer conn.Close()

	logID := resp.Header.Get("X-Tt-Logid")
	logger.DebugCF("asr", "Connected", map[string]interface{}{
		"session_id": req.SessionID,
		"connect_id": connectID,
		"log_id":     logID,
	})

	body, err := json.Marshal(c.buildRequest(req))
	if err != nil {
		return nil, fmt.Errorf("marshal ASR request: %w", err)
	}
	first, err := newClientRequest(body)
	if err != nil {
		return nil, err
	}
	if err := conn.WriteMessage(websocket.BinaryMessage, first.Encode()); err != nil {
		return nil, fmt.Errorf("send ASR request: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	// 取消时关闭连接，让阻塞的读写尽快返回
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	type result struct {
		resp *speechmodel.ASRResponse
		err  error
	}
	recvCh := make(chan result, 1)
	go func() {
		r, err := c.receive(conn, req.SessionID)
		recvCh <- result{r, err}
	}()

	sendCh := make(chan error, 1)
	go func() { sendCh <- c.stream(ctx, conn, req.Audio) }()

	for {
		select {
		case err := <-sendCh:
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return nil, ctxErr
				}
				return nil, fmt.Errorf("send audio: %w", err)
			}
			sendCh = nil
		case r := <-recvCh:
			if r.err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return nil, ctxErr
				}
				return nil, r.err
			}
			r.resp.LogID = logID
			return r.resp, nil
		}
	}
}

func (c *ASRClient) buildRequest(req *speechmodel.ASRRequest) *asrRequestBody {
	body := &asrRequestBody{}
	body.User.UID = req.SessionID

	body.Audio.Format = req.Format
	if body.Audio.Format == "" {
		body.Audio.Format = "pcm"
	}
	body.Audio.Language = req.Language
	if body.Audio.Language == "" {
		body.Audio.Language = "en-US"
	}
	body.Audio.Codec = "raw"
	body.Audio.Rate = 16000
	body.Audio.Bits = 16
	body.Audio.Channel = 1

	body.Request.ModelName = c.config.ASRModel
	if body.Request.ModelName == "" {
		body.Request.ModelName = "bigmodel"
	}
	body.Request.EnableITN = true
	body.Request.EnablePunc = true
	body.Request.ShowUtterances = true
	body.Request.ResultType = "full"
	body.Request.EndWindowSize = 800
	return body
}

// stream 把音频按 chunkSize 分包发送，通道关闭后发送带负序号的最后一包
func (c *ASRClient) stream(ctx context.Context, conn *websocket.Conn, audio <-chan []byte) error {
	// 服务端把首包记为序号 1
	seq := int32(2)
	var (
		pending []byte
		total   int
	)

	send := func(chunk []byte, last bool) error {
		f, err := newAudioFrame(chunk, seq, last)
		if err != nil {
			return err
		}
		if err := conn.WriteMessage(websocket.BinaryMessage, f.Encode()); err != nil {
			return err
		}
		seq++
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case chunk, ok := <-audio:
			if !ok {
				if total == 0 {
					return ErrNoAudio
				}
				return send(pending, true)
			}
			total += len(chunk)
			pending = append(pending, chunk...)
			for len(pending) > c.chunkSize {
				if err := send(pending[:c.chunkSize], false); err != nil {
					return err
				}
				pending = append(pending[:0], pending[c.chunkSize:]...)
			}
		}
	}
}

func (c *ASRClient) receive(conn *websocket.Conn, sessionID string) (*speechmodel.ASRResponse, error) {
	var (
		text     string
		duration int64
	)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return nil, fmt.Errorf("read ASR response: %w", err)
		}
		frame, err := DecodeFrame(data)
		if err != nil {
			return nil, fmt.Errorf("decode ASR frame: %w", err)
		}

		switch frame.Type {
		case FrameServerError:
			body, _ := frame.Body()
			return nil, fmt.Errorf("ASR error %d: %s", frame.ErrorCode, string(body))

		case FrameServerResponse:
			body, err := frame.Body()
			if err != nil {
				return nil, err
			}
			var msg asrServerMessage
			if err := json.Unmarshal(body, &msg); err != nil {
				logger.WarnCF("asr", "Unreadable response", map[string]interface{}{"error": err.Error()})
				continue
			}
			if msg.Code != 0 && msg.Code != 20000000 {
				return nil, fmt.Errorf("ASR API error %d: %s", msg.Code, msg.Message)
			}
			if candidate := transcriptOf(&msg); candidate != "" {
				text = candidate
			}
			if msg.AudioInfo.Duration > 0 {
				duration = msg.AudioInfo.Duration
			}
			if frame.Last() {
				return &speechmodel.ASRResponse{
					SessionID: sessionID,
					Text:      text,
					Duration:  duration,
					CreatedAt: time.Now(),
				}, nil
			}
		}
	}
}

func transcriptOf(msg *asrServerMessage) string {
	if msg.Result.Text != "" {
		return msg.Result.Text
	}
	parts := make([]string, 0, len(msg.Result.Utterances))
	for _, u := range msg.Result.Utterances {
		if u.Text != "" {
			parts = append(parts, u.Text)
		}
	}
	return strings.Join(parts, " ")
}
