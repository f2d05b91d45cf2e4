package speech

import (
	"context"
	"strings"

	speechmodel "github.com/zhouzirui/linguabot/backend/internal/model/speech"
	"github.com/zhouzirui/linguabot/backend/internal/service/voice"
)

// Service 语音识别服务
type Service struct {
	config *speechmodel.SpeechConfig
	asr    *ASRClient
}

// NewService 创建语音服务实例
func NewService(cfg *speechmodel.SpeechConfig) *Service {
	return &Service{
		config: cfg,
		asr:    NewASRClient(cfg),
	}
}

// Enabled 是否配置了凭证
func (s *Service) Enabled() bool {
	return s != nil && s.config.Enabled()
}

// TranscribeStream 流式识别，req.Audio 关闭即结束
func (s *Service) TranscribeStream(ctx context.Context, req *speechmodel.ASRRequest) (*speechmodel.ASRResponse, error) {
	return s.asr.Transcribe(ctx, req)
}

// TranscribeBuffer 识别一段完整音频
func (s *Service) TranscribeBuffer(ctx context.Context, sessionID string, audio []byte, format, language string) (*speechmodel.ASRResponse, error) {
	ch := make(chan []byte, 1)
	ch <- audio
	close(ch)
	return s.TranscribeStream(ctx, &speechmodel.ASRRequest{
		SessionID: sessionID,
		Audio:     ch,
		Format:    format,
		Language:  ASRLocale(language),
	})
}

// Recognizer 返回挂在会话上的识别能力；未配置时返回 nil
func (s *Service) Recognizer(sessionID string) voice.Recognizer {
	if !s.Enabled() {
		return nil
	}
	return voice.RecognizerFunc(func(ctx context.Context, lang string, audio <-chan []byte) (string, error) {
		resp, err := s.TranscribeStream(ctx, &speechmodel.ASRRequest{
			SessionID: sessionID,
			Audio:     audio,
			Format:    "pcm",
			Language:  ASRLocale(lang),
		})
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(resp.Text), nil
	})
}

var asrLocales = map[string]string{
	"en": "en-US",
	"es": "es-ES",
	"fr": "fr-FR",
	"de": "de-DE",
	"hi": "hi-IN",
	"zh": "zh-CN",
}

// ASRLocale 把组件语言代码映射为识别服务的区域代码
func ASRLocale(code string) string {
	code = strings.TrimSpace(code)
	if loc, ok := asrLocales[strings.ToLower(code)]; ok {
		return loc
	}
	if strings.Contains(code, "-") {
		return code
	}
	return "en-US"
}
