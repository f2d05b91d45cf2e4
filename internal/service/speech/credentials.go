package speech

import (
	"errors"
	"strings"

	speechmodel "github.com/zhouzirui/linguabot/backend/internal/model/speech"
)

// ErrNotConfigured 缺少识别凭证
var ErrNotConfigured = errors.New("speech recognition is not configured")

// resolveCredentials 返回规范化后的 AppID 与 AccessToken
func resolveCredentials(cfg *speechmodel.SpeechConfig) (string, string, error) {
	if cfg == nil {
		return "", "", ErrNotConfigured
	}
	appID := strings.TrimSpace(cfg.AppID)
	token := strings.TrimSpace(cfg.AccessToken)
	if token == "" {
		token = strings.TrimSpace(cfg.APIKey)
	}
	if appID == "" || token == "" {
		return "", "", ErrNotConfigured
	}
	return appID, token, nil
}

func resourceID(cfg *speechmodel.SpeechConfig) string {
	if cfg.ConcurrentMode {
		return "volc.bigasr.sauc.concurrent"
	}
	return "volc.bigasr.sauc.duration"
}
