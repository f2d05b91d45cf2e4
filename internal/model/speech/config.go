package speech

import "time"

// SpeechConfig 语音识别配置
type SpeechConfig struct {
	AppID          string `env:"APP_ID" json:"appId"`             // 火山引擎 APP ID
	AccessToken    string `env:"ACCESS_TOKEN" json:"accessToken"` // 火山引擎 Access Token
	APIKey         string `env:"API_KEY" json:"apiKey,omitempty"` // 兼容旧配置的 API Key
	Endpoint       string `env:"ASR_ENDPOINT" envDefault:"wss://openspeech.bytedance.com/api/v3/sauc/bigmodel_nostream" json:"endpoint"`
	ConcurrentMode bool   `env:"CONCURRENT_MODE" json:"concurrentMode"` // 并发版资源（false 为小时版）

	ASRModel string `env:"ASR_MODEL" envDefault:"bigmodel" json:"asrModel"`

	Timeout time.Duration `env:"TIMEOUT" envDefault:"30s" json:"timeout"`
}

// Enabled 判断是否配置了识别凭证
func (c *SpeechConfig) Enabled() bool {
	if c == nil {
		return false
	}
	return c.AppID != "" && (c.AccessToken != "" || c.APIKey != "")
}
