package speech

import "time"

// ASRResponse 语音识别结果
type ASRResponse struct {
	SessionID string    `json:"sessionId"`
	Text      string    `json:"text"`
	Duration  int64     `json:"duration"` // milliseconds
	LogID     string    `json:"logId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
