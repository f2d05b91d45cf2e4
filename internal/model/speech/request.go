package speech

// ASRRequest 一次识别请求，音频通过通道流入，关闭通道即表示说完
type ASRRequest struct {
	SessionID string        `json:"sessionId"`
	Audio     <-chan []byte `json:"-"`
	Format    string        `json:"format"`   // pcm, wav, webm, ...
	Language  string        `json:"language"` // zh-CN, en-US, ...
}
