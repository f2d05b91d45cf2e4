package chat

import "time"

// Session describes a widget session as exposed over the API.
type Session struct {
	ID        string    `json:"id"`
	Language  string    `json:"language"`
	Embedded  bool      `json:"embedded"`
	CreatedAt time.Time `json:"createdAt"`
}

// Feedback is a rating submitted at the end of a conversation. It is logged
// and not retained.
type Feedback struct {
	SessionID string `json:"sessionId"`
	Rating    int    `json:"rating"`
	Comment   string `json:"comment,omitempty"`
}
