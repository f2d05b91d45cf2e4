package chat

import (
	"sync"

	"github.com/zhouzirui/linguabot/backend/internal/model/chat"
	"github.com/zhouzirui/linguabot/backend/internal/service/bridge"
	"github.com/zhouzirui/linguabot/backend/internal/service/voice"
	"github.com/zhouzirui/linguabot/backend/internal/service/widget"
)

// Session bundles the conversation with the per-renderer capabilities wired
// into it. Bridge is nil for sessions that are not embedded.
type Session struct {
	info chat.Session

	Controller *widget.Controller
	Voice      *voice.Adapter
	Bridge     *bridge.Bridge
	Layout     *bridge.ReportedLayout
	Online     *widget.OnlineFlag

	mu         sync.Mutex
	resizeSubs map[int]func(bridge.ResizeMessage)
	nextSub    int
	lastResize *bridge.ResizeMessage
}

func (s *Session) ID() string { return s.info.ID }

// Info describes the session with its current language.
func (s *Session) Info() chat.Session {
	return s.InfoIn(s.Controller.Language())
}

// InfoIn describes the session as speaking lang. Controller subscribers use
// it with the language from the update they were handed.
func (s *Session) InfoIn(lang string) chat.Session {
	info := s.info
	info.Language = lang
	return info
}

// SubscribeResize registers a renderer for size notifications. The most
// recent notification, if any, is replayed immediately.
func (s *Session) SubscribeResize(fn func(bridge.ResizeMessage)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.resizeSubs[id] = fn
	last := s.lastResize
	s.mu.Unlock()

	if last != nil {
		fn(*last)
	}
	return func() {
		s.mu.Lock()
		delete(s.resizeSubs, id)
		s.mu.Unlock()
	}
}

// post fans a resize out to connected renderers. With none connected there
// is no parent frame to talk to.
func (s *Session) post(msg bridge.ResizeMessage) error {
	s.mu.Lock()
	s.lastResize = &msg
	subs := make([]func(bridge.ResizeMessage), 0, len(s.resizeSubs))
	for _, fn := range s.resizeSubs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	if len(subs) == 0 {
		return bridge.ErrNoParent
	}
	for _, fn := range subs {
		fn(msg)
	}
	return nil
}

// Close stops voice capture, size reporting and the conversation.
func (s *Session) Close() {
	s.Voice.Close()
	if s.Bridge != nil {
		s.Bridge.Close()
	}
	s.Controller.Close()
}
