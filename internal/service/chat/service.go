package chat

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zhouzirui/linguabot/backend/internal/model/chat"
	"github.com/zhouzirui/linguabot/backend/internal/model/language"
	"github.com/zhouzirui/linguabot/backend/internal/service/bridge"
	"github.com/zhouzirui/linguabot/backend/internal/service/voice"
	"github.com/zhouzirui/linguabot/backend/internal/service/widget"
	"github.com/zhouzirui/linguabot/backend/pkg/logger"
)

var ErrSessionNotFound = errors.New("session not found")

const (
	DefaultSessionTTL    = 24 * time.Hour
	DefaultSweepInterval = time.Minute
)

// Locales is the translation table as the registry sees it.
type Locales interface {
	widget.Texts
	Match(acceptLanguage string, allowed []string) string
}

// Recognizers hands out a speech recognizer per session. A nil result means
// voice input is unavailable.
type Recognizers interface {
	Recognizer(sessionID string) voice.Recognizer
}

// Deps are shared by every session the registry creates.
type Deps struct {
	Locales   Locales
	Languages language.Store
	Responder widget.Responder
	Speech    Recognizers
	Clock     widget.Clock
}

// Config tunes the registry and the conversations it hosts.
type Config struct {
	Widget         widget.Config
	SessionTTL     time.Duration
	SweepInterval  time.Duration
	ResizeDebounce time.Duration
}

// CreateOptions describe a new widget session.
type CreateOptions struct {
	Language       string
	AcceptLanguage string
	Embedded       bool
	Theme          widget.Theme
}

// Service keeps one live conversation per widget session in memory.
type Service struct {
	deps Deps
	cfg  Config

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewService bootstraps an empty registry.
func NewService(deps Deps, cfg Config) *Service {
	if deps.Clock == nil {
		deps.Clock = widget.RealClock{}
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = DefaultSessionTTL
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultSweepInterval
	}
	return &Service{
		deps:     deps,
		cfg:      cfg,
		sessions: make(map[string]*Session),
	}
}

// CreateSession provisions a closed widget. The starting language is the
// explicit choice if known, else the best Accept-Language match, else the
// registry default.
func (s *Service) CreateSession(_ context.Context, opts CreateOptions) (*Session, error) {
	id := uuid.NewString()
	lang := s.resolveLanguage(opts)

	online := &widget.OnlineFlag{}
	ctrl := widget.NewController(widget.Deps{
		Clock:        s.deps.Clock,
		Texts:        s.deps.Locales,
		Responder:    s.deps.Responder,
		Languages:    s.deps.Languages,
		Connectivity: online,
	}, s.cfg.Widget, widget.Options{
		SessionID: id,
		Language:  lang,
		Embedded:  opts.Embedded,
		Theme:     opts.Theme,
	})

	sess := &Session{
		info: chat.Session{
			ID:        id,
			Language:  lang,
			Embedded:  opts.Embedded,
			CreatedAt: s.deps.Clock.Now().UTC(),
		},
		Controller: ctrl,
		Online:     online,
		Layout:     &bridge.ReportedLayout{},
		resizeSubs: make(map[int]func(bridge.ResizeMessage)),
	}

	var rec voice.Recognizer
	if s.deps.Speech != nil {
		rec = s.deps.Speech.Recognizer(id)
	}
	sess.Voice = voice.New(rec, ctrl, id)

	b := bridge.New(s.deps.Clock, sess.Layout, bridge.PosterFunc(sess.post),
		bridge.WithDebounce(s.cfg.ResizeDebounce), bridge.WithSession(id))
	if b.Attach(ctrl) {
		sess.Bridge = b
	}

	s.mu.Lock()
	s.sessions[id] = sess
	s.mu.Unlock()

	logger.InfoCF("chat", "Session created", map[string]interface{}{
		"session_id": id,
		"language":   lang,
		"embedded":   opts.Embedded,
		"voice":      sess.Voice.Supported(),
	})
	return sess, nil
}

func (s *Service) resolveLanguage(opts CreateOptions) string {
	if l, ok := s.deps.Languages.Find(opts.Language); ok {
		return l.Code
	}
	if opts.AcceptLanguage != "" && s.deps.Locales != nil {
		if code := s.deps.Locales.Match(opts.AcceptLanguage, language.Codes(s.deps.Languages)); code != "" {
			return code
		}
	}
	return s.deps.Languages.Default().Code
}

// GetSession retrieves a live session by identifier.
func (s *Service) GetSession(_ context.Context, id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// RemoveSession closes and forgets a session.
func (s *Service) RemoveSession(_ context.Context, id string) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	sess.Close()
	return nil
}

// Len is the number of live sessions.
func (s *Service) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep closes sessions idle for longer than the TTL and returns how many
// were removed.
func (s *Service) Sweep(now time.Time) int {
	var expired []*Session

	s.mu.Lock()
	for id, sess := range s.sessions {
		if now.Sub(sess.Controller.LastActivity()) > s.cfg.SessionTTL {
			expired = append(expired, sess)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, sess := range expired {
		sess.Close()
	}
	if len(expired) > 0 {
		logger.InfoCF("chat", "Expired idle sessions", map[string]interface{}{
			"count": len(expired),
		})
	}
	return len(expired)
}

// Run sweeps on a ticker until ctx is done.
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.Sweep(s.deps.Clock.Now())
		}
	}
}

// Close ends every session.
func (s *Service) Close() {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*Session)
	s.mu.Unlock()

	for _, sess := range sessions {
		sess.Close()
	}
}
