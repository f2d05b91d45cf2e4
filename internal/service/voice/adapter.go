// Package voice turns recognised speech into the widget's input draft.
package voice

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/zhouzirui/linguabot/backend/internal/locale"
	"github.com/zhouzirui/linguabot/backend/pkg/logger"
)

var (
	ErrUnsupported  = errors.New("voice input not supported")
	ErrNotListening = errors.New("no active recognition session")
	ErrBufferFull   = errors.New("audio buffer full")
	ErrBusy         = errors.New("previous recognition still finishing")
)

// DefaultMaxUtterance bounds a single recognition session.
const DefaultMaxUtterance = 30 * time.Second

const audioBuffer = 256

// Recognizer is the speech-to-text capability. It consumes audio until the
// channel is closed and returns the transcript.
type Recognizer interface {
	Recognize(ctx context.Context, lang string, audio <-chan []byte) (string, error)
}

// RecognizerFunc adapts a function to Recognizer.
type RecognizerFunc func(ctx context.Context, lang string, audio <-chan []byte) (string, error)

func (f RecognizerFunc) Recognize(ctx context.Context, lang string, audio <-chan []byte) (string, error) {
	return f(ctx, lang, audio)
}

// Target is the conversation the adapter writes into.
type Target interface {
	Language() string
	SetListening(on bool)
	SetDraft(text string) error
	Announce(key string)
}

// Adapter runs at most one recognition session at a time. A nil Recognizer
// makes it the unsupported variant.
type Adapter struct {
	rec          Recognizer
	target       Target
	maxUtterance time.Duration

	mu      sync.Mutex
	gen     uint64
	audio   chan []byte
	running bool
	cancel  context.CancelFunc
	closed  bool
	session string
}

// New builds an adapter for target. rec may be nil.
func New(rec Recognizer, target Target, session string) *Adapter {
	return &Adapter{
		rec:          rec,
		target:       target,
		maxUtterance: DefaultMaxUtterance,
		session:      session,
	}
}

// WithMaxUtterance overrides the per-session deadline.
func (a *Adapter) WithMaxUtterance(d time.Duration) *Adapter {
	if d > 0 {
		a.maxUtterance = d
	}
	return a
}

// Supported reports whether a recognizer was injected.
func (a *Adapter) Supported() bool { return a.rec != nil }

// Listening reports whether a session is accepting audio.
func (a *Adapter) Listening() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.audio != nil
}

// Start begins a session in the target's current language. Calling it while
// a session is active stops that session instead. A stopped session that has
// not reported its transcript yet blocks a new one with ErrBusy. Without a
// recognizer it only announces that voice input is unavailable.
func (a *Adapter) Start() error {
	if a.rec == nil {
		a.target.Announce(locale.KeyVoiceNotSupported)
		return ErrUnsupported
	}

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return ErrUnsupported
	}
	if a.audio != nil {
		a.mu.Unlock()
		a.Stop()
		return nil
	}
	if a.running {
		a.mu.Unlock()
		return ErrBusy
	}

	a.gen++
	gen := a.gen
	audio := make(chan []byte, audioBuffer)
	ctx, cancel := context.WithTimeout(context.Background(), a.maxUtterance)
	a.audio = audio
	a.running = true
	a.cancel = cancel
	a.mu.Unlock()

	lang := a.target.Language()
	a.target.SetListening(true)
	logger.DebugCF("voice", "Recognition started", map[string]interface{}{"session": a.session, "language": lang})

	go func() {
		defer cancel()
		text, err := a.rec.Recognize(ctx, lang, audio)
		a.finish(gen, text, err)
	}()
	return nil
}

// Toggle is Start with its toggle semantics spelled out for callers.
func (a *Adapter) Toggle() error { return a.Start() }

// Feed hands an audio chunk to the active session.
func (a *Adapter) Feed(chunk []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.audio == nil {
		return ErrNotListening
	}
	select {
	case a.audio <- chunk:
		return nil
	default:
		return ErrBufferFull
	}
}

// Stop ends the utterance. The recognizer still reports the transcript of
// what it has received.
func (a *Adapter) Stop() {
	a.mu.Lock()
	if a.audio == nil {
		a.mu.Unlock()
		return
	}
	close(a.audio)
	a.audio = nil
	a.mu.Unlock()

	a.target.SetListening(false)
}

// Close abandons any session without reporting its outcome.
func (a *Adapter) Close() {
	a.mu.Lock()
	a.closed = true
	a.gen++
	if a.audio != nil {
		close(a.audio)
		a.audio = nil
	}
	cancel := a.cancel
	a.cancel = nil
	a.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

func (a *Adapter) finish(gen uint64, text string, err error) {
	a.mu.Lock()
	a.running = false
	if gen != a.gen {
		a.mu.Unlock()
		return
	}
	if a.audio != nil {
		close(a.audio)
		a.audio = nil
	}
	a.mu.Unlock()

	a.target.SetListening(false)

	if err != nil {
		logger.WarnCF("voice", "Recognition failed", map[string]interface{}{
			"session": a.session,
			"error":   err.Error(),
		})
		a.target.Announce(locale.KeyVoiceNotSupported)
		return
	}

	if text = strings.TrimSpace(text); text != "" {
		if err := a.target.SetDraft(text); err != nil {
			logger.WarnCF("voice", "Could not set draft", map[string]interface{}{"session": a.session, "error": err.Error()})
		}
	}
}
