package widget

import (
	"sync/atomic"
	"time"
)

// Texts resolves UI strings for a language.
type Texts interface {
	Text(code, key string) string
}

// Responder produces canned replies and the simulated latency before them.
type Responder interface {
	Select(userText, lang string, humanMode bool) string
	Delay() time.Duration
}

// Connectivity reports whether the renderer currently has network access.
type Connectivity interface {
	Online() bool
}

// OnlineFlag is a Connectivity whose value is pushed by the renderer.
// The zero value reports online.
type OnlineFlag struct {
	offline atomic.Bool
}

func (f *OnlineFlag) Online() bool { return !f.offline.Load() }

func (f *OnlineFlag) Set(online bool) { f.offline.Store(!online) }
