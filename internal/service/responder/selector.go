// Package responder picks canned replies for widget conversations.
package responder

import (
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/zhouzirui/linguabot/backend/internal/locale"
)

// Source tells which pool a reply was drawn from.
type Source string

const (
	SourceTopic    Source = "topic"
	SourceFallback Source = "fallback"
	SourceAgent    Source = "agent"
)

// Decision is the outcome of a reply selection.
type Decision struct {
	Text   string
	Topic  string
	Source Source
}

// Tables resolves a language code to its reply table.
type Tables interface {
	Table(code string) *locale.Table
}

const (
	DefaultMinDelay = 1000 * time.Millisecond
	DefaultMaxDelay = 3000 * time.Millisecond
)

// Selector is safe for concurrent use.
type Selector struct {
	tables   Tables
	minDelay time.Duration
	maxDelay time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

// Option customises a Selector.
type Option func(*Selector)

// WithRand injects the random source. Tests use a seeded PCG.
func WithRand(r *rand.Rand) Option {
	return func(s *Selector) { s.rng = r }
}

// WithDelayRange overrides the simulated latency window.
func WithDelayRange(minDelay, maxDelay time.Duration) Option {
	return func(s *Selector) {
		if minDelay < 0 {
			minDelay = 0
		}
		if maxDelay < minDelay {
			maxDelay = minDelay
		}
		s.minDelay, s.maxDelay = minDelay, maxDelay
	}
}

func New(tables Tables, opts ...Option) *Selector {
	s := &Selector{
		tables:   tables,
		minDelay: DefaultMinDelay,
		maxDelay: DefaultMaxDelay,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		now := uint64(time.Now().UnixNano())
		s.rng = rand.New(rand.NewPCG(now, now>>17|1))
	}
	return s
}

// Select returns the reply text for userText.
func (s *Selector) Select(userText, lang string, humanMode bool) string {
	return s.Decide(userText, lang, humanMode).Text
}

// Decide runs the selection rules:
//   - human mode draws uniformly from the agent pool and ignores the text;
//   - otherwise the first topic (in TopicOrder) with a keyword contained in the
//     lowercased text wins;
//   - with no topic hit, a fallback reply is drawn uniformly.
//
// Containment is a plain substring test, so short keywords can match inside
// longer words ("hi" in "shipping").
func (s *Selector) Decide(userText, lang string, humanMode bool) Decision {
	table := s.tables.Table(lang)

	if humanMode {
		return Decision{Text: s.pick(table.AgentReplies), Source: SourceAgent}
	}

	lower := strings.ToLower(userText)
	for _, name := range locale.TopicOrder {
		topic, ok := table.Topics[name]
		if !ok {
			continue
		}
		for _, kw := range topic.Keywords {
			if kw != "" && strings.Contains(lower, kw) {
				return Decision{Text: topic.Reply, Topic: name, Source: SourceTopic}
			}
		}
	}

	return Decision{Text: s.pick(table.FallbackReplies), Source: SourceFallback}
}

// Delay samples the simulated network latency uniformly from the configured window.
func (s *Selector) Delay() time.Duration {
	span := s.maxDelay - s.minDelay
	if span <= 0 {
		return s.minDelay
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.minDelay + time.Duration(s.rng.Int64N(int64(span)+1))
}

func (s *Selector) pick(pool []string) string {
	if len(pool) == 0 {
		return ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return pool[s.rng.IntN(len(pool))]
}
