// Package bridge reports the widget's rendered size to the page embedding it.
package bridge

import (
	"errors"
	"math"
	"sync"
	"time"

	"github.com/zhouzirui/linguabot/backend/internal/service/widget"
	"github.com/zhouzirui/linguabot/backend/pkg/logger"
)

// MessageType is the discriminator the host script listens for.
const MessageType = "CHATBOT_RESIZE"

const (
	DefaultDebounce = 100 * time.Millisecond

	closedMinWidth  = 80
	closedMinHeight = 80
	openMinWidth    = 400
	openMinHeight   = 600
)

// ErrNoParent is returned by a Poster when the widget is not framed.
var ErrNoParent = errors.New("no parent frame")

// Size is a rendered bounding box in CSS pixels.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ResizeMessage is posted to the parent frame.
type ResizeMessage struct {
	Type   string  `json:"type"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	IsOpen bool    `json:"isOpen"`
}

// Measurer reads the widget's current bounding box.
type Measurer interface {
	Measure() (Size, error)
}

// Poster delivers a message to the parent frame with a wildcard target origin.
type Poster interface {
	Post(ResizeMessage) error
}

// PosterFunc adapts a function to Poster.
type PosterFunc func(ResizeMessage) error

func (f PosterFunc) Post(m ResizeMessage) error { return f(m) }

// Source is the part of widget.Controller the bridge watches.
type Source interface {
	Subscribe(func(widget.Update)) func()
	Snapshot() widget.State
}

// Bridge debounces footprint changes and posts the floored size. Delivery
// failures are logged and dropped.
type Bridge struct {
	clock    widget.Clock
	debounce time.Duration
	measurer Measurer
	poster   Poster
	session  string

	mu          sync.Mutex
	isOpen      bool
	timer       widget.Timer
	gen         uint64
	closed      bool
	unsubscribe func()
}

// Option customises a Bridge.
type Option func(*Bridge)

func WithDebounce(d time.Duration) Option {
	return func(b *Bridge) {
		if d > 0 {
			b.debounce = d
		}
	}
}

func WithSession(id string) Option {
	return func(b *Bridge) { b.session = id }
}

func New(clock widget.Clock, measurer Measurer, poster Poster, opts ...Option) *Bridge {
	if clock == nil {
		clock = widget.RealClock{}
	}
	b := &Bridge{
		clock:    clock,
		debounce: DefaultDebounce,
		measurer: measurer,
		poster:   poster,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Attach starts watching src. It does nothing and returns false when the
// session is not embedded. An initial report is scheduled on success.
func (b *Bridge) Attach(src Source) bool {
	state := src.Snapshot()
	if !state.Embedded {
		return false
	}

	b.mu.Lock()
	b.isOpen = state.IsOpen
	b.mu.Unlock()

	unsubscribe := src.Subscribe(b.observe)

	b.mu.Lock()
	b.unsubscribe = unsubscribe
	b.mu.Unlock()

	b.schedule()
	return true
}

// HostResized is called when the host window changes size.
func (b *Bridge) HostResized() {
	b.schedule()
}

// Close cancels a pending report and detaches from the controller.
func (b *Bridge) Close() {
	b.mu.Lock()
	b.closed = true
	b.gen++
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	unsubscribe := b.unsubscribe
	b.unsubscribe = nil
	b.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

func (b *Bridge) observe(u widget.Update) {
	b.mu.Lock()
	b.isOpen = u.State.IsOpen
	b.mu.Unlock()

	if footprintChanged(u.Prev, u.State) {
		b.schedule()
	}
}

// footprintChanged reports whether a transition can alter the rendered size.
func footprintChanged(prev, next widget.State) bool {
	return prev.IsOpen != next.IsOpen ||
		len(prev.Messages) != len(next.Messages) ||
		prev.ShowFeedback != next.ShowFeedback ||
		prev.ShowQuestions != next.ShowQuestions
}

// schedule (re)starts the debounce window.
func (b *Bridge) schedule() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	if b.timer != nil {
		b.timer.Stop()
	}
	b.gen++
	gen := b.gen
	b.timer = b.clock.AfterFunc(b.debounce, func() {
		b.mu.Lock()
		if b.closed || gen != b.gen {
			b.mu.Unlock()
			return
		}
		b.timer = nil
		isOpen := b.isOpen
		b.mu.Unlock()

		b.report(isOpen)
	})
}

func (b *Bridge) report(isOpen bool) {
	size, err := b.measurer.Measure()
	if err != nil {
		logger.WarnCF("bridge", "Could not measure widget", map[string]interface{}{
			"session": b.session,
			"error":   err.Error(),
		})
		return
	}

	msg := Floor(size, isOpen)
	if err := b.poster.Post(msg); err != nil {
		if errors.Is(err, ErrNoParent) {
			return
		}
		logger.WarnCF("bridge", "Could not send size to parent", map[string]interface{}{
			"session": b.session,
			"error":   err.Error(),
		})
		return
	}
	logger.DebugCF("bridge", "Posted size", map[string]interface{}{
		"session": b.session,
		"width":   msg.Width,
		"height":  msg.Height,
		"isOpen":  msg.IsOpen,
	})
}

// Floor builds the resize message, applying the minimum box for the panel state.
func Floor(size Size, isOpen bool) ResizeMessage {
	minW, minH := float64(closedMinWidth), float64(closedMinHeight)
	if isOpen {
		minW, minH = openMinWidth, openMinHeight
	}
	return ResizeMessage{
		Type:   MessageType,
		Width:  math.Max(size.Width, minW),
		Height: math.Max(size.Height, minH),
		IsOpen: isOpen,
	}
}

// ReportedLayout is a Measurer fed by the renderer's own layout reports.
// Before the first report it measures as an empty box.
type ReportedLayout struct {
	mu   sync.Mutex
	size Size
}

func (r *ReportedLayout) Report(size Size) {
	r.mu.Lock()
	r.size = size
	r.mu.Unlock()
}

func (r *ReportedLayout) Measure() (Size, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.size, nil
}
