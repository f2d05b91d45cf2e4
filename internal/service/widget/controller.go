package widget

import (
	"errors"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/zhouzirui/linguabot/backend/internal/locale"
	"github.com/zhouzirui/linguabot/backend/internal/model/chat"
	"github.com/zhouzirui/linguabot/backend/internal/model/language"
	"github.com/zhouzirui/linguabot/backend/pkg/logger"
)

var (
	ErrClosed          = errors.New("widget session closed")
	ErrEmptyMessage    = errors.New("message is empty")
	ErrRateLimited     = errors.New("sending too fast")
	ErrUnknownLanguage = errors.New("unknown language")
	ErrInvalidRating   = errors.New("rating must be between 1 and 5")
	ErrUnknownAction   = errors.New("unknown quick action")
	ErrInvalidTheme    = errors.New("theme must be light or dark")
)

// QuickAction is one of the shortcut buttons under the message list.
type QuickAction string

const (
	ActionCommonQuestions QuickAction = "common"
	ActionLanguage        QuickAction = "language"
	ActionHuman           QuickAction = "human"
	ActionFeedback        QuickAction = "feedback"
)

// Update is delivered to subscribers after every transition.
type Update struct {
	Event Event `json:"event"`
	Prev  State `json:"-"`
	State State `json:"state"`
}

// Deps are the collaborators a Controller needs.
type Deps struct {
	Clock        Clock
	Texts        Texts
	Responder    Responder
	Languages    language.Store
	Connectivity Connectivity
}

// Options describe the session a Controller serves.
type Options struct {
	SessionID string
	Language  string
	Embedded  bool
	Theme     Theme
}

// Controller owns one widget's State. Every mutation goes through Reduce under
// c.mu; deferred effects are scheduled on the Clock and tagged with the epoch
// current at scheduling time, so Close turns all of them into no-ops.
//
// Subscribers are called in transition order, without c.mu held, but must not
// call Controller methods synchronously.
type Controller struct {
	id    string
	cfg   Config
	deps  Deps
	clock Clock

	mu       sync.Mutex
	state    State
	epoch    uint64
	closed   bool
	limiter  *rate.Limiter
	inFlight int
	idle     Timer
	idleGen  uint64
	lastSeen time.Time
	pending  []Update

	subMu   sync.Mutex
	subs    map[int]func(Update)
	nextSub int

	notifyMu sync.Mutex
}

// NewController builds a closed widget in opts.Language (or the registry default).
func NewController(deps Deps, cfg Config, opts Options) *Controller {
	if deps.Clock == nil {
		deps.Clock = RealClock{}
	}
	if deps.Connectivity == nil {
		deps.Connectivity = &OnlineFlag{}
	}
	cfg = cfg.withDefaults()

	lang := deps.Languages.Default().Code
	if l, ok := deps.Languages.Find(opts.Language); ok {
		lang = l.Code
	}
	theme := opts.Theme
	if theme != ThemeDark {
		theme = ThemeLight
	}

	return &Controller{
		id:       opts.SessionID,
		cfg:      cfg,
		deps:     deps,
		clock:    deps.Clock,
		limiter:  rate.NewLimiter(rate.Every(cfg.SendInterval), 1),
		lastSeen: deps.Clock.Now(),
		subs:     make(map[int]func(Update)),
		state: State{
			CurrentLanguage: lang,
			Theme:           theme,
			Embedded:        opts.Embedded,
		},
	}
}

// ID returns the session id the controller was created for.
func (c *Controller) ID() string { return c.id }

// Snapshot returns a deep copy of the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Clone()
}

// Language returns the current language code.
func (c *Controller) Language() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.CurrentLanguage
}

// LastActivity is the instant of the last user-driven call.
func (c *Controller) LastActivity() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSeen
}

// Subscribe registers fn for future updates. The returned func unsubscribes.
func (c *Controller) Subscribe(fn func(Update)) func() {
	c.subMu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.subMu.Unlock()

	return func() {
		c.subMu.Lock()
		delete(c.subs, id)
		c.subMu.Unlock()
	}
}

// Toggle opens or closes the panel. Opening schedules the welcome message.
func (c *Controller) Toggle() error {
	c.mu.Lock()
	defer c.unlockAndNotify()
	if c.closed {
		return ErrClosed
	}
	c.touchLocked()

	c.dispatchLocked(Event{Kind: EventToggled})
	if c.state.IsOpen {
		c.afterLocked(c.cfg.WelcomeDelay, func() {
			c.appendBotLocked(c.textLocked(locale.KeyWelcome))
		})
	}
	return nil
}

// SendUserMessage records a user message and schedules the reply. A send that
// comes sooner than the send interval after the last accepted one only adds a
// rate-limit notice.
func (c *Controller) SendUserMessage(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}

	c.mu.Lock()
	defer c.unlockAndNotify()
	if c.closed {
		return ErrClosed
	}
	c.touchLocked()

	if !c.limiter.AllowN(c.clock.Now(), 1) {
		c.appendBotLocked(c.textLocked(locale.KeyRateLimited))
		return ErrRateLimited
	}

	c.appendLocked(chat.SenderUser, text)
	c.dispatchLocked(Event{Kind: EventDraftChanged, Text: ""})
	if c.state.ShowQuestions {
		c.dispatchLocked(Event{Kind: EventQuestionsShown, Flag: false})
	}
	c.respondLocked(text)
	return nil
}

// respondLocked produces the bot reply to text. Offline renderers get the
// offline notice at once; otherwise the reply lands after the responder delay.
func (c *Controller) respondLocked(text string) {
	c.inFlight++
	c.setTypingLocked(true)

	if !c.deps.Connectivity.Online() {
		c.inFlight--
		c.setTypingLocked(c.inFlight > 0)
		c.appendBotLocked(c.textLocked(locale.KeyOffline))
		return
	}

	c.afterLocked(c.deps.Responder.Delay(), func() {
		c.inFlight--
		c.setTypingLocked(c.inFlight > 0)
		reply := c.deps.Responder.Select(text, c.state.CurrentLanguage, c.state.ConnectedToHuman)
		c.appendBotLocked(reply)
	})
}

// ChangeLanguage switches the language at once. The confirmation arrives
// later and is rendered in the new language.
func (c *Controller) ChangeLanguage(code string) error {
	lang, ok := c.deps.Languages.Find(code)
	if !ok {
		return ErrUnknownLanguage
	}

	c.mu.Lock()
	defer c.unlockAndNotify()
	if c.closed {
		return ErrClosed
	}
	c.touchLocked()

	c.dispatchLocked(Event{Kind: EventLanguageChanged, Text: lang.Code})
	confirm := c.deps.Texts.Text(lang.Code, locale.KeyLanguageChanged)
	c.afterLocked(c.cfg.LanguageDelay, func() {
		c.appendBotLocked(confirm)
	})
	return nil
}

// RequestHuman switches replies to the agent pool. There is no way back.
// A second request while already connected does nothing.
func (c *Controller) RequestHuman() error {
	c.mu.Lock()
	defer c.unlockAndNotify()
	if c.closed {
		return ErrClosed
	}
	c.touchLocked()
	c.requestHumanLocked()
	return nil
}

func (c *Controller) requestHumanLocked() {
	if c.state.ConnectedToHuman {
		return
	}
	c.dispatchLocked(Event{Kind: EventHumanConnected})
	c.appendBotLocked(c.textLocked(locale.KeyConnectingHuman))

	connected := c.textLocked(locale.KeyHumanConnected)
	c.afterLocked(c.cfg.HandoffDelay, func() {
		c.appendBotLocked(connected)
	})
}

// ShowFeedback opens the rating panel.
func (c *Controller) ShowFeedback() error {
	c.mu.Lock()
	defer c.unlockAndNotify()
	if c.closed {
		return ErrClosed
	}
	c.touchLocked()
	c.dispatchLocked(Event{Kind: EventFeedbackShown, Flag: true})
	return nil
}

// SubmitFeedback accepts a 1-5 rating. Feedback is logged and not stored.
func (c *Controller) SubmitFeedback(rating int, comment string) error {
	if rating < 1 || rating > 5 {
		return ErrInvalidRating
	}

	c.mu.Lock()
	defer c.unlockAndNotify()
	if c.closed {
		return ErrClosed
	}
	c.touchLocked()

	logger.InfoCF("widget", "Feedback submitted", map[string]interface{}{
		"feedback": chat.Feedback{SessionID: c.id, Rating: rating, Comment: comment},
		"language": c.state.CurrentLanguage,
	})

	if c.state.ShowFeedback {
		c.dispatchLocked(Event{Kind: EventFeedbackShown, Flag: false})
	}
	c.appendBotLocked(c.textLocked(locale.KeyThanksFeedback))

	followUp := c.textLocked(locale.KeyAnythingElse)
	c.afterLocked(c.cfg.FollowUpDelay, func() {
		c.appendBotLocked(followUp)
	})
	return nil
}

// QuickAction runs one of the shortcut buttons.
func (c *Controller) QuickAction(action QuickAction) error {
	c.mu.Lock()
	defer c.unlockAndNotify()
	if c.closed {
		return ErrClosed
	}

	switch action {
	case ActionCommonQuestions:
		c.dispatchLocked(Event{Kind: EventQuestionsShown, Flag: true})
		c.appendBotLocked(c.textLocked(locale.KeySelectQuestion))
	case ActionLanguage:
		c.appendBotLocked(c.textLocked(locale.KeyLanguageHint))
	case ActionHuman:
		c.requestHumanLocked()
	case ActionFeedback:
		c.dispatchLocked(Event{Kind: EventFeedbackShown, Flag: true})
	default:
		return ErrUnknownAction
	}
	c.touchLocked()
	return nil
}

// SelectQuestion sends one of the common questions on the user's behalf.
// It bypasses the send rate limit.
func (c *Controller) SelectQuestion(question string) error {
	question = strings.TrimSpace(question)
	if question == "" {
		return ErrEmptyMessage
	}

	c.mu.Lock()
	defer c.unlockAndNotify()
	if c.closed {
		return ErrClosed
	}
	c.touchLocked()

	c.dispatchLocked(Event{Kind: EventQuestionsShown, Flag: false})
	c.dispatchLocked(Event{Kind: EventDraftChanged, Text: question})
	c.afterLocked(c.cfg.QuestionDelay, func() {
		c.appendLocked(chat.SenderUser, question)
		if c.state.Draft == question {
			c.dispatchLocked(Event{Kind: EventDraftChanged, Text: ""})
		}
		c.respondLocked(question)
	})
	return nil
}

// SetDraft mirrors the input field.
func (c *Controller) SetDraft(text string) error {
	c.mu.Lock()
	defer c.unlockAndNotify()
	if c.closed {
		return ErrClosed
	}
	if c.state.Draft != text {
		c.dispatchLocked(Event{Kind: EventDraftChanged, Text: text})
	}
	return nil
}

// SetListening mirrors the voice adapter's listening flag.
func (c *Controller) SetListening(on bool) {
	c.mu.Lock()
	defer c.unlockAndNotify()
	if c.closed || c.state.Listening == on {
		return
	}
	c.dispatchLocked(Event{Kind: EventListeningChanged, Flag: on})
}

// SetTheme records the colour scheme detected for the host page.
func (c *Controller) SetTheme(theme Theme) error {
	if theme != ThemeLight && theme != ThemeDark {
		return ErrInvalidTheme
	}
	c.mu.Lock()
	defer c.unlockAndNotify()
	if c.closed {
		return ErrClosed
	}
	if c.state.Theme != theme {
		c.dispatchLocked(Event{Kind: EventThemeChanged, Text: string(theme)})
	}
	return nil
}

// Announce appends the bot message stored under key, in the current language.
func (c *Controller) Announce(key string) {
	c.mu.Lock()
	defer c.unlockAndNotify()
	if c.closed {
		return
	}
	c.appendBotLocked(c.textLocked(key))
}

// Close tears the controller down. Pending callbacks become no-ops.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.epoch++
	if c.idle != nil {
		c.idle.Stop()
		c.idle = nil
	}

	c.subMu.Lock()
	clear(c.subs)
	c.subMu.Unlock()
}

func (c *Controller) touchLocked() {
	c.lastSeen = c.clock.Now()
}

func (c *Controller) textLocked(key string) string {
	return c.deps.Texts.Text(c.state.CurrentLanguage, key)
}

func (c *Controller) setTypingLocked(on bool) {
	if c.state.IsTyping != on {
		c.dispatchLocked(Event{Kind: EventTypingChanged, Flag: on})
	}
}

func (c *Controller) appendBotLocked(content string) {
	c.appendLocked(chat.SenderBot, content)
}

// appendLocked adds a message and re-arms the inactivity timer.
func (c *Controller) appendLocked(sender chat.Sender, content string) {
	msg := chat.NewMessage(sender, content, c.state.CurrentLanguage, c.clock.Now())
	c.dispatchLocked(Event{Kind: EventMessageAppended, Message: msg})
	c.armIdleLocked()
}

func (c *Controller) armIdleLocked() {
	if c.idle != nil {
		c.idle.Stop()
	}
	c.idleGen++
	gen := c.idleGen
	c.idle = c.afterLocked(c.cfg.InactivityTimeout, func() {
		if gen != c.idleGen {
			return
		}
		c.idle = nil
		if c.state.IsOpen && len(c.state.Messages) > 0 {
			c.appendBotLocked(c.textLocked(locale.KeyStillThere))
		}
	})
}

func (c *Controller) dispatchLocked(ev Event) {
	prev := c.state
	c.state = Reduce(c.state, ev)
	c.pending = append(c.pending, Update{Event: ev, Prev: prev, State: c.state})
}

// afterLocked schedules fn to run with c.mu held, unless the controller was
// closed in between.
func (c *Controller) afterLocked(d time.Duration, fn func()) Timer {
	epoch := c.epoch
	return c.clock.AfterFunc(d, func() {
		c.mu.Lock()
		defer c.unlockAndNotify()
		if c.closed || c.epoch != epoch {
			return
		}
		fn()
	})
}

// unlockAndNotify releases c.mu and delivers queued updates. notifyMu is taken
// before c.mu is released so deliveries keep transition order.
func (c *Controller) unlockAndNotify() {
	updates := c.pending
	c.pending = nil
	if len(updates) == 0 {
		c.mu.Unlock()
		return
	}

	c.subMu.Lock()
	subs := make([]func(Update), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.subMu.Unlock()

	c.notifyMu.Lock()
	c.mu.Unlock()
	defer c.notifyMu.Unlock()

	for _, u := range updates {
		for _, fn := range subs {
			fn(u)
		}
	}
}
