// Package widget owns the conversation state of a single chat widget.
package widget

import (
	"slices"

	"github.com/zhouzirui/linguabot/backend/internal/model/chat"
)

// Theme is the colour scheme the widget renders with.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// Phase is the coarse state the panel is in.
type Phase string

const (
	PhaseClosed           Phase = "closed"
	PhaseOpenIdle         Phase = "open_idle"
	PhaseOpenTyping       Phase = "open_typing"
	PhaseAwaitingFeedback Phase = "open_awaiting_feedback"
)

// State is the single source of truth for a widget. Values are treated as
// immutable: Reduce always returns a new Messages slice when it appends.
type State struct {
	IsOpen           bool           `json:"isOpen"`
	Messages         []chat.Message `json:"messages"`
	CurrentLanguage  string         `json:"currentLanguage"`
	IsTyping         bool           `json:"isTyping"`
	HasNewMessages   bool           `json:"hasNewMessages"`
	ShowQuestions    bool           `json:"showQuestions"`
	ShowFeedback     bool           `json:"showFeedback"`
	ConnectedToHuman bool           `json:"connectedToHuman"`
	Listening        bool           `json:"listening"`
	Draft            string         `json:"draft"`
	Theme            Theme          `json:"theme"`
	Embedded         bool           `json:"embedded"`
}

// Phase derives the panel phase from the flags.
func (s State) Phase() Phase {
	switch {
	case !s.IsOpen:
		return PhaseClosed
	case s.IsTyping:
		return PhaseOpenTyping
	case s.ShowFeedback:
		return PhaseAwaitingFeedback
	default:
		return PhaseOpenIdle
	}
}

// Clone returns a copy that shares nothing mutable with s.
func (s State) Clone() State {
	s.Messages = slices.Clone(s.Messages)
	return s
}

// EventKind names a state transition.
type EventKind string

const (
	EventToggled          EventKind = "toggled"
	EventMessageAppended  EventKind = "message_appended"
	EventTypingChanged    EventKind = "typing_changed"
	EventLanguageChanged  EventKind = "language_changed"
	EventHumanConnected   EventKind = "human_connected"
	EventQuestionsShown   EventKind = "questions_shown"
	EventFeedbackShown    EventKind = "feedback_shown"
	EventListeningChanged EventKind = "listening_changed"
	EventDraftChanged     EventKind = "draft_changed"
	EventThemeChanged     EventKind = "theme_changed"
)

// Event is the input of Reduce. Only the payload field matching Kind is read.
type Event struct {
	Kind    EventKind    `json:"kind"`
	Message chat.Message `json:"message,omitzero"`
	Flag    bool         `json:"flag,omitempty"`
	Text    string       `json:"text,omitempty"`
}

// Reduce applies ev to s and returns the resulting state. It has no side effects.
func Reduce(s State, ev Event) State {
	switch ev.Kind {
	case EventToggled:
		s.IsOpen = !s.IsOpen
		if s.IsOpen {
			s.HasNewMessages = false
		}
	case EventMessageAppended:
		n := len(s.Messages)
		s.Messages = append(s.Messages[:n:n], ev.Message)
		if ev.Message.IsBot() && !s.IsOpen {
			s.HasNewMessages = true
		}
	case EventTypingChanged:
		s.IsTyping = ev.Flag
	case EventLanguageChanged:
		s.CurrentLanguage = ev.Text
	case EventHumanConnected:
		s.ConnectedToHuman = true
	case EventQuestionsShown:
		s.ShowQuestions = ev.Flag
	case EventFeedbackShown:
		s.ShowFeedback = ev.Flag
	case EventListeningChanged:
		s.Listening = ev.Flag
	case EventDraftChanged:
		s.Draft = ev.Text
	case EventThemeChanged:
		s.Theme = Theme(ev.Text)
	}
	return s
}
