package widget

import (
	"time"
)

// Config holds the timing constants of a conversation.
type Config struct {
	WelcomeDelay      time.Duration `env:"WELCOME_DELAY" envDefault:"500ms"`
	LanguageDelay     time.Duration `env:"LANGUAGE_CONFIRM_DELAY" envDefault:"300ms"`
	HandoffDelay      time.Duration `env:"HANDOFF_DELAY" envDefault:"2s"`
	FollowUpDelay     time.Duration `env:"FEEDBACK_FOLLOWUP_DELAY" envDefault:"1s"`
	QuestionDelay     time.Duration `env:"QUESTION_DELAY" envDefault:"100ms"`
	InactivityTimeout time.Duration `env:"INACTIVITY_TIMEOUT" envDefault:"5m"`
	SendInterval      time.Duration `env:"SEND_INTERVAL" envDefault:"1s"`
}

// DefaultConfig mirrors the envDefault tags.
func DefaultConfig() Config {
	return Config{
		WelcomeDelay:      500 * time.Millisecond,
		LanguageDelay:     300 * time.Millisecond,
		HandoffDelay:      2 * time.Second,
		FollowUpDelay:     time.Second,
		QuestionDelay:     100 * time.Millisecond,
		InactivityTimeout: 5 * time.Minute,
		SendInterval:      time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.WelcomeDelay <= 0 {
		c.WelcomeDelay = d.WelcomeDelay
	}
	if c.LanguageDelay <= 0 {
		c.LanguageDelay = d.LanguageDelay
	}
	if c.HandoffDelay <= 0 {
		c.HandoffDelay = d.HandoffDelay
	}
	if c.FollowUpDelay <= 0 {
		c.FollowUpDelay = d.FollowUpDelay
	}
	if c.QuestionDelay <= 0 {
		c.QuestionDelay = d.QuestionDelay
	}
	if c.InactivityTimeout <= 0 {
		c.InactivityTimeout = d.InactivityTimeout
	}
	if c.SendInterval <= 0 {
		c.SendInterval = d.SendInterval
	}
	return c
}
