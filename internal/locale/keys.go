package locale

// UI string keys carried by every locale file.
const (
	KeyTitle             = "title"
	KeyNeedHelp          = "needHelp"
	KeyPlaceholder       = "placeholder"
	KeyListening         = "listening"
	KeyWelcome           = "welcome"
	KeyStillThere        = "stillThere"
	KeyVoiceNotSupported = "voiceNotSupported"
	KeyOffline           = "offline"
	KeyNetworkError      = "networkError"
	KeyRateLimited       = "rateLimited"
	KeyLanguageChanged   = "languageChanged"
	KeySelectQuestion    = "selectQuestion"
	KeyLanguageHint      = "languageHint"
	KeyConnectingHuman   = "connectingHuman"
	KeyHumanConnected    = "humanConnected"
	KeyThanksFeedback    = "thanksFeedback"
	KeyAnythingElse      = "anythingElse"
	KeyFeedback          = "feedback"
	KeySubmitFeedback    = "submitFeedback"
	KeyCommonQuestions   = "commonQuestions"
	KeyChangeLanguage    = "changeLanguage"
	KeyTalkToHuman       = "talkToHuman"
	KeyStatusOnline      = "statusOnline"
	KeyStatusHuman       = "statusHuman"
)

// Keys lists every required UI key.
var Keys = []string{
	KeyTitle, KeyNeedHelp, KeyPlaceholder, KeyListening, KeyWelcome,
	KeyStillThere, KeyVoiceNotSupported, KeyOffline, KeyNetworkError,
	KeyRateLimited, KeyLanguageChanged, KeySelectQuestion, KeyLanguageHint,
	KeyConnectingHuman, KeyHumanConnected, KeyThanksFeedback, KeyAnythingElse,
	KeyFeedback, KeySubmitFeedback, KeyCommonQuestions, KeyChangeLanguage,
	KeyTalkToHuman, KeyStatusOnline, KeyStatusHuman,
}

// TopicOrder is the priority in which topics are tested against user input.
var TopicOrder = []string{"greeting", "order", "payment", "return", "shipping", "hours"}
