package language

// Language is an entry of the fixed language registry.
type Language struct {
	Code string `json:"code"`
	Name string `json:"name"`
	Flag string `json:"flag"`
}

// DefaultCode is the language a session starts in when nothing better matches.
const DefaultCode = "en"

// Seed returns the languages the widget ships with. The first entry is the default.
func Seed() []Language {
	return []Language{
		{Code: "en", Name: "English", Flag: "🇺🇸"},
		{Code: "es", Name: "Español", Flag: "🇪🇸"},
		{Code: "fr", Name: "Français", Flag: "🇫🇷"},
		{Code: "de", Name: "Deutsch", Flag: "🇩🇪"},
		{Code: "hi", Name: "हिन्दी", Flag: "🇮🇳"},
		{Code: "zh", Name: "中文", Flag: "🇨🇳"},
	}
}
