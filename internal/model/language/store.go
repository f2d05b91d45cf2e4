package language

import "strings"

// Store exposes the language registry to handlers and services.
type Store interface {
	List() []Language
	Find(code string) (Language, bool)
	Default() Language
}

// MemoryStore implements Store over a fixed slice.
type MemoryStore struct {
	items []Language
}

// NewMemoryStore returns a MemoryStore preloaded with items.
func NewMemoryStore(items []Language) *MemoryStore {
	return &MemoryStore{items: append([]Language(nil), items...)}
}

// List returns a copy of the registry in display order.
func (s *MemoryStore) List() []Language {
	return append([]Language(nil), s.items...)
}

// Find looks a language up by code, ignoring case.
func (s *MemoryStore) Find(code string) (Language, bool) {
	code = strings.ToLower(strings.TrimSpace(code))
	for _, item := range s.items {
		if item.Code == code {
			return item, true
		}
	}
	return Language{}, false
}

// Default returns the first registry entry.
func (s *MemoryStore) Default() Language {
	if len(s.items) == 0 {
		return Language{Code: DefaultCode, Name: "English"}
	}
	return s.items[0]
}

// Codes lists registry codes in order.
func Codes(s Store) []string {
	items := s.List()
	codes := make([]string, 0, len(items))
	for _, item := range items {
		codes = append(codes, item.Code)
	}
	return codes
}
