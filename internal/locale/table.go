package locale

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Topic binds keyword substrings to a canned reply.
type Topic struct {
	Keywords []string `yaml:"keywords"`
	Reply    string   `yaml:"reply"`
}

// Table is the parsed content of one locale file.
type Table struct {
	Code            string            `yaml:"code"`
	Strings         map[string]string `yaml:"strings"`
	Topics          map[string]Topic  `yaml:"topics"`
	AgentReplies    []string          `yaml:"agentReplies"`
	FallbackReplies []string          `yaml:"fallbackReplies"`
	Questions       []string          `yaml:"questions"`
}

// parseTable decodes and validates a locale file.
func parseTable(data []byte) (*Table, error) {
	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("decode locale: %w", err)
	}
	t.Code = strings.ToLower(strings.TrimSpace(t.Code))
	if t.Code == "" {
		return nil, fmt.Errorf("locale file missing code")
	}
	for _, key := range Keys {
		if strings.TrimSpace(t.Strings[key]) == "" {
			return nil, fmt.Errorf("locale %s: missing string %q", t.Code, key)
		}
	}
	for _, name := range TopicOrder {
		topic, ok := t.Topics[name]
		if !ok || topic.Reply == "" || len(topic.Keywords) == 0 {
			return nil, fmt.Errorf("locale %s: topic %q incomplete", t.Code, name)
		}
		// Keywords are matched against lowercased input.
		for i, kw := range topic.Keywords {
			topic.Keywords[i] = strings.ToLower(kw)
		}
		t.Topics[name] = topic
	}
	if len(t.AgentReplies) != 4 {
		return nil, fmt.Errorf("locale %s: expected 4 agent replies, got %d", t.Code, len(t.AgentReplies))
	}
	if n := len(t.FallbackReplies); n < 3 || n > 4 {
		return nil, fmt.Errorf("locale %s: expected 3-4 fallback replies, got %d", t.Code, n)
	}
	return &t, nil
}
