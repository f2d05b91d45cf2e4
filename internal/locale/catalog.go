// Package locale holds the per-language UI strings and canned replies.
package locale

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sync"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed locales/*.yaml
var files embed.FS

// Catalog serves translated strings and reply tables for the registered languages.
type Catalog struct {
	bundle     *i18n.Bundle
	tables     map[string]*Table
	order      []string
	mu         sync.Mutex
	localizers map[string]*i18n.Localizer
}

// Load parses the embedded locale files.
func Load() (*Catalog, error) {
	return LoadFS(files, "locales")
}

// LoadFS parses every *.yaml file under dir. English must be present; it is the fallback.
func LoadFS(fsys fs.FS, dir string) (*Catalog, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read locales: %w", err)
	}

	c := &Catalog{
		bundle:     i18n.NewBundle(language.English),
		tables:     make(map[string]*Table),
		localizers: make(map[string]*i18n.Localizer),
	}

	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".yaml" {
			continue
		}
		data, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", entry.Name(), err)
		}
		table, err := parseTable(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", entry.Name(), err)
		}

		tag, err := language.Parse(table.Code)
		if err != nil {
			return nil, fmt.Errorf("%s: bad language code: %w", entry.Name(), err)
		}
		msgs := make([]*i18n.Message, 0, len(table.Strings))
		for id, text := range table.Strings {
			msgs = append(msgs, &i18n.Message{ID: id, Other: text})
		}
		if err := c.bundle.AddMessages(tag, msgs...); err != nil {
			return nil, fmt.Errorf("register %s: %w", table.Code, err)
		}

		c.tables[table.Code] = table
		c.order = append(c.order, table.Code)
	}

	if _, ok := c.tables["en"]; !ok {
		return nil, fmt.Errorf("english locale is required")
	}
	return c, nil
}

// Has reports whether a locale file exists for code.
func (c *Catalog) Has(code string) bool {
	_, ok := c.tables[code]
	return ok
}

// Table returns the reply table for code, falling back to English.
func (c *Catalog) Table(code string) *Table {
	if t, ok := c.tables[code]; ok {
		return t
	}
	return c.tables["en"]
}

// Text localizes key into code. Unknown languages and missing keys fall back
// to English; an unknown key returns the key itself.
func (c *Catalog) Text(code, key string) string {
	// A missing translation still yields the English text alongside the error.
	msg, _ := c.localizer(code).Localize(&i18n.LocalizeConfig{MessageID: key})
	if msg == "" {
		return key
	}
	return msg
}

// Codes lists the loaded locale codes in file order.
func (c *Catalog) Codes() []string {
	return append([]string(nil), c.order...)
}

// Strings returns every UI string for code, resolved with fallback.
func (c *Catalog) Strings(code string) map[string]string {
	out := make(map[string]string, len(Keys))
	for _, key := range Keys {
		out[key] = c.Text(code, key)
	}
	return out
}

// Questions returns the common-question list for code.
func (c *Catalog) Questions(code string) []string {
	return append([]string(nil), c.Table(code).Questions...)
}

// Match picks the best supported language for an Accept-Language header
// value, restricted to the allowed codes. It returns "" when nothing matches.
func (c *Catalog) Match(acceptLanguage string, allowed []string) string {
	prefs, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(prefs) == 0 {
		return ""
	}

	supported := make([]language.Tag, 0, len(allowed))
	for _, code := range allowed {
		if !c.Has(code) {
			continue
		}
		if tag, err := language.Parse(code); err == nil {
			supported = append(supported, tag)
		}
	}
	if len(supported) == 0 {
		return ""
	}

	_, idx, confidence := language.NewMatcher(supported).Match(prefs...)
	if confidence == language.No {
		return ""
	}
	base, _ := supported[idx].Base()
	return base.String()
}

func (c *Catalog) localizer(code string) *i18n.Localizer {
	c.mu.Lock()
	defer c.mu.Unlock()
	if l, ok := c.localizers[code]; ok {
		return l
	}
	l := i18n.NewLocalizer(c.bundle, code, "en")
	c.localizers[code] = l
	return l
}
