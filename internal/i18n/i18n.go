// Package i18n renders user-facing notices from embedded TOML catalogues.
package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	goi18n "github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/pelletier/go-toml/v2"
	"golang.org/x/text/language"
)

const (
	LangEN = "en"
	LangJA = "ja"
)

//go:embed locales/*.toml
var localeFiles embed.FS

type Manager struct {
	bundle          *goi18n.Bundle
	defaultLanguage string
	supported       []string
	localizers      map[string]*goi18n.Localizer
}

func NewManager(defaultLanguage string) (*Manager, error) {
	return newManagerFromFS(localeFiles, "locales", defaultLanguage)
}

func newManagerFromFS(files fs.FS, dir string, defaultLanguage string) (*Manager, error) {
	bundle := goi18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)

	entries, err := fs.ReadDir(files, dir)
	if err != nil {
		return nil, fmt.Errorf("read locales dir: %w", err)
	}

	manager := &Manager{
		bundle:     bundle,
		localizers: map[string]*goi18n.Localizer{},
	}
	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".toml" {
			continue
		}

		messageFile, err := bundle.LoadMessageFileFS(files, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("parse locale %s: %w", entry.Name(), err)
		}
		if len(messageFile.Messages) == 0 {
			return nil, fmt.Errorf("locale %s is empty", entry.Name())
		}

		base, _ := messageFile.Tag.Base()
		manager.supported = append(manager.supported, base.String())
	}

	if len(manager.supported) == 0 {
		return nil, fmt.Errorf("no locales found in %s", dir)
	}
	sort.Strings(manager.supported)
	if !manager.isSupported(LangEN) {
		return nil, fmt.Errorf("required locale %q missing", LangEN)
	}

	manager.defaultLanguage = LangEN
	manager.defaultLanguage = manager.NormalizeLanguage(defaultLanguage)
	for _, supported := range manager.supported {
		manager.localizers[supported] = goi18n.NewLocalizer(bundle, supported, manager.defaultLanguage, LangEN)
	}
	return manager, nil
}

func (manager *Manager) DefaultLanguage() string {
	return manager.defaultLanguage
}

func (manager *Manager) SupportedLanguages() []string {
	result := make([]string, len(manager.supported))
	copy(result, manager.supported)
	return result
}

func (manager *Manager) NormalizeLanguage(raw string) string {
	normalized := normalizeLanguageTag(raw)
	if manager.isSupported(normalized) {
		return normalized
	}
	return manager.defaultLanguage
}

// DetectFromAcceptLanguage picks the best supported language for an
// Accept-Language header, falling back to the default language.
func (manager *Manager) DetectFromAcceptLanguage(raw string) string {
	tags, _, err := language.ParseAcceptLanguage(raw)
	if err != nil {
		return manager.defaultLanguage
	}
	for _, tag := range tags {
		base, _ := tag.Base()
		if manager.isSupported(base.String()) {
			return base.String()
		}
	}
	return manager.defaultLanguage
}

// Translate renders key in lang. Unknown keys come back unchanged.
func (manager *Manager) Translate(lang string, key string, data map[string]any) string {
	localizer := manager.localizers[manager.NormalizeLanguage(lang)]
	if localizer == nil {
		return key
	}

	message, err := localizer.Localize(&goi18n.LocalizeConfig{
		MessageID:    key,
		TemplateData: data,
	})
	if err != nil || strings.TrimSpace(message) == "" {
		return key
	}
	return message
}

func (manager *Manager) isSupported(lang string) bool {
	if lang == "" {
		return false
	}
	for _, supported := range manager.supported {
		if supported == lang {
			return true
		}
	}
	return false
}

func normalizeLanguageTag(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	tag, err := language.Parse(strings.ReplaceAll(raw, "_", "-"))
	if err != nil {
		return ""
	}
	base, _ := tag.Base()
	return base.String()
}
