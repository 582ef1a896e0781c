// Copyright (c) 2026 Keymaster Team
// usermgr - user management console
// This source code is licensed under the MIT license found in the LICENSE file.

// Package i18n provides the localized user-facing strings of usermgr: the
// classified gateway messages, CLI output and TUI labels. Catalogues are
// YAML files embedded from the 'locales' directory and loaded with go-i18n.
package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"sync"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// localeFS embeds the YAML translation files.
//
//go:embed locales/*.yaml
var localeFS embed.FS

var (
	mu        sync.RWMutex
	bundle    *i18n.Bundle
	localizer *i18n.Localizer
	lang      string
	locales   []string
)

// Init loads every embedded catalogue and selects lang as the active language.
// Unknown languages fall back to English.
func Init(l string) {
	b := i18n.NewBundle(language.English)
	b.RegisterUnmarshalFunc("yaml", yaml.Unmarshal)

	var found []string
	files, _ := fs.ReadDir(localeFS, "locales")
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		data, err := localeFS.ReadFile("locales/" + f.Name())
		if err != nil {
			continue
		}
		if _, err := b.ParseMessageFileBytes(data, f.Name()); err != nil {
			continue
		}
		found = append(found, strings.TrimSuffix(f.Name(), ".yaml"))
	}
	sort.Strings(found)

	mu.Lock()
	defer mu.Unlock()
	bundle = b
	localizer = i18n.NewLocalizer(b, l, "en")
	lang = l
	locales = found
}

// T translates messageID. A map[string]any first argument is used as template
// data; any other arguments are applied fmt-style to the translated text.
// Unknown IDs are returned unchanged.
func T(messageID string, args ...any) string {
	mu.RLock()
	loc := localizer
	mu.RUnlock()
	if loc == nil {
		Init("en")
		mu.RLock()
		loc = localizer
		mu.RUnlock()
	}

	cfg := &i18n.LocalizeConfig{MessageID: messageID}
	var fmtArgs []any
	if len(args) > 0 {
		if data, ok := args[0].(map[string]any); ok {
			cfg.TemplateData = data
		} else {
			fmtArgs = args
		}
	}

	msg, err := loc.Localize(cfg)
	if err != nil {
		return messageID
	}
	if len(fmtArgs) > 0 {
		return fmt.Sprintf(msg, fmtArgs...)
	}
	return msg
}

// SetLang changes the active language.
func SetLang(l string) {
	Init(l)
}

// GetLang returns the language passed to the last Init.
func GetLang() string {
	mu.RLock()
	defer mu.RUnlock()
	return lang
}

// Available lists the language codes with an embedded catalogue.
func Available() []string {
	mu.RLock()
	defer mu.RUnlock()
	return append([]string(nil), locales...)
}
