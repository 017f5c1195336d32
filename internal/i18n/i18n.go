// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package i18n localizes email content and client-facing messages.
package i18n

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed translations/*.toml
var translationFS embed.FS

var (
	bundle   *i18n.Bundle
	initOnce sync.Once
	initErr  error
	warnOnce sync.Once
)

var translationFiles = []string{
	"translations/active.en.toml",
	"translations/active.de.toml",
}

type localeContextKey struct{}
type localizerContextKey struct{}

// Init loads the embedded translations. It is safe to call repeatedly.
func Init() error {
	initOnce.Do(func() {
		bundle, initErr = newBundle(translationFS, translationFiles...)
	})
	return initErr
}

// newBundle always returns a usable bundle. Files that fail to load are
// skipped and lookups of their messages fall back to the message ID.
func newBundle(fsys fs.FS, files ...string) (*i18n.Bundle, error) {
	b := i18n.NewBundle(language.English)
	b.RegisterUnmarshalFunc("toml", toml.Unmarshal)

	var errs []error
	for _, file := range files {
		if _, err := b.LoadMessageFileFS(fsys, file); err != nil {
			errs = append(errs, fmt.Errorf("load %s: %w", file, err))
		}
	}
	return b, errors.Join(errs...)
}

// ensure loads the translations for callers that skipped Init and reports
// a load failure once.
func ensure() {
	if err := Init(); err != nil {
		warnOnce.Do(func() {
			slog.Error("failed to load translations", "error", err)
		})
	}
}

// WithLocale adds the locale to the context.
func WithLocale(ctx context.Context, lang language.Tag) context.Context {
	ensure()
	locale := lang.String()
	ctx = context.WithValue(ctx, localeContextKey{}, locale)
	localizer := i18n.NewLocalizer(bundle, locale)
	return context.WithValue(ctx, localizerContextKey{}, localizer)
}

// GetLocale returns the current locale from context.
func GetLocale(ctx context.Context) string {
	if locale, ok := ctx.Value(localeContextKey{}).(string); ok {
		return locale
	}
	return "en"
}

// T translates a message by ID.
func T(ctx context.Context, messageID string) string {
	localizer := getLocalizer(ctx)
	msg, err := localizer.Localize(&i18n.LocalizeConfig{
		MessageID: messageID,
	})
	if err != nil {
		return messageID
	}
	return msg
}

// TData translates a message with template data.
func TData(ctx context.Context, messageID string, data map[string]any) string {
	localizer := getLocalizer(ctx)
	msg, err := localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    messageID,
		TemplateData: data,
	})
	if err != nil {
		return messageID
	}
	return msg
}

// TPlural translates a message with plural support.
func TPlural(ctx context.Context, messageID string, count int) string {
	localizer := getLocalizer(ctx)
	msg, err := localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    messageID,
		PluralCount:  count,
		TemplateData: map[string]any{"Count": count},
	})
	if err != nil {
		return messageID
	}
	return msg
}

// MatchLanguage matches the best language from Accept-Language header.
func MatchLanguage(acceptLanguage string) language.Tag {
	matcher := language.NewMatcher([]language.Tag{
		language.English,
		language.German,
	})
	tag, _ := language.MatchStrings(matcher, acceptLanguage)
	return tag
}

func getLocalizer(ctx context.Context) *i18n.Localizer {
	ensure()
	if localizer, ok := ctx.Value(localizerContextKey{}).(*i18n.Localizer); ok {
		return localizer
	}
	return i18n.NewLocalizer(bundle, "en")
}
