// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package i18n_test

import (
	"context"
	"testing"

	"codeberg.org/oliverandrich/talentgate-identity/internal/i18n"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func TestInit(t *testing.T) {
	require.NoError(t, i18n.Init())
	require.NoError(t, i18n.Init())
}

func TestT(t *testing.T) {
	ctx := i18n.WithLocale(context.Background(), language.English)

	assert.Equal(t, "TalentGate", i18n.T(ctx, "app_name"))
	assert.Equal(t, "Your password reset code", i18n.T(ctx, "email_reset_subject"))
}

func TestT_German(t *testing.T) {
	ctx := i18n.WithLocale(context.Background(), language.German)

	assert.Equal(t, "Willkommen bei TalentGate", i18n.T(ctx, "email_welcome_subject"))
}

func TestT_DefaultsToEnglish(t *testing.T) {
	assert.Equal(t, "Logged out successfully.", i18n.T(context.Background(), "msg_logged_out"))
}

func TestT_UnknownKey(t *testing.T) {
	ctx := i18n.WithLocale(context.Background(), language.English)

	result := i18n.T(ctx, "unknown_key_that_does_not_exist")
	assert.Equal(t, "unknown_key_that_does_not_exist", result)
}

func TestTData(t *testing.T) {
	ctx := i18n.WithLocale(context.Background(), language.English)

	body := i18n.TData(ctx, "email_reset_body", map[string]any{"Name": "Alice", "Code": "123456"})

	assert.Contains(t, body, "Hello Alice")
	assert.Contains(t, body, "123456")
}

func TestTPlural(t *testing.T) {
	ctx := i18n.WithLocale(context.Background(), language.English)

	assert.Equal(t, "The code expires in 1 minute.", i18n.TPlural(ctx, "email_reset_expiry", 1))
	assert.Equal(t, "The code expires in 15 minutes.", i18n.TPlural(ctx, "email_reset_expiry", 15))
}

func TestGetLocale(t *testing.T) {
	assert.Equal(t, "en", i18n.GetLocale(context.Background()))

	ctx := i18n.WithLocale(context.Background(), language.German)
	assert.Equal(t, "de", i18n.GetLocale(ctx))
}

func TestMatchLanguage(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"de-DE,de;q=0.9,en;q=0.8", "de"},
		{"en-US", "en"},
		{"fr-FR", "en"},
		{"", "en"},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			base, _ := i18n.MatchLanguage(tt.header).Base()
			assert.Equal(t, tt.want, base.String())
		})
	}
}
