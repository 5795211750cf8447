package view

import "context"

type settingsKey string

// SettingsKey is the key for the site settings in the request context.
const SettingsKey settingsKey = "settings"

// Settings are the site-wide values every page can read.
type Settings struct {
	SiteName    string
	BaseURL     string
	OIDCEnabled bool
}

// WithSettings stores s in the context.
func WithSettings(ctx context.Context, s Settings) context.Context {
	return context.WithValue(ctx, SettingsKey, s)
}

// SettingsFrom returns the site settings from the request context.
func SettingsFrom(ctx context.Context) Settings {
	s, _ := ctx.Value(SettingsKey).(Settings)
	return s
}
