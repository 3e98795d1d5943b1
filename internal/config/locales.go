package config

import "log/slog"

// LangEN is the only catalog shipped with the service.
const LangEN = "en"

// GetLocaleConfig returns the language to load translations for. Other
// languages need an active.<lang>.toml next to the embedded catalog.
func GetLocaleConfig(lang string, available ...string) string {
	if lang == LangEN {
		return lang
	}
	for _, a := range available {
		if a == lang {
			return lang
		}
	}
	slog.Warn("unsupported language, falling back to English", "language", lang)
	return LangEN
}
