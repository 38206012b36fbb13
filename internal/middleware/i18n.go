package middleware

import (
	"context"
	"net/http"

	"golang.org/x/text/language"
)

type localeContextKey struct{}

var LocaleKey = localeContextKey{}

// matcher covers the locales the prompt builder has styles for. English is
// the fallback.
var matcher = language.NewMatcher([]language.Tag{
	language.English,
	language.Chinese,
})

// I18N resolves the request locale from the X-Locale header or, failing
// that, Accept-Language, and stores it in the request context.
func I18N(defaultLocale string) func(http.Handler) http.Handler {
	if defaultLocale == "" {
		defaultLocale = "en"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			locale := detectLocale(r, defaultLocale)
			ctx := context.WithValue(r.Context(), LocaleKey, locale)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func detectLocale(r *http.Request, fallback string) string {
	if v := r.Header.Get("X-Locale"); v != "" {
		if tag, err := language.Parse(v); err == nil {
			return matchBase(tag)
		}
	}
	if tags, _, err := language.ParseAcceptLanguage(r.Header.Get("Accept-Language")); err == nil && len(tags) > 0 {
		_, idx, conf := matcher.Match(tags...)
		if conf > language.No {
			return baseAt(idx)
		}
	}
	return fallback
}

func matchBase(tag language.Tag) string {
	_, idx, _ := matcher.Match(tag)
	return baseAt(idx)
}

func baseAt(idx int) string {
	if idx == 1 {
		return "zh"
	}
	return "en"
}

// LocaleFromContext returns the locale resolved by I18N, or "en".
func LocaleFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(LocaleKey).(string); ok {
		return v
	}
	return "en"
}
