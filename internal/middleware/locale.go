package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"

	"golang.org/x/text/language"
)

type localeContextKey struct{}

// LocaleKey stores the resolved BCP 47 locale in the request context.
var LocaleKey = localeContextKey{}

// CountryLookup resolves ISO country codes for an IP address.
type CountryLookup func(ip string) (string, error)

// Headers set by CDNs and proxies that already did the geo lookup for us.
var countryHeaders = []string{"X-Country-Code", "CF-IPCountry", "X-Appengine-Country"}

// Locale resolves the caller's locale from, in order, the X-Locale header,
// Accept-Language, and the request's country, then stores the closest match
// from the supported set in the request context. The default locale doubles
// as the matcher fallback.
func Locale(defaultLocale string, supported []string, lookup CountryLookup) func(http.Handler) http.Handler {
	tags := localeTags(defaultLocale, supported)
	matcher := language.NewMatcher(tags)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			locale := resolveLocale(r, matcher, tags, lookup)
			ctx := context.WithValue(r.Context(), LocaleKey, locale)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// LocaleFromContext returns the locale stored by Locale, or "en-US".
func LocaleFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(LocaleKey).(string); ok && v != "" {
		return v
	}
	return "en-US"
}

// ClientIP returns the best-effort client IP address for the request.
func ClientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	if xf := r.Header.Get("X-Forwarded-For"); xf != "" {
		parts := strings.Split(xf, ",")
		if len(parts) > 0 {
			return strings.TrimSpace(parts[0])
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// localeTags parses the configured locales, keeping the default first so the
// matcher falls back to it.
func localeTags(defaultLocale string, supported []string) []language.Tag {
	locales := append([]string{defaultLocale}, supported...)
	tags := make([]language.Tag, 0, len(locales))
	seen := make(map[string]bool, len(locales))
	for _, loc := range locales {
		tag, err := language.Parse(loc)
		if err != nil || tag == language.Und || seen[tag.String()] {
			continue
		}
		seen[tag.String()] = true
		tags = append(tags, tag)
	}
	if len(tags) == 0 {
		tags = []language.Tag{language.AmericanEnglish}
	}
	return tags
}

func resolveLocale(r *http.Request, matcher language.Matcher, tags []language.Tag, lookup CountryLookup) string {
	if v := strings.TrimSpace(r.Header.Get("X-Locale")); v != "" {
		if tag, err := language.Parse(v); err == nil {
			if _, idx, conf := matcher.Match(tag); conf > language.No {
				return tags[idx].String()
			}
		}
	}
	if accept := r.Header.Get("Accept-Language"); accept != "" {
		if userTags, _, err := language.ParseAcceptLanguage(accept); err == nil && len(userTags) > 0 {
			if _, idx, conf := matcher.Match(userTags...); conf > language.No {
				return tags[idx].String()
			}
		}
	}
	if country := requestCountry(r, lookup); country != "" {
		if loc := localeForCountry(tags, country); loc != "" {
			return loc
		}
	}
	return tags[0].String()
}

func requestCountry(r *http.Request, lookup CountryLookup) string {
	for _, key := range countryHeaders {
		if v := strings.TrimSpace(r.Header.Get(key)); v != "" {
			return strings.ToUpper(v)
		}
	}
	if lookup == nil {
		return ""
	}
	ip := ClientIP(r)
	if ip == "" {
		return ""
	}
	country, err := lookup(ip)
	if err != nil {
		return ""
	}
	return strings.ToUpper(country)
}

// localeForCountry picks the supported locale whose region matches the
// country code, if any carries one explicitly.
func localeForCountry(tags []language.Tag, country string) string {
	region, err := language.ParseRegion(country)
	if err != nil {
		return ""
	}
	for _, tag := range tags {
		if r, conf := tag.Region(); conf >= language.High && r == region {
			return tag.String()
		}
	}
	return ""
}
