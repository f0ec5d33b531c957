package domain

import (
	"strings"
	"time"
)

// RemoveTime truncates t to midnight in its own location.
func RemoveTime(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// ToEndOfDay moves t to the last representable instant of its day.
func ToEndOfDay(t time.Time) time.Time {
	return RemoveTime(t).Add(24*time.Hour - time.Nanosecond)
}

// EnsureHTTPSScheme prefixes a schemeless URL with https:// and upgrades http.
func EnsureHTTPSScheme(raw string) string {
	v := strings.TrimSpace(raw)
	if v == "" {
		return v
	}
	lower := strings.ToLower(v)
	switch {
	case strings.HasPrefix(lower, "https://"):
		return v
	case strings.HasPrefix(lower, "http://"):
		return "https://" + v[len("http://"):]
	}
	return "https://" + v
}
