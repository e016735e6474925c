package fetch

import (
	"net/url"
)

// redactKey hides the "key" query parameter so API keys stay out of logs.
func redactKey(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	if q.Get("key") == "" {
		return raw
	}
	q.Set("key", "***")
	u.RawQuery = q.Encode()
	return u.String()
}

// Redact is redactKey for callers outside the package.
func Redact(raw string) string { return redactKey(raw) }
