package book

import (
	"sort"
	"strings"
)

// Recognized filter keys.
const (
	FilterTitle         = "title"
	FilterSubtitle      = "subtitle"
	FilterAuthor        = "author"
	FilterCategory      = "category"
	FilterPublisher     = "publisher"
	FilterPublishedDate = "publishedDate"
	FilterDescription   = "description"
)

var properties = []string{
	FilterTitle,
	FilterSubtitle,
	FilterAuthor,
	FilterCategory,
	FilterPublisher,
	FilterPublishedDate,
	FilterDescription,
}

// Properties lists the recognized filter keys.
func Properties() []string {
	out := make([]string, len(properties))
	copy(out, properties)
	return out
}

// IsProperty reports whether key is a recognized filter key.
func IsProperty(key string) bool {
	for _, p := range properties {
		if p == key {
			return true
		}
	}
	return false
}

// Filters maps recognized keys to the value to match. Missing keys are
// unconstrained.
type Filters map[string]string

// ParseFilters keeps the non-blank recognized keys of raw and rejects unknown
// ones.
func ParseFilters(raw map[string]string) (Filters, error) {
	f := Filters{}
	var unknown []string
	for k, v := range raw {
		if !IsProperty(k) {
			unknown = append(unknown, k)
			continue
		}
		if v = strings.TrimSpace(v); v != "" {
			f[k] = v
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, &ValidationError{
			Field:   "filters",
			Message: "unknown filter(s) " + strings.Join(unknown, ", ") + "; recognized: " + strings.Join(properties, ", "),
		}
	}
	return f, nil
}

// Get returns the value for key, or "".
func (f Filters) Get(key string) string {
	if f == nil {
		return ""
	}
	return f[key]
}

// Only returns the subset of f restricted to keys.
func (f Filters) Only(keys ...string) Filters {
	out := Filters{}
	for _, k := range keys {
		if v := f.Get(k); v != "" {
			out[k] = v
		}
	}
	return out
}
