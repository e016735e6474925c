package book

import (
	"strconv"
	"strings"
)

// Source identifies where a record originates from.
type Source string

const (
	SourceInternal  Source = "INTERNAL"
	SourceProviderA Source = "PROVIDER_A"
	SourceProviderB Source = "PROVIDER_B"
)

var sourceAliases = map[string]Source{
	"INTERNAL":     SourceInternal,
	"PROVIDER_A":   SourceProviderA,
	"GOOGLE":       SourceProviderA,
	"GOOGLE_BOOKS": SourceProviderA,
	"PROVIDER_B":   SourceProviderB,
	"OPEN_LIBRARY": SourceProviderB,
	"OPENLIBRARY":  SourceProviderB,
}

// ParseSource resolves a source name, accepting provider aliases.
func ParseSource(s string) (Source, error) {
	if src, ok := sourceAliases[strings.ToUpper(strings.TrimSpace(s))]; ok {
		return src, nil
	}
	return "", &ValidationError{Field: "source", Message: "unknown source " + strconv.Quote(s)}
}

// Record is the canonical book shape shared by every source.
type Record struct {
	ID             *int64   `json:"id,omitempty"`
	Title          string   `json:"title"`
	Subtitle       string   `json:"subtitle"`
	PublishedDate  string   `json:"publishedDate"`
	Publisher      string   `json:"publisher"`
	Description    string   `json:"description"`
	Image          string   `json:"image"`
	OriginalSource Source   `json:"originalSource"`
	ExternalID     string   `json:"externalId,omitempty"`
	Authors        []string `json:"authors"`
	Categories     []string `json:"categories"`
}

// NewRecord builds a record and checks the source/externalId coupling.
// Authors and categories are deduplicated.
func NewRecord(r Record) (Record, error) {
	r.Authors = Dedupe(r.Authors)
	r.Categories = Dedupe(r.Categories)
	if err := r.Validate(); err != nil {
		return Record{}, err
	}
	return r, nil
}

// Validate enforces the cross-field invariants of a record.
func (r Record) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return &ValidationError{Field: "title", Message: "title is required"}
	}
	switch r.OriginalSource {
	case SourceInternal:
		if r.ExternalID != "" {
			return &ValidationError{Field: "externalId", Message: "externalId must be empty for INTERNAL records"}
		}
	case SourceProviderA, SourceProviderB:
		if r.ExternalID == "" {
			return &ValidationError{Field: "externalId", Message: "externalId is required for " + string(r.OriginalSource) + " records"}
		}
	default:
		return &ValidationError{Field: "originalSource", Message: "unknown source " + strconv.Quote(string(r.OriginalSource))}
	}
	return nil
}

// Dedupe drops blank and repeated names, keeping first-seen order.
func Dedupe(names []string) []string {
	out := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// SavePayload is the input of a save. Internal saves carry a full Book;
// provider saves only need ExternalID.
type SavePayload struct {
	Source     Source
	ExternalID string
	Book       Record
}

// Entity is an author or a category row.
type Entity struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
