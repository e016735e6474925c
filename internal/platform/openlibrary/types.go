package openlibrary

import (
	"encoding/json"
	"strings"
)

// SearchResponse matches search.json.
type SearchResponse struct {
	NumFound int         `json:"numFound"`
	Docs     []SearchDoc `json:"docs"`
}

type SearchDoc struct {
	Key              string     `json:"key"`
	Title            string     `json:"title"`
	Subtitle         string     `json:"subtitle"`
	AuthorNames      []string   `json:"author_name"`
	Subjects         []string   `json:"subject"`
	FirstPublishYear int        `json:"first_publish_year"`
	Publishers       StringList `json:"publisher"`
	CoverID          int        `json:"cover_i"`
}

// Work matches works/{key}.json.
type Work struct {
	Key              string     `json:"key"`
	Title            string     `json:"title"`
	Subtitle         string     `json:"subtitle"`
	Description      Text       `json:"description"`
	Subjects         []string   `json:"subjects"`
	SubjectPlaces    []string   `json:"subject_places"`
	FirstPublishDate string     `json:"first_publish_date"`
	Publishers       StringList `json:"publishers"`
	Covers           []int      `json:"covers"`
	Authors          []struct {
		Author struct {
			Key string `json:"key"`
		} `json:"author"`
	} `json:"authors"`
}

// AuthorDetails matches authors/{key}.json
type AuthorDetails struct {
	Name         string `json:"name"`
	FullerName   string `json:"fuller_name"`
	PersonalName string `json:"personal_name"`
}

// Text is a field that is either a plain string or {"type": ..., "value": ...}.
type Text string

func (t *Text) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*t = Text(s)
		return nil
	}
	var typed struct {
		Value string `json:"value"`
	}
	if err := json.Unmarshal(data, &typed); err != nil {
		*t = ""
		return nil
	}
	*t = Text(typed.Value)
	return nil
}

func (t Text) String() string { return strings.TrimSpace(string(t)) }

// StringList accepts a string or a list of strings.
type StringList []string

func (l *StringList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*l = list
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s != "" {
			*l = StringList{s}
		}
		return nil
	}
	*l = nil
	return nil
}

// First returns the first non-blank entry.
func (l StringList) First() string {
	for _, s := range l {
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}
