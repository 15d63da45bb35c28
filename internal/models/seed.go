package models

import "time"

// Seed is a saved search filter. An all-empty seed matches every notice.
type Seed struct {
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	District  string    `json:"district,omitempty"`
	TitleTags []string  `json:"title_tags,omitempty"`
	Tags      []string  `json:"tags,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Label is the value recorded on a notice the seed matched.
func (s Seed) Label() string {
	if s.Name != "" {
		return s.Name
	}
	return s.Code
}

// Wildcard reports whether the seed imposes no constraint at all.
func (s Seed) Wildcard() bool {
	return s.District == "" && len(s.TitleTags) == 0 && len(s.Tags) == 0
}
