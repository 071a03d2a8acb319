package models

import "time"

// SlideVersion is one immutable generated-image attempt for a slide
// position. Versions accumulate per slide; only the IsActive flag is
// ever mutated after insert.
type SlideVersion struct {
	ID                 string    `json:"id"`
	CarouselID         string    `json:"carousel_id"`
	SlideNumber        int       `json:"slide_number"`
	VersionNumber      int       `json:"version_number"`
	Prompt             string    `json:"prompt"`
	HeadlineText       string    `json:"headline_text"`
	Caption            string    `json:"caption,omitempty"`
	ImageURL           string    `json:"image_url,omitempty"`
	IsActive           bool      `json:"is_active"`
	GenerationProvider string    `json:"generation_provider,omitempty"`
	GenerationError    string    `json:"generation_error,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
}
