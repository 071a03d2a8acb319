package models

import "time"

// Post is a standalone share scheduled for the external platform,
// independent of any carousel. The auto-publisher treats posts and
// carousels with the same due-item predicate.
type Post struct {
	ID           string     `json:"id"`
	UserID       string     `json:"user_id"`
	Content      string     `json:"content"`
	ImageURL     string     `json:"image_url,omitempty"`
	AltText      string     `json:"alt_text,omitempty"`
	Approved     bool       `json:"approved"`
	AutoPublish  bool       `json:"auto_publish"`
	ScheduledAt  *time.Time `json:"scheduled_at,omitempty"`
	PostURN      string     `json:"post_urn,omitempty"`
	PostURL      string     `json:"post_url,omitempty"`
	PublishedAt  *time.Time `json:"published_at,omitempty"`
	PublishError string     `json:"publish_error,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}
