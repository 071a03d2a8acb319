package models

import "time"

// ArticleType influences how many slides the format planner allocates.
type ArticleType string

const (
	ArticleTypeDeepDive ArticleType = "deep_dive"
	ArticleTypeHowTo    ArticleType = "how_to"
	ArticleTypeStandard ArticleType = "standard"
)

type Article struct {
	ID           string      `json:"id"`
	UserID       string      `json:"user_id"`
	Title        string      `json:"title"`
	Subtitle     string      `json:"subtitle,omitempty"`
	Introduction string      `json:"introduction,omitempty"`
	Sections     []string    `json:"sections"`
	Conclusion   string      `json:"conclusion,omitempty"`
	ArticleType  ArticleType `json:"article_type"`
	Approved     bool        `json:"approved"`
	AutoPublish  bool        `json:"auto_publish"`
	ScheduledAt  *time.Time  `json:"scheduled_at,omitempty"`
	PostURN      string      `json:"post_urn,omitempty"`
	PostURL      string      `json:"post_url,omitempty"`
	PublishedAt  *time.Time  `json:"published_at,omitempty"`
	PublishError string      `json:"publish_error,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
}
