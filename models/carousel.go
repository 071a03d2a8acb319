package models

import "time"

// CarouselStatus defines the set of allowed statuses for a Carousel.
type CarouselStatus string

const (
	CarouselStatusPending   CarouselStatus = "pending"
	CarouselStatusReady     CarouselStatus = "ready"
	CarouselStatusScheduled CarouselStatus = "scheduled"
	CarouselStatusPublished CarouselStatus = "published"
)

// SlideType determines the visual treatment of a single carousel page.
type SlideType string

const (
	SlideTypeTitle   SlideType = "title"
	SlideTypeContent SlideType = "content"
	SlideTypeCTA     SlideType = "cta"
)

// Carousel is the per-article generation intent: the current page snapshot,
// the assembled document reference, and the publish schedule. Exactly one
// carousel exists per article.
type Carousel struct {
	ID                 string         `json:"id"`
	ArticleID          string         `json:"article_id"`
	PageCount          int            `json:"page_count"`
	Pages              []CarouselPage `json:"pages"`
	StylePreset        string         `json:"style_preset"`
	DocumentURL        string         `json:"document_url,omitempty"`
	GenerationProvider string         `json:"generation_provider,omitempty"`
	Status             CarouselStatus `json:"status"`
	ScheduledAt        *time.Time     `json:"scheduled_at,omitempty"`
	AutoPublish        bool           `json:"auto_publish"`
	SharedSchedule     bool           `json:"shared_schedule"`
	OffsetDays         int            `json:"offset_days"`
	PostURN            string         `json:"post_urn,omitempty"`
	PostURL            string         `json:"post_url,omitempty"`
	PublishedAt        *time.Time     `json:"published_at,omitempty"`
	PublishError       string         `json:"publish_error,omitempty"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

// CarouselPage is the current snapshot of one slide position. It always
// mirrors the active SlideVersion for that position.
type CarouselPage struct {
	PageNumber      int       `json:"page_number"`
	SlideType       SlideType `json:"slide_type"`
	Prompt          string    `json:"prompt"`
	HeadlineText    string    `json:"headline_text"`
	BodyText        string    `json:"body_text,omitempty"`
	ImageURL        string    `json:"image_url,omitempty"`
	GenerationError string    `json:"generation_error,omitempty"`
	ActiveVersionID string    `json:"active_version_id,omitempty"`
	VersionCount    int       `json:"version_count"`
}

// EffectiveSchedule resolves the carousel's publish time. In simultaneous
// mode the time is derived from the parent article on every read, so
// rescheduling the article moves the carousel with it.
func (c *Carousel) EffectiveSchedule(article *Article) *time.Time {
	if c.SharedSchedule {
		if article == nil || article.ScheduledAt == nil {
			return nil
		}
		if c.OffsetDays == 0 {
			return article.ScheduledAt
		}
		t := article.ScheduledAt.AddDate(0, 0, c.OffsetDays)
		return &t
	}
	return c.ScheduledAt
}
