// Package scheduling couples a carousel's publish time to its parent
// article's. Two modes exist: stagger (the carousel carries its own
// scheduled_at) and simultaneous (shared_schedule, where the effective
// time is derived from the article on every read).
package scheduling

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/tobyhart/deckpress/models"
)

var (
	ErrArticleNotFound  = errors.New("article not found")
	ErrCarouselNotFound = errors.New("carousel not found")
	ErrConflict         = errors.New("schedule conflict")
	ErrValidation       = errors.New("invalid schedule request")
)

// ArticleStore is the read-side the coordinator needs from articles.
type ArticleStore interface {
	GetArticleByID(ctx context.Context, articleID string) (*models.Article, error)
}

// CarouselStore is the slice of the datastore the coordinator mutates.
type CarouselStore interface {
	GetByArticleID(ctx context.Context, articleID string) (*models.Carousel, error)
	UpdateSchedule(ctx context.Context, carouselID string, scheduledAt *time.Time, autoPublish, sharedSchedule bool, offsetDays int, status models.CarouselStatus) error
}

// ScheduleRequest carries one schedule mutation. SharedSchedule and
// ScheduledAt are mutually exclusive inputs: shared mode derives its time
// from the article, stagger mode requires an explicit time.
type ScheduleRequest struct {
	ScheduledAt    *time.Time `json:"scheduled_at,omitempty"`
	SharedSchedule bool       `json:"shared_schedule,omitempty"`
	OffsetDays     int        `json:"offset_days,omitempty"`
	AutoPublish    bool       `json:"auto_publish"`
}

// ScheduleView is the read model for a carousel's schedule. ScheduledAt
// is always the effective time, derived from the article in shared mode.
type ScheduleView struct {
	IsScheduled    bool                  `json:"is_scheduled"`
	ScheduledAt    *time.Time            `json:"scheduled_at,omitempty"`
	AutoPublish    bool                  `json:"auto_publish"`
	SharedSchedule bool                  `json:"shared_schedule"`
	OffsetDays     int                   `json:"offset_days"`
	Status         models.CarouselStatus `json:"status"`
}

type Coordinator struct {
	articles  ArticleStore
	carousels CarouselStore
}

func NewCoordinator(articles ArticleStore, carousels CarouselStore) *Coordinator {
	return &Coordinator{articles: articles, carousels: carousels}
}

// Schedule sets a carousel's publish plan and moves it to "scheduled".
// Shared mode requires the article itself to be scheduled first, since
// there is nothing to derive the effective time from otherwise.
func (c *Coordinator) Schedule(ctx context.Context, articleID string, req ScheduleRequest) (*ScheduleView, error) {
	article, carousel, err := c.resolve(ctx, articleID)
	if err != nil {
		return nil, err
	}
	if carousel.Status == models.CarouselStatusPublished {
		return nil, fmt.Errorf("%w: already published", ErrConflict)
	}

	var scheduledAt *time.Time
	if req.SharedSchedule {
		if article.ScheduledAt == nil {
			return nil, fmt.Errorf("%w: Article is not scheduled", ErrConflict)
		}
		if req.OffsetDays < 0 {
			return nil, fmt.Errorf("%w: offset_days must not be negative", ErrValidation)
		}
	} else {
		if req.ScheduledAt == nil {
			return nil, fmt.Errorf("%w: scheduled_at is required without shared_schedule", ErrValidation)
		}
		scheduledAt = req.ScheduledAt
	}

	offsetDays := 0
	if req.SharedSchedule {
		offsetDays = req.OffsetDays
	}
	if err := c.carousels.UpdateSchedule(ctx, carousel.ID, scheduledAt, req.AutoPublish, req.SharedSchedule, offsetDays, models.CarouselStatusScheduled); err != nil {
		return nil, fmt.Errorf("failed to schedule carousel %s: %w", carousel.ID, err)
	}

	carousel.ScheduledAt = scheduledAt
	carousel.AutoPublish = req.AutoPublish
	carousel.SharedSchedule = req.SharedSchedule
	carousel.OffsetDays = offsetDays
	carousel.Status = models.CarouselStatusScheduled

	log.Printf("INFO (Coordinator): Scheduled carousel %s for article %s (shared=%t)", carousel.ID, articleID, req.SharedSchedule)
	return viewOf(carousel, article), nil
}

// Unschedule clears the publish plan and resets a scheduled carousel to
// "ready". Publication is terminal through this path.
func (c *Coordinator) Unschedule(ctx context.Context, articleID string) (*ScheduleView, error) {
	article, carousel, err := c.resolve(ctx, articleID)
	if err != nil {
		return nil, err
	}
	if carousel.Status == models.CarouselStatusPublished {
		return nil, fmt.Errorf("%w: already published", ErrConflict)
	}

	if err := c.carousels.UpdateSchedule(ctx, carousel.ID, nil, false, false, 0, models.CarouselStatusReady); err != nil {
		return nil, fmt.Errorf("failed to unschedule carousel %s: %w", carousel.ID, err)
	}

	carousel.ScheduledAt = nil
	carousel.AutoPublish = false
	carousel.SharedSchedule = false
	carousel.OffsetDays = 0
	carousel.Status = models.CarouselStatusReady

	log.Printf("INFO (Coordinator): Unscheduled carousel %s for article %s", carousel.ID, articleID)
	return viewOf(carousel, article), nil
}

// GetSchedule returns the current schedule state without mutating it.
func (c *Coordinator) GetSchedule(ctx context.Context, articleID string) (*ScheduleView, error) {
	article, carousel, err := c.resolve(ctx, articleID)
	if err != nil {
		return nil, err
	}
	return viewOf(carousel, article), nil
}

func (c *Coordinator) resolve(ctx context.Context, articleID string) (*models.Article, *models.Carousel, error) {
	article, err := c.articles.GetArticleByID(ctx, articleID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve article %s: %w", articleID, err)
	}
	if article == nil {
		return nil, nil, ErrArticleNotFound
	}
	carousel, err := c.carousels.GetByArticleID(ctx, articleID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve carousel for article %s: %w", articleID, err)
	}
	if carousel == nil {
		return nil, nil, ErrCarouselNotFound
	}
	return article, carousel, nil
}

func viewOf(carousel *models.Carousel, article *models.Article) *ScheduleView {
	return &ScheduleView{
		IsScheduled:    carousel.Status == models.CarouselStatusScheduled,
		ScheduledAt:    carousel.EffectiveSchedule(article),
		AutoPublish:    carousel.AutoPublish,
		SharedSchedule: carousel.SharedSchedule,
		OffsetDays:     carousel.OffsetDays,
		Status:         carousel.Status,
	}
}
