package scheduling

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tobyhart/deckpress/models"
)

type fakeArticleStore struct {
	articles map[string]*models.Article
}

func (s *fakeArticleStore) GetArticleByID(_ context.Context, id string) (*models.Article, error) {
	return s.articles[id], nil
}

type fakeCarouselStore struct {
	byArticle map[string]*models.Carousel
	updates   int
}

func (s *fakeCarouselStore) GetByArticleID(_ context.Context, articleID string) (*models.Carousel, error) {
	c, ok := s.byArticle[articleID]
	if !ok {
		return nil, nil
	}
	dup := *c
	return &dup, nil
}

func (s *fakeCarouselStore) UpdateSchedule(_ context.Context, carouselID string, scheduledAt *time.Time, autoPublish, sharedSchedule bool, offsetDays int, status models.CarouselStatus) error {
	for _, c := range s.byArticle {
		if c.ID == carouselID {
			c.ScheduledAt = scheduledAt
			c.AutoPublish = autoPublish
			c.SharedSchedule = sharedSchedule
			c.OffsetDays = offsetDays
			c.Status = status
			s.updates++
			return nil
		}
	}
	return nil
}

func setup(articleScheduledAt *time.Time, status models.CarouselStatus) (*Coordinator, string, *fakeCarouselStore) {
	articleID := uuid.NewString()
	articles := &fakeArticleStore{articles: map[string]*models.Article{
		articleID: {ID: articleID, Title: "Shipping Weekly", ScheduledAt: articleScheduledAt},
	}}
	carousels := &fakeCarouselStore{byArticle: map[string]*models.Carousel{
		articleID: {ID: uuid.NewString(), ArticleID: articleID, PageCount: 5, Status: status},
	}}
	return NewCoordinator(articles, carousels), articleID, carousels
}

func TestSchedule_StaggerMode(t *testing.T) {
	coordinator, articleID, carousels := setup(nil, models.CarouselStatusReady)
	at := time.Date(2026, 9, 4, 9, 0, 0, 0, time.UTC)

	view, err := coordinator.Schedule(context.Background(), articleID, ScheduleRequest{
		ScheduledAt: &at,
		AutoPublish: true,
	})
	require.NoError(t, err)
	assert.True(t, view.IsScheduled)
	require.NotNil(t, view.ScheduledAt)
	assert.True(t, view.ScheduledAt.Equal(at))
	assert.True(t, view.AutoPublish)
	assert.False(t, view.SharedSchedule)
	assert.Equal(t, models.CarouselStatusScheduled, view.Status)
	assert.Equal(t, 1, carousels.updates)
}

func TestSchedule_SharedModeTracksArticle(t *testing.T) {
	articleTime := time.Date(2026, 9, 10, 14, 30, 0, 0, time.UTC)
	coordinator, articleID, _ := setup(&articleTime, models.CarouselStatusReady)

	view, err := coordinator.Schedule(context.Background(), articleID, ScheduleRequest{
		SharedSchedule: true,
		AutoPublish:    true,
	})
	require.NoError(t, err)
	require.NotNil(t, view.ScheduledAt)
	assert.True(t, view.ScheduledAt.Equal(articleTime), "effective time equals the article's")
	assert.Equal(t, 0, view.OffsetDays)
	assert.True(t, view.SharedSchedule)
}

func TestSchedule_SharedModeWithOffset(t *testing.T) {
	articleTime := time.Date(2026, 9, 10, 14, 30, 0, 0, time.UTC)
	coordinator, articleID, _ := setup(&articleTime, models.CarouselStatusReady)

	view, err := coordinator.Schedule(context.Background(), articleID, ScheduleRequest{
		SharedSchedule: true,
		OffsetDays:     2,
		AutoPublish:    true,
	})
	require.NoError(t, err)
	require.NotNil(t, view.ScheduledAt)
	assert.True(t, view.ScheduledAt.Equal(articleTime.AddDate(0, 0, 2)))
}

func TestSchedule_SharedModeRequiresArticleSchedule(t *testing.T) {
	coordinator, articleID, carousels := setup(nil, models.CarouselStatusReady)

	_, err := coordinator.Schedule(context.Background(), articleID, ScheduleRequest{SharedSchedule: true})
	require.ErrorIs(t, err, ErrConflict)
	assert.Contains(t, err.Error(), "not scheduled")
	assert.Zero(t, carousels.updates)
}

func TestSchedule_StaggerModeRequiresTime(t *testing.T) {
	coordinator, articleID, _ := setup(nil, models.CarouselStatusReady)

	_, err := coordinator.Schedule(context.Background(), articleID, ScheduleRequest{AutoPublish: true})
	require.ErrorIs(t, err, ErrValidation)
}

func TestSchedule_PublishedIsTerminal(t *testing.T) {
	at := time.Now().UTC()
	coordinator, articleID, _ := setup(&at, models.CarouselStatusPublished)

	_, err := coordinator.Schedule(context.Background(), articleID, ScheduleRequest{ScheduledAt: &at})
	require.ErrorIs(t, err, ErrConflict)
	assert.Contains(t, err.Error(), "already published")
}

func TestSchedule_MissingCarousel(t *testing.T) {
	articleID := uuid.NewString()
	coordinator := NewCoordinator(
		&fakeArticleStore{articles: map[string]*models.Article{articleID: {ID: articleID}}},
		&fakeCarouselStore{byArticle: map[string]*models.Carousel{}},
	)

	_, err := coordinator.Schedule(context.Background(), articleID, ScheduleRequest{})
	require.ErrorIs(t, err, ErrCarouselNotFound)
	assert.Contains(t, err.Error(), "carousel not found")
}

func TestSchedule_MissingArticle(t *testing.T) {
	coordinator := NewCoordinator(
		&fakeArticleStore{articles: map[string]*models.Article{}},
		&fakeCarouselStore{byArticle: map[string]*models.Carousel{}},
	)

	_, err := coordinator.Schedule(context.Background(), uuid.NewString(), ScheduleRequest{})
	require.ErrorIs(t, err, ErrArticleNotFound)
}

func TestUnschedule_ResetsToReady(t *testing.T) {
	at := time.Now().UTC().Add(24 * time.Hour)
	coordinator, articleID, carousels := setup(&at, models.CarouselStatusReady)

	_, err := coordinator.Schedule(context.Background(), articleID, ScheduleRequest{ScheduledAt: &at, AutoPublish: true})
	require.NoError(t, err)

	view, err := coordinator.Unschedule(context.Background(), articleID)
	require.NoError(t, err)
	assert.False(t, view.IsScheduled)
	assert.Nil(t, view.ScheduledAt)
	assert.False(t, view.AutoPublish)
	assert.Equal(t, models.CarouselStatusReady, view.Status)

	for _, c := range carousels.byArticle {
		assert.Nil(t, c.ScheduledAt)
	}
}

func TestUnschedule_AfterPublishConflicts(t *testing.T) {
	at := time.Now().UTC()
	coordinator, articleID, carousels := setup(&at, models.CarouselStatusPublished)
	for _, c := range carousels.byArticle {
		c.ScheduledAt = &at
	}

	_, err := coordinator.Unschedule(context.Background(), articleID)
	require.ErrorIs(t, err, ErrConflict)
	assert.Contains(t, err.Error(), "already published")

	// The stored schedule is untouched.
	for _, c := range carousels.byArticle {
		require.NotNil(t, c.ScheduledAt)
		assert.True(t, c.ScheduledAt.Equal(at))
	}
}

func TestGetSchedule_SharedModeFollowsReschedule(t *testing.T) {
	articleTime := time.Date(2026, 9, 10, 14, 30, 0, 0, time.UTC)
	coordinator, articleID, _ := setup(&articleTime, models.CarouselStatusReady)

	_, err := coordinator.Schedule(context.Background(), articleID, ScheduleRequest{SharedSchedule: true, AutoPublish: true})
	require.NoError(t, err)

	// Move the article; the carousel's effective time moves with it.
	moved := articleTime.AddDate(0, 0, 5)
	store := coordinator.articles.(*fakeArticleStore)
	store.articles[articleID].ScheduledAt = &moved

	view, err := coordinator.GetSchedule(context.Background(), articleID)
	require.NoError(t, err)
	require.NotNil(t, view.ScheduledAt)
	assert.True(t, view.ScheduledAt.Equal(moved))
}
