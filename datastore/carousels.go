package datastore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tobyhart/deckpress/models"
)

type CarouselRepository struct {
	db *sql.DB
}

func NewCarouselRepository(db *sql.DB) *CarouselRepository {
	return &CarouselRepository{db: db}
}

const carouselColumns = `
	id, article_id, page_count, pages, style_preset, document_url,
	generation_provider, status, scheduled_at, auto_publish,
	shared_schedule, offset_days, post_urn, post_url, published_at,
	publish_error, created_at, updated_at
`

func (r *CarouselRepository) CreateCarousel(ctx context.Context, c *models.Carousel) error {
	if _, err := uuid.Parse(c.ID); err != nil {
		return fmt.Errorf("invalid carousel ID format: %w", err)
	}
	if _, err := uuid.Parse(c.ArticleID); err != nil {
		return fmt.Errorf("invalid article ID format: %w", err)
	}

	pagesJSON, err := json.Marshal(c.Pages)
	if err != nil {
		return fmt.Errorf("failed to marshal pages snapshot: %w", err)
	}

	query := `
		INSERT INTO carousels (` + carouselColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`
	_, err = r.db.ExecContext(ctx, query,
		c.ID, c.ArticleID, c.PageCount, pagesJSON, c.StylePreset, c.DocumentURL,
		c.GenerationProvider, string(c.Status), c.ScheduledAt, c.AutoPublish,
		c.SharedSchedule, c.OffsetDays, c.PostURN, c.PostURL, c.PublishedAt,
		c.PublishError, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert carousel: %w", err)
	}
	return nil
}

// GetByArticleID returns nil without error when no carousel exists for the
// article yet (the intent is created lazily on first generation).
func (r *CarouselRepository) GetByArticleID(ctx context.Context, articleID string) (*models.Carousel, error) {
	if _, err := uuid.Parse(articleID); err != nil {
		return nil, fmt.Errorf("invalid article ID format: %w", err)
	}

	query := `SELECT ` + carouselColumns + ` FROM carousels WHERE article_id = $1`
	c, err := scanCarousel(r.db.QueryRowContext(ctx, query, articleID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get carousel by article ID: %w", err)
	}
	return c, nil
}

func (r *CarouselRepository) GetByID(ctx context.Context, carouselID string) (*models.Carousel, error) {
	if _, err := uuid.Parse(carouselID); err != nil {
		return nil, fmt.Errorf("invalid carousel ID format: %w", err)
	}

	query := `SELECT ` + carouselColumns + ` FROM carousels WHERE id = $1`
	c, err := scanCarousel(r.db.QueryRowContext(ctx, query, carouselID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get carousel by ID: %w", err)
	}
	return c, nil
}

// UpdateGenerationResult persists the outcome of a full generation run:
// the pages snapshot, the assembled document reference and the provider.
func (r *CarouselRepository) UpdateGenerationResult(ctx context.Context, carouselID string, pages []models.CarouselPage, documentURL, provider string, status models.CarouselStatus) error {
	pagesJSON, err := json.Marshal(pages)
	if err != nil {
		return fmt.Errorf("failed to marshal pages snapshot: %w", err)
	}

	query := `
		UPDATE carousels
		SET pages = $2, document_url = $3, generation_provider = $4,
		    status = $5, page_count = $6, updated_at = $7
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query, carouselID, pagesJSON, documentURL, provider, string(status), len(pages), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to update generation result: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("carousel not found for generation update: %w", sql.ErrNoRows)
	}
	return nil
}

// UpdatePages refreshes the pages snapshot and document reference after a
// slide-level mutation (regeneration or version activation).
func (r *CarouselRepository) UpdatePages(ctx context.Context, carouselID string, pages []models.CarouselPage, documentURL string) error {
	pagesJSON, err := json.Marshal(pages)
	if err != nil {
		return fmt.Errorf("failed to marshal pages snapshot: %w", err)
	}

	query := `
		UPDATE carousels
		SET pages = $2, document_url = $3, updated_at = $4
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query, carouselID, pagesJSON, documentURL, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to update pages snapshot: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("carousel not found for pages update: %w", sql.ErrNoRows)
	}
	return nil
}

// UpdateSchedule mutates the scheduling fields. The status guard keeps a
// published carousel terminal: its schedule can never be rewritten.
func (r *CarouselRepository) UpdateSchedule(ctx context.Context, carouselID string, scheduledAt *time.Time, autoPublish, sharedSchedule bool, offsetDays int, status models.CarouselStatus) error {
	query := `
		UPDATE carousels
		SET scheduled_at = $2, auto_publish = $3, shared_schedule = $4,
		    offset_days = $5, status = $6, updated_at = $7
		WHERE id = $1 AND status <> 'published'
	`
	result, err := r.db.ExecContext(ctx, query, carouselID, scheduledAt, autoPublish, sharedSchedule, offsetDays, string(status), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to update carousel schedule: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("carousel not found or already published: %w", sql.ErrNoRows)
	}
	return nil
}

// MarkPublished records the external post reference. The post_urn guard
// makes a carousel publish idempotent across scheduler retries.
func (r *CarouselRepository) MarkPublished(ctx context.Context, carouselID, postURN, postURL string, publishedAt time.Time) error {
	query := `
		UPDATE carousels
		SET post_urn = $2, post_url = $3, published_at = $4,
		    publish_error = '', status = 'published', updated_at = $4
		WHERE id = $1 AND (post_urn IS NULL OR post_urn = '')
	`
	result, err := r.db.ExecContext(ctx, query, carouselID, postURN, postURL, publishedAt)
	if err != nil {
		return fmt.Errorf("failed to mark carousel published: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("carousel %s already has a publish record", carouselID)
	}
	return nil
}

func (r *CarouselRepository) SetPublishError(ctx context.Context, carouselID, message string) error {
	query := `UPDATE carousels SET publish_error = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, carouselID, message, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to record carousel publish error: %w", err)
	}
	return nil
}

// DeleteCarousel removes the carousel; slide versions cascade via the
// foreign key.
func (r *CarouselRepository) DeleteCarousel(ctx context.Context, carouselID string) error {
	if _, err := uuid.Parse(carouselID); err != nil {
		return fmt.Errorf("invalid carousel ID format: %w", err)
	}

	result, err := r.db.ExecContext(ctx, `DELETE FROM carousels WHERE id = $1`, carouselID)
	if err != nil {
		return fmt.Errorf("failed to delete carousel: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("carousel not found for delete: %w", sql.ErrNoRows)
	}
	return nil
}

// DueCarousel pairs a due carousel with its parent article so callers can
// compose the share text without a second round trip.
type DueCarousel struct {
	Carousel models.Carousel
	Article  models.Article
}

// GetDueCarousels selects carousels whose effective schedule has passed.
// In simultaneous mode the effective time derives from the parent
// article's scheduled_at plus the offset, evaluated at query time.
func (r *CarouselRepository) GetDueCarousels(ctx context.Context, now time.Time) ([]DueCarousel, error) {
	query := `
		SELECT ` + prefixColumns("c", carouselColumns) + `, ` + prefixColumns("a", articleColumns) + `
		FROM carousels c
		JOIN articles a ON a.id = c.article_id
		WHERE a.approved = TRUE
		  AND c.auto_publish = TRUE
		  AND (c.post_urn IS NULL OR c.post_urn = '')
		  AND (
		        (c.shared_schedule = TRUE AND a.scheduled_at IS NOT NULL
		         AND a.scheduled_at + make_interval(days => c.offset_days) <= $1)
		     OR (c.shared_schedule = FALSE AND c.scheduled_at IS NOT NULL
		         AND c.scheduled_at <= $1)
		  )
		ORDER BY c.created_at ASC
	`
	rows, err := r.db.QueryContext(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to query due carousels: %w", err)
	}
	defer rows.Close()

	var due []DueCarousel
	for rows.Next() {
		item, err := scanDueCarousel(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan due carousel: %w", err)
		}
		due = append(due, *item)
	}
	return due, rows.Err()
}
