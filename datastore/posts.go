package datastore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tobyhart/deckpress/models"
)

type PostRepository struct {
	db *sql.DB
}

func NewPostRepository(db *sql.DB) *PostRepository {
	return &PostRepository{db: db}
}

const postColumns = `
	id, user_id, content, image_url, alt_text, approved, auto_publish,
	scheduled_at, post_urn, post_url, published_at, publish_error, created_at
`

func (r *PostRepository) CreatePost(ctx context.Context, p *models.Post) error {
	if _, err := uuid.Parse(p.ID); err != nil {
		return fmt.Errorf("invalid post ID format: %w", err)
	}
	if _, err := uuid.Parse(p.UserID); err != nil {
		return fmt.Errorf("invalid user ID format: %w", err)
	}

	query := `
		INSERT INTO posts (` + postColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := r.db.ExecContext(ctx, query,
		p.ID, p.UserID, p.Content, p.ImageURL, p.AltText, p.Approved, p.AutoPublish,
		p.ScheduledAt, p.PostURN, p.PostURL, p.PublishedAt, p.PublishError, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert post: %w", err)
	}
	return nil
}

// GetDuePosts applies the same due-item predicate as carousels: approved,
// auto-publish, schedule passed, no successful publish reference.
func (r *PostRepository) GetDuePosts(ctx context.Context, now time.Time) ([]models.Post, error) {
	query := `
		SELECT ` + postColumns + `
		FROM posts
		WHERE approved = TRUE
		  AND auto_publish = TRUE
		  AND scheduled_at IS NOT NULL
		  AND scheduled_at <= $1
		  AND (post_urn IS NULL OR post_urn = '')
		ORDER BY scheduled_at ASC
	`
	rows, err := r.db.QueryContext(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to query due posts: %w", err)
	}
	defer rows.Close()

	var posts []models.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan due post: %w", err)
		}
		posts = append(posts, *p)
	}
	return posts, rows.Err()
}

// MarkPublished records the external post reference; the post_urn guard
// keeps retries from double-publishing.
func (r *PostRepository) MarkPublished(ctx context.Context, postID, postURN, postURL string, publishedAt time.Time) error {
	query := `
		UPDATE posts
		SET post_urn = $2, post_url = $3, published_at = $4, publish_error = ''
		WHERE id = $1 AND (post_urn IS NULL OR post_urn = '')
	`
	result, err := r.db.ExecContext(ctx, query, postID, postURN, postURL, publishedAt)
	if err != nil {
		return fmt.Errorf("failed to mark post published: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("post %s already has a publish record", postID)
	}
	return nil
}

func (r *PostRepository) SetPublishError(ctx context.Context, postID, message string) error {
	query := `UPDATE posts SET publish_error = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, postID, message); err != nil {
		return fmt.Errorf("failed to record post publish error: %w", err)
	}
	return nil
}

func scanPost(row rowScanner) (*models.Post, error) {
	var p models.Post
	var imageURL, altText, postURN, postURL, publishError sql.NullString

	err := row.Scan(
		&p.ID, &p.UserID, &p.Content, &imageURL, &altText, &p.Approved, &p.AutoPublish,
		&p.ScheduledAt, &postURN, &postURL, &p.PublishedAt, &publishError, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.ImageURL = imageURL.String
	p.AltText = altText.String
	p.PostURN = postURN.String
	p.PostURL = postURL.String
	p.PublishError = publishError.String
	return &p, nil
}
