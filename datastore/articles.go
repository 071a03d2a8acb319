package datastore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/tobyhart/deckpress/models"
)

type ArticleRepository struct {
	db *sql.DB
}

func NewArticleRepository(db *sql.DB) *ArticleRepository {
	return &ArticleRepository{db: db}
}

const articleColumns = `
	id, user_id, title, subtitle, introduction, sections, conclusion,
	article_type, approved, auto_publish, scheduled_at,
	post_urn, post_url, published_at, publish_error, created_at
`

func (r *ArticleRepository) CreateArticle(ctx context.Context, article *models.Article) error {
	if _, err := uuid.Parse(article.ID); err != nil {
		return fmt.Errorf("invalid article ID format: %w", err)
	}
	if _, err := uuid.Parse(article.UserID); err != nil {
		return fmt.Errorf("invalid user ID format: %w", err)
	}

	query := `
		INSERT INTO articles (` + articleColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`
	_, err := r.db.ExecContext(ctx, query,
		article.ID, article.UserID, article.Title, article.Subtitle, article.Introduction,
		pq.Array(article.Sections), article.Conclusion, string(article.ArticleType),
		article.Approved, article.AutoPublish, article.ScheduledAt,
		article.PostURN, article.PostURL, article.PublishedAt, article.PublishError,
		article.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert article: %w", err)
	}
	return nil
}

// GetArticleByID returns nil without error when the article does not exist.
func (r *ArticleRepository) GetArticleByID(ctx context.Context, articleID string) (*models.Article, error) {
	if _, err := uuid.Parse(articleID); err != nil {
		return nil, fmt.Errorf("invalid article ID format: %w", err)
	}

	query := `SELECT ` + articleColumns + ` FROM articles WHERE id = $1`
	article, err := scanArticle(r.db.QueryRowContext(ctx, query, articleID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get article by ID: %w", err)
	}
	return article, nil
}

// UpdateSchedule sets an article's own publish schedule.
func (r *ArticleRepository) UpdateSchedule(ctx context.Context, articleID string, scheduledAt *time.Time, autoPublish bool) error {
	if _, err := uuid.Parse(articleID); err != nil {
		return fmt.Errorf("invalid article ID format: %w", err)
	}

	query := `UPDATE articles SET scheduled_at = $2, auto_publish = $3 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, articleID, scheduledAt, autoPublish)
	if err != nil {
		return fmt.Errorf("failed to update article schedule: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("article not found for schedule update: %w", sql.ErrNoRows)
	}
	return nil
}

// MarkPublished records the external post reference for a standalone
// article publish. The post_urn guard keeps the operation idempotent: an
// already-published article is never overwritten.
func (r *ArticleRepository) MarkPublished(ctx context.Context, articleID, postURN, postURL string, publishedAt time.Time) error {
	query := `
		UPDATE articles
		SET post_urn = $2, post_url = $3, published_at = $4, publish_error = ''
		WHERE id = $1 AND (post_urn IS NULL OR post_urn = '')
	`
	result, err := r.db.ExecContext(ctx, query, articleID, postURN, postURL, publishedAt)
	if err != nil {
		return fmt.Errorf("failed to mark article published: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("article %s already has a publish record", articleID)
	}
	return nil
}

func (r *ArticleRepository) SetPublishError(ctx context.Context, articleID, message string) error {
	query := `UPDATE articles SET publish_error = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, articleID, message); err != nil {
		return fmt.Errorf("failed to record article publish error: %w", err)
	}
	return nil
}

// GetDueArticles selects approved, auto-publish articles whose scheduled
// time has passed and that carry no successful publish record yet.
func (r *ArticleRepository) GetDueArticles(ctx context.Context, now time.Time) ([]models.Article, error) {
	query := `
		SELECT ` + articleColumns + `
		FROM articles
		WHERE approved = TRUE
		  AND auto_publish = TRUE
		  AND scheduled_at IS NOT NULL
		  AND scheduled_at <= $1
		  AND (post_urn IS NULL OR post_urn = '')
		ORDER BY scheduled_at ASC
	`
	rows, err := r.db.QueryContext(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to query due articles: %w", err)
	}
	defer rows.Close()

	var articles []models.Article
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan due article: %w", err)
		}
		articles = append(articles, *article)
	}
	return articles, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArticle(row rowScanner) (*models.Article, error) {
	var article models.Article
	var articleType string
	var subtitle, introduction, conclusion, postURN, postURL, publishError sql.NullString

	err := row.Scan(
		&article.ID, &article.UserID, &article.Title, &subtitle, &introduction,
		pq.Array(&article.Sections), &conclusion, &articleType,
		&article.Approved, &article.AutoPublish, &article.ScheduledAt,
		&postURN, &postURL, &article.PublishedAt, &publishError, &article.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	article.Subtitle = subtitle.String
	article.Introduction = introduction.String
	article.Conclusion = conclusion.String
	article.ArticleType = models.ArticleType(articleType)
	article.PostURN = postURN.String
	article.PostURL = postURL.String
	article.PublishError = publishError.String
	return &article, nil
}
