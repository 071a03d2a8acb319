package datastore

import (
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/lib/pq"
	"github.com/tobyhart/deckpress/models"
)

// prefixColumns rewrites a bare column list ("id, name") into a
// table-qualified one ("c.id, c.name") for join queries.
func prefixColumns(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, part := range parts {
		parts[i] = alias + "." + strings.TrimSpace(part)
	}
	return strings.Join(parts, ", ")
}

func scanCarousel(row rowScanner) (*models.Carousel, error) {
	var c models.Carousel
	var pagesJSON []byte
	var status string
	var documentURL, provider, postURN, postURL, publishError sql.NullString

	err := row.Scan(
		&c.ID, &c.ArticleID, &c.PageCount, &pagesJSON, &c.StylePreset, &documentURL,
		&provider, &status, &c.ScheduledAt, &c.AutoPublish,
		&c.SharedSchedule, &c.OffsetDays, &postURN, &postURL, &c.PublishedAt,
		&publishError, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(pagesJSON) > 0 {
		if err := json.Unmarshal(pagesJSON, &c.Pages); err != nil {
			return nil, err
		}
	}
	c.DocumentURL = documentURL.String
	c.GenerationProvider = provider.String
	c.Status = models.CarouselStatus(status)
	c.PostURN = postURN.String
	c.PostURL = postURL.String
	c.PublishError = publishError.String
	return &c, nil
}

func scanDueCarousel(row rowScanner) (*DueCarousel, error) {
	var item DueCarousel
	c := &item.Carousel
	a := &item.Article

	var pagesJSON []byte
	var status, articleType string
	var documentURL, provider, cPostURN, cPostURL, cPublishError sql.NullString
	var subtitle, introduction, conclusion, aPostURN, aPostURL, aPublishError sql.NullString

	err := row.Scan(
		&c.ID, &c.ArticleID, &c.PageCount, &pagesJSON, &c.StylePreset, &documentURL,
		&provider, &status, &c.ScheduledAt, &c.AutoPublish,
		&c.SharedSchedule, &c.OffsetDays, &cPostURN, &cPostURL, &c.PublishedAt,
		&cPublishError, &c.CreatedAt, &c.UpdatedAt,
		&a.ID, &a.UserID, &a.Title, &subtitle, &introduction,
		pq.Array(&a.Sections), &conclusion, &articleType,
		&a.Approved, &a.AutoPublish, &a.ScheduledAt,
		&aPostURN, &aPostURL, &a.PublishedAt, &aPublishError, &a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(pagesJSON) > 0 {
		if err := json.Unmarshal(pagesJSON, &c.Pages); err != nil {
			return nil, err
		}
	}
	c.DocumentURL = documentURL.String
	c.GenerationProvider = provider.String
	c.Status = models.CarouselStatus(status)
	c.PostURN = cPostURN.String
	c.PostURL = cPostURL.String
	c.PublishError = cPublishError.String

	a.Subtitle = subtitle.String
	a.Introduction = introduction.String
	a.Conclusion = conclusion.String
	a.ArticleType = models.ArticleType(articleType)
	a.PostURN = aPostURN.String
	a.PostURL = aPostURL.String
	a.PublishError = aPublishError.String
	return &item, nil
}
