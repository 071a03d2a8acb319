package datastore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/tobyhart/deckpress/models"
)

type SlideVersionRepository struct {
	db *sql.DB
}

func NewSlideVersionRepository(db *sql.DB) *SlideVersionRepository {
	return &SlideVersionRepository{db: db}
}

const slideVersionColumns = `
	id, carousel_id, slide_number, version_number, prompt, headline_text,
	caption, image_url, is_active, generation_provider, generation_error,
	created_at
`

// AppendVersion inserts a new version for a slide and makes it the single
// active one. The version number is assigned inside the transaction
// (previous max + 1) and the sibling deactivation happens in the same
// transaction, so there is never a window with zero or two active
// versions. The assigned version number is written back to v.
func (r *SlideVersionRepository) AppendVersion(ctx context.Context, v *models.SlideVersion) error {
	if _, err := uuid.Parse(v.ID); err != nil {
		return fmt.Errorf("invalid slide version ID format: %w", err)
	}
	if _, err := uuid.Parse(v.CarouselID); err != nil {
		return fmt.Errorf("invalid carousel ID format: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin version transaction: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(version_number), 0) + 1
		FROM slide_versions
		WHERE carousel_id = $1 AND slide_number = $2
	`, v.CarouselID, v.SlideNumber)
	if err := row.Scan(&v.VersionNumber); err != nil {
		return fmt.Errorf("failed to compute next version number: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE slide_versions
		SET is_active = FALSE
		WHERE carousel_id = $1 AND slide_number = $2 AND is_active = TRUE
	`, v.CarouselID, v.SlideNumber)
	if err != nil {
		return fmt.Errorf("failed to deactivate prior versions: %w", err)
	}

	v.IsActive = true
	_, err = tx.ExecContext(ctx, `
		INSERT INTO slide_versions (`+slideVersionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`,
		v.ID, v.CarouselID, v.SlideNumber, v.VersionNumber, v.Prompt, v.HeadlineText,
		v.Caption, v.ImageURL, v.IsActive, v.GenerationProvider, v.GenerationError,
		v.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert slide version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit version transaction: %w", err)
	}
	return nil
}

// ListVersions returns all versions for a slide ordered by version number.
func (r *SlideVersionRepository) ListVersions(ctx context.Context, carouselID string, slideNumber int) ([]models.SlideVersion, error) {
	if _, err := uuid.Parse(carouselID); err != nil {
		return nil, fmt.Errorf("invalid carousel ID format: %w", err)
	}

	query := `
		SELECT ` + slideVersionColumns + `
		FROM slide_versions
		WHERE carousel_id = $1 AND slide_number = $2
		ORDER BY version_number ASC
	`
	rows, err := r.db.QueryContext(ctx, query, carouselID, slideNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to query slide versions: %w", err)
	}
	defer rows.Close()

	var versions []models.SlideVersion
	for rows.Next() {
		v, err := scanSlideVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan slide version: %w", err)
		}
		versions = append(versions, *v)
	}
	return versions, rows.Err()
}

// GetVersionByID returns nil without error when the version does not exist.
func (r *SlideVersionRepository) GetVersionByID(ctx context.Context, versionID string) (*models.SlideVersion, error) {
	if _, err := uuid.Parse(versionID); err != nil {
		return nil, fmt.Errorf("invalid version ID format: %w", err)
	}

	query := `SELECT ` + slideVersionColumns + ` FROM slide_versions WHERE id = $1`
	v, err := scanSlideVersion(r.db.QueryRowContext(ctx, query, versionID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get slide version by ID: %w", err)
	}
	return v, nil
}

// ActivateVersion flips the active flag to the target version in a single
// conditional update: the target becomes active, every sibling becomes
// inactive, atomically.
func (r *SlideVersionRepository) ActivateVersion(ctx context.Context, carouselID string, slideNumber int, versionID string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE slide_versions
		SET is_active = (id = $3)
		WHERE carousel_id = $1 AND slide_number = $2
	`, carouselID, slideNumber, versionID)
	if err != nil {
		return fmt.Errorf("failed to activate slide version: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("no versions found for carousel %s slide %d: %w", carouselID, slideNumber, sql.ErrNoRows)
	}
	return nil
}

// ActiveVersions returns the currently-active version for every slide of
// the carousel, ordered by slide number, for whole-document re-renders.
func (r *SlideVersionRepository) ActiveVersions(ctx context.Context, carouselID string) ([]models.SlideVersion, error) {
	if _, err := uuid.Parse(carouselID); err != nil {
		return nil, fmt.Errorf("invalid carousel ID format: %w", err)
	}

	query := `
		SELECT ` + slideVersionColumns + `
		FROM slide_versions
		WHERE carousel_id = $1 AND is_active = TRUE
		ORDER BY slide_number ASC
	`
	rows, err := r.db.QueryContext(ctx, query, carouselID)
	if err != nil {
		return nil, fmt.Errorf("failed to query active versions: %w", err)
	}
	defer rows.Close()

	var versions []models.SlideVersion
	for rows.Next() {
		v, err := scanSlideVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan active version: %w", err)
		}
		versions = append(versions, *v)
	}
	return versions, rows.Err()
}

func scanSlideVersion(row rowScanner) (*models.SlideVersion, error) {
	var v models.SlideVersion
	var caption, imageURL, provider, genError sql.NullString

	err := row.Scan(
		&v.ID, &v.CarouselID, &v.SlideNumber, &v.VersionNumber, &v.Prompt, &v.HeadlineText,
		&caption, &imageURL, &v.IsActive, &provider, &genError, &v.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	v.Caption = caption.String
	v.ImageURL = imageURL.String
	v.GenerationProvider = provider.String
	v.GenerationError = genError.String
	return &v, nil
}
