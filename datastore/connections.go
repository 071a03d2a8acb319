package datastore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/tobyhart/deckpress/models"
)

type ConnectionRepository struct {
	db *sql.DB
}

func NewConnectionRepository(db *sql.DB) *ConnectionRepository {
	return &ConnectionRepository{db: db}
}

const connectionColumns = `
	id, user_id, access_token_encrypted, member_urn, expires_at, created_at
`

// UpsertConnection stores or replaces a user's platform connection. One
// connection per user; reconnecting overwrites the sealed token.
func (r *ConnectionRepository) UpsertConnection(ctx context.Context, c *models.Connection) error {
	if _, err := uuid.Parse(c.ID); err != nil {
		return fmt.Errorf("invalid connection ID format: %w", err)
	}
	if _, err := uuid.Parse(c.UserID); err != nil {
		return fmt.Errorf("invalid user ID format: %w", err)
	}

	query := `
		INSERT INTO connections (` + connectionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE
		SET access_token_encrypted = EXCLUDED.access_token_encrypted,
		    member_urn = EXCLUDED.member_urn,
		    expires_at = EXCLUDED.expires_at
	`
	_, err := r.db.ExecContext(ctx, query,
		c.ID, c.UserID, c.AccessTokenEncrypted, c.MemberURN, c.ExpiresAt, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert connection: %w", err)
	}
	return nil
}

// GetByUserID returns nil without error when the user has no stored
// connection.
func (r *ConnectionRepository) GetByUserID(ctx context.Context, userID string) (*models.Connection, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return nil, fmt.Errorf("invalid user ID format: %w", err)
	}

	query := `SELECT ` + connectionColumns + ` FROM connections WHERE user_id = $1`
	var c models.Connection
	row := r.db.QueryRowContext(ctx, query, userID)
	err := row.Scan(&c.ID, &c.UserID, &c.AccessTokenEncrypted, &c.MemberURN, &c.ExpiresAt, &c.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get connection by user ID: %w", err)
	}
	return &c, nil
}
