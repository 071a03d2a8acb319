package models

import "time"

// Connection is a user's stored link to the external publishing platform.
// The access token is sealed by the credential vault before it reaches
// this struct; plaintext tokens never touch the datastore.
type Connection struct {
	ID                   string    `json:"id"`
	UserID               string    `json:"user_id"`
	AccessTokenEncrypted string    `json:"-"`
	MemberURN            string    `json:"member_urn"`
	ExpiresAt            time.Time `json:"expires_at"`
	CreatedAt            time.Time `json:"created_at"`
}

// Expired reports whether the connection's token lifetime has passed.
func (c *Connection) Expired(now time.Time) bool {
	return !c.ExpiresAt.After(now)
}
