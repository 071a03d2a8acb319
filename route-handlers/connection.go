package routehandlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/tobyhart/deckpress/datastore"
	"github.com/tobyhart/deckpress/models"
	"github.com/tobyhart/deckpress/vault"
	"github.com/tobyhart/deckpress/webutil"
)

// ConnectionHandler stores a user's platform connection. The access token
// is sealed by the vault on the way in and never leaves the server again.
type ConnectionHandler struct {
	Repo  *datastore.ConnectionRepository
	Vault *vault.Vault
}

func NewConnectionHandler(repo *datastore.ConnectionRepository, credentialVault *vault.Vault) *ConnectionHandler {
	return &ConnectionHandler{Repo: repo, Vault: credentialVault}
}

func (h *ConnectionHandler) HandleUpsertConnection(w http.ResponseWriter, r *http.Request) error {
	userID := chi.URLParam(r, "id")
	if _, err := uuid.Parse(userID); err != nil {
		return webutil.ErrBadRequest("Invalid user ID format")
	}

	var requestData struct {
		AccessToken string    `json:"access_token"`
		MemberURN   string    `json:"member_urn"`
		ExpiresAt   time.Time `json:"expires_at"`
	}
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(&requestData); err != nil {
		return webutil.ErrBadRequest("Invalid request payload: " + err.Error())
	}
	defer r.Body.Close()

	if requestData.AccessToken == "" {
		return webutil.ErrBadRequest("Access token is required")
	}
	if requestData.MemberURN == "" {
		return webutil.ErrBadRequest("Member URN is required")
	}
	if requestData.ExpiresAt.IsZero() {
		return webutil.ErrBadRequest("Expiry is required")
	}

	sealed, err := h.Vault.Encrypt(requestData.AccessToken)
	if err != nil {
		return fmt.Errorf("failed to seal access token: %w", err)
	}

	connection := models.Connection{
		ID:                   uuid.NewString(),
		UserID:               userID,
		AccessTokenEncrypted: sealed,
		MemberURN:            requestData.MemberURN,
		ExpiresAt:            requestData.ExpiresAt.UTC(),
		CreatedAt:            time.Now().UTC(),
	}

	if err := h.Repo.UpsertConnection(r.Context(), &connection); err != nil {
		return fmt.Errorf("failed to store connection for user %s: %w", userID, err)
	}

	webutil.RespondWithJSON(w, http.StatusOK, connection)
	return nil
}

func (h *ConnectionHandler) HandleGetConnection(w http.ResponseWriter, r *http.Request) error {
	userID := chi.URLParam(r, "id")
	if _, err := uuid.Parse(userID); err != nil {
		return webutil.ErrBadRequest("Invalid user ID format")
	}

	connection, err := h.Repo.GetByUserID(r.Context(), userID)
	if err != nil {
		return fmt.Errorf("failed to retrieve connection for user %s: %w", userID, err)
	}
	if connection == nil {
		return webutil.ErrNotFound("Connection not found")
	}

	webutil.RespondWithJSON(w, http.StatusOK, connection)
	return nil
}
