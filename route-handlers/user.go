package routehandlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/tobyhart/deckpress/datastore"
	"github.com/tobyhart/deckpress/models"
	"github.com/tobyhart/deckpress/webutil"
)

type UserHandler struct {
	Repo *datastore.UserRepository
}

func NewUserHandler(repo *datastore.UserRepository) *UserHandler {
	return &UserHandler{Repo: repo}
}

func (h *UserHandler) HandleCreateUser(w http.ResponseWriter, r *http.Request) error {
	var requestData struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(&requestData); err != nil {
		return webutil.ErrBadRequest("Invalid request payload: " + err.Error())
	}
	defer r.Body.Close()

	if requestData.Email == "" || !strings.Contains(requestData.Email, "@") {
		return webutil.ErrBadRequest("A valid email is required")
	}

	user := models.User{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Email:     requestData.Email,
		Name:      requestData.Name,
	}

	if err := h.Repo.CreateUser(r.Context(), &user); err != nil {
		return fmt.Errorf("failed to create user %s: %w", user.Email, err)
	}

	webutil.RespondWithJSON(w, http.StatusCreated, user)
	return nil
}

func (h *UserHandler) HandleGetUser(w http.ResponseWriter, r *http.Request) error {
	userID := chi.URLParam(r, "id")
	if _, err := uuid.Parse(userID); err != nil {
		return webutil.ErrBadRequest("Invalid user ID format")
	}

	user, err := h.Repo.GetUserByID(r.Context(), userID)
	if err != nil {
		return fmt.Errorf("failed to retrieve user %s: %w", userID, err)
	}
	if user == nil {
		return webutil.ErrNotFound("User not found")
	}

	webutil.RespondWithJSON(w, http.StatusOK, user)
	return nil
}
