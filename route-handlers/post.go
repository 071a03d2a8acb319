package routehandlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/tobyhart/deckpress/datastore"
	"github.com/tobyhart/deckpress/models"
	"github.com/tobyhart/deckpress/webutil"
)

// PostHandler creates standalone shares that the auto-publisher picks up
// alongside carousels.
type PostHandler struct {
	Repo *datastore.PostRepository
}

func NewPostHandler(repo *datastore.PostRepository) *PostHandler {
	return &PostHandler{Repo: repo}
}

func (h *PostHandler) HandleCreatePost(w http.ResponseWriter, r *http.Request) error {
	var requestData struct {
		UserID      string     `json:"user_id"`
		Content     string     `json:"content"`
		ImageURL    string     `json:"image_url"`
		AltText     string     `json:"alt_text"`
		Approved    bool       `json:"approved"`
		AutoPublish bool       `json:"auto_publish"`
		ScheduledAt *time.Time `json:"scheduled_at"`
	}
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(&requestData); err != nil {
		return webutil.ErrBadRequest("Invalid request payload: " + err.Error())
	}
	defer r.Body.Close()

	if requestData.Content == "" {
		return webutil.ErrBadRequest("Content is required")
	}
	if _, err := uuid.Parse(requestData.UserID); err != nil {
		return webutil.ErrBadRequest("Invalid user ID format")
	}
	if requestData.AutoPublish && requestData.ScheduledAt == nil {
		return webutil.ErrBadRequest("Auto-publish requires a scheduled time")
	}

	post := models.Post{
		ID:          uuid.NewString(),
		UserID:      requestData.UserID,
		Content:     requestData.Content,
		ImageURL:    requestData.ImageURL,
		AltText:     requestData.AltText,
		Approved:    requestData.Approved,
		AutoPublish: requestData.AutoPublish,
		ScheduledAt: requestData.ScheduledAt,
		CreatedAt:   time.Now().UTC(),
	}

	if err := h.Repo.CreatePost(r.Context(), &post); err != nil {
		return fmt.Errorf("failed to create post %s: %w", post.ID, err)
	}

	webutil.RespondWithJSON(w, http.StatusCreated, post)
	return nil
}
