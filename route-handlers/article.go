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

type ArticleHandler struct {
	Repo *datastore.ArticleRepository
}

func NewArticleHandler(repo *datastore.ArticleRepository) *ArticleHandler {
	return &ArticleHandler{Repo: repo}
}

func (h *ArticleHandler) HandleCreateArticle(w http.ResponseWriter, r *http.Request) error {
	var requestData struct {
		UserID       string   `json:"user_id"`
		Title        string   `json:"title"`
		Subtitle     string   `json:"subtitle"`
		Introduction string   `json:"introduction"`
		Sections     []string `json:"sections"`
		Conclusion   string   `json:"conclusion"`
		ArticleType  string   `json:"article_type"`
		Approved     bool     `json:"approved"`
	}
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(&requestData); err != nil {
		return webutil.ErrBadRequest("Invalid request payload: " + err.Error())
	}
	defer r.Body.Close()

	if requestData.Title == "" {
		return webutil.ErrBadRequest("Title is required")
	}
	if _, err := uuid.Parse(requestData.UserID); err != nil {
		return webutil.ErrBadRequest("Invalid user ID format")
	}

	articleType := models.ArticleType(requestData.ArticleType)
	switch articleType {
	case models.ArticleTypeDeepDive, models.ArticleTypeHowTo, models.ArticleTypeStandard:
	case "":
		articleType = models.ArticleTypeStandard
	default:
		return webutil.ErrBadRequest("Unknown article type: " + requestData.ArticleType)
	}

	article := models.Article{
		ID:           uuid.NewString(),
		UserID:       requestData.UserID,
		Title:        requestData.Title,
		Subtitle:     requestData.Subtitle,
		Introduction: requestData.Introduction,
		Sections:     requestData.Sections,
		Conclusion:   requestData.Conclusion,
		ArticleType:  articleType,
		Approved:     requestData.Approved,
		CreatedAt:    time.Now().UTC(),
	}

	if err := h.Repo.CreateArticle(r.Context(), &article); err != nil {
		return fmt.Errorf("failed to create article %s: %w", article.ID, err)
	}

	webutil.RespondWithJSON(w, http.StatusCreated, article)
	return nil
}

func (h *ArticleHandler) HandleGetArticle(w http.ResponseWriter, r *http.Request) error {
	articleID, err := articleIDParam(r)
	if err != nil {
		return err
	}

	article, err := h.Repo.GetArticleByID(r.Context(), articleID)
	if err != nil {
		return fmt.Errorf("failed to retrieve article %s: %w", articleID, err)
	}
	if article == nil {
		return webutil.ErrNotFound("Article not found")
	}

	webutil.RespondWithJSON(w, http.StatusOK, article)
	return nil
}

// HandleUpdateArticleSchedule sets the article's own publish time, which
// shared-schedule carousels derive theirs from.
func (h *ArticleHandler) HandleUpdateArticleSchedule(w http.ResponseWriter, r *http.Request) error {
	articleID, err := articleIDParam(r)
	if err != nil {
		return err
	}

	var requestData struct {
		ScheduledAt *time.Time `json:"scheduled_at"`
		AutoPublish bool       `json:"auto_publish"`
	}
	if err := decodeOptionalBody(r, &requestData); err != nil {
		return err
	}

	if err := h.Repo.UpdateSchedule(r.Context(), articleID, requestData.ScheduledAt, requestData.AutoPublish); err != nil {
		return webutil.ErrNotFoundWrap("Article not found", err)
	}

	webutil.RespondWithJSON(w, http.StatusOK, map[string]any{
		"scheduled_at": requestData.ScheduledAt,
		"auto_publish": requestData.AutoPublish,
	})
	return nil
}
