package routehandlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/tobyhart/deckpress/generation"
	"github.com/tobyhart/deckpress/webutil"
)

// CarouselHandler exposes the generation pipeline over HTTP. All domain
// decisions live in the orchestrator; this layer only decodes requests
// and translates service errors to status codes.
type CarouselHandler struct {
	Orchestrator *generation.Orchestrator
}

func NewCarouselHandler(orchestrator *generation.Orchestrator) *CarouselHandler {
	return &CarouselHandler{Orchestrator: orchestrator}
}

func (h *CarouselHandler) HandleGenerate(w http.ResponseWriter, r *http.Request) error {
	articleID, err := articleIDParam(r)
	if err != nil {
		return err
	}

	var opts generation.GenerateOptions
	if err := decodeOptionalBody(r, &opts); err != nil {
		return err
	}

	result, err := h.Orchestrator.Generate(r.Context(), articleID, opts)
	if err != nil {
		return translateGenerationError(err)
	}
	if !result.Success {
		webutil.RespondWithJSON(w, http.StatusBadGateway, result)
		return nil
	}
	webutil.RespondWithJSON(w, http.StatusOK, result)
	return nil
}

func (h *CarouselHandler) HandleRegenerateSlide(w http.ResponseWriter, r *http.Request) error {
	articleID, err := articleIDParam(r)
	if err != nil {
		return err
	}
	slideNumber, err := slideNumberParam(r)
	if err != nil {
		return err
	}

	var opts generation.RegenerateOptions
	if err := decodeOptionalBody(r, &opts); err != nil {
		return err
	}

	result, err := h.Orchestrator.RegenerateSlide(r.Context(), articleID, slideNumber, opts)
	if err != nil {
		return translateGenerationError(err)
	}
	if !result.Success {
		webutil.RespondWithJSON(w, http.StatusBadGateway, result)
		return nil
	}
	webutil.RespondWithJSON(w, http.StatusOK, result)
	return nil
}

func (h *CarouselHandler) HandleGetCarousel(w http.ResponseWriter, r *http.Request) error {
	articleID, err := articleIDParam(r)
	if err != nil {
		return err
	}

	carousel, err := h.Orchestrator.Status(r.Context(), articleID)
	if err != nil {
		return translateGenerationError(err)
	}
	webutil.RespondWithJSON(w, http.StatusOK, carousel)
	return nil
}

func (h *CarouselHandler) HandleDeleteCarousel(w http.ResponseWriter, r *http.Request) error {
	articleID, err := articleIDParam(r)
	if err != nil {
		return err
	}

	if err := h.Orchestrator.Delete(r.Context(), articleID); err != nil {
		return translateGenerationError(err)
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (h *CarouselHandler) HandleListVersions(w http.ResponseWriter, r *http.Request) error {
	articleID, err := articleIDParam(r)
	if err != nil {
		return err
	}
	slideNumber, err := slideNumberParam(r)
	if err != nil {
		return err
	}

	versions, err := h.Orchestrator.ListVersions(r.Context(), articleID, slideNumber)
	if err != nil {
		return translateGenerationError(err)
	}
	webutil.RespondWithJSON(w, http.StatusOK, versions)
	return nil
}

func (h *CarouselHandler) HandleActivateVersion(w http.ResponseWriter, r *http.Request) error {
	articleID, err := articleIDParam(r)
	if err != nil {
		return err
	}
	slideNumber, err := slideNumberParam(r)
	if err != nil {
		return err
	}
	versionID := chi.URLParam(r, "versionId")
	if _, err := uuid.Parse(versionID); err != nil {
		return webutil.ErrBadRequest("Invalid version ID format")
	}

	result, err := h.Orchestrator.ActivateVersion(r.Context(), articleID, slideNumber, versionID)
	if err != nil {
		return translateGenerationError(err)
	}
	webutil.RespondWithJSON(w, http.StatusOK, result)
	return nil
}

func articleIDParam(r *http.Request) (string, error) {
	articleID := chi.URLParam(r, "id")
	if _, err := uuid.Parse(articleID); err != nil {
		return "", webutil.ErrBadRequest("Invalid article ID format")
	}
	return articleID, nil
}

func slideNumberParam(r *http.Request) (int, error) {
	slideNumber, err := strconv.Atoi(chi.URLParam(r, "slideNumber"))
	if err != nil {
		return 0, webutil.ErrBadRequest("Invalid slide number")
	}
	return slideNumber, nil
}

// decodeOptionalBody decodes a JSON body into dst, tolerating an empty
// body so callers can omit options entirely.
func decodeOptionalBody(r *http.Request, dst any) error {
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return webutil.ErrBadRequest("Invalid request payload: " + err.Error())
	}
	return nil
}

func translateGenerationError(err error) error {
	switch {
	case errors.Is(err, generation.ErrArticleNotFound):
		return webutil.ErrNotFoundWrap("Article not found", err)
	case errors.Is(err, generation.ErrCarouselNotFound):
		return webutil.ErrNotFoundWrap("Carousel not found", err)
	case errors.Is(err, generation.ErrGenerationInProgress):
		return webutil.ErrConflict("Generation already in progress")
	case errors.Is(err, generation.ErrAlreadyPublished):
		return webutil.ErrConflict("Carousel already published")
	case errors.Is(err, generation.ErrValidation):
		return webutil.ErrBadRequest(err.Error())
	default:
		return err
	}
}
