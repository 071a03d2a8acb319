package routehandlers

import (
	"errors"
	"net/http"

	"github.com/tobyhart/deckpress/scheduling"
	"github.com/tobyhart/deckpress/webutil"
)

// ScheduleHandler exposes the carousel schedule operations.
type ScheduleHandler struct {
	Coordinator *scheduling.Coordinator
}

func NewScheduleHandler(coordinator *scheduling.Coordinator) *ScheduleHandler {
	return &ScheduleHandler{Coordinator: coordinator}
}

func (h *ScheduleHandler) HandleSchedule(w http.ResponseWriter, r *http.Request) error {
	articleID, err := articleIDParam(r)
	if err != nil {
		return err
	}

	var req scheduling.ScheduleRequest
	if err := decodeOptionalBody(r, &req); err != nil {
		return err
	}

	view, err := h.Coordinator.Schedule(r.Context(), articleID, req)
	if err != nil {
		return translateScheduleError(err)
	}
	webutil.RespondWithJSON(w, http.StatusOK, view)
	return nil
}

func (h *ScheduleHandler) HandleUnschedule(w http.ResponseWriter, r *http.Request) error {
	articleID, err := articleIDParam(r)
	if err != nil {
		return err
	}

	view, err := h.Coordinator.Unschedule(r.Context(), articleID)
	if err != nil {
		return translateScheduleError(err)
	}
	webutil.RespondWithJSON(w, http.StatusOK, view)
	return nil
}

func (h *ScheduleHandler) HandleGetSchedule(w http.ResponseWriter, r *http.Request) error {
	articleID, err := articleIDParam(r)
	if err != nil {
		return err
	}

	view, err := h.Coordinator.GetSchedule(r.Context(), articleID)
	if err != nil {
		return translateScheduleError(err)
	}
	webutil.RespondWithJSON(w, http.StatusOK, view)
	return nil
}

func translateScheduleError(err error) error {
	switch {
	case errors.Is(err, scheduling.ErrArticleNotFound):
		return webutil.ErrNotFoundWrap("Article not found", err)
	case errors.Is(err, scheduling.ErrCarouselNotFound):
		return webutil.ErrNotFoundWrap("Carousel not found", err)
	case errors.Is(err, scheduling.ErrConflict):
		return webutil.ErrConflict(err.Error())
	case errors.Is(err, scheduling.ErrValidation):
		return webutil.ErrBadRequest(err.Error())
	default:
		return err
	}
}
