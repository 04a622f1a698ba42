package assignment

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"secret-santa-backend/internal/draw"
	"secret-santa-backend/internal/group"
	"secret-santa-backend/pkg/response"
)

// Handler handles HTTP requests for draw and reveal operations
type Handler struct {
	service *Service
}

// NewHandler creates a new assignment handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// GroupRoutes registers the group-scoped draw endpoints onto the group router
func (h *Handler) GroupRoutes(r chi.Router) {
	r.Post("/{id}/draw", h.RunDraw)
	r.Get("/{id}/draw", h.ListByGroup)
}

// RevealRoutes returns the router for the public reveal endpoint
func (h *Handler) RevealRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/{token}", h.Reveal)
	return r
}

// RunDraw handles POST /groups/{id}/draw
// @Summary      Run the draw for a group
// @Description  Produces the giver->recipient assignments and issues one-time reveal tokens
// @Tags         draw
// @Produce      json
// @Param        id path int true "Group ID"
// @Success      200 {object} response.APIResponse{data=[]DrawEntryResponse}
// @Failure      400 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Router       /groups/{id}/draw [post]
func (h *Handler) RunDraw(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid group ID")
		return
	}

	entries, err := h.service.RunDraw(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, group.ErrGroupNotFound):
			response.NotFound(w, "Group not found")
		case errors.Is(err, draw.ErrInsufficientParticipants):
			response.BadRequest(w, err.Error())
		case errors.Is(err, ErrAlreadyDrawn):
			response.Conflict(w, err.Error())
		case errors.Is(err, draw.ErrInfeasible):
			response.InternalError(w, err.Error())
		default:
			response.InternalError(w, "Failed to run draw")
		}
		return
	}

	resp := make([]*DrawEntryResponse, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, e.ToResponse())
	}

	response.JSON(w, http.StatusOK, resp)
}

// ListByGroup handles GET /groups/{id}/draw
// @Summary      List a group's assignments
// @Tags         draw
// @Produce      json
// @Param        id path int true "Group ID"
// @Success      200 {object} response.APIResponse{data=[]DrawEntryResponse}
// @Failure      404 {object} response.APIResponse
// @Router       /groups/{id}/draw [get]
func (h *Handler) ListByGroup(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid group ID")
		return
	}

	entries, err := h.service.ListByGroup(r.Context(), id)
	if err != nil {
		if errors.Is(err, group.ErrGroupNotFound) {
			response.NotFound(w, "Group not found")
			return
		}
		response.InternalError(w, "Failed to list assignments")
		return
	}

	resp := make([]*DrawEntryResponse, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, e.ToResponse())
	}

	response.JSON(w, http.StatusOK, resp)
}

// Reveal handles GET /reveal/{token} (public)
// @Summary      Reveal an assignment exactly once
// @Description  Consumes the one-time token; later attempts get 403 with the original view time
// @Tags         reveal
// @Produce      json
// @Param        token path string true "Reveal token"
// @Success      200 {object} response.APIResponse{data=RevealResponse}
// @Failure      403 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /reveal/{token} [get]
func (h *Handler) Reveal(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	reveal, err := h.service.Reveal(r.Context(), token)
	if err != nil {
		var viewed *AlreadyViewedError
		switch {
		case errors.Is(err, ErrTokenNotFound):
			response.NotFound(w, err.Error())
		case errors.As(err, &viewed):
			response.ErrorWithData(w, http.StatusForbidden, "ALREADY_VIEWED", viewed.Error(), map[string]interface{}{
				"viewed_at": viewed.ViewedAt,
			})
		default:
			response.InternalError(w, "Failed to reveal assignment")
		}
		return
	}

	response.JSON(w, http.StatusOK, reveal.ToResponse())
}
