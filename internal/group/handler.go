package group

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"secret-santa-backend/pkg/response"
)

// Handler handles HTTP requests for group operations
type Handler struct {
	service *Service
}

// NewHandler creates a new group handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the router for group endpoints. Draw and dispatch routes are
// added onto this router from main by their own feature handlers.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{id}", h.GetByID)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	r.Post("/{id}/duplicate", h.Duplicate)
	r.Post("/{id}/reset", h.Reset)

	// Participant management
	r.Post("/{id}/participants", h.AddParticipant)
	r.Get("/{id}/participants", h.GetParticipants)
	r.Put("/{id}/participants/{participantId}", h.UpdateParticipant)
	r.Delete("/{id}/participants/{participantId}", h.RemoveParticipant)

	return r
}

// Create handles POST /groups
// @Summary      Create a new group
// @Description  Create a new gift exchange group in drafting status
// @Tags         groups
// @Accept       json
// @Produce      json
// @Param        request body CreateGroupRequest true "Group creation request"
// @Success      201 {object} response.APIResponse{data=GroupResponse}
// @Failure      400 {object} response.APIResponse
// @Router       /groups [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if req.Name == "" {
		response.BadRequest(w, "Group name is required")
		return
	}

	group, err := h.service.Create(r.Context(), &req)
	if err != nil {
		response.InternalError(w, "Failed to create group")
		return
	}

	response.JSON(w, http.StatusCreated, group.ToResponse())
}

// List handles GET /groups
// @Summary      List groups
// @Tags         groups
// @Produce      json
// @Success      200 {object} response.APIResponse{data=[]GroupResponse}
// @Router       /groups [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	groups, err := h.service.List(r.Context())
	if err != nil {
		response.InternalError(w, "Failed to list groups")
		return
	}

	resp := make([]*GroupResponse, 0, len(groups))
	for _, g := range groups {
		resp = append(resp, g.ToResponse())
	}

	response.JSON(w, http.StatusOK, resp)
}

// GetByID handles GET /groups/{id}
// @Summary      Get group by ID
// @Description  Get a group with all its participants
// @Tags         groups
// @Produce      json
// @Param        id path int true "Group ID"
// @Success      200 {object} response.APIResponse{data=GroupResponse}
// @Failure      404 {object} response.APIResponse
// @Router       /groups/{id} [get]
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		response.BadRequest(w, "Invalid group ID")
		return
	}

	group, participants, err := h.service.GetByIDWithParticipants(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrGroupNotFound) {
			response.NotFound(w, "Group not found")
			return
		}
		response.InternalError(w, "Failed to get group")
		return
	}

	resp := group.ToResponse()
	for _, p := range participants {
		resp.Participants = append(resp.Participants, p.ToResponse())
	}

	response.JSON(w, http.StatusOK, resp)
}

// Update handles PUT /groups/{id}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		response.BadRequest(w, "Invalid group ID")
		return
	}

	var req UpdateGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	group, err := h.service.Update(r.Context(), id, &req)
	if err != nil {
		if errors.Is(err, ErrGroupNotFound) {
			response.NotFound(w, "Group not found")
			return
		}
		response.InternalError(w, "Failed to update group")
		return
	}

	response.JSON(w, http.StatusOK, group.ToResponse())
}

// Delete handles DELETE /groups/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		response.BadRequest(w, "Invalid group ID")
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		if errors.Is(err, ErrGroupNotFound) {
			response.NotFound(w, "Group not found")
			return
		}
		response.InternalError(w, "Failed to delete group")
		return
	}

	response.JSON(w, http.StatusOK, map[string]string{"message": "Group deleted"})
}

// Duplicate handles POST /groups/{id}/duplicate
func (h *Handler) Duplicate(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		response.BadRequest(w, "Invalid group ID")
		return
	}

	duplicate, err := h.service.Duplicate(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrGroupNotFound) {
			response.NotFound(w, "Group not found")
			return
		}
		response.InternalError(w, "Failed to duplicate group")
		return
	}

	response.JSON(w, http.StatusCreated, duplicate.ToResponse())
}

// Reset handles POST /groups/{id}/reset
// @Summary      Reset a group to drafting
// @Description  Discards all assignments and returns the group to drafting status
// @Tags         groups
// @Produce      json
// @Param        id path int true "Group ID"
// @Success      200 {object} response.APIResponse{data=GroupResponse}
// @Failure      404 {object} response.APIResponse
// @Router       /groups/{id}/reset [post]
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		response.BadRequest(w, "Invalid group ID")
		return
	}

	group, err := h.service.Reset(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrGroupNotFound) {
			response.NotFound(w, "Group not found")
			return
		}
		response.InternalError(w, "Failed to reset group")
		return
	}

	response.JSON(w, http.StatusOK, group.ToResponse())
}

// AddParticipant handles POST /groups/{id}/participants
func (h *Handler) AddParticipant(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		response.BadRequest(w, "Invalid group ID")
		return
	}

	var req ParticipantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if req.Name == "" || req.Phone == "" {
		response.BadRequest(w, "Name and phone are required")
		return
	}

	participant, err := h.service.AddParticipant(r.Context(), id, &req)
	if err != nil {
		h.writeParticipantError(w, err, "Failed to add participant")
		return
	}

	response.JSON(w, http.StatusCreated, participant.ToResponse())
}

// GetParticipants handles GET /groups/{id}/participants
func (h *Handler) GetParticipants(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		response.BadRequest(w, "Invalid group ID")
		return
	}

	_, participants, err := h.service.GetByIDWithParticipants(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrGroupNotFound) {
			response.NotFound(w, "Group not found")
			return
		}
		response.InternalError(w, "Failed to get participants")
		return
	}

	resp := make([]*ParticipantResponse, 0, len(participants))
	for _, p := range participants {
		resp = append(resp, p.ToResponse())
	}

	response.JSON(w, http.StatusOK, resp)
}

// UpdateParticipant handles PUT /groups/{id}/participants/{participantId}
func (h *Handler) UpdateParticipant(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		response.BadRequest(w, "Invalid group ID")
		return
	}
	participantID, err := parseID(r, "participantId")
	if err != nil {
		response.BadRequest(w, "Invalid participant ID")
		return
	}

	var req ParticipantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if req.Name == "" || req.Phone == "" {
		response.BadRequest(w, "Name and phone are required")
		return
	}

	participant, err := h.service.UpdateParticipant(r.Context(), id, participantID, &req)
	if err != nil {
		h.writeParticipantError(w, err, "Failed to update participant")
		return
	}

	response.JSON(w, http.StatusOK, participant.ToResponse())
}

// RemoveParticipant handles DELETE /groups/{id}/participants/{participantId}
func (h *Handler) RemoveParticipant(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		response.BadRequest(w, "Invalid group ID")
		return
	}
	participantID, err := parseID(r, "participantId")
	if err != nil {
		response.BadRequest(w, "Invalid participant ID")
		return
	}

	if err := h.service.RemoveParticipant(r.Context(), id, participantID); err != nil {
		h.writeParticipantError(w, err, "Failed to remove participant")
		return
	}

	response.JSON(w, http.StatusOK, map[string]string{"message": "Participant removed"})
}

func (h *Handler) writeParticipantError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, ErrGroupNotFound):
		response.NotFound(w, "Group not found")
	case errors.Is(err, ErrParticipantNotFound):
		response.NotFound(w, "Participant not found")
	case errors.Is(err, ErrGroupLocked):
		response.Conflict(w, err.Error())
	case errors.Is(err, ErrInvalidPhone):
		response.BadRequest(w, err.Error())
	default:
		response.InternalError(w, fallback)
	}
}

func parseID(r *http.Request, param string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, param), 10, 64)
}
