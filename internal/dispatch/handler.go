package dispatch

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"secret-santa-backend/internal/group"
	"secret-santa-backend/pkg/response"
)

// Handler handles HTTP requests for dispatch operations
type Handler struct {
	service *Service
}

// NewHandler creates a new dispatch handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// GroupRoutes registers the group-scoped dispatch endpoints onto the group router
func (h *Handler) GroupRoutes(r chi.Router) {
	r.Post("/{id}/dispatch", h.DispatchGroup)
	r.Get("/{id}/deliveries", h.ListDeliveries)
}

// JobRoutes returns the router for job status queries
func (h *Handler) JobRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/{jobId}", h.GetJob)
	return r
}

// DispatchGroup handles POST /groups/{id}/dispatch
// @Summary      Dispatch reveal links to a group
// @Description  Enqueues one paced delivery job per assignment; sends happen asynchronously
// @Tags         dispatch
// @Produce      json
// @Param        id path int true "Group ID"
// @Success      200 {object} response.APIResponse{data=BatchResponse}
// @Failure      400 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Router       /groups/{id}/dispatch [post]
func (h *Handler) DispatchGroup(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid group ID")
		return
	}

	batch, err := h.service.DispatchGroup(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, group.ErrGroupNotFound):
			response.NotFound(w, "Group not found")
		case errors.Is(err, ErrGroupNotDrawn):
			response.Conflict(w, err.Error())
		case errors.Is(err, ErrNoAssignments):
			response.BadRequest(w, err.Error())
		default:
			response.InternalError(w, "Failed to dispatch group")
		}
		return
	}

	response.JSON(w, http.StatusOK, batch.ToResponse())
}

// GetJob handles GET /jobs/{jobId}
// @Summary      Get a delivery job
// @Tags         dispatch
// @Produce      json
// @Param        jobId path string true "Job ID"
// @Success      200 {object} response.APIResponse{data=JobResponse}
// @Failure      404 {object} response.APIResponse
// @Router       /jobs/{jobId} [get]
func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "jobId")

	job, err := h.service.GetJob(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrJobNotFound) {
			response.NotFound(w, "Job not found")
			return
		}
		response.InternalError(w, "Failed to get job")
		return
	}

	response.JSON(w, http.StatusOK, job.ToResponse())
}

// ListDeliveries handles GET /groups/{id}/deliveries
func (h *Handler) ListDeliveries(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid group ID")
		return
	}

	records, err := h.service.ListDeliveries(r.Context(), id)
	if err != nil {
		if errors.Is(err, group.ErrGroupNotFound) {
			response.NotFound(w, "Group not found")
			return
		}
		response.InternalError(w, "Failed to list deliveries")
		return
	}

	resp := make([]*DeliveryRecordResponse, 0, len(records))
	for _, record := range records {
		resp = append(resp, record.ToResponse())
	}

	response.JSON(w, http.StatusOK, resp)
}
