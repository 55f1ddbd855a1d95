package actions

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/shipops/ship/pkg/events"
	"github.com/shipops/ship/pkg/identity"
	"github.com/shipops/ship/pkg/orchestrator"
)

// actionRequest is the JSON body shared by all four action endpoints. The
// image and scale fields are only read by the endpoints that need them.
type actionRequest struct {
	ServiceName            string  `json:"service_name"`
	ServiceImage           string  `json:"service_image"`
	ServiceOldImageVersion string  `json:"service_old_image_version"`
	ServiceNewImageVersion string  `json:"service_new_image_version"`
	ServiceScale           *uint64 `json:"service_scale"`
}

// RegisterRoutes registers the four gated mutation endpoints on the given
// router. Every endpoint runs the pipeline first; the orchestrator is only
// invoked when the pipeline allowed the action.
func RegisterRoutes(r chi.Router, p *Pipeline, orch orchestrator.Orchestrator, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	h := &actionHandlers{pipeline: p, orch: orch, unit: p.unit, logger: logger}

	r.Post("/update", h.update)
	r.Post("/force_update", h.forceUpdate)
	r.Post("/scale", h.scale)
	r.Post("/restore", h.restore)
}

type actionHandlers struct {
	pipeline *Pipeline
	orch     orchestrator.Orchestrator
	unit     string
	logger   *slog.Logger
}

// update handles POST /update: change the image version of a service.
func (h *actionHandlers) update(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	if req.ServiceImage == "" || req.ServiceNewImageVersion == "" {
		writeError(w, http.StatusBadRequest, "service_image and service_new_image_version are required")
		return
	}

	user := identity.UserFromContext(r.Context())
	params := map[string]any{
		"image":             req.ServiceImage,
		"old_image_version": req.ServiceOldImageVersion,
		"new_image_version": req.ServiceNewImageVersion,
	}

	if !h.pipeline.HandleAction(r.Context(), events.ActionUpdate, user, req.ServiceName, params) {
		h.blocked(w, "update")
		return
	}

	if err := h.orch.UpdateImage(r.Context(), req.ServiceName, req.ServiceImage, req.ServiceNewImageVersion); err != nil {
		h.mutationFailed(w, "update", req.ServiceName, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Successfully updated the %s %s!", req.ServiceName, h.unit),
	})
}

// forceUpdate handles POST /force_update: redeploy all tasks in place.
func (h *actionHandlers) forceUpdate(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	user := identity.UserFromContext(r.Context())
	if !h.pipeline.HandleAction(r.Context(), events.ActionForceUpdate, user, req.ServiceName, nil) {
		h.blocked(w, "force re-deploy")
		return
	}

	if err := h.orch.ForceRedeploy(r.Context(), req.ServiceName); err != nil {
		h.mutationFailed(w, "force update", req.ServiceName, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Successfully force updated the %s %s!", req.ServiceName, h.unit),
	})
}

// scale handles POST /scale: change the replica count.
func (h *actionHandlers) scale(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	if req.ServiceScale == nil {
		writeError(w, http.StatusBadRequest, "service_scale is required")
		return
	}

	user := identity.UserFromContext(r.Context())
	params := map[string]any{"scale": int64(*req.ServiceScale)}

	if !h.pipeline.HandleAction(r.Context(), events.ActionScale, user, req.ServiceName, params) {
		h.blocked(w, "scale")
		return
	}

	if err := h.orch.Scale(r.Context(), req.ServiceName, *req.ServiceScale); err != nil {
		h.mutationFailed(w, "scale", req.ServiceName, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Successfully scaled the %s %s!", req.ServiceName, h.unit),
	})
}

// restore handles POST /restore: roll back to the previous version.
func (h *actionHandlers) restore(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	user := identity.UserFromContext(r.Context())
	if !h.pipeline.HandleAction(r.Context(), events.ActionRestore, user, req.ServiceName, nil) {
		h.blocked(w, "restore")
		return
	}

	if err := h.orch.Rollback(r.Context(), req.ServiceName); err != nil {
		h.mutationFailed(w, "restore", req.ServiceName, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Successfully restored the %s %s!", req.ServiceName, h.unit),
	})
}

// decode parses the request body and validates the service name.
func (h *actionHandlers) decode(w http.ResponseWriter, r *http.Request) (actionRequest, bool) {
	var req actionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return req, false
	}
	if req.ServiceName == "" {
		writeError(w, http.StatusBadRequest, "service_name is required")
		return req, false
	}
	return req, true
}

// blocked writes the lockout denial response. The attempt has already been
// audited and notified by the pipeline.
func (h *actionHandlers) blocked(w http.ResponseWriter, verb string) {
	writeError(w, http.StatusLocked,
		fmt.Sprintf("Unable to %s %s during lockout days/hours!", verb, h.unit))
}

// mutationFailed reports an orchestrator failure to the caller. The audit
// event for the action was recorded before the mutation was attempted.
func (h *actionHandlers) mutationFailed(w http.ResponseWriter, verb, service string, err error) {
	h.logger.Error("orchestrator mutation failed",
		"action", verb,
		"service", service,
		"error", err)
	writeError(w, http.StatusBadGateway,
		fmt.Sprintf("Failed to %s the %s %s: %v", verb, service, h.unit, err))
}

// ServicesHandler handles GET /services: a thin list over the orchestrator.
func ServicesHandler(orch orchestrator.Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		services, err := orch.ListServices(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to list services: %v", err))
			return
		}
		if services == nil {
			services = []orchestrator.Service{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"services": services})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
