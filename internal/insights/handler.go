package insights

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/krishilink/krishilink/internal/members"
	"github.com/krishilink/krishilink/internal/platform/httpx"
)

// Handler serves the dashboard snapshot.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs an insights handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers insight routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/admin", h.handleAdminSnapshot)
}

func (h *Handler) handleAdminSnapshot(w http.ResponseWriter, r *http.Request) {
	actor, err := members.RequireActor(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	snap, err := h.service.AdminSnapshot(r.Context(), *actor)
	if err != nil {
		h.logger.Error("admin snapshot", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, snap)
}
