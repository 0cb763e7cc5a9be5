package auth

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/krishilink/krishilink/internal/platform/httpx"
	"github.com/krishilink/krishilink/internal/shared"
)

// Handler wires the login and logout endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	sessions *shared.SessionManager
	validate *validator.Validate
}

// NewHandler constructs an auth handler.
func NewHandler(logger *slog.Logger, service *Service, sessions *shared.SessionManager) *Handler {
	return &Handler{logger: logger, service: service, sessions: sessions, validate: validator.New()}
}

// MountRoutes registers auth routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MemberNo string `json:"memberNo" validate:"required"`
		Password string `json:"password" validate:"required"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	m, err := h.service.Login(r.Context(), req.MemberNo, req.Password)
	if err != nil {
		h.logger.Warn("login failed", slog.String("member_no", req.MemberNo))
		httpx.RespondError(w, err)
		return
	}

	// The session middleware commits on first write, cookie included.
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		httpx.RespondError(w, shared.ErrUnauthorized)
		return
	}
	sess.SetUser(m.ID.String())

	httpx.JSON(w, http.StatusOK, struct {
		ID       string `json:"id"`
		MemberNo string `json:"memberNo"`
		Name     string `json:"name"`
		Role     string `json:"role"`
	}{m.ID.String(), m.MemberNo, m.Name, string(m.Role)})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		h.sessions.Destroy(sess)
	}
	w.WriteHeader(http.StatusNoContent)
}
