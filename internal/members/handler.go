package members

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/krishilink/krishilink/internal/platform/httpx"
)

// Handler wires HTTP endpoints for member management.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs a member handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers member routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Post("/", h.handleCreate)
	r.Get("/by-role", h.handleByRole)
	r.Post("/change-password", h.handleChangePassword)
	r.Put("/{id}", h.handleUpdate)
	r.Delete("/{id}", h.handleDelete)
	r.Post("/{id}/grant-membership", h.handleGrantMembership)
	r.Get("/{id}/downline", h.handleDownline)
	r.Get("/{id}/hierarchy", h.handleHierarchy)
}

type memberResponse struct {
	ID       string `json:"id"`
	MemberNo string `json:"memberNo"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	UplineID string `json:"uplineId,omitempty"`
	IsMember bool   `json:"isMember"`
	Mobile   string `json:"mobile,omitempty"`
	Email    string `json:"email,omitempty"`
	Address  string `json:"address,omitempty"`
}

func toResponse(m Member) memberResponse {
	resp := memberResponse{
		ID:       m.ID.String(),
		MemberNo: m.MemberNo,
		Name:     m.Name,
		Role:     string(m.Role),
		IsMember: m.IsMember,
		Mobile:   m.Mobile,
		Email:    m.Email,
		Address:  m.Address,
	}
	if m.UplineID != nil {
		resp.UplineID = m.UplineID.String()
	}
	return resp
}

type treeResponse struct {
	memberResponse
	Children []treeResponse `json:"children,omitempty"`
}

func toTreeResponse(node *TreeNode) treeResponse {
	resp := treeResponse{memberResponse: toResponse(node.Member)}
	for _, child := range node.Children {
		resp.Children = append(resp.Children, toTreeResponse(child))
	}
	return resp
}

type createMemberRequest struct {
	Name     string `json:"name" validate:"required"`
	Role     string `json:"role" validate:"required"`
	UplineID string `json:"uplineId"`
	Mobile   string `json:"mobile"`
	Email    string `json:"email" validate:"omitempty,email"`
	Address  string `json:"address"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	if _, err := RequireAdmin(r.Context()); err != nil {
		httpx.RespondError(w, err)
		return
	}
	list, err := h.service.ListAll(r.Context())
	if err != nil {
		h.logger.Error("list members", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]memberResponse, 0, len(list))
	for _, m := range list {
		out = append(out, toResponse(m))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	actor, err := RequireActor(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req createMemberRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	in := CreateInput{Name: req.Name, Role: req.Role, Mobile: req.Mobile, Email: req.Email, Address: req.Address}
	if req.UplineID != "" {
		id, err := uuid.Parse(req.UplineID)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid upline id")
			return
		}
		in.UplineID = &id
	}
	m, rawPassword, err := h.service.Create(r.Context(), *actor, in)
	if err != nil {
		h.logger.Warn("create member", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, struct {
		memberResponse
		RawPassword string `json:"rawPassword"`
	}{toResponse(*m), rawPassword})
}

func (h *Handler) handleByRole(w http.ResponseWriter, r *http.Request) {
	if _, err := RequireActor(r.Context()); err != nil {
		httpx.RespondError(w, err)
		return
	}
	list, err := h.service.ListByRole(r.Context(), r.URL.Query().Get("role"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	out := make([]memberResponse, 0, len(list))
	for _, m := range list {
		out = append(out, toResponse(m))
	}
	httpx.JSON(w, http.StatusOK, out)
}

type changePasswordRequest struct {
	CurrentPassword    string `json:"currentPassword" validate:"required"`
	NewPassword        string `json:"newPassword" validate:"required,min=6"`
	ConfirmNewPassword string `json:"confirmNewPassword" validate:"required,eqfield=NewPassword"`
}

func (h *Handler) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	actor, err := RequireActor(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req changePasswordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.service.ChangePassword(r.Context(), *actor, req.CurrentPassword, req.NewPassword); err != nil {
		h.logger.Warn("change password", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"message": "password updated"})
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	actor, err := RequireActor(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid member id")
		return
	}
	var req struct {
		Name    string `json:"name" validate:"required"`
		Mobile  string `json:"mobile"`
		Email   string `json:"email" validate:"omitempty,email"`
		Address string `json:"address"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	m, err := h.service.UpdateProfile(r.Context(), *actor, id, UpdateInput{
		Name: req.Name, Mobile: req.Mobile, Email: req.Email, Address: req.Address,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(*m))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	actor, err := RequireActor(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid member id")
		return
	}
	if err := h.service.Delete(r.Context(), *actor, id); err != nil {
		h.logger.Warn("delete member", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleGrantMembership(w http.ResponseWriter, r *http.Request) {
	actor, err := RequireActor(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid member id")
		return
	}
	m, err := h.service.GrantMembership(r.Context(), *actor, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(*m))
}

func (h *Handler) handleDownline(w http.ResponseWriter, r *http.Request) {
	if _, err := RequireActor(r.Context()); err != nil {
		httpx.RespondError(w, err)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid member id")
		return
	}
	list, err := h.service.Downline(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	out := make([]memberResponse, 0, len(list))
	for _, m := range list {
		out = append(out, toResponse(m))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) handleHierarchy(w http.ResponseWriter, r *http.Request) {
	if _, err := RequireActor(r.Context()); err != nil {
		httpx.RespondError(w, err)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid member id")
		return
	}
	tree, err := h.service.Tree(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toTreeResponse(tree))
}
