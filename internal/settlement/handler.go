package settlement

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/krishilink/krishilink/internal/members"
	"github.com/krishilink/krishilink/internal/platform/httpx"
	"github.com/krishilink/krishilink/internal/shared"
)

// Handler wires HTTP endpoints for payment lifecycle, commissions and payouts.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs a settlement handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountTransactionRoutes registers the lifecycle endpoints.
func (h *Handler) MountTransactionRoutes(r chi.Router) {
	r.Post("/{id}/upload-proof", h.handleAttachProof)
	r.Post("/{id}/pay", h.handleMarkPaid)
	r.Post("/{id}/verify", h.handleVerify)
}

// MountCommissionRoutes registers the commission endpoints.
func (h *Handler) MountCommissionRoutes(r chi.Router) {
	r.Get("/mine", h.handleMyCommissions)
	r.Get("/pending", h.handlePendingCommissions)
	r.Post("/pay", h.handlePayCommissions)
}

// MountPayoutRoutes registers the payout endpoints.
func (h *Handler) MountPayoutRoutes(r chi.Router) {
	r.Get("/pending", h.handlePendingPayouts)
	r.Get("/member/{id}", h.handleMemberPayouts)
}

type commissionResponse struct {
	ID            string  `json:"id"`
	TransactionID string  `json:"transactionId"`
	Amount        float64 `json:"amount"`
	Status        string  `json:"status"`
	CreatedAt     string  `json:"createdAt"`
}

type payoutResponse struct {
	ID        string  `json:"id"`
	MemberID  string  `json:"memberId"`
	Amount    float64 `json:"amount"`
	CreatedAt string  `json:"createdAt"`
}

func toPayoutResponse(p Payout) payoutResponse {
	return payoutResponse{
		ID:        p.ID.String(),
		MemberID:  p.MemberID.String(),
		Amount:    p.Amount,
		CreatedAt: p.CreatedAt.Format(time.RFC3339),
	}
}

func transactionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid transaction id")
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) handleAttachProof(w http.ResponseWriter, r *http.Request) {
	actor, err := members.RequireActor(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	id, ok := transactionID(w, r)
	if !ok {
		return
	}
	var req struct {
		ProofRef string `json:"proofRef" validate:"required"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.service.AttachProof(r.Context(), *actor, id, req.ProofRef); err != nil {
		h.logger.Warn("attach proof", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMarkPaid(w http.ResponseWriter, r *http.Request) {
	actor, err := members.RequireActor(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	id, ok := transactionID(w, r)
	if !ok {
		return
	}
	if err := h.service.MarkPaidDirect(r.Context(), *actor, id); err != nil {
		h.logger.Warn("mark paid", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	actor, err := members.RequireActor(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	id, ok := transactionID(w, r)
	if !ok {
		return
	}
	if err := h.service.Verify(r.Context(), *actor, id); err != nil {
		h.logger.Warn("verify transaction", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMyCommissions(w http.ResponseWriter, r *http.Request) {
	actor, err := members.RequireActor(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	list, pending, err := h.service.Commissions(r.Context(), actor.ID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	out := make([]commissionResponse, 0, len(list))
	for _, c := range list {
		out = append(out, commissionResponse{
			ID:            c.ID.String(),
			TransactionID: c.TransactionID.String(),
			Amount:        c.Amount,
			Status:        string(c.Status),
			CreatedAt:     c.CreatedAt.Format(time.RFC3339),
		})
	}
	httpx.JSON(w, http.StatusOK, struct {
		Commissions  []commissionResponse `json:"commissions"`
		PendingTotal float64              `json:"pendingTotal"`
	}{out, pending})
}

func (h *Handler) handlePendingCommissions(w http.ResponseWriter, r *http.Request) {
	actor, err := members.RequireActor(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	list, err := h.service.PendingCommissions(r.Context(), *actor)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	type row struct {
		MemberID string  `json:"memberId"`
		MemberNo string  `json:"memberNo"`
		Name     string  `json:"name"`
		Role     string  `json:"role"`
		Total    float64 `json:"total"`
	}
	out := make([]row, 0, len(list))
	for _, s := range list {
		out = append(out, row{s.MemberID.String(), s.MemberNo, s.Name, string(s.Role), s.Total})
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) handlePayCommissions(w http.ResponseWriter, r *http.Request) {
	actor, err := members.RequireActor(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req struct {
		MemberID string `json:"memberId" validate:"required,uuid"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	memberID, err := uuid.Parse(req.MemberID)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid member id")
		return
	}
	payout, err := h.service.PayCommissions(r.Context(), *actor, memberID)
	if err != nil {
		h.logger.Warn("pay commissions", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toPayoutResponse(*payout))
}

func (h *Handler) handlePendingPayouts(w http.ResponseWriter, r *http.Request) {
	actor, err := members.RequireActor(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	list, err := h.service.PendingPayouts(r.Context(), *actor)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	type row struct {
		MemberID string  `json:"memberId"`
		MemberNo string  `json:"memberNo"`
		Name     string  `json:"name"`
		Role     string  `json:"role"`
		Amount   float64 `json:"amount"`
	}
	out := make([]row, 0, len(list))
	for _, p := range list {
		out = append(out, row{p.MemberID.String(), p.MemberNo, p.Name, string(p.Role), p.Amount})
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) handleMemberPayouts(w http.ResponseWriter, r *http.Request) {
	actor, err := members.RequireActor(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid member id")
		return
	}
	if !actor.IsAdmin() && actor.ID != id {
		httpx.RespondError(w, fmt.Errorf("%w: not your payout history", shared.ErrForbidden))
		return
	}
	list, err := h.service.Payouts(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	out := make([]payoutResponse, 0, len(list))
	for _, p := range list {
		out = append(out, toPayoutResponse(p))
	}
	httpx.JSON(w, http.StatusOK, out)
}
